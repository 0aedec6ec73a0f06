package config

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Section is one [name] block. Option names are case insensitive and every
// getter marks the option as read, including when a fallback is used.
type Section struct {
	name    string
	options map[string]string

	mu       sync.Mutex
	accessed map[string]struct{}
}

func newSection(name string, options map[string]string) *Section {
	opts := make(map[string]string, len(options))
	for k, v := range options {
		opts[strings.ToLower(k)] = v
	}
	return &Section{
		name:     name,
		options:  opts,
		accessed: make(map[string]struct{}),
	}
}

// GetName returns the section name.
func (s *Section) GetName() string {
	return s.name
}

// lookup returns the raw value of option and marks it as read.
func (s *Section) lookup(option string) (string, bool) {
	key := strings.ToLower(option)
	s.mu.Lock()
	s.accessed[key] = struct{}{}
	s.mu.Unlock()
	v, ok := s.options[key]
	return strings.TrimSpace(v), ok
}

// GetUnusedOptions returns the options that were never read, sorted.
func (s *Section) GetUnusedOptions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []string
	for opt := range s.options {
		if _, ok := s.accessed[opt]; !ok {
			result = append(result, opt)
		}
	}
	sort.Strings(result)
	return result
}

// HasOption checks if an option exists without marking it as read.
func (s *Section) HasOption(option string) bool {
	_, ok := s.options[strings.ToLower(option)]
	return ok
}

// Get returns a string option value, the fallback if the option is absent,
// or an error if neither exists.
func (s *Section) Get(option string, fallback ...string) (string, error) {
	if v, ok := s.lookup(option); ok {
		return v, nil
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	return "", ErrMissingOption(s.name, option)
}

// GetInt returns an integer option value.
func (s *Section) GetInt(option string, fallback ...int) (int, error) {
	if v, ok := s.lookup(option); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			return 0, ErrInvalidValue(s.name, option, v, "integer")
		}
		return i, nil
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	return 0, ErrMissingOption(s.name, option)
}

// GetIntWithBounds returns an integer option value with bounds checking.
func (s *Section) GetIntWithBounds(option string, minVal, maxVal *int, fallback ...int) (int, error) {
	v, err := s.GetInt(option, fallback...)
	if err != nil {
		return 0, err
	}
	if minVal != nil && v < *minVal {
		return 0, ErrOutOfRange(s.name, option, float64(v), "must have minimum of "+strconv.Itoa(*minVal))
	}
	if maxVal != nil && v > *maxVal {
		return 0, ErrOutOfRange(s.name, option, float64(v), "must have maximum of "+strconv.Itoa(*maxVal))
	}
	return v, nil
}

func (s *Section) parseFloat(option, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, ErrInvalidValue(s.name, option, v, "float")
	}
	return f, nil
}

// GetFloat returns a float64 option value.
func (s *Section) GetFloat(option string, fallback ...float64) (float64, error) {
	if v, ok := s.lookup(option); ok {
		return s.parseFloat(option, v)
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	return 0, ErrMissingOption(s.name, option)
}

// FloatBounds specifies bounds for GetFloatWithBounds.
type FloatBounds struct {
	MinVal *float64 // minimum value (>=)
	MaxVal *float64 // maximum value (<=)
	Above  *float64 // must be above this value (>)
	Below  *float64 // must be below this value (<)
}

// Above is shorthand for FloatBounds{Above: &v}.
func Above(v float64) FloatBounds {
	return FloatBounds{Above: &v}
}

// AtLeast is shorthand for FloatBounds{MinVal: &v}.
func AtLeast(v float64) FloatBounds {
	return FloatBounds{MinVal: &v}
}

func (s *Section) checkBounds(option string, v float64, b FloatBounds) error {
	format := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	switch {
	case b.MinVal != nil && v < *b.MinVal:
		return ErrOutOfRange(s.name, option, v, "must have minimum of "+format(*b.MinVal))
	case b.MaxVal != nil && v > *b.MaxVal:
		return ErrOutOfRange(s.name, option, v, "must have maximum of "+format(*b.MaxVal))
	case b.Above != nil && v <= *b.Above:
		return ErrOutOfRange(s.name, option, v, "must be above "+format(*b.Above))
	case b.Below != nil && v >= *b.Below:
		return ErrOutOfRange(s.name, option, v, "must be below "+format(*b.Below))
	}
	return nil
}

// GetFloatWithBounds returns a float64 option value with bounds checking.
func (s *Section) GetFloatWithBounds(option string, bounds FloatBounds, fallback ...float64) (float64, error) {
	v, err := s.GetFloat(option, fallback...)
	if err != nil {
		return 0, err
	}
	if err := s.checkBounds(option, v, bounds); err != nil {
		return 0, err
	}
	return v, nil
}

// GetBool returns a boolean option value.
// Accepts: 1, true, yes, on (true) and 0, false, no, off (false).
func (s *Section) GetBool(option string, fallback ...bool) (bool, error) {
	if v, ok := s.lookup(option); ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off":
			return false, nil
		default:
			return false, ErrInvalidValue(s.name, option, v, "boolean (true/false/yes/no/on/off/1/0)")
		}
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	return false, ErrMissingOption(s.name, option)
}

// GetChoice returns a string option that must be one of the valid choices.
func (s *Section) GetChoice(option string, choices []string, fallback ...string) (string, error) {
	v, err := s.Get(option, fallback...)
	if err != nil {
		return "", err
	}
	for _, c := range choices {
		if strings.EqualFold(v, c) {
			return c, nil
		}
	}
	return "", ErrInvalidChoice(s.name, option, v, choices)
}

func splitList(v, sep string) []string {
	result := []string{}
	for _, p := range strings.Split(v, sep) {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

// GetList returns a list of strings split by sep, with empty items dropped.
func (s *Section) GetList(option string, sep string, fallback ...[]string) ([]string, error) {
	if v, ok := s.lookup(option); ok {
		return splitList(v, sep), nil
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	return nil, ErrMissingOption(s.name, option)
}

// GetFloatList returns a list of floats split by sep.
func (s *Section) GetFloatList(option string, sep string, fallback ...[]float64) ([]float64, error) {
	if v, ok := s.lookup(option); ok {
		parts := splitList(v, sep)
		result := make([]float64, 0, len(parts))
		for _, p := range parts {
			f, err := s.parseFloat(option, p)
			if err != nil {
				return nil, err
			}
			result = append(result, f)
		}
		return result, nil
	}
	if len(fallback) > 0 {
		return fallback[0], nil
	}
	return nil, ErrMissingOption(s.name, option)
}

// GetTowerFloats returns a comma separated per-tower triple. A single value
// applies to all three towers.
func (s *Section) GetTowerFloats(option string, fallback ...[3]float64) ([3]float64, error) {
	var out [3]float64
	if !s.HasOption(option) && len(fallback) > 0 {
		s.lookup(option)
		return fallback[0], nil
	}
	vals, err := s.GetFloatList(option, ",")
	if err != nil {
		return out, err
	}
	switch len(vals) {
	case 1:
		out = [3]float64{vals[0], vals[0], vals[0]}
	case 3:
		copy(out[:], vals)
	default:
		v, _ := s.lookup(option)
		return out, ErrInvalidValue(s.name, option, v, "one value or three comma separated values")
	}
	return out, nil
}
