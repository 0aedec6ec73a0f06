// Package config parses printer.cfg style files: [section] headers,
// "key: value" options, # comments and [include file] directives, with
// typed getters that record which options were read.
package config

import (
	"fmt"

	"deltacal/pkg/errors"
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Section string
	Option  string
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Option != "" {
		return fmt.Sprintf("Option '%s' in section '%s': %s", e.Option, e.Section, e.Message)
	}
	if e.Section != "" {
		return fmt.Sprintf("Section '%s': %s", e.Section, e.Message)
	}
	return e.Message
}

// Unwrap exposes the coded error so errors.IsConfig recognises it.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

func newError(cause *errors.HostError, section, option, message string) *ConfigError {
	return &ConfigError{
		Section: section,
		Option:  option,
		Message: message,
		Cause:   cause,
	}
}

func invalid(section, option, message string) *ConfigError {
	return newError(errors.ConfigValidationError(section, option, message), section, option, message)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(section, option, message string) *ConfigError {
	return invalid(section, option, message)
}

// WrapError wraps an existing error with config context.
func WrapError(section, option string, err error) *ConfigError {
	return newError(errors.Wrap(err, errors.ErrConfigValidation, "invalid value").SetSection(section).SetOption(option),
		section, option, err.Error())
}

// ErrMissingOption returns an error for a required but missing option.
func ErrMissingOption(section, option string) *ConfigError {
	const msg = "must be specified"
	return newError(errors.New(errors.ErrConfigOption, msg).SetSection(section).SetOption(option),
		section, option, msg)
}

// ErrMissingSection returns an error for a missing section.
func ErrMissingSection(section string) *ConfigError {
	return newError(errors.ConfigSectionError(section), section, "", "section not found")
}

// ErrInvalidValue returns an error for an invalid value.
func ErrInvalidValue(section, option, value, expected string) *ConfigError {
	return invalid(section, option, fmt.Sprintf("invalid value '%s', expected %s", value, expected))
}

// ErrOutOfRange returns an error for a value outside the allowed range.
func ErrOutOfRange(section, option string, value float64, constraint string) *ConfigError {
	return invalid(section, option, fmt.Sprintf("value %v %s", value, constraint))
}

// ErrInvalidChoice returns an error for an invalid choice value.
func ErrInvalidChoice(section, option, value string, choices []string) *ConfigError {
	return invalid(section, option, fmt.Sprintf("'%s' is not a valid choice (valid: %v)", value, choices))
}
