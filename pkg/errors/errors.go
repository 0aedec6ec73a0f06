// Unified error handling for the delta calibrator
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors
	ErrConfigSection    ErrorCode = "CONFIG_SECTION"
	ErrConfigOption     ErrorCode = "CONFIG_OPTION"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Kinematics errors
	ErrKinematics       ErrorCode = "KINEMATICS"
	ErrKinematicsReach  ErrorCode = "KINEMATICS_REACH"
	ErrKinematicsLayout ErrorCode = "KINEMATICS_LAYOUT"

	// Calibration errors
	ErrCalibrationConfig          ErrorCode = "CALIBRATION_CONFIG"
	ErrCalibrationUnderdetermined ErrorCode = "CALIBRATION_UNDERDETERMINED"
	ErrCalibrationDegenerate      ErrorCode = "CALIBRATION_DEGENERATE"

	// Probe data errors
	ErrProbeFormat ErrorCode = "PROBE_FORMAT"
	ErrProbeSearch ErrorCode = "PROBE_SEARCH"
)

// HostError is the unified error type for the calibrator
type HostError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Section is the config section or context
	Section string

	// Option is the config option name (if applicable)
	Option string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *HostError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Section != "" {
		msg = fmt.Sprintf("[%s:%s] %s", e.Code, e.Section, e.Message)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *HostError) Unwrap() error {
	return e.Err
}

// SetSection sets the context section
func (e *HostError) SetSection(section string) *HostError {
	e.Section = section
	return e
}

// SetOption sets the config option
func (e *HostError) SetOption(option string) *HostError {
	e.Option = option
	return e
}

// SetContext adds additional context
func (e *HostError) SetContext(key string, value interface{}) *HostError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// New creates a new HostError
func New(code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
	}
}

// Config errors

// ConfigSectionError creates an error for missing config section
func ConfigSectionError(section string) *HostError {
	return New(ErrConfigSection, fmt.Sprintf("section '%s' not found", section)).
		SetSection(section)
}

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(section, option string, reason string) *HostError {
	return New(ErrConfigValidation, fmt.Sprintf("option '%s': %s", option, reason)).
		SetSection(section).
		SetOption(option)
}

// Kinematics errors

// KinematicsError creates a general kinematics error
func KinematicsError(message string) *HostError {
	return New(ErrKinematics, message)
}

// ReachabilityError reports a point outside the rods' physical envelope.
func ReachabilityError(what string, x, y, z float64) *HostError {
	return New(ErrKinematicsReach, fmt.Sprintf("%s (%.3f, %.3f, %.3f) is not reachable; check radius, rod length or probe coordinates", what, x, y, z)).
		SetContext("x", x).
		SetContext("y", y).
		SetContext("z", z)
}

// LayoutError reports a tower layout that cannot be trilaterated.
func LayoutError(reason string) *HostError {
	return New(ErrKinematicsLayout, "degenerate tower layout: "+reason)
}

// Calibration errors

// CalibrationConfigError creates an error for an unusable calibration request
func CalibrationConfigError(message string) *HostError {
	return New(ErrCalibrationConfig, message)
}

// UnderdeterminedError reports more selected factors than probe samples.
func UnderdeterminedError(factors, samples int) *HostError {
	return New(ErrCalibrationUnderdetermined,
		fmt.Sprintf("need at least as many probe points as factors: %d factors, %d points", factors, samples)).
		SetContext("factors", factors).
		SetContext("samples", samples)
}

// DegeneracyError reports a linear solve that produced no usable correction.
func DegeneracyError(iteration int, err error) *HostError {
	return Wrap(err, ErrCalibrationDegenerate,
		fmt.Sprintf("unable to calculate corrections at iteration %d; make sure the probe points are all distinct", iteration)).
		SetContext("iteration", iteration)
}

// Probe errors

// ProbeFormatError creates an error for an unreadable probe file
func ProbeFormatError(message string, err error) *HostError {
	return Wrap(err, ErrProbeFormat, message)
}

// ProbeSearchError creates an error for a simulated probe that never triggered
func ProbeSearchError(x, y float64, attempts int) *HostError {
	return New(ErrProbeSearch, fmt.Sprintf("probe at (%.3f, %.3f) did not converge after %d attempts", x, y, attempts))
}

// Is checks if any error in err's chain carries the given code
func Is(err error, code ErrorCode) bool {
	var hostErr *HostError
	for err != nil {
		if !stderrors.As(err, &hostErr) {
			return false
		}
		if hostErr.Code == code {
			return true
		}
		err = hostErr.Err
	}
	return false
}

// CodeOf returns the code of the outermost HostError in err's chain
func CodeOf(err error) ErrorCode {
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr.Code
	}
	return ""
}

// IsConfig checks if error is a config error
func IsConfig(err error) bool {
	return Is(err, ErrConfigSection) ||
		Is(err, ErrConfigOption) ||
		Is(err, ErrConfigValidation) ||
		Is(err, ErrCalibrationConfig)
}

// IsKinematics checks if error is a kinematics error
func IsKinematics(err error) bool {
	return Is(err, ErrKinematics) ||
		Is(err, ErrKinematicsReach) ||
		Is(err, ErrKinematicsLayout)
}
