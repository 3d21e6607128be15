// Unified error handling for the Kobra panel host
//
// Copyright (C) 2026  Kobra Panel Host Authors
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import "fmt"

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors
	ErrConfigLoad       ErrorCode = "CONFIG_LOAD"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Panel frame errors
	ErrFrameTimeout  ErrorCode = "FRAME_TIMEOUT"
	ErrFrameOverflow ErrorCode = "FRAME_OVERFLOW"

	// Page dispatch errors
	ErrPageUnknown ErrorCode = "PAGE_UNKNOWN"

	// Recovery errors
	ErrSnapshotInvalid ErrorCode = "SNAPSHOT_INVALID"
	ErrSnapshotMarshal ErrorCode = "SNAPSHOT_MARSHAL"
	ErrStoreIO         ErrorCode = "STORE_IO"

	// Runtime errors
	ErrRuntime ErrorCode = "RUNTIME"
)

// HostError is the unified error type for the host system
type HostError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Component is the subsystem that raised the error
	Component string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *HostError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Code, e.Component, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *HostError) Unwrap() error {
	return e.Err
}

// SetComponent sets the originating subsystem
func (e *HostError) SetComponent(component string) *HostError {
	e.Component = component
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

// ConfigLoadError creates an error for config file load failure
func ConfigLoadError(path string, err error) *HostError {
	return Wrap(err, ErrConfigLoad, fmt.Sprintf("failed to load config '%s'", path)).
		SetContext("path", path)
}

// ConfigValidationError creates an error for config validation failure
func ConfigValidationError(option string, reason string) *HostError {
	return New(ErrConfigValidation, fmt.Sprintf("option '%s': %s", option, reason)).
		SetContext("option", option)
}

// Frame errors

// FrameTimeoutError creates an error for a decoder sync timeout
func FrameTimeoutError(waited string) *HostError {
	return New(ErrFrameTimeout, fmt.Sprintf("sync byte not followed within %s", waited)).
		SetComponent("frame")
}

// FrameOverflowError creates an error for a payload overflowing the decode buffer
func FrameOverflowError(length int, capacity int) *HostError {
	return New(ErrFrameOverflow, fmt.Sprintf("payload length %d exceeds buffer capacity %d", length, capacity)).
		SetComponent("frame")
}

// Page errors

// PageUnknownError creates an error for an unmapped page index
func PageUnknownError(page uint32) *HostError {
	return New(ErrPageUnknown, fmt.Sprintf("no handler for page %d", page)).
		SetComponent("dispatch").
		SetContext("page", page)
}

// Recovery errors

// SnapshotInvalidError creates an error for a torn or unwritten snapshot record
func SnapshotInvalidError(head, foot uint8) *HostError {
	return New(ErrSnapshotInvalid, fmt.Sprintf("validity markers mismatch: head=%d foot=%d", head, foot)).
		SetComponent("recovery")
}

// StoreIOError creates an error for persistent store access failure
func StoreIOError(op string, err error) *HostError {
	return Wrap(err, ErrStoreIO, fmt.Sprintf("store %s failed", op)).
		SetComponent("recovery")
}

// Is checks if error matches given error code
func Is(err error, code ErrorCode) bool {
	if hostErr, ok := err.(*HostError); ok {
		return hostErr.Code == code
	}
	return false
}
