// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package model defines the core data structures for the application.
// This file defines the single, typed error channel used by every service in
// the repository. All failures surface as a *model.Error carrying one of the
// enumerated kinds, so callers branch on the kind with errors.As rather than
// matching on message substrings.
package model

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the failure categories a production operation can
// surface. The set is closed: every error returned by a service maps to
// exactly one of these.
type ErrorKind int

const (
	// ErrUnexpected is the catch-all for failures that do not fit a more
	// specific category.
	ErrUnexpected ErrorKind = iota
	// ErrInvalidInput covers malformed locators, unknown voice categories,
	// empty input lists, and other caller mistakes.
	ErrInvalidInput
	// ErrNotFound indicates a referenced bucket or object does not exist.
	ErrNotFound
	// ErrRemoteCall indicates a provider API call failed at the network or
	// HTTP level, or returned an unusable payload.
	ErrRemoteCall
	// ErrTimeout indicates a long-running operation exceeded its wait bound.
	ErrTimeout
	// ErrJobFailed indicates a transcoding job reached its FAILED terminal
	// state; the message and details come from the job status verbatim.
	ErrJobFailed
)

// String returns the stable name of the kind, used in logs and API payloads.
func (k ErrorKind) String() string {
	switch k {
	case ErrInvalidInput:
		return "INVALID_INPUT"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrRemoteCall:
		return "REMOTE_CALL_FAILURE"
	case ErrTimeout:
		return "TIMEOUT"
	case ErrJobFailed:
		return "JOB_FAILED"
	default:
		return "UNEXPECTED"
	}
}

// Error is the tagged error type shared by all services. It wraps an optional
// underlying cause so errors.Is/As continue to see provider error values.
type Error struct {
	Kind    ErrorKind // The failure category.
	Message string    // Human-readable description.
	Cause   error     // The wrapped underlying error, if any.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError constructs a tagged error with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError constructs a tagged error around an underlying cause.
func WrapError(kind ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the ErrorKind from any error. Errors that did not originate
// from this package report ErrUnexpected.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ErrUnexpected
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
