// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package errors

import "errors"

// AuthError represents a token/401-after-retry failure against the
// identity provider.
type AuthError struct {
	base
}

// Error returns the error message for AuthError.
func (e AuthError) Error() string {
	return e.error()
}

// Unwrap returns the wrapped error, if any.
func (e AuthError) Unwrap() error {
	return e.err
}

// NewAuthError creates a new AuthError with the provided message.
func NewAuthError(message string, err ...error) AuthError {
	return AuthError{base: base{message: message, err: errors.Join(err...)}}
}

// RemoteError represents a non-2xx response from the identity provider
// that isn't a 401 (those surface as AuthError). Status carries the HTTP
// status code; BodyHint a short, non-sensitive excerpt of the response body.
type RemoteError struct {
	base
	Status   int
	BodyHint string
}

// Error returns the error message for RemoteError.
func (e RemoteError) Error() string {
	return e.error()
}

// Unwrap returns the wrapped error, if any.
func (e RemoteError) Unwrap() error {
	return e.err
}

// NewRemoteError creates a new RemoteError with the provided status and message.
func NewRemoteError(status int, bodyHint, message string, err ...error) RemoteError {
	return RemoteError{
		base:     base{message: message, err: errors.Join(err...)},
		Status:   status,
		BodyHint: bodyHint,
	}
}

// StoreError represents an LMS store write failure.
type StoreError struct {
	base
}

// Error returns the error message for StoreError.
func (e StoreError) Error() string {
	return e.error()
}

// Unwrap returns the wrapped error, if any.
func (e StoreError) Unwrap() error {
	return e.err
}

// NewStoreError creates a new StoreError with the provided message.
func NewStoreError(message string, err ...error) StoreError {
	return StoreError{base: base{message: message, err: errors.Join(err...)}}
}

// CancelledError represents a cooperative cancellation observed between
// phases of a sync run.
type CancelledError struct {
	base
}

// Error returns the error message for CancelledError.
func (e CancelledError) Error() string {
	return e.error()
}

// Unwrap returns the wrapped error, if any.
func (e CancelledError) Unwrap() error {
	return e.err
}

// NewCancelledError creates a new CancelledError with the provided message.
func NewCancelledError(message string, err ...error) CancelledError {
	return CancelledError{base: base{message: message, err: errors.Join(err...)}}
}

// Kind returns the §7 error-kind label for a phase error, used when
// recording a structured ErrorDetail. Unrecognized errors report "unexpected".
func Kind(err error) string {
	switch {
	case errors.As(err, &AuthError{}):
		return "AuthError"
	case errors.As(err, &RemoteError{}):
		return "RemoteError"
	case errors.As(err, &StoreError{}):
		return "StoreError"
	case errors.As(err, &Validation{}):
		return "ValidationError"
	case errors.As(err, &Conflict{}):
		return "ConflictError"
	case errors.As(err, &CancelledError{}):
		return "CancelledError"
	case errors.As(err, &NotFound{}):
		return "NotFound"
	default:
		return "unexpected"
	}
}
