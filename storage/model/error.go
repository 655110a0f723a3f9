package model

import (
	"fmt"
)

// NotFoundError is an error signaling that something was not found in the
// database
type NotFoundError string

// Error implements the error interface
func (e NotFoundError) Error() string {
	return string(e)
}

// NotFoundErrorFmt returns a NotFoundError from the passed format string and parameters
func NotFoundErrorFmt(format string, params ...any) NotFoundError {
	return NotFoundError(fmt.Sprintf(format, params...))
}

// AlreadyExistsError is an error signaling that a row with the same identity
// already exists in the database
type AlreadyExistsError string

// Error implements the error interface
func (e AlreadyExistsError) Error() string {
	return string(e)
}

// AlreadyExistsErrorFmt returns an AlreadyExistsError from the passed format string and parameters
func AlreadyExistsErrorFmt(format string, params ...any) AlreadyExistsError {
	return AlreadyExistsError(fmt.Sprintf(format, params...))
}

// InvalidTransitionError is an error signaling that a recipient status change
// is not allowed from the current status
type InvalidTransitionError string

// Error implements the error interface
func (e InvalidTransitionError) Error() string {
	return string(e)
}

// InvalidTransitionErrorFmt returns an InvalidTransitionError from the passed format string and parameters
func InvalidTransitionErrorFmt(format string, params ...any) InvalidTransitionError {
	return InvalidTransitionError(fmt.Sprintf(format, params...))
}
