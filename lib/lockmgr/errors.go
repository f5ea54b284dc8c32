package lockmgr

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message. Every failure is local to one call and one resource;
// no error returned by the manager is fatal to the manager itself.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCTimeout:
		errorCode = "Timeout"
	case RetCNotHeld:
		errorCode = "NotHeld"
	case RetCInvalidArgument:
		errorCode = "InvalidArgument"
	case RetCInternalError:
		errorCode = "InternalError"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("LockManagerError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess         RetCode = iota // 0: Command executed successfully.
	RetCTimeout                        // 1: Lock not granted within the requested wait budget (recoverable, retry).
	RetCNotHeld                        // 2: Release/UpdateTTL referenced an id not currently held.
	RetCInvalidArgument                // 3: Malformed ttl/waitTTL or empty resource key.
	RetCInternalError                  // 4: Command failed due to an internal error.
)

// --------------------------------------------------------------------------
// Error Predicates
// --------------------------------------------------------------------------

// hasCode checks whether err is a *Error with the given code.
func hasCode(err error, code RetCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsTimeout reports whether err signals that a lock could not be granted
// within the requested wait budget.
func IsTimeout(err error) bool { return hasCode(err, RetCTimeout) }

// IsNotHeld reports whether err signals that the referenced handle id is
// not among the current holders of the resource.
func IsNotHeld(err error) bool { return hasCode(err, RetCNotHeld) }

// IsInvalidArgument reports whether err signals a malformed request that was
// rejected before touching any lock state.
func IsInvalidArgument(err error) bool { return hasCode(err, RetCInvalidArgument) }
