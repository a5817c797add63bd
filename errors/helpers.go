package errors

import (
	stderrors "errors"
)

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard library errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard library errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// GetCode extracts the ErrorCode from an error.
// Returns CodeUnknown if the error is nil or not a StoreError.
//
// The code of the outermost StoreError in the chain wins.
//
// Example:
//
//	if errors.GetCode(err) == errors.CodeNotFound {
//	    // Handle not found
//	}
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var storeErr StoreError
	if stderrors.As(err, &storeErr) {
		return storeErr.Code()
	}

	return CodeUnknown
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}
