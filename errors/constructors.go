package errors

import "fmt"

// New creates a new StoreError with the given code and message.
//
// Example:
//
//	err := errors.New(errors.CodeNotFound, "file not found")
func New(code ErrorCode, message string) StoreError {
	return &storeError{
		code:    code,
		message: message,
	}
}

// Newf creates a new StoreError with a formatted message.
//
// Example:
//
//	err := errors.Newf(errors.CodeInvalidArgument, "name too long: %d bytes (max %d)", len(name), max)
func Newf(code ErrorCode, format string, args ...interface{}) StoreError {
	return &storeError{
		code:    code,
		message: fmt.Sprintf(format, args...),
	}
}
