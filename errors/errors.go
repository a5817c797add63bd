package errors

import "fmt"

// StoreError extends the standard error interface with structured information
// for consistent error handling across the volume and its collaborators.
//
// StoreError carries an error code for categorization, a human-readable
// message, optional context metadata and an optional cause. It is compatible
// with standard library error handling (errors.Is, errors.As, errors.Unwrap).
type StoreError interface {
	error

	// Code returns the error code identifying the type of error.
	Code() ErrorCode

	// Message returns the human-readable error message.
	Message() string

	// Context returns attached metadata as a read-only map.
	// Returns nil if no context has been attached.
	Context() map[string]interface{}

	// Unwrap returns the wrapped error, or nil.
	Unwrap() error
}

// storeError is the concrete implementation of StoreError.
// It is private to enforce construction through package functions.
type storeError struct {
	code    ErrorCode
	message string
	context map[string]interface{}
	cause   error
}

// Error returns "[CODE] message" or "[CODE] message: cause".
func (e *storeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *storeError) Code() ErrorCode {
	return e.code
}

func (e *storeError) Message() string {
	return e.message
}

// Context returns a copy of the context map.
func (e *storeError) Context() map[string]interface{} {
	if e.context == nil {
		return nil
	}
	return copyContext(e.context)
}

func (e *storeError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a StoreError with the same code and no
// message of its own. This lets callers keep code sentinels:
//
//	var errMissing = errors.New(errors.CodeNotFound, "")
//	if errors.Is(err, errMissing) { ... }
func (e *storeError) Is(target error) bool {
	t, ok := target.(*storeError)
	if !ok {
		return false
	}
	return t.message == "" && t.code == e.code
}

func copyContext(ctx map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}
