package errors

import "errors"

// WithContext adds a single context field to an error.
// Returns a new StoreError with the field added; existing fields are kept.
//
// If err is not a StoreError, it is converted to one with CodeUnknown.
// Returns nil if err is nil.
//
// Example:
//
//	err := errors.New(errors.CodeNoSpace, "data region exhausted")
//	err = errors.WithContext(err, "requested", size)
func WithContext(err error, key string, value interface{}) StoreError {
	return WithContextMap(err, map[string]interface{}{key: value})
}

// WithContextMap adds multiple context fields to an error.
// New fields override existing ones with the same key.
//
// If err is not a StoreError, it is converted to one with CodeUnknown.
// Returns nil if err is nil.
func WithContextMap(err error, ctx map[string]interface{}) StoreError {
	if err == nil {
		return nil
	}

	var storeErr StoreError
	if !errors.As(err, &storeErr) {
		storeErr = &storeError{
			code:    CodeUnknown,
			message: err.Error(),
			cause:   err,
		}
	}

	merged := make(map[string]interface{})
	for k, v := range storeErr.Context() {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}

	return &storeError{
		code:    storeErr.Code(),
		message: storeErr.Message(),
		context: merged,
		cause:   storeErr.Unwrap(),
	}
}
