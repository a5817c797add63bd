package errors

import "fmt"

// Wrap wraps an error with a code and message while preserving the original
// error. The wrapped error is accessible via Unwrap() and compatible with
// errors.Is and errors.As.
//
// Returns nil if err is nil.
//
// Example:
//
//	if _, err := f.ReadAt(buf, 0); err != nil {
//	    return errors.Wrap(err, errors.CodeIO, "failed to read metadata table")
//	}
func Wrap(err error, code ErrorCode, message string) StoreError {
	if err == nil {
		return nil
	}

	return &storeError{
		code:    code,
		message: message,
		cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
//
// Returns nil if err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) StoreError {
	if err == nil {
		return nil
	}

	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WrapWithContext wraps an error and attaches context metadata in a single
// operation. The context map is copied to prevent external mutation.
//
// Returns nil if err is nil.
//
// Example:
//
//	return errors.WrapWithContext(err, errors.CodeIO, "failed to relocate extent", map[string]interface{}{
//	    "file":  name,
//	    "start": start,
//	})
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) StoreError {
	if err == nil {
		return nil
	}

	var contextCopy map[string]interface{}
	if ctx != nil {
		contextCopy = copyContext(ctx)
	}

	return &storeError{
		code:    code,
		message: message,
		context: contextCopy,
		cause:   err,
	}
}
