// Package errors provides the structured errors returned by the volume and
// its collaborators.
//
// Every failure carries an ErrorCode naming the kind of failure, a
// human-readable message, optional context metadata and the wrapped cause.
// The package stays compatible with the standard library errors package
// (errors.Is, errors.As, errors.Unwrap).
//
// # Error Codes
//
//   - Namespace: CodeNotFound, CodeAlreadyExists
//   - Capacity: CodeNoFreeSlot, CodeNoSpace
//   - Validation: CodeOutOfRange, CodeInvalidArgument, CodeInvalidConfig
//   - Storage: CodeIO, CodeViolation, CodeNetwork
//   - System: CodeInternal, CodeUnknown
//
// # Quick Start
//
// Creating errors:
//
//	err := errors.New(errors.CodeNotFound, "file not found")
//	err := errors.Newf(errors.CodeOutOfRange, "read of %d bytes at %d exceeds size %d", n, off, size)
//
// Wrapping errors:
//
//	if _, err := f.ReadAt(buf, off); err != nil {
//	    return errors.Wrap(err, errors.CodeIO, "failed to read extent")
//	}
//
// Adding context:
//
//	err = errors.WithContext(err, "file", name)
//
// Inspecting errors:
//
//	switch errors.GetCode(err) {
//	case errors.CodeNotFound:
//	case errors.CodeNoSpace:
//	}
//
// Errors are never retried automatically. A failure in the middle of a table
// write leaves the backing extent as far as the write got; callers should run
// an integrity check before trusting the volume again.
package errors
