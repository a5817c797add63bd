package errors

// ErrorCode represents a specific error condition.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Namespace errors.

	// CodeNotFound indicates no valid record carries the requested name.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyExists indicates a valid record already carries the name.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Capacity errors.

	// CodeNoFreeSlot indicates every slot of the metadata table is occupied.
	CodeNoFreeSlot ErrorCode = "NO_FREE_SLOT"

	// CodeNoSpace indicates the allocator cannot place the requested extent
	// inside the data region.
	CodeNoSpace ErrorCode = "NO_SPACE"

	// Validation errors.

	// CodeOutOfRange indicates a read past the end of a file.
	CodeOutOfRange ErrorCode = "OUT_OF_RANGE"

	// CodeInvalidArgument indicates the caller passed an unusable argument,
	// for example a truncate that would grow the file.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// Storage errors.

	// CodeIO indicates the backing extent could not be opened, read or
	// written, or that a transfer came back short.
	CodeIO ErrorCode = "IO_ERROR"

	// CodeViolation indicates the integrity checker found records whose
	// extents escape the data region.
	CodeViolation ErrorCode = "INTEGRITY_VIOLATION"

	// CodeNetwork indicates a remote backup target could not be reached.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// System errors.

	// CodeInternal indicates an internal error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)
