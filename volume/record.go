package volume

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/jmgilman/simplefs/errors"
)

// Record is one slot of the metadata table.
type Record struct {
	Valid     bool
	Name      string
	Size      uint32
	Start     uint32
	CreatedAt time.Time
}

// Range returns the half-open byte range the record's data occupies.
func (r Record) Range() Range {
	return Range{Start: uint64(r.Start), End: uint64(r.Start) + uint64(r.Size)}
}

func encodeRecord(dst []byte, r Record) {
	if r.Valid {
		dst[offValid] = 1
	} else {
		dst[offValid] = 0
	}

	name := dst[offName : offName+NameSize]
	n := copy(name[:MaxNameLen], r.Name)
	clear(name[n:])

	binary.LittleEndian.PutUint32(dst[offSize:], r.Size)
	binary.LittleEndian.PutUint32(dst[offStart:], r.Start)

	var created int64
	if !r.CreatedAt.IsZero() {
		created = r.CreatedAt.Unix()
	}
	binary.LittleEndian.PutUint64(dst[offCreatedAt:], uint64(created))
}

func decodeRecord(src []byte) Record {
	name := src[offName : offName+NameSize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}

	r := Record{
		Valid: src[offValid] != 0,
		Name:  string(name),
		Size:  binary.LittleEndian.Uint32(src[offSize:]),
		Start: binary.LittleEndian.Uint32(src[offStart:]),
	}
	if secs := int64(binary.LittleEndian.Uint64(src[offCreatedAt:])); secs != 0 {
		r.CreatedAt = time.Unix(secs, 0)
	}
	return r
}

// ValidateName reports whether name fits the fixed name field.
func ValidateName(name string) error {
	switch {
	case name == "":
		return errors.New(errors.CodeInvalidArgument, "file name must not be empty")
	case len(name) > MaxNameLen:
		return errors.WithContext(
			errors.Newf(errors.CodeInvalidArgument, "file name too long: %d bytes (max %d)", len(name), MaxNameLen),
			"file", name,
		)
	case bytes.IndexByte([]byte(name), 0) >= 0:
		return errors.New(errors.CodeInvalidArgument, "file name must not contain NUL bytes")
	}
	return nil
}
