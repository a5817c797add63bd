package volume

import (
	stderrors "errors"
	"io"

	"github.com/go-git/go-billy/v5"

	"github.com/jmgilman/simplefs/errors"
)

// Range is a half-open byte range [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

// Size returns the number of bytes in the range.
func (r Range) Size() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether o lies entirely within r.
func (r Range) Contains(o Range) bool {
	return o.Start >= r.Start && o.End <= r.End && o.Start <= o.End
}

// Extent is a fixed-length, bounds-checked byte range backed by a billy.File.
// Short transfers and accesses outside [0, Size) fail with CodeIO.
type Extent struct {
	file billy.File
	size int64
}

func newExtent(f billy.File, size int64) *Extent {
	return &Extent{file: f, size: size}
}

// Size returns the extent length.
func (e *Extent) Size() int64 {
	return e.size
}

// ReadAt implements io.ReaderAt.
func (e *Extent) ReadAt(p []byte, off int64) (int, error) {
	if err := e.check(off, len(p)); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	n, err := e.file.ReadAt(p, off)
	if n == len(p) {
		return n, nil
	}
	if err == nil || stderrors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return n, errors.WrapWithContext(err, errors.CodeIO, "short read from backing extent",
		map[string]interface{}{"offset": off, "want": len(p), "got": n})
}

// WriteAt implements io.WriterAt.
//
// billy.File does not declare WriteAt, so files that lack it are written
// with Seek followed by Write.
func (e *Extent) WriteAt(p []byte, off int64) (int, error) {
	if err := e.check(off, len(p)); err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	var (
		n   int
		err error
	)
	if w, ok := e.file.(io.WriterAt); ok {
		n, err = w.WriteAt(p, off)
	} else {
		if _, err = e.file.Seek(off, io.SeekStart); err == nil {
			n, err = e.file.Write(p)
		}
	}

	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return n, errors.WrapWithContext(err, errors.CodeIO, "failed to write backing extent",
			map[string]interface{}{"offset": off, "want": len(p), "got": n})
	}
	return n, nil
}

// Sync flushes the backing file when the backend supports it.
// In-memory backends have nothing to flush.
func (e *Extent) Sync() error {
	if syncer, ok := e.file.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			return errors.Wrap(err, errors.CodeIO, "failed to sync backing extent")
		}
	}
	return nil
}

func (e *Extent) check(off int64, n int) error {
	if off < 0 || off > e.size || int64(n) > e.size-off {
		return errors.WithContextMap(
			errors.New(errors.CodeIO, "access outside backing extent"),
			map[string]interface{}{"offset": off, "length": n, "size": e.size},
		)
	}
	return nil
}

var (
	_ io.ReaderAt = (*Extent)(nil)
	_ io.WriterAt = (*Extent)(nil)
)
