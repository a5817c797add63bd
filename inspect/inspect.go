// Package inspect displays and compares files stored on a volume.
package inspect

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/jmgilman/simplefs/errors"
	"github.com/jmgilman/simplefs/logging"
	"github.com/jmgilman/simplefs/volume"
)

// chunkSize bounds how much of a file is held in memory at once.
const chunkSize = 64 * 1024

// Source is the read side of a volume.
type Source interface {
	Size(name string) (uint32, error)
	Read(name string, offset, length uint32) ([]byte, error)
}

// Outcome classifies a comparison.
type Outcome int

const (
	// Identical means equal size and equal bytes.
	Identical Outcome = iota
	// SizeMismatch means the sizes differ; content is not compared.
	SizeMismatch
	// ContentMismatch means equal sizes but differing bytes.
	ContentMismatch
)

func (o Outcome) String() string {
	switch o {
	case Identical:
		return "identical"
	case SizeMismatch:
		return "size mismatch"
	case ContentMismatch:
		return "content mismatch"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome as its String form.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the outcome of Diff.
type Result struct {
	Outcome Outcome `json:"outcome"`
	SizeA   uint32  `json:"size_a"`
	SizeB   uint32  `json:"size_b"`
	// Offset is the first differing byte when Outcome is ContentMismatch.
	Offset uint32 `json:"offset"`
}

// Inspector reads files through a Source.
type Inspector struct {
	src      Source
	notifier volume.Notifier
	logger   *slog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger that reports notifier failures.
func WithLogger(l *slog.Logger) Option {
	return func(i *Inspector) {
		if l != nil {
			i.logger = l
		}
	}
}

// New returns an Inspector over src. notifier may be nil.
func New(src Source, notifier volume.Notifier, opts ...Option) *Inspector {
	i := &Inspector{src: src, notifier: notifier, logger: logging.Nop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Cat writes the content of name to w followed by a newline.
func (i *Inspector) Cat(w io.Writer, name string) error {
	size, err := i.src.Size(name)
	if err != nil {
		return err
	}

	for off := uint32(0); off < size; {
		n := min(size-off, chunkSize)
		chunk, err := i.src.Read(name, off, n)
		if err != nil {
			return err
		}
		if _, err := w.Write(chunk); err != nil {
			return errors.Wrap(err, errors.CodeIO, "failed to write output")
		}
		off += n
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to write output")
	}

	i.notify("file displayed (cat): " + name)
	return nil
}

// Diff compares two files.
func (i *Inspector) Diff(a, b string) (Result, error) {
	sizeA, err := i.src.Size(a)
	if err != nil {
		return Result{}, err
	}
	sizeB, err := i.src.Size(b)
	if err != nil {
		return Result{}, err
	}

	res := Result{SizeA: sizeA, SizeB: sizeB}
	if sizeA != sizeB {
		res.Outcome = SizeMismatch
		i.notify("files differ (diff): sizes do not match")
		return res, nil
	}

	for off := uint32(0); off < sizeA; {
		n := min(sizeA-off, chunkSize)
		ca, err := i.src.Read(a, off, n)
		if err != nil {
			return Result{}, err
		}
		cb, err := i.src.Read(b, off, n)
		if err != nil {
			return Result{}, err
		}
		if !bytes.Equal(ca, cb) {
			res.Outcome = ContentMismatch
			res.Offset = off + uint32(firstDifference(ca, cb))
			break
		}
		off += n
	}

	i.notify("files compared (diff): " + a + " and " + b)
	return res, nil
}

func firstDifference(a, b []byte) int {
	for i := range a {
		if i >= len(b) || a[i] != b[i] {
			return i
		}
	}
	return len(a)
}

// notify records operation. A failure is logged and does not fail the caller.
func (i *Inspector) notify(operation string) {
	if i.notifier == nil {
		return
	}
	if err := i.notifier.Notify(operation); err != nil {
		i.logger.Warn("failed to record operation", "operation", operation, "error", err)
	}
}
