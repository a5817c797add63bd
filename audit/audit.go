// Package audit keeps an append-only, human-readable record of volume
// operations.
//
// Each line has the form
//
//	2006-01-02 15:04:05 - file created: notes.txt
//
// and is appended with a single write.
package audit

import (
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/jmgilman/simplefs/errors"
)

// DefaultPath is the log file used when none is configured.
const DefaultPath = "fs.log"

// TimeLayout is the timestamp prefix of every line, in local time.
const TimeLayout = "2006-01-02 15:04:05"

// Log appends operation lines to a file.
type Log struct {
	fs   billy.Filesystem
	path string
	now  func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithFilesystem sets the filesystem the log file lives on.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(l *Log) {
		l.fs = fs
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// New returns a Log writing to path. The file is created on the first
// Notify. Without WithFilesystem, path is resolved on the host filesystem
// relative to the working directory.
func New(path string, opts ...Option) *Log {
	if path == "" {
		path = DefaultPath
	}
	l := &Log{path: path, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	if l.fs == nil {
		l.fs = osfs.New("")
	}
	return l
}

// Path returns the log file path.
func (l *Log) Path() string {
	return l.path
}

// Notify appends one timestamped line for operation.
func (l *Log) Notify(operation string) error {
	f, err := l.fs.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return errors.WrapWithContext(err, errors.CodeIO, "failed to open audit log",
			map[string]interface{}{"path": l.path})
	}

	line := l.now().Format(TimeLayout) + " - " + operation + "\n"
	n, err := f.Write([]byte(line))
	if err == nil && n != len(line) {
		err = errors.New(errors.CodeIO, "short write")
	}
	if err != nil {
		_ = f.Close()
		return errors.WrapWithContext(err, errors.CodeIO, "failed to write audit log",
			map[string]interface{}{"path": l.path})
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to close audit log")
	}
	return nil
}

// Nop discards every notification.
type Nop struct{}

// Notify implements volume.Notifier.
func (Nop) Notify(string) error { return nil }
