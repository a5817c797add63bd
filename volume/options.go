package volume

import (
	"log/slog"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/jmgilman/simplefs/logging"
)

// Notifier receives a short description of every successful mutating
// operation and of every integrity check. Notification failures are logged
// and never returned to the caller.
type Notifier interface {
	Notify(operation string) error
}

// Option configures Format and Open.
type Option func(*options)

type options struct {
	fs       billy.Filesystem
	geo      Geometry
	alloc    Allocator
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func defaultOptions() *options {
	return &options{
		geo:    DefaultGeometry(),
		alloc:  BumpAllocator{},
		logger: logging.Nop(),
		now:    time.Now,
	}
}

// WithFilesystem sets the filesystem holding the backing file. The path given
// to Format or Open is resolved inside it. Without this option the host
// filesystem is used.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithGeometry overrides the default 10 MiB / 64 KiB / 100 slot layout.
func WithGeometry(geo Geometry) Option {
	return func(o *options) {
		o.geo = geo
	}
}

// WithAllocator sets the allocation policy.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		if a != nil {
			o.alloc = a
		}
	}
}

// WithNotifier sets the operation notifier, typically an audit log.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
