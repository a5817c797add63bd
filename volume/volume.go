package volume

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/jmgilman/simplefs/errors"
	"github.com/jmgilman/simplefs/logging"
)

// Volume is an open backing extent.
type Volume struct {
	path     string
	file     billy.File
	ext      *Extent
	geo      Geometry
	alloc    Allocator
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// Format creates or resizes the backing file at path to exactly the
// configured capacity and writes an empty metadata table. Bytes in the data
// region are left as they were.
//
// Examples:
//
//	vol, err := volume.Format("disk.sim")
//
//	vol, err := volume.Format("disk.sim", volume.WithFilesystem(memfs.New()))
func Format(path string, opts ...Option) (*Volume, error) {
	o := applyOptions(opts)
	if err := o.geo.Validate(); err != nil {
		return nil, err
	}

	fs, name := resolve(o, path)
	f, err := fs.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeIO, "failed to open backing file",
			map[string]interface{}{"path": path})
	}
	if err := f.Truncate(int64(o.geo.Capacity)); err != nil {
		_ = f.Close()
		return nil, errors.WrapWithContext(err, errors.CodeIO, "failed to size backing file",
			map[string]interface{}{"path": path, "capacity": o.geo.Capacity})
	}

	v := newVolume(path, f, o)
	start := time.Now()
	err = v.store(&Table{Records: make([]Record, o.geo.Slots)})
	logging.LogOperation(v.logger, "format", time.Since(start), err, "path", path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	v.notify("disk formatted")
	return v, nil
}

// Open opens an existing backing file. It fails with CodeIO when the file
// does not exist or is shorter than the configured capacity.
func Open(path string, opts ...Option) (*Volume, error) {
	o := applyOptions(opts)
	if err := o.geo.Validate(); err != nil {
		return nil, err
	}

	fs, name := resolve(o, path)
	info, err := fs.Stat(name)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeIO, "failed to stat backing file",
			map[string]interface{}{"path": path})
	}
	if info.Size() < int64(o.geo.Capacity) {
		return nil, errors.WithContextMap(
			errors.New(errors.CodeIO, "backing file is smaller than volume capacity"),
			map[string]interface{}{"path": path, "size": info.Size(), "capacity": o.geo.Capacity},
		)
	}

	f, err := fs.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeIO, "failed to open backing file",
			map[string]interface{}{"path": path})
	}

	v := newVolume(path, f, o)
	v.logger.Debug("opened volume", "path", path, "capacity", o.geo.Capacity, "slots", o.geo.Slots)
	return v, nil
}

// OpenImage opens the backing file as a raw image of exactly the configured
// capacity, creating it when missing and resizing it otherwise. The metadata
// table is neither read nor written, so the result is meant to be overwritten
// whole, as a restore does.
func OpenImage(path string, opts ...Option) (*Volume, error) {
	o := applyOptions(opts)
	if err := o.geo.Validate(); err != nil {
		return nil, err
	}

	fs, name := resolve(o, path)
	f, err := fs.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, errors.WrapWithContext(err, errors.CodeIO, "failed to open backing file",
			map[string]interface{}{"path": path})
	}
	if err := f.Truncate(int64(o.geo.Capacity)); err != nil {
		_ = f.Close()
		return nil, errors.WrapWithContext(err, errors.CodeIO, "failed to size backing file",
			map[string]interface{}{"path": path, "capacity": o.geo.Capacity})
	}

	v := newVolume(path, f, o)
	v.logger.Debug("opened volume image", "path", path, "capacity", o.geo.Capacity)
	return v, nil
}

// Close releases the backing file.
func (v *Volume) Close() error {
	if err := v.file.Close(); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to close backing file")
	}
	return nil
}

// Path returns the path the volume was opened with.
func (v *Volume) Path() string {
	return v.path
}

// Geometry returns the layout the volume was opened with.
func (v *Volume) Geometry() Geometry {
	return v.geo
}

// Extent exposes the raw backing extent for whole-image copies.
func (v *Volume) Extent() *Extent {
	return v.ext
}

// Table returns a fresh copy of the metadata table as stored on disk.
func (v *Volume) Table() (*Table, error) {
	return v.load()
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// resolve returns the filesystem and the name of the backing file in it.
func resolve(o *options, path string) (billy.Filesystem, string) {
	if o.fs != nil {
		return o.fs, path
	}
	return osfs.New(filepath.Dir(path)), filepath.Base(path)
}

func newVolume(path string, f billy.File, o *options) *Volume {
	return &Volume{
		path:     path,
		file:     f,
		ext:      newExtent(f, int64(o.geo.Capacity)),
		geo:      o.geo,
		alloc:    o.alloc,
		notifier: o.notifier,
		logger:   o.logger,
		now:      o.now,
	}
}

func (v *Volume) notify(operation string) {
	if v.notifier == nil {
		return
	}
	if err := v.notifier.Notify(operation); err != nil {
		v.logger.Warn("failed to record operation", "operation", operation, "error", err)
	}
}
