package backup

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/jmgilman/simplefs/errors"
)

// FileTarget stores images as files under a directory of a billy filesystem.
type FileTarget struct {
	fs  billy.Filesystem
	dir string
}

// NewFileTarget returns a target writing into dir on fs. A nil fs selects the
// host filesystem.
func NewFileTarget(fs billy.Filesystem, dir string) *FileTarget {
	if fs == nil {
		fs = osfs.New("")
	}
	if dir == "" {
		dir = "."
	}
	return &FileTarget{fs: fs, dir: dir}
}

// Put writes the image to a temporary file and renames it into place, so a
// failed upload never replaces an existing backup.
func (t *FileTarget) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := t.fs.MkdirAll(t.dir, 0o755); err != nil {
		return errors.WrapWithContext(err, errors.CodeIO, "failed to create backup directory",
			map[string]interface{}{"dir": t.dir})
	}

	tmp, err := t.fs.TempFile(t.dir, ".backup-")
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to create temporary backup file")
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if err == nil && n != size {
		err = io.ErrUnexpectedEOF
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = t.fs.Remove(tmpName)
		return errors.WrapWithContext(err, errors.CodeIO, "failed to write backup",
			map[string]interface{}{"path": t.path(name), "written": n, "size": size})
	}

	if err := t.fs.Rename(tmpName, t.path(name)); err != nil {
		_ = t.fs.Remove(tmpName)
		return errors.WrapWithContext(err, errors.CodeIO, "failed to move backup into place",
			map[string]interface{}{"path": t.path(name)})
	}
	return nil
}

// Get opens the backup file called name.
func (t *FileTarget) Get(_ context.Context, name string) (io.ReadCloser, int64, error) {
	p := t.path(name)
	info, err := t.fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, errors.WithContext(errors.New(errors.CodeNotFound, "backup not found"), "path", p)
		}
		return nil, 0, errors.WrapWithContext(err, errors.CodeIO, "failed to stat backup",
			map[string]interface{}{"path": p})
	}

	f, err := t.fs.Open(p)
	if err != nil {
		return nil, 0, errors.WrapWithContext(err, errors.CodeIO, "failed to open backup",
			map[string]interface{}{"path": p})
	}
	return f, info.Size(), nil
}

func (t *FileTarget) String() string {
	return "file://" + filepath.ToSlash(t.dir)
}

func (t *FileTarget) path(name string) string {
	return t.fs.Join(t.dir, name)
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
