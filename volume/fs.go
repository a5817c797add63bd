package volume

import (
	"bytes"
	stderrors "errors"
	"io"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jmgilman/simplefs/errors"
)

// FS is a read-only io/fs view of a volume with a single root directory.
// Files whose names are not valid single path elements are hidden.
type FS struct {
	v *Volume
}

// FS returns a read-only io/fs view of the volume.
func (v *Volume) FS() *FS {
	return &FS{v: v}
}

// Open implements fs.FS.
func (f *FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		entries, err := f.entries()
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return &dirHandle{entries: entries}, nil
	}

	info, data, err := f.read(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &fileHandle{Reader: bytes.NewReader(data), info: info}, nil
}

// ReadFile implements fs.ReadFileFS.
func (f *FS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: errIsDir}
	}
	_, data, err := f.read(name)
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return data, nil
}

// ReadDir implements fs.ReadDirFS. Entries are sorted by name.
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	if name != "." {
		if _, err := f.lookup(name); err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
		}
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: errNotDir}
	}
	entries, err := f.entries()
	if err != nil {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: err}
	}
	return entries, nil
}

// Stat implements fs.StatFS.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return rootInfo{}, nil
	}
	info, err := f.lookup(name)
	if err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	return info, nil
}

var (
	errIsDir  = stderrors.New("is a directory")
	errNotDir = stderrors.New("not a directory")
)

func (f *FS) lookup(name string) (fileInfo, error) {
	if !visible(name) {
		return fileInfo{}, fs.ErrNotExist
	}
	r, err := f.v.Stat(name)
	if err != nil {
		return fileInfo{}, translate(err)
	}
	return fileInfo{r}, nil
}

func (f *FS) read(name string) (fileInfo, []byte, error) {
	info, err := f.lookup(name)
	if err != nil {
		return fileInfo{}, nil, err
	}
	data, err := f.v.ReadFile(name)
	if err != nil {
		return fileInfo{}, nil, translate(err)
	}
	return info, data, nil
}

func (f *FS) entries() ([]fs.DirEntry, error) {
	t, err := f.v.load()
	if err != nil {
		return nil, err
	}
	var out []fs.DirEntry
	for _, r := range t.Records {
		if r.Valid && visible(r.Name) {
			out = append(out, fs.FileInfoToDirEntry(fileInfo{r}))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func visible(name string) bool {
	return name != "." && !strings.Contains(name, "/") && fs.ValidPath(name)
}

func translate(err error) error {
	if errors.HasCode(err, errors.CodeNotFound) {
		return fs.ErrNotExist
	}
	return err
}

// fileInfo adapts a Record to fs.FileInfo.
type fileInfo struct {
	r Record
}

func (i fileInfo) Name() string       { return i.r.Name }
func (i fileInfo) Size() int64        { return int64(i.r.Size) }
func (i fileInfo) Mode() fs.FileMode  { return 0o444 }
func (i fileInfo) ModTime() time.Time { return i.r.CreatedAt }
func (i fileInfo) IsDir() bool        { return false }
func (i fileInfo) Sys() any           { return i.r }

type rootInfo struct{}

func (rootInfo) Name() string       { return "." }
func (rootInfo) Size() int64        { return 0 }
func (rootInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (rootInfo) ModTime() time.Time { return time.Time{} }
func (rootInfo) IsDir() bool        { return true }
func (rootInfo) Sys() any           { return nil }

type fileHandle struct {
	*bytes.Reader
	info fileInfo
}

func (h *fileHandle) Stat() (fs.FileInfo, error) { return h.info, nil }
func (h *fileHandle) Close() error               { return nil }

type dirHandle struct {
	entries []fs.DirEntry
	offset  int
}

func (d *dirHandle) Stat() (fs.FileInfo, error) { return rootInfo{}, nil }
func (d *dirHandle) Close() error               { return nil }

func (d *dirHandle) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: ".", Err: errIsDir}
}

// ReadDir implements fs.ReadDirFile.
func (d *dirHandle) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	d.offset += n
	return rest[:n], nil
}

var (
	_ fs.ReadDirFS   = (*FS)(nil)
	_ fs.ReadFileFS  = (*FS)(nil)
	_ fs.StatFS      = (*FS)(nil)
	_ fs.ReadDirFile = (*dirHandle)(nil)
)
