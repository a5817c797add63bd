package volume

import (
	"math"
	"time"

	"github.com/jmgilman/simplefs/errors"
	"github.com/jmgilman/simplefs/logging"
)

// FileInfo is one entry returned by List.
type FileInfo struct {
	Name      string    `json:"name"`
	Size      uint32    `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Usage summarises how the data region is occupied.
type Usage struct {
	Capacity     uint64 `json:"capacity"`
	MetadataSize uint64 `json:"metadata_size"`
	// LiveBytes is the sum of the sizes of all valid files.
	LiveBytes uint64 `json:"live_bytes"`
	// HighWater is the end of the furthest live range, at least M.
	HighWater uint64 `json:"high_water"`
	// Garbage is space below HighWater not held by any live file.
	Garbage uint64 `json:"garbage"`
	// Free is space above HighWater.
	Free  uint64 `json:"free"`
	Files int    `json:"files"`
	Slots int    `json:"slots"`
	// Count is the stored record count.
	Count int32 `json:"count"`
}

// Create adds an empty file called name.
func (v *Volume) Create(name string) error {
	return v.run("create", []any{"file", name}, func() error {
		if err := ValidateName(name); err != nil {
			return err
		}
		t, err := v.load()
		if err != nil {
			return err
		}
		if t.Lookup(name) >= 0 {
			return alreadyExists(name)
		}
		slot := t.FreeSlot()
		if slot < 0 {
			return errors.WithContext(errors.New(errors.CodeNoFreeSlot, "metadata table is full"), "slots", v.geo.Slots)
		}
		start, err := v.alloc.Allocate(v.geo, t.Live(), 0)
		if err != nil {
			return errors.WithContext(err, "file", name)
		}

		t.Records[slot] = Record{
			Valid:     true,
			Name:      name,
			Size:      0,
			Start:     start,
			CreatedAt: v.now(),
		}
		t.Count++
		if err := v.store(t); err != nil {
			return err
		}
		v.notify("file created: " + name)
		return nil
	})
}

// Delete marks the file invalid. Its data range is abandoned until the next
// Defragment; the rest of the slot is left untouched.
func (v *Volume) Delete(name string) error {
	return v.run("delete", []any{"file", name}, func() error {
		t, err := v.load()
		if err != nil {
			return err
		}
		i := t.Lookup(name)
		if i < 0 {
			return notFound(name)
		}

		t.Records[i].Valid = false
		t.Count--
		if err := v.store(t); err != nil {
			return err
		}
		v.notify("file deleted: " + name)
		return nil
	})
}

// Write replaces the content of name with data. The data is placed in a
// freshly allocated range; the old range is abandoned.
func (v *Volume) Write(name string, data []byte) error {
	return v.run("write", []any{"file", name, "size", len(data)}, func() error {
		t, err := v.load()
		if err != nil {
			return err
		}
		i := t.Lookup(name)
		if i < 0 {
			return notFound(name)
		}
		if err := v.relocate(t, i, data); err != nil {
			return err
		}
		if err := v.store(t); err != nil {
			return err
		}
		v.notify("data written: " + name)
		return nil
	})
}

// Read returns length bytes of name starting at offset.
func (v *Volume) Read(name string, offset, length uint32) ([]byte, error) {
	var out []byte
	err := v.run("read", []any{"file", name, "offset", offset, "length", length}, func() error {
		t, err := v.load()
		if err != nil {
			return err
		}
		i := t.Lookup(name)
		if i < 0 {
			return notFound(name)
		}
		r := t.Records[i]
		if uint64(offset)+uint64(length) > uint64(r.Size) {
			return errors.WithContextMap(
				errors.New(errors.CodeOutOfRange, "read past end of file"),
				map[string]interface{}{"file": name, "offset": offset, "length": length, "size": r.Size},
			)
		}
		out, err = v.readRange(r, offset, length)
		return err
	})
	return out, err
}

// ReadFile returns the whole content of name.
func (v *Volume) ReadFile(name string) ([]byte, error) {
	var out []byte
	err := v.run("read", []any{"file", name}, func() error {
		t, err := v.load()
		if err != nil {
			return err
		}
		i := t.Lookup(name)
		if i < 0 {
			return notFound(name)
		}
		out, err = v.readRange(t.Records[i], 0, t.Records[i].Size)
		return err
	})
	return out, err
}

// Append extends name with data. The old content and data are written
// together to a freshly allocated range.
func (v *Volume) Append(name string, data []byte) error {
	return v.run("append", []any{"file", name, "size", len(data)}, func() error {
		t, err := v.load()
		if err != nil {
			return err
		}
		i := t.Lookup(name)
		if i < 0 {
			return notFound(name)
		}
		r := t.Records[i]
		if uint64(r.Size)+uint64(len(data)) > math.MaxUint32 {
			return noSpace(math.MaxUint32, 0)
		}

		old, err := v.readRange(r, 0, r.Size)
		if err != nil {
			return err
		}
		buf := make([]byte, 0, len(old)+len(data))
		buf = append(buf, old...)
		buf = append(buf, data...)

		if err := v.relocate(t, i, buf); err != nil {
			return err
		}
		if err := v.store(t); err != nil {
			return err
		}
		v.notify("data appended: " + name)
		return nil
	})
}

// Truncate shrinks name to its first size bytes. Growing a file is rejected
// with CodeInvalidArgument.
func (v *Volume) Truncate(name string, size uint32) error {
	return v.run("truncate", []any{"file", name, "size", size}, func() error {
		t, err := v.load()
		if err != nil {
			return err
		}
		i := t.Lookup(name)
		if i < 0 {
			return notFound(name)
		}
		r := t.Records[i]
		if size > r.Size {
			return errors.WithContextMap(
				errors.New(errors.CodeInvalidArgument, "truncate cannot grow a file"),
				map[string]interface{}{"file": name, "size": r.Size, "requested": size},
			)
		}

		prefix, err := v.readRange(r, 0, size)
		if err != nil {
			return err
		}
		if err := v.relocate(t, i, prefix); err != nil {
			return err
		}
		if err := v.store(t); err != nil {
			return err
		}
		v.notify("file truncated: " + name)
		return nil
	})
}

// Rename changes the name of a file in place. The table is left unchanged
// when oldName is missing or newName is taken.
func (v *Volume) Rename(oldName, newName string) error {
	return v.run("rename", []any{"file", oldName, "to", newName}, func() error {
		if err := ValidateName(newName); err != nil {
			return err
		}
		t, err := v.load()
		if err != nil {
			return err
		}
		i := t.Lookup(oldName)
		if i < 0 {
			return notFound(oldName)
		}
		if t.Lookup(newName) >= 0 {
			return alreadyExists(newName)
		}

		t.Records[i].Name = newName
		if err := v.store(t); err != nil {
			return err
		}
		v.notify("file renamed: " + oldName + " -> " + newName)
		return nil
	})
}

// Move is Rename; the namespace is flat.
func (v *Volume) Move(oldName, newName string) error {
	return v.Rename(oldName, newName)
}

// Copy creates dst holding the content of src in an independent range.
// The table is written once, after the data, so a failed copy leaves no
// trace of dst.
func (v *Volume) Copy(src, dst string) error {
	return v.run("copy", []any{"file", src, "to", dst}, func() error {
		if err := ValidateName(dst); err != nil {
			return err
		}
		t, err := v.load()
		if err != nil {
			return err
		}
		si := t.Lookup(src)
		if si < 0 {
			return notFound(src)
		}
		if t.Lookup(dst) >= 0 {
			return alreadyExists(dst)
		}
		slot := t.FreeSlot()
		if slot < 0 {
			return errors.WithContext(errors.New(errors.CodeNoFreeSlot, "metadata table is full"), "slots", v.geo.Slots)
		}

		data, err := v.readRange(t.Records[si], 0, t.Records[si].Size)
		if err != nil {
			return err
		}

		t.Records[slot] = Record{Name: dst, CreatedAt: v.now()}
		if err := v.relocate(t, slot, data); err != nil {
			return err
		}
		t.Records[slot].Valid = true
		t.Count++
		if err := v.store(t); err != nil {
			return err
		}
		v.notify("file copied: " + src + " -> " + dst)
		return nil
	})
}

// Exists reports whether a valid file called name exists.
func (v *Volume) Exists(name string) (bool, error) {
	t, err := v.load()
	if err != nil {
		return false, err
	}
	return t.Lookup(name) >= 0, nil
}

// Size returns the size of name in bytes.
func (v *Volume) Size(name string) (uint32, error) {
	r, err := v.Stat(name)
	if err != nil {
		return 0, err
	}
	return r.Size, nil
}

// Stat returns the record of name.
func (v *Volume) Stat(name string) (Record, error) {
	t, err := v.load()
	if err != nil {
		return Record{}, err
	}
	i := t.Lookup(name)
	if i < 0 {
		return Record{}, notFound(name)
	}
	return t.Records[i], nil
}

// List returns every valid file in slot order.
func (v *Volume) List() ([]FileInfo, error) {
	t, err := v.load()
	if err != nil {
		return nil, err
	}
	out := make([]FileInfo, 0, len(t.Records))
	for _, r := range t.Records {
		if r.Valid {
			out = append(out, FileInfo{Name: r.Name, Size: r.Size, CreatedAt: r.CreatedAt})
		}
	}
	return out, nil
}

// Usage reports space accounting for the data region.
func (v *Volume) Usage() (Usage, error) {
	t, err := v.load()
	if err != nil {
		return Usage{}, err
	}

	u := Usage{
		Capacity:     uint64(v.geo.Capacity),
		MetadataSize: uint64(v.geo.MetadataSize),
		Slots:        v.geo.Slots,
		Count:        t.Count,
	}
	live := t.Live()
	for _, r := range live {
		u.LiveBytes += r.Size()
	}
	u.Files = len(live)
	u.HighWater = HighWater(v.geo, live)

	used := u.HighWater - u.MetadataSize
	if used > u.LiveBytes {
		u.Garbage = used - u.LiveBytes
	}
	if u.Capacity > u.HighWater {
		u.Free = u.Capacity - u.HighWater
	}
	return u, nil
}

// relocate writes data to a freshly allocated range and points slot i at it.
// The table itself is not stored.
func (v *Volume) relocate(t *Table, i int, data []byte) error {
	if uint64(len(data)) > math.MaxUint32 {
		return noSpace(math.MaxUint32, 0)
	}
	size := uint32(len(data))

	start, err := v.alloc.Allocate(v.geo, t.Live(), size)
	if err != nil {
		return errors.WithContext(err, "file", t.Records[i].Name)
	}
	if _, err := v.ext.WriteAt(data, int64(start)); err != nil {
		return errors.WithContext(err, "file", t.Records[i].Name)
	}

	t.Records[i].Start = start
	t.Records[i].Size = size
	return nil
}

func (v *Volume) readRange(r Record, offset, length uint32) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := v.ext.ReadAt(buf, int64(r.Start)+int64(offset)); err != nil {
		return nil, errors.WithContext(err, "file", r.Name)
	}
	return buf, nil
}

func (v *Volume) run(operation string, attrs []any, fn func() error) error {
	start := time.Now()
	err := fn()
	logging.LogOperation(v.logger, operation, time.Since(start), err, attrs...)
	return err
}

func notFound(name string) error {
	return errors.WithContext(errors.New(errors.CodeNotFound, "file not found"), "file", name)
}

func alreadyExists(name string) error {
	return errors.WithContext(errors.New(errors.CodeAlreadyExists, "file already exists"), "file", name)
}
