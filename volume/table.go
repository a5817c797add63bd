package volume

import (
	"encoding/binary"

	"github.com/jmgilman/simplefs/errors"
)

// Table is the decoded metadata region.
type Table struct {
	// Count is the stored record count. Mutating operations keep it equal
	// to the number of valid slots; it is never recomputed.
	Count   int32
	Records []Record
}

// Lookup returns the slot index of the valid record called name, or -1.
func (t *Table) Lookup(name string) int {
	for i := range t.Records {
		if t.Records[i].Valid && t.Records[i].Name == name {
			return i
		}
	}
	return -1
}

// FreeSlot returns the lowest invalid slot index, or -1 when the table is full.
func (t *Table) FreeSlot() int {
	for i := range t.Records {
		if !t.Records[i].Valid {
			return i
		}
	}
	return -1
}

// Live returns the ranges of all valid records in slot order.
func (t *Table) Live() []Range {
	out := make([]Range, 0, len(t.Records))
	for _, r := range t.Records {
		if r.Valid {
			out = append(out, r.Range())
		}
	}
	return out
}

func (t *Table) encode(slots int) []byte {
	buf := make([]byte, countSize+slots*RecordSize)
	binary.LittleEndian.PutUint32(buf, uint32(t.Count))
	for i := 0; i < slots && i < len(t.Records); i++ {
		off := countSize + i*RecordSize
		encodeRecord(buf[off:off+RecordSize], t.Records[i])
	}
	return buf
}

func decodeTable(buf []byte, slots int) *Table {
	t := &Table{
		Count:   int32(binary.LittleEndian.Uint32(buf)),
		Records: make([]Record, slots),
	}
	for i := range t.Records {
		off := countSize + i*RecordSize
		t.Records[i] = decodeRecord(buf[off : off+RecordSize])
	}
	return t
}

// load reads the count and every slot with a single read.
func (v *Volume) load() (*Table, error) {
	buf := make([]byte, v.geo.TableSize())
	if _, err := v.ext.ReadAt(buf, 0); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "failed to read metadata table")
	}
	return decodeTable(buf, v.geo.Slots), nil
}

// store writes the count and every slot with a single write.
func (v *Volume) store(t *Table) error {
	if _, err := v.ext.WriteAt(t.encode(v.geo.Slots), 0); err != nil {
		return errors.Wrap(err, errors.CodeIO, "failed to write metadata table")
	}
	return v.ext.Sync()
}
