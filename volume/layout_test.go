package volume

import (
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/simplefs/errors"
)

func TestGeometry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		geo     Geometry
		wantErr bool
	}{
		{"default", DefaultGeometry(), false},
		{"small", smallGeometry, false},
		{"table exactly fills metadata", Geometry{Capacity: 2048, MetadataSize: 4 + 2*RecordSize, Slots: 2}, false},
		{"no slots", Geometry{Capacity: 2048, MetadataSize: 1024, Slots: 0}, true},
		{"table too large", Geometry{Capacity: 2048, MetadataSize: 200, Slots: 2}, true},
		{"metadata equals capacity", Geometry{Capacity: 1024, MetadataSize: 1024, Slots: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.geo.Validate()
			if tt.wantErr {
				assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultGeometry_TableSize(t *testing.T) {
	assert.Equal(t, 11704, DefaultGeometry().TableSize())
}

func TestRecord_Layout(t *testing.T) {
	created := time.Unix(1700000000, 0)
	buf := make([]byte, RecordSize)
	encodeRecord(buf, Record{Valid: true, Name: "notes.txt", Size: 0x01020304, Start: 0x00010000, CreatedAt: created})

	assert.Equal(t, byte(1), buf[0])
	assert.Equal(t, "notes.txt", string(buf[1:10]))
	assert.Equal(t, make([]byte, NameSize-9), buf[10:101])
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf[101:105])
	assert.Equal(t, uint32(65536), binary.LittleEndian.Uint32(buf[105:109]))
	assert.Equal(t, uint64(1700000000), binary.LittleEndian.Uint64(buf[109:117]))

	got := decodeRecord(buf)
	assert.True(t, got.Valid)
	assert.Equal(t, "notes.txt", got.Name)
	assert.Equal(t, uint32(0x01020304), got.Size)
	assert.Equal(t, uint32(65536), got.Start)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestRecord_NameAlwaysTerminated(t *testing.T) {
	buf := make([]byte, RecordSize)
	encodeRecord(buf, Record{Name: strings.Repeat("n", NameSize+10)})

	assert.Equal(t, byte(0), buf[offName+NameSize-1])
	assert.Len(t, decodeRecord(buf).Name, MaxNameLen)
}

func TestTable_EncodeCount(t *testing.T) {
	tbl := &Table{Count: 2, Records: make([]Record, 3)}
	tbl.Records[1] = Record{Valid: true, Name: "x"}
	buf := tbl.encode(3)

	require.Len(t, buf, 4+3*RecordSize)
	assert.Equal(t, []byte{2, 0, 0, 0}, buf[:4])
	assert.Equal(t, byte(1), buf[4+RecordSize])

	back := decodeTable(buf, 3)
	assert.Equal(t, int32(2), back.Count)
	assert.Equal(t, 1, back.Lookup("x"))
	assert.Equal(t, 0, back.FreeSlot())
}

func TestExtent_Bounds(t *testing.T) {
	fs := memfs.New()
	f, err := fs.Create("extent")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(64))
	ext := newExtent(f, 64)

	_, err = ext.WriteAt([]byte("abcd"), 60)
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = ext.ReadAt(buf, 60)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf))

	_, err = ext.WriteAt([]byte("abcde"), 60)
	assert.True(t, errors.HasCode(err, errors.CodeIO))
	_, err = ext.ReadAt(buf, 61)
	assert.True(t, errors.HasCode(err, errors.CodeIO))
	_, err = ext.ReadAt(buf, -1)
	assert.True(t, errors.HasCode(err, errors.CodeIO))
}

func TestExtent_ShortRead(t *testing.T) {
	fs := memfs.New()
	f, err := fs.Create("extent")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(8))

	// Claims more bytes than the file holds.
	ext := newExtent(f, 64)
	_, err = ext.ReadAt(make([]byte, 16), 0)
	assert.True(t, errors.HasCode(err, errors.CodeIO))
}

func TestBumpAllocator(t *testing.T) {
	geo := smallGeometry
	a := BumpAllocator{}

	start, err := a.Allocate(geo, nil, 100)
	require.NoError(t, err)
	assert.Equal(t, uint32(512), start)

	start, err = a.Allocate(geo, []Range{{512, 600}, {700, 800}}, 100)
	require.NoError(t, err)
	assert.Equal(t, uint32(800), start)

	_, err = a.Allocate(geo, []Range{{512, 1000}}, 25)
	assert.True(t, errors.HasCode(err, errors.CodeNoSpace))

	start, err = a.Allocate(geo, []Range{{512, 1024}}, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(1024), start)
}

func TestFirstFitAllocator(t *testing.T) {
	geo := smallGeometry
	a := FirstFitAllocator{}
	live := []Range{{700, 800}, {512, 600}, {900, 1000}}

	start, err := a.Allocate(geo, live, 100)
	require.NoError(t, err)
	assert.Equal(t, uint32(600), start)

	start, err = a.Allocate(geo, live, 24)
	require.NoError(t, err)
	assert.Equal(t, uint32(600), start)

	_, err = a.Allocate(geo, live, 101)
	assert.True(t, errors.HasCode(err, errors.CodeNoSpace))
}

func TestAllocatorByName(t *testing.T) {
	a, err := AllocatorByName("")
	require.NoError(t, err)
	assert.IsType(t, BumpAllocator{}, a)

	a, err = AllocatorByName("firstfit")
	require.NoError(t, err)
	assert.IsType(t, FirstFitAllocator{}, a)

	_, err = AllocatorByName("buddy")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig))
}
