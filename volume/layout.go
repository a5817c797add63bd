package volume

import (
	"math"

	"github.com/jmgilman/simplefs/errors"
)

// Record field widths and offsets within one encoded record.
const (
	// NameSize is the width of the NUL-padded name field.
	NameSize = 100
	// MaxNameLen is the longest name that still leaves room for a NUL.
	MaxNameLen = NameSize - 1
	// RecordSize is the encoded width of one record.
	RecordSize = 117

	offValid     = 0
	offName      = 1
	offSize      = offName + NameSize
	offStart     = offSize + 4
	offCreatedAt = offStart + 4

	countSize = 4
)

// Default geometry.
const (
	DefaultCapacity     = 10 * 1024 * 1024
	DefaultMetadataSize = 64 * 1024
	DefaultSlots        = 100
)

// Geometry describes how a backing extent is divided.
type Geometry struct {
	// Capacity is the total extent size C in bytes.
	Capacity uint32
	// MetadataSize is M, the offset at which the data region starts.
	MetadataSize uint32
	// Slots is N, the number of record slots in the table.
	Slots int
}

// DefaultGeometry returns the 10 MiB / 64 KiB / 100 slot layout.
func DefaultGeometry() Geometry {
	return Geometry{
		Capacity:     DefaultCapacity,
		MetadataSize: DefaultMetadataSize,
		Slots:        DefaultSlots,
	}
}

// TableSize is the number of bytes the count and all records occupy.
func (g Geometry) TableSize() int {
	return countSize + g.Slots*RecordSize
}

// DataRegion returns the range [M, C).
func (g Geometry) DataRegion() Range {
	return Range{Start: uint64(g.MetadataSize), End: uint64(g.Capacity)}
}

// Validate checks 4 + N*R <= M < C.
func (g Geometry) Validate() error {
	if g.Slots <= 0 || g.Slots > math.MaxInt32 {
		return errors.Newf(errors.CodeInvalidConfig, "slot count must be positive, got %d", g.Slots)
	}
	if uint64(g.TableSize()) > uint64(g.MetadataSize) {
		return errors.WithContextMap(
			errors.Newf(errors.CodeInvalidConfig, "metadata region too small for %d slots", g.Slots),
			map[string]interface{}{"required": g.TableSize(), "metadata_size": g.MetadataSize},
		)
	}
	if g.MetadataSize >= g.Capacity {
		return errors.Newf(errors.CodeInvalidConfig,
			"metadata size %d must be smaller than capacity %d", g.MetadataSize, g.Capacity)
	}
	return nil
}
