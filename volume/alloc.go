package volume

import (
	"sort"

	"github.com/jmgilman/simplefs/errors"
)

// Allocator picks the start offset for a new contiguous range of size bytes.
// live holds the ranges of every valid record, including any record that is
// about to be relocated.
type Allocator interface {
	Allocate(geo Geometry, live []Range, size uint32) (uint32, error)
}

// Allocator names accepted by AllocatorByName.
const (
	AllocatorBump     = "bump"
	AllocatorFirstFit = "firstfit"
)

// AllocatorByName returns the allocator registered under name.
// An empty name selects the bump allocator.
func AllocatorByName(name string) (Allocator, error) {
	switch name {
	case "", AllocatorBump:
		return BumpAllocator{}, nil
	case AllocatorFirstFit:
		return FirstFitAllocator{}, nil
	default:
		return nil, errors.Newf(errors.CodeInvalidConfig, "unknown allocator %q", name)
	}
}

// BumpAllocator places every new range at the high-water mark, the end of the
// furthest live range or M if there is none. Space behind the mark is only
// recovered by Defragment.
type BumpAllocator struct{}

// Allocate implements Allocator.
func (BumpAllocator) Allocate(geo Geometry, live []Range, size uint32) (uint32, error) {
	hw := HighWater(geo, live)
	if hw+uint64(size) > uint64(geo.Capacity) {
		return 0, noSpace(size, uint64(geo.Capacity)-min(hw, uint64(geo.Capacity)))
	}
	return uint32(hw), nil
}

// FirstFitAllocator places a range in the lowest gap between live ranges that
// can hold it.
type FirstFitAllocator struct{}

// Allocate implements Allocator.
func (FirstFitAllocator) Allocate(geo Geometry, live []Range, size uint32) (uint32, error) {
	sorted := make([]Range, len(live))
	copy(sorted, live)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	cursor := uint64(geo.MetadataSize)
	want := uint64(size)
	for _, r := range sorted {
		if r.Size() == 0 {
			continue
		}
		if r.Start >= cursor && r.Start-cursor >= want {
			return uint32(cursor), nil
		}
		cursor = max(cursor, r.End)
	}

	if cursor <= uint64(geo.Capacity) && uint64(geo.Capacity)-cursor >= want {
		return uint32(cursor), nil
	}
	return 0, noSpace(size, largestGap(geo, sorted))
}

// HighWater returns max(M, max end of live).
func HighWater(geo Geometry, live []Range) uint64 {
	hw := uint64(geo.MetadataSize)
	for _, r := range live {
		hw = max(hw, r.End)
	}
	return hw
}

func largestGap(geo Geometry, sorted []Range) uint64 {
	var best uint64
	cursor := uint64(geo.MetadataSize)
	for _, r := range sorted {
		if r.Size() == 0 {
			continue
		}
		if r.Start > cursor {
			best = max(best, r.Start-cursor)
		}
		cursor = max(cursor, r.End)
	}
	if uint64(geo.Capacity) > cursor {
		best = max(best, uint64(geo.Capacity)-cursor)
	}
	return best
}

func noSpace(requested uint32, available uint64) error {
	return errors.WithContextMap(
		errors.New(errors.CodeNoSpace, "not enough space in data region"),
		map[string]interface{}{"requested": requested, "available": available},
	)
}
