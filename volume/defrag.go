package volume

import (
	"sort"

	"github.com/jmgilman/simplefs/errors"
)

// DefragStats describes one compaction pass.
type DefragStats struct {
	// Moved is the number of files whose data was relocated.
	Moved int `json:"moved"`
	// BytesMoved is the total size of the relocated data.
	BytesMoved uint64 `json:"bytes_moved"`
	// Reclaimed is how far the high-water mark dropped.
	Reclaimed uint64 `json:"reclaimed"`
}

// Defragment compacts every live file, in order of its current start offset,
// into a contiguous run beginning at M. Afterwards the live files tile
// [M, M+sum of sizes) exactly. Running it twice moves nothing the second time.
//
// The table is written once, after all data has moved. An I/O error part way
// through can therefore leave records pointing at their old ranges while some
// of those ranges have already been overwritten.
func (v *Volume) Defragment() (DefragStats, error) {
	var stats DefragStats
	err := v.run("defragment", nil, func() error {
		t, err := v.load()
		if err != nil {
			return err
		}

		order := make([]int, 0, len(t.Records))
		for i, r := range t.Records {
			if r.Valid {
				order = append(order, i)
			}
		}
		// Empty files sort ahead of a file sharing their start, so a packed
		// table sorts to the same order on every pass.
		sort.SliceStable(order, func(a, b int) bool {
			ra, rb := t.Records[order[a]], t.Records[order[b]]
			if ra.Start != rb.Start {
				return ra.Start < rb.Start
			}
			return ra.Size == 0 && rb.Size > 0
		})

		before := HighWater(v.geo, t.Live())
		cursor := uint64(v.geo.MetadataSize)
		for _, i := range order {
			r := &t.Records[i]
			if uint64(r.Start) != cursor {
				buf, err := v.readRange(*r, 0, r.Size)
				if err != nil {
					return errors.WithContext(err, "stage", "defragment read")
				}
				if _, err := v.ext.WriteAt(buf, int64(cursor)); err != nil {
					return errors.WithContextMap(err, map[string]interface{}{
						"stage": "defragment write",
						"file":  r.Name,
					})
				}
				r.Start = uint32(cursor)
				stats.Moved++
				stats.BytesMoved += uint64(r.Size)
			}
			cursor += uint64(r.Size)
		}

		if err := v.store(t); err != nil {
			return err
		}
		if before > cursor {
			stats.Reclaimed = before - cursor
		}
		v.notify("disk defragmented")
		return nil
	})
	return stats, err
}
