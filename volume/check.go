package volume

import (
	"fmt"

	"github.com/jmgilman/simplefs/errors"
)

// Violation is one record that fails a bounds check.
type Violation struct {
	Slot   int    `json:"slot"`
	Name   string `json:"name"`
	Start  uint32 `json:"start"`
	Size   uint32 `json:"size"`
	Reason string `json:"reason"`
}

// Report is the result of Check.
type Report struct {
	Checked    int         `json:"checked"`
	Violations []Violation `json:"violations"`
}

// OK reports whether no violations were found.
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// Check verifies that every valid record lies inside the data region:
// start >= M and start+size <= C. It repairs nothing. When any record fails,
// the report is returned together with a CodeViolation error.
//
// Overlap between live ranges and a stale record count are not detected.
func (v *Volume) Check() (Report, error) {
	var report Report
	err := v.run("check", nil, func() error {
		t, err := v.load()
		if err != nil {
			return err
		}

		m := uint64(v.geo.MetadataSize)
		c := uint64(v.geo.Capacity)
		for i, r := range t.Records {
			if !r.Valid {
				continue
			}
			report.Checked++

			end := uint64(r.Start) + uint64(r.Size)
			switch {
			case uint64(r.Start) < m:
				report.Violations = append(report.Violations, violation(i, r,
					fmt.Sprintf("start %d lies inside the metadata region (< %d)", r.Start, m)))
			case end > c:
				report.Violations = append(report.Violations, violation(i, r,
					fmt.Sprintf("end %d lies past the capacity %d", end, c)))
			}
		}

		v.notify("integrity check performed")

		if !report.OK() {
			for _, vi := range report.Violations {
				v.logger.Warn("integrity violation", "slot", vi.Slot, "file", vi.Name, "reason", vi.Reason)
			}
			return errors.WithContext(
				errors.Newf(errors.CodeViolation, "%d of %d records failed the integrity check",
					len(report.Violations), report.Checked),
				"files", violationNames(report.Violations),
			)
		}
		return nil
	})
	return report, err
}

func violation(slot int, r Record, reason string) Violation {
	return Violation{Slot: slot, Name: r.Name, Start: r.Start, Size: r.Size, Reason: reason}
}

func violationNames(vs []Violation) []string {
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = v.Name
	}
	return names
}
