package settings

import (
	"fmt"
	"strings"
)

// Mismatch is one byte that differs between two structures.
type Mismatch struct {
	Offset int
	Want   byte
	Got    byte
}

func (m Mismatch) String() string {
	return fmt.Sprintf("offset %d: expected 0x%02X, got 0x%02X", m.Offset, m.Want, m.Got)
}

// Diff lists the bytes where got differs from want. Bytes past the end of
// the shorter slice are compared against zero.
func Diff(want, got []byte) []Mismatch {
	n := max(len(want), len(got))
	var out []Mismatch
	for i := range n {
		var w, g byte
		if i < len(want) {
			w = want[i]
		}
		if i < len(got) {
			g = got[i]
		}
		if w != g {
			out = append(out, Mismatch{Offset: i, Want: w, Got: g})
		}
	}
	return out
}

// FormatMismatches creates a human-readable summary
func FormatMismatches(mismatches []Mismatch) string {
	switch len(mismatches) {
	case 0:
		return "none"
	case 1:
		return mismatches[0].String()
	}
	parts := make([]string, len(mismatches))
	for i, m := range mismatches {
		parts[i] = m.String()
	}
	return fmt.Sprintf("%d mismatches: %s", len(mismatches), strings.Join(parts, "; "))
}
