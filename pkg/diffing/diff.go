// Package diffing compares two persisted scans, reporting which units
// were added, removed, or changed between them.
package diffing

import (
	"sort"

	"github.com/google/go-cmp/cmp"

	"bpaudit/pkg/model"
)

// ChangeKind classifies how a unit differs between two scans.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeRemoved
	ChangeModified
)

func (c ChangeKind) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeModified:
		return "modified"
	default:
		return "unknown"
	}
}

// UnitDiff describes one unit's change between two scans. Detail is a
// human-readable cmp.Diff report, empty for Added/Removed.
type UnitDiff struct {
	UnitID string
	Kind   ChangeKind
	Detail string
}

// Compare diffs two scans' unit sets, keyed by unit_id, returning results
// sorted by unit_id ascending for deterministic reporting.
func Compare(before, after map[string]model.Unit) []UnitDiff {
	var diffs []UnitDiff

	for id, a := range after {
		b, existed := before[id]
		if !existed {
			diffs = append(diffs, UnitDiff{UnitID: id, Kind: ChangeAdded})
			continue
		}
		if detail := cmp.Diff(b, a); detail != "" {
			diffs = append(diffs, UnitDiff{UnitID: id, Kind: ChangeModified, Detail: detail})
		}
	}
	for id := range before {
		if _, stillExists := after[id]; !stillExists {
			diffs = append(diffs, UnitDiff{UnitID: id, Kind: ChangeRemoved})
		}
	}

	sort.Slice(diffs, func(i, j int) bool { return diffs[i].UnitID < diffs[j].UnitID })
	return diffs
}
