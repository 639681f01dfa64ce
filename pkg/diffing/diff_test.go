package diffing

import (
	"strings"
	"testing"

	"bpaudit/pkg/model"
)

func TestCompareDetectsAdditionsAndRemovals(t *testing.T) {
	before := map[string]model.Unit{
		"uel0101": {UnitID: "uel0101", SourcePath: "units/uel0101.bp"},
	}
	after := map[string]model.Unit{
		"ues0101": {UnitID: "ues0101", SourcePath: "units/ues0101.bp"},
	}

	diffs := Compare(before, after)
	if len(diffs) != 2 {
		t.Fatalf("len(diffs) = %d, want 2", len(diffs))
	}
	if diffs[0].UnitID != "uel0101" || diffs[0].Kind != ChangeRemoved {
		t.Errorf("diffs[0] = %+v, want uel0101 removed", diffs[0])
	}
	if diffs[1].UnitID != "ues0101" || diffs[1].Kind != ChangeAdded {
		t.Errorf("diffs[1] = %+v, want ues0101 added", diffs[1])
	}
}

func TestCompareDetectsModification(t *testing.T) {
	before := map[string]model.Unit{
		"uel0101": {UnitID: "uel0101", Weapons: []model.Weapon{{Index: 1, DamageBase: 10}}},
	}
	after := map[string]model.Unit{
		"uel0101": {UnitID: "uel0101", Weapons: []model.Weapon{{Index: 1, DamageBase: 20}}},
	}

	diffs := Compare(before, after)
	if len(diffs) != 1 {
		t.Fatalf("len(diffs) = %d, want 1", len(diffs))
	}
	if diffs[0].Kind != ChangeModified {
		t.Fatalf("Kind = %v, want ChangeModified", diffs[0].Kind)
	}
	if !strings.Contains(diffs[0].Detail, "DamageBase") {
		t.Errorf("Detail = %q, want it to mention DamageBase", diffs[0].Detail)
	}
}

func TestCompareIdenticalUnitsProduceNoDiff(t *testing.T) {
	u := map[string]model.Unit{
		"uel0101": {UnitID: "uel0101", Weapons: []model.Weapon{{Index: 1, DamageBase: 10}}},
	}
	diffs := Compare(u, u)
	if len(diffs) != 0 {
		t.Fatalf("len(diffs) = %d, want 0 for identical input", len(diffs))
	}
}

func TestCompareResultsAreSortedByUnitID(t *testing.T) {
	before := map[string]model.Unit{}
	after := map[string]model.Unit{
		"zzz0101": {UnitID: "zzz0101"},
		"aaa0101": {UnitID: "aaa0101"},
	}
	diffs := Compare(before, after)
	if len(diffs) != 2 || diffs[0].UnitID != "aaa0101" || diffs[1].UnitID != "zzz0101" {
		t.Fatalf("diffs = %+v, want sorted by unit id", diffs)
	}
}
