package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"bpaudit/pkg/anomaly"
	"bpaudit/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndLoadUnits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	units := []*model.Unit{
		{UnitID: "uel0101", SourcePath: "units/uel0101.bp", Weapons: []model.Weapon{{Index: 1, DamageBase: 10}}},
	}
	findings := []anomaly.Finding{
		{Severity: anomaly.SeverityWarn, Code: "STARVATION", UnitID: "uel0101", WeaponIndex: 1, Message: "m", Detail: "d"},
	}

	rec, err := s.SaveScan(ctx, "/mods/example", units, findings)
	if err != nil {
		t.Fatalf("SaveScan() error = %v", err)
	}
	if rec.UnitsCount != 1 || rec.FindingsCount != 1 {
		t.Fatalf("rec = %+v, want 1/1 counts", rec)
	}

	loaded, err := s.LoadUnits(ctx, rec.ID)
	if err != nil {
		t.Fatalf("LoadUnits() error = %v", err)
	}
	u, ok := loaded["uel0101"]
	if !ok {
		t.Fatal("expected unit uel0101 to be loaded back")
	}
	if len(u.Weapons) != 1 || u.Weapons[0].DamageBase != 10 {
		t.Errorf("round-tripped unit = %+v, want DamageBase 10", u)
	}
}

func TestLatestScanReturnsNotFoundWhenEmpty(t *testing.T) {
	s := openTestStore(t)
	_, ok, err := s.LatestScan(context.Background(), "/mods/never-scanned")
	if err != nil {
		t.Fatalf("LatestScan() error = %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for a root with no scans")
	}
}

func TestListScansReturnsMostRecentFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.SaveScan(ctx, "/mods/example", nil, nil)
	if err != nil {
		t.Fatalf("SaveScan() error = %v", err)
	}
	second, err := s.SaveScan(ctx, "/mods/example", nil, nil)
	if err != nil {
		t.Fatalf("SaveScan() error = %v", err)
	}

	recs, err := s.ListScans(ctx, "/mods/example")
	if err != nil {
		t.Fatalf("ListScans() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if recs[0].ID != second.ID || recs[1].ID != first.ID {
		t.Fatalf("ListScans() order = [%s, %s], want [second, first]", recs[0].ID, recs[1].ID)
	}
}

func TestLatestScanReturnsMostRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.SaveScan(ctx, "/mods/example", nil, nil)
	if err != nil {
		t.Fatalf("SaveScan() error = %v", err)
	}
	second, err := s.SaveScan(ctx, "/mods/example", nil, nil)
	if err != nil {
		t.Fatalf("SaveScan() error = %v", err)
	}

	latest, ok, err := s.LatestScan(ctx, "/mods/example")
	if err != nil || !ok {
		t.Fatalf("LatestScan() = %+v, %v, %v", latest, ok, err)
	}
	if latest.ID != second.ID {
		t.Errorf("LatestScan().ID = %q, want %q (the second scan, not %q)", latest.ID, second.ID, first.ID)
	}
}
