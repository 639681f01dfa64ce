package report

import (
	"encoding/json"
	"strings"
	"testing"

	"bpaudit/pkg/anomaly"
	"bpaudit/pkg/model"
	"bpaudit/pkg/scan"
)

func sampleResult() *scan.Result {
	return &scan.Result{
		Units: []*model.Unit{
			{UnitID: "uel0101", SourcePath: "units/uel0101.bp", Weapons: []model.Weapon{
				{Index: 1, DamageBase: 10, RateOfFire: 2, RackSalvoSize: 1, MuzzleSalvoSize: 1},
			}},
		},
		ProjectilesScanned: true,
		FilesScanned:       2,
		FilesSkipped:       0,
		Findings: []anomaly.Finding{
			{Severity: anomaly.SeverityWarn, Code: "STARVATION", UnitID: "uel0101", WeaponIndex: 1, Message: "slow"},
		},
	}
}

func TestBuildDerivesPerWeaponCadence(t *testing.T) {
	doc := Build(sampleResult())
	if len(doc.Units) != 1 {
		t.Fatalf("len(Units) = %d, want 1", len(doc.Units))
	}
	cadences := doc.Units[0].Cadences
	if len(cadences) != 1 {
		t.Fatalf("len(Cadences) = %d, want 1", len(cadences))
	}
	if got, want := cadences[0].NominalDPS, 20.0; got != want {
		t.Errorf("NominalDPS = %v, want %v", got, want)
	}
}

func TestBuildRendersSeverityUppercase(t *testing.T) {
	doc := Build(sampleResult())
	if len(doc.Findings) != 1 {
		t.Fatalf("len(Findings) = %d, want 1", len(doc.Findings))
	}
	if doc.Findings[0].Severity != "WARN" {
		t.Errorf("Severity = %q, want WARN", doc.Findings[0].Severity)
	}
}

func TestMarshalJSONKeysAreSorted(t *testing.T) {
	out, err := MarshalJSON(sampleResult())
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(out, &generic); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	// Top-level Document keys in alphabetical order.
	want := []string{"\"filesScanned\"", "\"filesSkipped\"", "\"findings\"", "\"projectilesScanned\"", "\"units\""}
	text := string(out)
	lastIdx := -1
	for _, key := range want {
		idx := strings.Index(text, key)
		if idx < 0 {
			t.Fatalf("expected key %s present in output", key)
		}
		if idx < lastIdx {
			t.Fatalf("key %s appears out of lexicographic order", key)
		}
		lastIdx = idx
	}
}

func TestMarshalJSONIsDeterministic(t *testing.T) {
	a, err := MarshalJSON(sampleResult())
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	b, err := MarshalJSON(sampleResult())
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if string(a) != string(b) {
		t.Error("MarshalJSON() produced different bytes for identical input")
	}
}

func TestBuildWithDeclaredDPSComputesDelta(t *testing.T) {
	lookup := func(unitID string) (float64, bool) {
		if unitID == "uel0101" {
			return 10.0, true
		}
		return 0, false
	}
	doc := BuildWithDeclaredDPS(sampleResult(), lookup)
	ur := doc.Units[0]
	if ur.DeclaredDPS == nil || *ur.DeclaredDPS != 10.0 {
		t.Fatalf("DeclaredDPS = %v, want 10.0", ur.DeclaredDPS)
	}
	// effective DPS for the sample weapon equals nominal 20 (no reload
	// dominance), so the delta against the declared 10 is computable; just
	// check it's set.
	if ur.DeclaredDPSDeltaPercent == nil {
		t.Fatal("expected DeclaredDPSDeltaPercent to be set")
	}
}

func TestBuildWithDeclaredDPSLeavesUnmatchedUnitsNil(t *testing.T) {
	lookup := func(unitID string) (float64, bool) { return 0, false }
	doc := BuildWithDeclaredDPS(sampleResult(), lookup)
	if doc.Units[0].DeclaredDPS != nil {
		t.Error("expected DeclaredDPS to stay nil for a unit with no override")
	}
}

func TestRenderHTMLIncludesFindingsAndUnits(t *testing.T) {
	out, err := RenderHTML(sampleResult())
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	html := string(out)
	if !strings.Contains(html, "uel0101") {
		t.Error("expected rendered HTML to mention unit id uel0101")
	}
	if !strings.Contains(html, "STARVATION") {
		t.Error("expected rendered HTML to mention finding code STARVATION")
	}
}
