// Package report renders a scan.Result into the stable, external-facing
// forms external tooling consumes: canonical JSON and a minimal HTML
// summary. Neither persistence nor CLI formatting belongs here; this
// package only knows how to turn a scan into bytes.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"bpaudit/pkg/anomaly"
	"bpaudit/pkg/model"
	"bpaudit/pkg/resolver"
	"bpaudit/pkg/scan"
	"bpaudit/pkg/scheduler"
)

// WeaponCadence is the derived per-weapon cadence view included in a
// report so consumers don't need to recompute it from raw fields.
type WeaponCadence struct {
	WeaponIndex    int     `json:"weaponIndex"`
	ShotsPerRack   int     `json:"shotsPerRack"`
	CyclePeriodSec float64 `json:"cyclePeriodSec"`
	PerShotDamage  float64 `json:"perShotDamage"`
	NominalDPS     float64 `json:"nominalDps"`
	EffectiveDPS   float64 `json:"effectiveDps"`
}

// UnitReport bundles one unit's canonical entity with its derived cadence
// view, in declaration order of its weapons.
type UnitReport struct {
	Unit     model.Unit      `json:"unit"`
	Cadences []WeaponCadence `json:"cadences"`

	// DeclaredDPS and DeclaredDPSDeltaPercent are populated only when a
	// declared-DPS override was supplied for this unit; the percent is how
	// far the sum of effective weapon DPS diverges from the declared value.
	DeclaredDPS             *float64 `json:"declaredDps,omitempty"`
	DeclaredDPSDeltaPercent *float64 `json:"declaredDpsDeltaPercent,omitempty"`
}

// DeclaredDPSLookup resolves a unit's declared DPS override,
// case-insensitively, reporting ok=false when no override exists.
type DeclaredDPSLookup func(unitID string) (dps float64, ok bool)

// FindingView mirrors anomaly.Finding with severity rendered as its
// uppercase string form, per the stable external schema.
type FindingView struct {
	Severity    string `json:"severity"`
	Code        string `json:"code"`
	UnitID      string `json:"unitId"`
	WeaponIndex int    `json:"weaponIndex,omitempty"`
	Message     string `json:"message"`
	Detail      string `json:"detail,omitempty"`
}

// Document is the stable external ScanResult shape: model entities,
// resolver-derived cadence, and findings, ready for canonical encoding.
type Document struct {
	Units              []UnitReport  `json:"units"`
	ProjectilesScanned bool          `json:"projectilesScanned"`
	FilesScanned       int           `json:"filesScanned"`
	FilesSkipped       int           `json:"filesSkipped"`
	Findings           []FindingView `json:"findings"`
}

// Build converts a scan.Result into the stable report Document, deriving
// each unit's per-weapon cadence view via the resolver and scheduler so
// the document never needs to recompute raw extractor fields itself.
func Build(res *scan.Result) Document {
	return build(res, nil)
}

// BuildWithDeclaredDPS is Build plus a per-unit comparison against a
// declared-DPS override source, per the external-interfaces override file.
func BuildWithDeclaredDPS(res *scan.Result, lookup DeclaredDPSLookup) Document {
	return build(res, lookup)
}

func build(res *scan.Result, lookup DeclaredDPSLookup) Document {
	doc := Document{
		ProjectilesScanned: res.ProjectilesScanned,
		FilesScanned:       res.FilesScanned,
		FilesSkipped:       res.FilesSkipped,
	}

	table := resolver.NewProjectileTable(res.Projectiles, res.ProjectilesScanned)
	units := append([]*model.Unit(nil), res.Units...)
	sort.Slice(units, func(i, j int) bool { return units[i].UnitID < units[j].UnitID })

	for _, u := range units {
		resolved, _ := resolver.Resolve(u, table)
		cadences := make([]WeaponCadence, 0, len(resolved))
		for _, rw := range resolved {
			c := scheduler.DeriveCadence(rw.Weapon, rw.FragmentCount, rw.FragmentDamage)
			cadences = append(cadences, WeaponCadence{
				WeaponIndex:    rw.Weapon.Index,
				ShotsPerRack:   c.ShotsPerRack,
				CyclePeriodSec: finite(c.CyclePeriod.Seconds()),
				PerShotDamage:  finite(c.PerShotDamage),
				NominalDPS:     finite(c.NominalDPS),
				EffectiveDPS:   finite(c.EffectiveDPS),
			})
		}
		ur := UnitReport{Unit: *u, Cadences: cadences}
		if lookup != nil {
			if declared, ok := lookup(u.UnitID); ok {
				effectiveSum := 0.0
				for _, c := range cadences {
					effectiveSum += c.EffectiveDPS
				}
				delta := 0.0
				if declared != 0 {
					delta = finite((effectiveSum - declared) / declared * 100)
				}
				ur.DeclaredDPS = &declared
				ur.DeclaredDPSDeltaPercent = &delta
			}
		}
		doc.Units = append(doc.Units, ur)
	}

	findings := append([]anomaly.Finding(nil), res.Findings...)
	anomaly.Sort(findings)
	for _, f := range findings {
		doc.Findings = append(doc.Findings, FindingView{
			Severity:    f.Severity.String(),
			Code:        f.Code,
			UnitID:      f.UnitID,
			WeaponIndex: f.WeaponIndex,
			Message:     f.Message,
			Detail:      f.Detail,
		})
	}

	return doc
}

// finite replaces a non-finite float (NaN, +/-Inf — which can only arise
// from a malformed blueprint's degenerate inputs) with zero, so the
// canonical JSON never emits a value encoding/json would otherwise reject.
func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// MarshalJSON renders the document as canonical JSON: object keys sorted
// lexicographically. encoding/json already sorts map keys, so the
// document is round-tripped through a generic map to get that guarantee
// without hand-rolling a key-sorting encoder.
func MarshalJSON(res *scan.Result) ([]byte, error) {
	return MarshalJSONDocument(Build(res))
}

// MarshalJSONDocument is MarshalJSON for a Document already built by Build
// or BuildWithDeclaredDPS, so callers that need the declared-DPS comparison
// don't have to re-derive the document from the scan.Result a second time.
func MarshalJSONDocument(doc Document) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal report document: %w", err)
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("canonicalize report document: %w", err)
	}

	out, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode canonical report: %w", err)
	}
	return out, nil
}
