// Package anomaly classifies observed blueprint and cadence behavior into
// severity-tagged findings, merging extraction, resolver, and scheduler
// output into one ordered, auditable list.
package anomaly

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"bpaudit/pkg/extractor"
	"bpaudit/pkg/model"
	"bpaudit/pkg/resolver"
	"bpaudit/pkg/scheduler"
)

// Severity is the finding severity scale shared across the whole pipeline.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityCrit
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityCrit:
		return "CRIT"
	default:
		return "UNKNOWN"
	}
}

// rank orders severities from most to least severe, for descending sort.
func (s Severity) rank() int {
	switch s {
	case SeverityCrit:
		return 0
	case SeverityWarn:
		return 1
	default:
		return 2
	}
}

// Stable finding codes. Each is a terse, grep-able identifier independent
// of the human-facing message.
const (
	CodePhantomDPS           = "PHANTOM_DPS"
	CodeMissingProjectile    = "MISSING_PROJECTILE"
	CodeCadenceOverlap       = "CADENCE_OVERLAP"
	CodeStarvation           = "STARVATION"
	CodeZeroRateWeapon       = "ZERO_RATE_WEAPON"
	CodeIDMismatch           = "ID_MISMATCH"
	CodeDuplicateUnitID      = "DUPLICATE_UNIT_ID"
	CodeZeroRadiusTargets    = "ZERO_RADIUS_WITH_TARGETS"
	CodeNegativeValue        = "NEGATIVE_VALUE"
	CodeLegacyFieldUsed      = "LEGACY_FIELD_USED"
	CodeFragmentChainTooDeep = "FRAGMENT_CHAIN_TOO_DEEP"
)

// Finding is the canonical (severity, code, unit_id, weapon_index?,
// message, detail) tuple the whole scan pipeline converges on.
type Finding struct {
	Severity    Severity
	Code        string
	UnitID      string
	WeaponIndex int // 0 means "not weapon-specific"
	Message     string
	Detail      string
}

// FromExtractor converts extractor-layer findings into the shared type.
func FromExtractor(in []extractor.Finding) []Finding {
	out := make([]Finding, len(in))
	for i, f := range in {
		out[i] = Finding{
			Severity: Severity(f.Severity), Code: f.Code, UnitID: f.UnitID,
			WeaponIndex: f.WeaponIndex, Message: f.Message, Detail: f.Detail,
		}
	}
	return out
}

// FromResolver converts resolver-layer findings into the shared type.
func FromResolver(in []resolver.Finding) []Finding {
	out := make([]Finding, len(in))
	for i, f := range in {
		out[i] = Finding{
			Severity: Severity(f.Severity), Code: f.Code, UnitID: f.UnitID,
			WeaponIndex: f.WeaponIndex, Message: f.Message, Detail: f.Detail,
		}
	}
	return out
}

// DetectStructural runs the cross-entity structural checks: UnitId /
// BlueprintId mismatch, duplicate unit_id across files, zero max_radius
// with non-empty target categories, and negative values where
// non-negative is required.
func DetectStructural(units []*model.Unit) []Finding {
	var findings []Finding
	type occurrence struct {
		unitID string // actual declared casing, from the first unit seen for this key
		paths  []string
	}
	seenAt := make(map[string]*occurrence) // lower(unit_id) -> occurrence

	for _, u := range units {
		if u.BlueprintID != "" && !strings.EqualFold(u.UnitID, u.BlueprintID) {
			findings = append(findings, Finding{
				Severity: SeverityCrit, Code: CodeIDMismatch, UnitID: u.UnitID,
				Message: "UnitId and BlueprintId disagree",
				Detail:  fmt.Sprintf("UnitId=%q BlueprintId=%q", u.UnitID, u.BlueprintID),
			})
		}

		key := strings.ToLower(u.UnitID)
		if seenAt[key] == nil {
			seenAt[key] = &occurrence{unitID: u.UnitID}
		}
		seenAt[key].paths = append(seenAt[key].paths, u.SourcePath)

		for _, w := range u.Weapons {
			if w.MaxRadius == 0 && len(w.TargetCategories) > 0 {
				findings = append(findings, Finding{
					Severity: SeverityWarn, Code: CodeZeroRadiusTargets, UnitID: u.UnitID, WeaponIndex: w.Index,
					Message: "weapon declares target categories but has zero max_radius",
					Detail:  fmt.Sprintf("target_categories=%v", w.TargetCategories),
				})
			}
			findings = append(findings, negativeValueFindings(u.UnitID, w)...)
		}
	}

	for _, occ := range seenAt {
		if len(occ.paths) < 2 {
			continue
		}
		findings = append(findings, Finding{
			Severity: SeverityCrit, Code: CodeDuplicateUnitID, UnitID: occ.unitID,
			Message: "unit_id is declared in more than one file",
			Detail:  fmt.Sprintf("files=%v", occ.paths),
		})
	}

	return findings
}

func negativeValueFindings(unitID string, w model.Weapon) []Finding {
	type check struct {
		name  string
		value float64
	}
	checks := []check{
		{"damage_base", w.DamageBase},
		{"initial_damage", w.InitialDamage},
		{"muzzle_salvo_delay", w.MuzzleSalvoDelay},
		{"rack_salvo_reload_time", w.RackSalvoReloadTime},
		{"max_radius", w.MaxRadius},
	}
	var out []Finding
	for _, c := range checks {
		if c.value < 0 {
			out = append(out, Finding{
				Severity: SeverityCrit, Code: CodeNegativeValue, UnitID: unitID, WeaponIndex: w.Index,
				Message: fmt.Sprintf("%s must be non-negative", c.name),
				Detail:  fmt.Sprintf("%s=%v", c.name, c.value),
			})
		}
	}
	return out
}

// CadenceInput bundles the per-weapon derived cadence and resolved
// fragment contribution the interference detectors need alongside the
// merged trace.
type CadenceInput struct {
	Weapon  *model.Weapon
	Cadence scheduler.Cadence
}

// DetectCadenceInterference runs the multi-weapon interference detectors:
// overlap between weapons with intersecting target categories, starvation
// from reload-dominated cycles, and phantom DPS where nominal DPS exceeds
// the cycle-derived effective DPS by more than 25%. Weapons with no
// valid rate of fire are skipped; ZERO_RATE_WEAPON is already raised by
// the extractor.
func DetectCadenceInterference(unitID string, inputs []CadenceInput, trace []scheduler.MuzzleEvent, horizon time.Duration) []Finding {
	var findings []Finding

	active := make([]CadenceInput, 0, len(inputs))
	for _, in := range inputs {
		if in.Weapon.RateOfFire > 0 && in.Cadence.CyclePeriod > 0 {
			active = append(active, in)
		}
	}

	for _, in := range active {
		nominalCadenceHz := in.Weapon.RateOfFire * float64(in.Cadence.ShotsPerRack)
		effectiveCadenceHz := scheduler.EffectiveCadenceHz(trace, in.Weapon.Index, horizon)
		if nominalCadenceHz > 0 && effectiveCadenceHz < 0.8*nominalCadenceHz {
			findings = append(findings, Finding{
				Severity: SeverityWarn, Code: CodeStarvation, UnitID: unitID, WeaponIndex: in.Weapon.Index,
				Message: "effective firing cadence falls below 80% of nominal due to the reload-dominated cycle",
				Detail:  fmt.Sprintf("nominal=%.3f/s effective=%.3f/s cycle_period=%s", nominalCadenceHz, effectiveCadenceHz, in.Cadence.CyclePeriod),
			})
		}

		if in.Cadence.NominalDPS > 0 && in.Cadence.NominalDPS > in.Cadence.EffectiveDPS*1.25 {
			cause := phantomDPSCause(in.Weapon, in.Cadence)
			findings = append(findings, Finding{
				Severity: SeverityWarn, Code: CodePhantomDPS, UnitID: unitID, WeaponIndex: in.Weapon.Index,
				Message: fmt.Sprintf("declared DPS overstates effective DPS by more than 25%% (%s)", cause),
				Detail:  fmt.Sprintf("nominal_dps=%.3f effective_dps=%.3f", in.Cadence.NominalDPS, in.Cadence.EffectiveDPS),
			})
		}
	}

	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			if !categoriesIntersect(a.Weapon.TargetCategories, b.Weapon.TargetCategories) {
				continue
			}
			if racksOverlap(trace, a.Weapon.Index, b.Weapon.Index) {
				findings = append(findings, Finding{
					Severity: SeverityInfo, Code: CodeCadenceOverlap, UnitID: unitID, WeaponIndex: a.Weapon.Index,
					Message: "weapon racks overlap in time with another weapon sharing a target category",
					Detail:  fmt.Sprintf("other_weapon_index=%d shared_categories=%v", b.Weapon.Index, intersection(a.Weapon.TargetCategories, b.Weapon.TargetCategories)),
				})
			}
		}
	}

	return findings
}

func phantomDPSCause(w *model.Weapon, c scheduler.Cadence) string {
	reloadPeriod := c.RackDuration + time.Duration(w.RackSalvoReloadTime*float64(time.Second))
	nominalPeriod := time.Duration(float64(time.Second) / w.RateOfFire)
	switch {
	case reloadPeriod > nominalPeriod && w.RackSalvoReloadTime > 0:
		return "reload-bound"
	case c.RackDuration > 0 && reloadPeriod > nominalPeriod:
		return "salvo-gap-bound"
	default:
		return "fragment-unaccounted"
	}
}

func categoriesIntersect(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	for _, c := range b {
		if set[c] {
			return true
		}
	}
	return false
}

func intersection(a, b []string) []string {
	set := make(map[string]bool, len(a))
	for _, c := range a {
		set[c] = true
	}
	var out []string
	for _, c := range b {
		if set[c] {
			out = append(out, c)
		}
	}
	return out
}

// racksOverlap reports whether any event of one given weapon falls within
// coincidenceWindow of any event of the other in the merged trace.
func racksOverlap(trace []scheduler.MuzzleEvent, weaponA, weaponB int) bool {
	var aTimes, bTimes []time.Duration
	for _, e := range trace {
		switch e.WeaponIndex {
		case weaponA:
			aTimes = append(aTimes, e.Time)
		case weaponB:
			bTimes = append(bTimes, e.Time)
		}
	}
	// coincidenceWindow is not derived from any weapon field; it is a fixed
	// tolerance standing in for "close enough to be the same muzzle flash"
	// to a human reviewing a report, chosen as roughly a frame's worth of
	// wall-clock time at 20Hz rather than computed from cadence data.
	const coincidenceWindow = 50 * time.Millisecond
	for _, a := range aTimes {
		for _, b := range bTimes {
			d := a - b
			if d < 0 {
				d = -d
			}
			if d <= coincidenceWindow {
				return true
			}
		}
	}
	return false
}

// Sort orders findings per the stable ordering policy: within a unit by
// severity descending, then code ascending, then weapon index ascending;
// across units by unit_id lexicographic ascending.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.UnitID != b.UnitID {
			return a.UnitID < b.UnitID
		}
		if a.Severity.rank() != b.Severity.rank() {
			return a.Severity.rank() < b.Severity.rank()
		}
		if a.Code != b.Code {
			return a.Code < b.Code
		}
		return a.WeaponIndex < b.WeaponIndex
	})
}
