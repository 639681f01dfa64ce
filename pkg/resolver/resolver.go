// Package resolver cross-references a unit's weapons against the scan's
// projectile table, folding fragment counts and fragment damage into a
// derived per-weapon view without mutating the parsed model entities.
package resolver

import (
	"strings"

	"bpaudit/pkg/model"
)

// Severity and finding codes mirror the anomaly engine's taxonomy so the
// two can be merged into one ordered findings list.
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

const (
	CodeMissingProjectile    = "MISSING_PROJECTILE"
	CodeFragmentChainTooDeep = "FRAGMENT_CHAIN_TOO_DEEP"
)

// Finding is a resolver-time observation.
type Finding struct {
	Severity    Severity
	Code        string
	UnitID      string
	WeaponIndex int
	Message     string
	Detail      string
}

// ResolvedWeapon is the resolver's derived view of a weapon: the owning
// model.Weapon plus whatever fragment contribution was found, joined by
// projectile reference. It never mutates the underlying model.Weapon.
type ResolvedWeapon struct {
	Weapon         *model.Weapon
	FragmentCount  int
	FragmentDamage float64
}

// ProjectileTable indexes Projectiles by their canonical normalized path.
type ProjectileTable struct {
	byPath map[string]model.Projectile
	// Scanned reports whether the projectiles/ directory was part of this
	// scan at all, distinguishing a degraded scan (INFO) from a dangling
	// reference within a fully-scanned projectiles/ directory (WARN).
	Scanned bool
}

// NewProjectileTable indexes projectiles by NormalizePath.
func NewProjectileTable(projectiles []model.Projectile, scanned bool) *ProjectileTable {
	t := &ProjectileTable{byPath: make(map[string]model.Projectile, len(projectiles)), Scanned: scanned}
	for _, p := range projectiles {
		t.byPath[NormalizePath(p.Path)] = p
	}
	return t
}

// NormalizePath lower-cases a projectile reference, converts backslashes
// to forward slashes, and leaves a leading slash untouched.
func NormalizePath(raw string) string {
	p := strings.ToLower(raw)
	p = strings.ReplaceAll(p, "\\", "/")
	return p
}

func (t *ProjectileTable) lookup(ref string) (model.Projectile, bool) {
	if t == nil {
		return model.Projectile{}, false
	}
	p, ok := t.byPath[NormalizePath(ref)]
	return p, ok
}

// Resolve derives per-weapon fragment contributions for every weapon of a
// unit, following fragment chains one hop deep.
func Resolve(u *model.Unit, table *ProjectileTable) ([]ResolvedWeapon, []Finding) {
	var resolved []ResolvedWeapon
	var findings []Finding

	for i := range u.Weapons {
		w := &u.Weapons[i]
		rw := ResolvedWeapon{Weapon: w}

		if w.ProjectileRef == "" {
			resolved = append(resolved, rw)
			continue
		}

		proj, ok := table.lookup(w.ProjectileRef)
		if !ok {
			sev := SeverityWarn
			msg := "weapon references a projectile that was not found in the scanned projectiles directory"
			if table == nil || !table.Scanned {
				sev = SeverityInfo
				msg = "weapon references a projectile, but the scan did not include a projectiles directory"
			}
			findings = append(findings, Finding{
				Severity: sev, Code: CodeMissingProjectile, UnitID: u.UnitID, WeaponIndex: w.Index,
				Message: msg, Detail: w.ProjectileRef,
			})
			resolved = append(resolved, rw)
			continue
		}

		rw.FragmentCount = proj.FragmentCount
		rw.FragmentDamage = proj.FragmentDamage

		// Follow a nested fragment-projectile reference exactly one hop:
		// its own fragment contribution folds in, but a further reference
		// from that hop is reported and ignored rather than followed.
		if proj.FragmentRef != "" {
			if frag, ok := table.lookup(proj.FragmentRef); ok {
				rw.FragmentCount += frag.FragmentCount
				rw.FragmentDamage += frag.FragmentDamage
				if frag.FragmentRef != "" {
					findings = append(findings, Finding{
						Severity: SeverityWarn, Code: CodeFragmentChainTooDeep, UnitID: u.UnitID, WeaponIndex: w.Index,
						Message: "fragment projectile chain exceeds the one-hop resolution policy; deeper level ignored",
						Detail:  frag.FragmentRef,
					})
				}
			}
		}

		resolved = append(resolved, rw)
	}

	return resolved, findings
}
