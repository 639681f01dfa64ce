// Package model defines the immutable canonical entities produced by the
// extractor: Unit, Weapon, and Projectile. Entities are plain data — no
// behavior, no mutation after construction. Derived cadence quantities
// (shots per rack, cycle period, effective DPS) are computed by the
// resolver and scheduler and are never stored on these types.
package model

// Unit is a single blueprint's canonical entity. Weapons are owned
// exclusively by their unit and carried in declaration order, 1-indexed.
type Unit struct {
	UnitID      string `json:"unitId"`
	DisplayName string `json:"displayName,omitempty"`
	SourcePath  string `json:"sourcePath"`

	// BlueprintID mirrors the raw BlueprintId field when present, kept
	// alongside UnitID so the anomaly engine can compare them.
	BlueprintID string `json:"blueprintId,omitempty"`

	Weapons []Weapon `json:"weapons,omitempty"`

	// UnknownFields preserves keys the extractor did not recognize, for
	// diagnostic reporting only; it never drives computation.
	UnknownFields []string `json:"unknownFields,omitempty"`
}

// Weapon is a canonical cadence record. Index is the weapon's 1-based
// position within its owning Unit.Weapons, or 0 for a standalone weapon
// blueprint with no owning unit.
type Weapon struct {
	Index int    `json:"index"`
	Label string `json:"label,omitempty"`

	// ProjectileRef is the raw (not yet normalized) blueprint path string
	// the weapon refers to, if any. The resolver normalizes and follows it.
	ProjectileRef string `json:"projectileRef,omitempty"`

	TargetCategories []string `json:"targetCategories,omitempty"`

	DamageBase           float64 `json:"damageBase"`
	InitialDamage        float64 `json:"initialDamage"`
	RateOfFire           float64 `json:"rateOfFire"`
	RackSalvoSize        int     `json:"rackSalvoSize"`
	MuzzleSalvoSize      int     `json:"muzzleSalvoSize"`
	MuzzleSalvoDelay     float64 `json:"muzzleSalvoDelay"`
	RackSalvoReloadTime  float64 `json:"rackSalvoReloadTime"`
	MaxRadius            float64 `json:"maxRadius"`
	TurretCapable        bool    `json:"turretCapable"`

	// RateOfFireMissing distinguishes "field absent" from "field present
	// and zero". Both are invalid and both produce the same
	// ZERO_RATE_WEAPON finding; this flag records which case applied.
	RateOfFireMissing bool `json:"rateOfFireMissing,omitempty"`

	// UsedLegacyFallback names canonical fields whose value came from a
	// legacy synonym rather than the modern field; the extractor emits an
	// INFO LEGACY_FIELD_USED finding for each.
	UsedLegacyFallback []string `json:"usedLegacyFallback,omitempty"`

	UnknownFields []string `json:"unknownFields,omitempty"`
}

// Projectile is a canonical, path-keyed projectile record shared across
// any number of referencing weapons.
type Projectile struct {
	// Path is the canonical (lower-cased, leading-slash-preserved,
	// forward-slash) blueprint path used as the lookup key.
	Path string `json:"path"`

	FragmentCount  int     `json:"fragmentCount"`
	FragmentDamage float64 `json:"fragmentDamage"`

	// FragmentRef is the raw path of a nested fragment projectile, if any.
	// The resolver follows this one hop and no further.
	FragmentRef string `json:"fragmentRef,omitempty"`
}

// DefaultRackSalvoSize, DefaultMuzzleSalvoSize are the canonical-field
// defaults applied by the extractor when neither primary nor legacy
// synonym is present.
const (
	DefaultRackSalvoSize   = 1
	DefaultMuzzleSalvoSize = 1
)
