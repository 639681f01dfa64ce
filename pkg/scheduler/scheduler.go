// Package scheduler runs a deterministic, discrete-event micro-simulation
// of a unit's weapons over a fixed time horizon, producing a merged firing
// trace used to detect cadence interference between weapons that share a
// unit.
package scheduler

import (
	"sort"
	"time"

	"bpaudit/pkg/model"
)

// DefaultHorizon is the simulation horizon H from the cadence model: long
// enough to observe several cycles of all but the slowest siege weapons.
const DefaultHorizon = 10 * time.Second

// Cadence holds the derived cycle-structure quantities for one weapon,
// computed once and reused by both the simulator and the anomaly engine.
type Cadence struct {
	ShotsPerRack   int
	RackDuration   time.Duration
	CyclePeriod    time.Duration
	PerShotDamage  float64
	NominalDPS     float64
	EffectiveDPS   float64
}

// DeriveCadence computes the cadence record for a weapon given its
// resolved fragment contribution. A weapon with RateOfFire <= 0 has no
// well-defined cycle period; its CyclePeriod, NominalDPS and EffectiveDPS
// are left at zero.
func DeriveCadence(w *model.Weapon, fragmentCount int, fragmentDamage float64) Cadence {
	shotsPerRack := w.RackSalvoSize * w.MuzzleSalvoSize
	rackDuration := time.Duration(float64(w.MuzzleSalvoSize-1) * w.MuzzleSalvoDelay * float64(time.Second))
	if rackDuration < 0 {
		rackDuration = 0
	}

	perShotDamage := w.DamageBase + w.InitialDamage + float64(fragmentCount)*fragmentDamage

	var cyclePeriod time.Duration
	if w.RateOfFire > 0 {
		nominalPeriod := time.Duration(float64(time.Second) / w.RateOfFire)
		reloadPeriod := rackDuration + time.Duration(w.RackSalvoReloadTime*float64(time.Second))
		cyclePeriod = nominalPeriod
		if reloadPeriod > cyclePeriod {
			cyclePeriod = reloadPeriod
		}
	}

	c := Cadence{
		ShotsPerRack:  shotsPerRack,
		RackDuration:  rackDuration,
		CyclePeriod:   cyclePeriod,
		PerShotDamage: perShotDamage,
	}
	if w.RateOfFire > 0 {
		c.NominalDPS = perShotDamage * float64(shotsPerRack) * w.RateOfFire
	}
	if cyclePeriod > 0 {
		c.EffectiveDPS = perShotDamage * float64(shotsPerRack) / cyclePeriod.Seconds()
	}
	return c
}

// MuzzleEvent is a single scheduled muzzle-fire event within the trace.
type MuzzleEvent struct {
	Time        time.Duration
	WeaponIndex int
	MuzzleIndex int // 0-based position within the weapon's firing sequence, for deterministic tie-breaking
}

// SimulateWeapon emits the weapon's muzzle-fire events across racks and
// cycles until the horizon is exceeded, following the three-step algorithm:
// emit shots_per_rack events per cycle at t, t+delay, ..., advance by
// cycle_period, repeat.
func SimulateWeapon(w *model.Weapon, cadence Cadence, horizon time.Duration) []MuzzleEvent {
	if w.RateOfFire <= 0 || cadence.CyclePeriod <= 0 {
		return nil
	}

	var events []MuzzleEvent
	muzzleIndex := 0
	muzzleDelay := time.Duration(w.MuzzleSalvoDelay * float64(time.Second))
	// Racks within a cycle share the muzzle spacing and are contiguous: the
	// whole shots_per_rack sequence fires at uniform muzzle_salvo_delay
	// spacing, rack boundaries included.
	for t := time.Duration(0); t <= horizon; t += cadence.CyclePeriod {
		for shot := 0; shot < cadence.ShotsPerRack; shot++ {
			fireTime := t + time.Duration(shot)*muzzleDelay
			if fireTime > horizon {
				continue
			}
			events = append(events, MuzzleEvent{Time: fireTime, WeaponIndex: w.Index, MuzzleIndex: muzzleIndex})
			muzzleIndex++
		}
	}
	return events
}

// SimulateUnit simulates every weapon on a unit and merges the per-weapon
// traces into one ordered trace, tie-breaking by weapon index then muzzle
// index for bit-identical determinism across runs.
func SimulateUnit(u *model.Unit, cadences map[int]Cadence, horizon time.Duration) []MuzzleEvent {
	var merged []MuzzleEvent
	for i := range u.Weapons {
		w := &u.Weapons[i]
		c, ok := cadences[w.Index]
		if !ok {
			continue
		}
		merged = append(merged, SimulateWeapon(w, c, horizon)...)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Time != merged[j].Time {
			return merged[i].Time < merged[j].Time
		}
		if merged[i].WeaponIndex != merged[j].WeaponIndex {
			return merged[i].WeaponIndex < merged[j].WeaponIndex
		}
		return merged[i].MuzzleIndex < merged[j].MuzzleIndex
	})
	return merged
}

// EffectiveCadenceHz returns the weapon's observed firing rate within the
// horizon: number of discrete muzzle events divided by the horizon length.
func EffectiveCadenceHz(events []MuzzleEvent, weaponIndex int, horizon time.Duration) float64 {
	count := 0
	for _, e := range events {
		if e.WeaponIndex == weaponIndex {
			count++
		}
	}
	if horizon <= 0 {
		return 0
	}
	return float64(count) / horizon.Seconds()
}

// RecommendedHorizon implements the design note's fallback for unusually
// slow-cycling weapons: at least 3x the slowest cycle period on the unit,
// never less than DefaultHorizon.
func RecommendedHorizon(cadences map[int]Cadence) time.Duration {
	h := DefaultHorizon
	for _, c := range cadences {
		if candidate := 3 * c.CyclePeriod; candidate > h {
			h = candidate
		}
	}
	return h
}
