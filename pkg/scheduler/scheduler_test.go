package scheduler

import (
	"testing"
	"time"

	"bpaudit/pkg/model"
)

func almostEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

// Scenario 1: single-weapon nominal = effective.
func TestDeriveCadenceSingleWeaponNominal(t *testing.T) {
	w := &model.Weapon{
		Index: 1, DamageBase: 10, RateOfFire: 2.0, RackSalvoSize: 1, MuzzleSalvoSize: 1, RackSalvoReloadTime: 0,
	}
	c := DeriveCadence(w, 0, 0)

	if c.ShotsPerRack != 1 {
		t.Errorf("ShotsPerRack = %d, want 1", c.ShotsPerRack)
	}
	if c.CyclePeriod != 500*time.Millisecond {
		t.Errorf("CyclePeriod = %v, want 500ms", c.CyclePeriod)
	}
	if c.PerShotDamage != 10 {
		t.Errorf("PerShotDamage = %v, want 10", c.PerShotDamage)
	}
	if !almostEqual(c.EffectiveDPS, 20.0, 1e-9) {
		t.Errorf("EffectiveDPS = %v, want 20.0", c.EffectiveDPS)
	}
	if !almostEqual(c.NominalDPS, c.EffectiveDPS, 1e-9) {
		t.Errorf("nominal (%v) should equal effective (%v) with no reload dominance", c.NominalDPS, c.EffectiveDPS)
	}
}

// Scenario 2: salvo with delay under reload dominance.
func TestDeriveCadenceReloadDominated(t *testing.T) {
	w := &model.Weapon{
		Index: 1, DamageBase: 50, RateOfFire: 1.5,
		RackSalvoSize: 2, MuzzleSalvoSize: 3, MuzzleSalvoDelay: 0.05, RackSalvoReloadTime: 0.8,
	}
	c := DeriveCadence(w, 0, 0)

	if c.ShotsPerRack != 6 {
		t.Errorf("ShotsPerRack = %d, want 6", c.ShotsPerRack)
	}
	if !almostEqual(c.RackDuration.Seconds(), 0.1, 1e-9) {
		t.Errorf("RackDuration = %v, want 0.1s", c.RackDuration)
	}
	if !almostEqual(c.CyclePeriod.Seconds(), 0.9, 1e-9) {
		t.Errorf("CyclePeriod = %v, want 0.9s", c.CyclePeriod)
	}
	if !almostEqual(c.EffectiveDPS, 333.33, 0.01) {
		t.Errorf("EffectiveDPS = %v, want ~333.33", c.EffectiveDPS)
	}
}

func TestSimulateWeaponZeroRateProducesNoEvents(t *testing.T) {
	w := &model.Weapon{Index: 1, DamageBase: 10, RateOfFire: 0}
	c := DeriveCadence(w, 0, 0)
	events := SimulateWeapon(w, c, DefaultHorizon)
	if len(events) != 0 {
		t.Errorf("expected no events for a zero-rate weapon, got %d", len(events))
	}
}

func TestSimulateWeaponEventCountWithinHorizon(t *testing.T) {
	w := &model.Weapon{Index: 1, DamageBase: 10, RateOfFire: 2.0, RackSalvoSize: 1, MuzzleSalvoSize: 1}
	c := DeriveCadence(w, 0, 0)
	events := SimulateWeapon(w, c, 10*time.Second)

	// cycle period 0.5s over a 10s horizon: events at 0, 0.5, 1.0 ... 10.0 inclusive = 21.
	if len(events) != 21 {
		t.Fatalf("event count = %d, want 21", len(events))
	}
	for _, e := range events {
		if e.Time > 10*time.Second {
			t.Errorf("event at %v exceeds horizon", e.Time)
		}
	}
}

func TestSimulateWeaponRackLayout(t *testing.T) {
	w := &model.Weapon{Index: 1, DamageBase: 1, RateOfFire: 1, RackSalvoSize: 2, MuzzleSalvoSize: 2, MuzzleSalvoDelay: 0.1, RackSalvoReloadTime: 0}
	c := DeriveCadence(w, 0, 0)
	// Exactly one cycle: the horizon is inclusive, so it ends just before the
	// second cycle would start at t = CyclePeriod.
	events := SimulateWeapon(w, c, c.CyclePeriod-time.Nanosecond)

	if len(events) != 4 {
		t.Fatalf("event count = %d, want 4 (one cycle, 2 racks x 2 muzzles)", len(events))
	}
	wantTimes := []time.Duration{
		0,
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}
	for i, e := range events {
		if e.Time != wantTimes[i] {
			t.Errorf("event[%d].Time = %v, want %v", i, e.Time, wantTimes[i])
		}
	}
}

func TestSimulateUnitDeterministicOrdering(t *testing.T) {
	u := &model.Unit{
		UnitID: "ual0107",
		Weapons: []model.Weapon{
			{Index: 1, DamageBase: 5, RateOfFire: 3.0, RackSalvoSize: 1, MuzzleSalvoSize: 1, TargetCategories: []string{"AIR"}},
			{Index: 2, DamageBase: 8, RateOfFire: 2.0, RackSalvoSize: 1, MuzzleSalvoSize: 2, MuzzleSalvoDelay: 0.1, RackSalvoReloadTime: 0.5, TargetCategories: []string{"GROUND"}},
		},
	}
	cadences := map[int]Cadence{
		1: DeriveCadence(&u.Weapons[0], 0, 0),
		2: DeriveCadence(&u.Weapons[1], 0, 0),
	}

	run1 := SimulateUnit(u, cadences, DefaultHorizon)
	run2 := SimulateUnit(u, cadences, DefaultHorizon)

	if len(run1) == 0 {
		t.Fatal("expected a non-empty merged trace")
	}
	if len(run1) != len(run2) {
		t.Fatalf("non-deterministic trace length: %d vs %d", len(run1), len(run2))
	}
	for i := range run1 {
		if run1[i] != run2[i] {
			t.Fatalf("non-deterministic event at %d: %+v vs %+v", i, run1[i], run2[i])
		}
	}
	for i := 1; i < len(run1); i++ {
		a, b := run1[i-1], run1[i]
		if a.Time > b.Time {
			t.Fatalf("trace not time-sorted at %d: %v > %v", i, a.Time, b.Time)
		}
		if a.Time == b.Time && a.WeaponIndex > b.WeaponIndex {
			t.Fatalf("trace not weapon-index-sorted on tie at %d", i)
		}
	}
}

func TestRecommendedHorizonScalesWithSlowestCycle(t *testing.T) {
	cadences := map[int]Cadence{
		1: {CyclePeriod: 2 * time.Second},
		2: {CyclePeriod: 20 * time.Second}, // slow siege weapon
	}
	got := RecommendedHorizon(cadences)
	if got != 60*time.Second {
		t.Errorf("RecommendedHorizon = %v, want 60s (3x slowest cycle)", got)
	}
}

func TestRecommendedHorizonNeverBelowDefault(t *testing.T) {
	cadences := map[int]Cadence{1: {CyclePeriod: 1 * time.Second}}
	if got := RecommendedHorizon(cadences); got != DefaultHorizon {
		t.Errorf("RecommendedHorizon = %v, want default %v", got, DefaultHorizon)
	}
}
