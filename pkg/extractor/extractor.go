// Package extractor walks a parsed script.Value tree and recognizes unit
// and weapon blueprint shapes, resolving the many legacy and modern field
// synonyms FAF-style blueprints use down to the canonical model.Weapon and
// model.Unit fields.
package extractor

import (
	"sort"

	"bpaudit/pkg/model"
	"bpaudit/pkg/script"
)

// fieldSource names the primary and legacy-fallback keys for one canonical
// weapon field, directly mirroring the precedence table of synonyms FAF
// blueprints carry forward from older engine versions.
type fieldSource struct {
	canonical string
	primary   string
	legacy    string // empty if there is no legacy synonym
}

var floatFields = []fieldSource{
	{canonical: "muzzle_salvo_delay", primary: "MuzzleSalvoDelay", legacy: "SalvoDelay"},
	{canonical: "rack_salvo_reload_time", primary: "RackSalvoReloadTime", legacy: "ReloadTime"},
	{canonical: "damage_base", primary: "Damage"},
	{canonical: "initial_damage", primary: "InitialDamage"},
}

var intFields = []fieldSource{
	{canonical: "rack_salvo_size", primary: "RackSalvoSize", legacy: "ProjectilesPerOnFire"},
	{canonical: "muzzle_salvo_size", primary: "MuzzleSalvoSize", legacy: "SalvoSize"},
}

// ExtractUnit recognizes a unit-blueprint root shape: a table with a
// UnitId or BlueprintId string field, typically carrying a Weapon
// sub-table of positional weapon tables.
func ExtractUnit(root *script.Value, sourcePath string) (*model.Unit, []Finding) {
	var findings []Finding

	unitID, hasUnitID := root.Field("UnitId").AsString()
	blueprintID, hasBlueprintID := root.Field("BlueprintId").AsString()

	u := &model.Unit{
		SourcePath:  sourcePath,
		UnitID:      unitID,
		BlueprintID: blueprintID,
	}
	if !hasUnitID && hasBlueprintID {
		u.UnitID = blueprintID
	}

	if name, ok := root.Field("DisplayName").AsString(); ok {
		u.DisplayName = name
	}

	if weaponsTable := root.Field("Weapon"); weaponsTable != nil && weaponsTable.Kind == script.KindTable {
		for i, wv := range weaponsTable.Positional() {
			w, wf := ExtractWeapon(wv)
			w.Index = i + 1
			u.Weapons = append(u.Weapons, *w)
			findings = append(findings, retagUnit(retagWeaponIndex(wf, w.Index), u.UnitID)...)
		}
	}

	u.UnknownFields = unknownTopLevelKeys(root, knownUnitKeys)

	return u, findings
}

// IsUnitBlueprint reports whether root plausibly describes a unit rather
// than a standalone weapon: a UnitId or BlueprintId marker field.
func IsUnitBlueprint(root *script.Value) bool {
	_, hasUnitID := root.Field("UnitId").AsString()
	_, hasBlueprintID := root.Field("BlueprintId").AsString()
	return hasUnitID || hasBlueprintID
}

// ExtractWeapon resolves one weapon sub-table (or a standalone weapon
// blueprint's root table) into a canonical model.Weapon, applying the
// primary/legacy-synonym precedence table and recording which canonical
// fields fell back to a legacy name.
func ExtractWeapon(v *script.Value) (*model.Weapon, []Finding) {
	var findings []Finding
	w := &model.Weapon{
		RackSalvoSize:   model.DefaultRackSalvoSize,
		MuzzleSalvoSize: model.DefaultMuzzleSalvoSize,
	}

	if label, ok := v.Field("Label").AsString(); ok {
		w.Label = label
	}
	if ref, ok := v.Field("ProjectileId").AsString(); ok {
		w.ProjectileRef = ref
	}
	if cats := v.Field("TargetCategories"); cats != nil {
		for _, c := range cats.Positional() {
			if s, ok := c.AsString(); ok {
				w.TargetCategories = append(w.TargetCategories, s)
			}
		}
	}
	if b, ok := v.Field("TurretCapable").AsBool(); ok {
		w.TurretCapable = b
	}
	if r, ok := v.Field("MaxRadius").AsFloat(); ok {
		w.MaxRadius = r
	}

	for _, f := range intFields {
		val, usedLegacy, ok := resolveIntField(v, f)
		if ok {
			setIntField(w, f.canonical, val)
			if usedLegacy {
				w.UsedLegacyFallback = append(w.UsedLegacyFallback, f.canonical)
			}
		}
	}
	for _, f := range floatFields {
		val, usedLegacy, ok := resolveFloatField(v, f)
		if ok {
			setFloatField(w, f.canonical, val)
			if usedLegacy {
				w.UsedLegacyFallback = append(w.UsedLegacyFallback, f.canonical)
			}
		}
	}

	if rof, ok := v.Field("RateOfFire").AsFloat(); ok {
		w.RateOfFire = rof
	} else {
		w.RateOfFireMissing = true
	}
	if w.RateOfFireMissing || w.RateOfFire <= 0 {
		findings = append(findings, Finding{
			Severity: SeverityCrit,
			Code:     CodeMissingRateOfFire,
			Message:  "weapon has no usable rate_of_fire; excluded from unit DPS sum",
			Detail:   "rate_of_fire missing or <= 0",
		})
	}
	for _, field := range w.UsedLegacyFallback {
		findings = append(findings, Finding{
			Severity: SeverityInfo,
			Code:     CodeLegacyFieldUsed,
			Message:  "weapon relies on a legacy synonym for " + field,
			Detail:   field,
		})
	}

	w.UnknownFields = unknownTopLevelKeys(v, knownWeaponKeys)

	return w, findings
}

func retagWeaponIndex(findings []Finding, index int) []Finding {
	out := make([]Finding, len(findings))
	for i, f := range findings {
		f.WeaponIndex = index
		out[i] = f
	}
	return out
}

func resolveFloatField(v *script.Value, f fieldSource) (value float64, usedLegacy bool, ok bool) {
	if val, present := v.Field(f.primary).AsFloat(); present {
		return val, false, true
	}
	if f.legacy != "" {
		if val, present := v.Field(f.legacy).AsFloat(); present {
			return val, true, true
		}
	}
	return 0, false, false
}

func resolveIntField(v *script.Value, f fieldSource) (value int, usedLegacy bool, ok bool) {
	if val, present := v.Field(f.primary).AsInt(); present {
		return int(val), false, true
	}
	if f.legacy != "" {
		if val, present := v.Field(f.legacy).AsInt(); present {
			return int(val), true, true
		}
	}
	return 0, false, false
}

func setIntField(w *model.Weapon, canonical string, val int) {
	switch canonical {
	case "rack_salvo_size":
		w.RackSalvoSize = val
	case "muzzle_salvo_size":
		w.MuzzleSalvoSize = val
	}
}

func setFloatField(w *model.Weapon, canonical string, val float64) {
	switch canonical {
	case "muzzle_salvo_delay":
		w.MuzzleSalvoDelay = val
	case "rack_salvo_reload_time":
		w.RackSalvoReloadTime = val
	case "damage_base":
		w.DamageBase = val
	case "initial_damage":
		w.InitialDamage = val
	}
}

func retagUnit(findings []Finding, unitID string) []Finding {
	out := make([]Finding, len(findings))
	for i, f := range findings {
		f.UnitID = unitID
		out[i] = f
	}
	return out
}

var knownUnitKeys = map[string]bool{
	"UnitId": true, "BlueprintId": true, "DisplayName": true, "Weapon": true,
}

var knownWeaponKeys = map[string]bool{
	"Label": true, "ProjectileId": true, "TargetCategories": true, "TurretCapable": true,
	"MaxRadius": true, "RackSalvoSize": true, "ProjectilesPerOnFire": true,
	"MuzzleSalvoSize": true, "SalvoSize": true, "MuzzleSalvoDelay": true, "SalvoDelay": true,
	"RackSalvoReloadTime": true, "ReloadTime": true, "Damage": true, "InitialDamage": true,
	"RateOfFire": true,
}

func unknownTopLevelKeys(v *script.Value, known map[string]bool) []string {
	var unknown []string
	for _, k := range v.Keys() {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown
}
