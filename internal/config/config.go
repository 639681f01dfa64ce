// Package config loads the scan tool's runtime settings: resource
// ceilings, simulation horizon override, and the declared-DPS override
// file whose per-unit values the report compares against each unit's
// summed effective weapon DPS.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"bpaudit/pkg/scan"
)

// Config is the tool's top-level YAML configuration.
type Config struct {
	Limits LimitsConfig `yaml:"limits"`

	// Horizon overrides the simulation horizon used for every unit's
	// cadence trace. Empty means no override: scan.Run falls back to
	// scheduler.RecommendedHorizon, derived per unit from its own cadences.
	Horizon string `yaml:"horizon"`

	// DeclaredDPSFile points at a unit-id -> number override mapping. Empty
	// means no override file is in use.
	DeclaredDPSFile string `yaml:"declaredDpsFile"`

	Concurrency int `yaml:"concurrency"`
}

// LimitsConfig mirrors scan.Limits in YAML-friendly form.
type LimitsConfig struct {
	MaxFileBytes  int64 `yaml:"maxFileBytes"`
	MaxFiles      int   `yaml:"maxFiles"`
	MaxParseDepth int   `yaml:"maxParseDepth"`
}

// Default returns the tool's built-in defaults, matching scan.DefaultLimits
// and scheduler.DefaultHorizon.
func Default() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxFileBytes:  scan.DefaultLimits.MaxFileBytes,
			MaxFiles:      scan.DefaultLimits.MaxFiles,
			MaxParseDepth: scan.DefaultLimits.MaxParseDepth,
		},
		Horizon:     "",
		Concurrency: 4,
	}
}

// Load reads YAML configuration from path, falling back to defaults when
// the file does not exist. Fields present in an existing file override
// the defaults; fields the file omits keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

// ScanLimits converts the YAML-friendly limits back into scan.Limits.
func (c *Config) ScanLimits() scan.Limits {
	return scan.Limits{
		MaxFileBytes:  c.Limits.MaxFileBytes,
		MaxFiles:      c.Limits.MaxFiles,
		MaxParseDepth: c.Limits.MaxParseDepth,
	}
}

// SimulationHorizon parses the Horizon field. An empty Horizon returns 0,
// meaning "no override" — callers should fall back to
// scheduler.RecommendedHorizon in that case. A non-empty but unparseable
// value falls back to a conservative 10s rather than failing the scan
// over a config typo.
func (c *Config) SimulationHorizon() time.Duration {
	if c.Horizon == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Horizon)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// DeclaredDPSOverrides is a case-insensitive unit-id -> declared DPS map.
type DeclaredDPSOverrides struct {
	byLowerID map[string]float64
}

// LoadDeclaredDPSOverrides reads the override mapping, if configured. A
// unit absent from the mapping is not an error and carries no finding: it
// simply falls back to the blueprint-derived nominal DPS.
func LoadDeclaredDPSOverrides(path string) (*DeclaredDPSOverrides, error) {
	overrides := &DeclaredDPSOverrides{byLowerID: make(map[string]float64)}
	if path == "" {
		return overrides, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read declared-DPS override file %q: %w", path, err)
	}

	var raw map[string]float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse declared-DPS override file %q: %w", path, err)
	}
	for id, dps := range raw {
		overrides.byLowerID[strings.ToLower(id)] = dps
	}
	return overrides, nil
}

// Lookup returns the declared DPS for a unit id, case-insensitively. ok is
// false when the unit has no override entry.
func (d *DeclaredDPSOverrides) Lookup(unitID string) (dps float64, ok bool) {
	if d == nil {
		return 0, false
	}
	dps, ok = d.byLowerID[strings.ToLower(unitID)]
	return dps, ok
}
