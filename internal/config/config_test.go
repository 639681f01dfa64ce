package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Limits.MaxFiles != Default().Limits.MaxFiles {
		t.Errorf("MaxFiles = %d, want default", cfg.Limits.MaxFiles)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "limits:\n  maxFileBytes: 1024\n  maxFiles: 5\n  maxParseDepth: 8\nhorizon: 30s\nconcurrency: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Limits.MaxFiles != 5 || cfg.Limits.MaxFileBytes != 1024 || cfg.Limits.MaxParseDepth != 8 {
		t.Errorf("Limits = %+v, want 1024/5/8", cfg.Limits)
	}
	if cfg.SimulationHorizon().Seconds() != 30 {
		t.Errorf("SimulationHorizon() = %v, want 30s", cfg.SimulationHorizon())
	}
}

func TestSimulationHorizonFallsBackOnGarbage(t *testing.T) {
	cfg := &Config{Horizon: "not-a-duration"}
	if cfg.SimulationHorizon().Seconds() != 10 {
		t.Errorf("SimulationHorizon() = %v, want 10s fallback", cfg.SimulationHorizon())
	}
}

func TestDeclaredDPSOverridesCaseInsensitiveLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dps.yaml")
	content := "UEL0101: 125.5\nues0201: 80\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	overrides, err := LoadDeclaredDPSOverrides(path)
	if err != nil {
		t.Fatalf("LoadDeclaredDPSOverrides() error = %v", err)
	}

	if dps, ok := overrides.Lookup("uel0101"); !ok || dps != 125.5 {
		t.Errorf("Lookup(uel0101) = %v, %v, want 125.5, true", dps, ok)
	}
	if dps, ok := overrides.Lookup("UES0201"); !ok || dps != 80 {
		t.Errorf("Lookup(UES0201) = %v, %v, want 80, true", dps, ok)
	}
	if _, ok := overrides.Lookup("unknown0001"); ok {
		t.Error("expected Lookup for an absent unit to return ok=false")
	}
}

func TestDeclaredDPSOverridesEmptyPathIsNotAnError(t *testing.T) {
	overrides, err := LoadDeclaredDPSOverrides("")
	if err != nil {
		t.Fatalf("LoadDeclaredDPSOverrides(\"\") error = %v", err)
	}
	if _, ok := overrides.Lookup("anything"); ok {
		t.Error("expected no overrides when no file is configured")
	}
}
