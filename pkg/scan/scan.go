// Package scan discovers blueprint files under a directory, parses and
// extracts them (optionally in parallel), and assembles the deterministic,
// single-owner aggregate the rest of the pipeline consumes.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bpaudit/pkg/anomaly"
	"bpaudit/pkg/extractor"
	"bpaudit/pkg/model"
	"bpaudit/pkg/resolver"
	"bpaudit/pkg/scheduler"
	"bpaudit/pkg/script"
)

// Limits holds the configurable resource ceilings for a scan. Exceeding
// any of them produces a finding, never a panic.
type Limits struct {
	MaxFileBytes  int64
	MaxFiles      int
	MaxParseDepth int
}

// DefaultLimits are the built-in resource ceilings used when no config
// overrides them.
var DefaultLimits = Limits{
	MaxFileBytes:  4 * 1024 * 1024,
	MaxFiles:      50000,
	MaxParseDepth: script.DefaultMaxDepth,
}

// blueprintExtensions lists the file suffixes the scan collaborator
// recognizes as candidate blueprint files: the modding dialect's own
// extension plus .bp.
var blueprintExtensions = map[string]bool{
	".lua": true,
	".bp":  true,
}

// discoveredFile is one file found under the scan root, tagged with which
// special sibling directory (if any) it belongs to.
type discoveredFile struct {
	path        string
	size        int64
	isProjectile bool
}

// Result is everything a scan produced: the assembled units, the
// projectile table, and every finding raised along the way, already
// ordered by anomaly.Sort.
type Result struct {
	Units              []*model.Unit
	Projectiles        []model.Projectile
	ProjectilesScanned bool
	Findings           []anomaly.Finding
	FilesScanned       int
	FilesSkipped       int
}

// Run discovers, parses, and extracts every blueprint file under root,
// using up to concurrency goroutines for per-file work. Aggregation is
// single-owner and deterministic: per-file results are sorted by path
// before being merged. horizonOverride, when non-zero, fixes the
// simulation horizon used for every unit's cadence trace instead of
// scheduler.RecommendedHorizon's per-unit derivation.
func Run(ctx context.Context, root string, limits Limits, concurrency int, horizonOverride time.Duration) (*Result, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	files, projectilesScanned, findings, err := discover(root, limits)
	if err != nil {
		return nil, err
	}

	outcomes := make([]fileOutcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			outcomes[i] = parseOne(f, limits)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].path < outcomes[j].path })

	result := &Result{ProjectilesScanned: projectilesScanned, Findings: findings}
	for _, o := range outcomes {
		result.FilesScanned++
		result.Findings = append(result.Findings, o.findings...)
		if o.unit != nil {
			result.Units = append(result.Units, o.unit)
		}
		if o.projectile != nil {
			result.Projectiles = append(result.Projectiles, *o.projectile)
		}
		if o.unit == nil && o.projectile == nil {
			result.FilesSkipped++
		}
	}

	result.Findings = append(result.Findings, anomaly.DetectStructural(result.Units)...)

	table := resolver.NewProjectileTable(result.Projectiles, result.ProjectilesScanned)
	for _, u := range result.Units {
		resolved, rf := resolver.Resolve(u, table)
		result.Findings = append(result.Findings, anomaly.FromResolver(rf)...)

		cadences := make(map[int]scheduler.Cadence, len(resolved))
		inputs := make([]anomaly.CadenceInput, 0, len(resolved))
		for _, rw := range resolved {
			c := scheduler.DeriveCadence(rw.Weapon, rw.FragmentCount, rw.FragmentDamage)
			cadences[rw.Weapon.Index] = c
			inputs = append(inputs, anomaly.CadenceInput{Weapon: rw.Weapon, Cadence: c})
		}
		horizon := horizonOverride
		if horizon <= 0 {
			horizon = scheduler.RecommendedHorizon(cadences)
		}
		trace := scheduler.SimulateUnit(u, cadences, horizon)
		result.Findings = append(result.Findings, anomaly.DetectCadenceInterference(u.UnitID, inputs, trace, horizon)...)
	}

	anomaly.Sort(result.Findings)
	return result, nil
}

// fileOutcome is one file's parse/extract result, aggregated by Run in
// deterministic path order once every goroutine has completed.
type fileOutcome struct {
	path       string
	unit       *model.Unit
	projectile *model.Projectile
	findings   []anomaly.Finding
}

func parseOne(f discoveredFile, limits Limits) fileOutcome {
	out := fileOutcome{path: f.path}

	if f.size > limits.MaxFileBytes {
		out.findings = append(out.findings, anomaly.Finding{
			Severity: anomaly.SeverityWarn, Code: "RESOURCE_LIMIT",
			Message: "file exceeds the per-file size ceiling and was skipped",
			Detail:  fmt.Sprintf("path=%s size=%d limit=%d", f.path, f.size, limits.MaxFileBytes),
		})
		return out
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		out.findings = append(out.findings, anomaly.Finding{
			Severity: anomaly.SeverityWarn, Code: "PARSE_ERROR",
			Message: "file could not be read",
			Detail:  fmt.Sprintf("path=%s err=%v", f.path, err),
		})
		return out
	}

	root, err := script.Parse(f.path, string(data), limits.MaxParseDepth)
	if err != nil {
		out.findings = append(out.findings, anomaly.Finding{
			Severity: anomaly.SeverityWarn, Code: "PARSE_ERROR",
			Message: "file could not be parsed and was excluded from the scan",
			Detail:  err.Error(),
		})
		return out
	}

	if f.isProjectile {
		proj := extractProjectile(root)
		// Key the projectile by its path from the projectiles/ directory on,
		// the form weapons use in ProjectileId ("/projectiles/...").
		slashed := "/" + filepath.ToSlash(f.path)
		if i := strings.LastIndex(strings.ToLower(slashed), "/projectiles/"); i >= 0 {
			proj.Path = resolver.NormalizePath(slashed[i:])
		}
		out.projectile = &proj
		return out
	}

	if extractor.IsUnitBlueprint(root) {
		u, ef := extractor.ExtractUnit(root, f.path)
		out.unit = u
		out.findings = append(out.findings, anomaly.FromExtractor(ef)...)
		return out
	}

	// Standalone weapon blueprint: wrap it as a synthetic single-weapon
	// unit so it flows through the same resolver/scheduler pipeline, keyed
	// by its file's base name.
	w, wf := extractor.ExtractWeapon(root)
	w.Index = 1
	syntheticID := strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path))
	out.unit = &model.Unit{UnitID: syntheticID, SourcePath: f.path, Weapons: []model.Weapon{*w}}
	out.findings = append(out.findings, anomaly.FromExtractor(retagUnitID(wf, syntheticID))...)
	return out
}

func retagUnitID(findings []extractor.Finding, unitID string) []extractor.Finding {
	out := make([]extractor.Finding, len(findings))
	for i, f := range findings {
		f.UnitID = unitID
		out[i] = f
	}
	return out
}

func extractProjectile(root *script.Value) model.Projectile {
	return model.Projectile{
		FragmentCount:  script.GetInt(root, "FragmentCount", 0),
		FragmentDamage: script.GetFloat(root, "FragmentDamage", 0),
		FragmentRef:    script.GetString(root, "FragmentProjectileId", ""),
	}
}

// discover walks root, recognizing the units/ and projectiles/ sibling
// directory convention, excluding *_script.* files, and enforcing the
// per-scan file-count ceiling.
func discover(root string, limits Limits) ([]discoveredFile, bool, []anomaly.Finding, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, false, nil, fmt.Errorf("scan root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, false, nil, fmt.Errorf("scan root %q is not a directory", root)
	}

	var files []discoveredFile
	var findings []anomaly.Finding
	projectilesScanned := false

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !hasBlueprintExtension(path) {
			return nil
		}
		if strings.Contains(filepath.Base(path), "_script.") {
			return nil
		}

		rel, _ := filepath.Rel(root, path)
		isProjectile := pathUnderDir(rel, "projectiles")
		if isProjectile {
			projectilesScanned = true
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}

		if len(files) >= limits.MaxFiles {
			findings = append(findings, anomaly.Finding{
				Severity: anomaly.SeverityWarn, Code: "RESOURCE_LIMIT",
				Message: "per-scan file count ceiling reached; remaining files were not scanned",
				Detail:  fmt.Sprintf("limit=%d", limits.MaxFiles),
			})
			return filepath.SkipAll
		}

		files = append(files, discoveredFile{path: path, size: fi.Size(), isProjectile: isProjectile})
		return nil
	})
	if walkErr != nil {
		return nil, false, nil, fmt.Errorf("walking %q: %w", root, walkErr)
	}

	return files, projectilesScanned, findings, nil
}

func hasBlueprintExtension(path string) bool {
	return blueprintExtensions[strings.ToLower(filepath.Ext(path))]
}

func pathUnderDir(relPath, dirName string) bool {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	for _, p := range parts {
		if strings.EqualFold(p, dirName) {
			return true
		}
	}
	return false
}
