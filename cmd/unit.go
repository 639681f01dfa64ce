package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"bpaudit/internal/config"
	"bpaudit/pkg/report"
	"bpaudit/pkg/scan"
)

var unitCmd = &cobra.Command{
	Use:   "unit <path> <unit-id>",
	Short: "Scan a directory and print one unit's cadence report",
	Args:  cobra.ExactArgs(2),
	RunE:  runUnit,
}

func init() {
	rootCmd.AddCommand(unitCmd)
}

func runUnit(cmd *cobra.Command, args []string) error {
	root, unitID := args[0], args[1]
	logVerbose("scanning %s for unit %s", root, unitID)

	limits := appCfg.ScanLimits()
	result, err := scan.Run(context.Background(), root, limits, appCfg.Concurrency, appCfg.SimulationHorizon())
	if err != nil {
		return inputError(fmt.Errorf("scan %q: %w", root, err))
	}

	overrides, err := config.LoadDeclaredDPSOverrides(appCfg.DeclaredDPSFile)
	if err != nil {
		return inputError(fmt.Errorf("load declared-DPS overrides: %w", err))
	}
	doc := report.BuildWithDeclaredDPS(result, overrides.Lookup)
	for _, ur := range doc.Units {
		if ur.Unit.UnitID != unitID {
			continue
		}
		fmt.Printf("unit %s (%s)\n", ur.Unit.UnitID, ur.Unit.SourcePath)
		for _, c := range ur.Cadences {
			fmt.Printf("  weapon %d: shots/rack=%d cycle=%.3fs per_shot=%.1f nominal_dps=%.1f effective_dps=%.1f\n",
				c.WeaponIndex, c.ShotsPerRack, c.CyclePeriodSec, c.PerShotDamage, c.NominalDPS, c.EffectiveDPS)
		}
		if ur.DeclaredDPS != nil {
			fmt.Printf("  declared_dps=%.1f delta=%.1f%%\n", *ur.DeclaredDPS, *ur.DeclaredDPSDeltaPercent)
		}
		for _, f := range doc.Findings {
			if f.UnitID == ur.Unit.UnitID {
				fmt.Printf("  [%s] %s: %s\n", f.Severity, f.Code, f.Message)
			}
		}
		return nil
	}

	return inputError(fmt.Errorf("unit %q not found under %q", unitID, root))
}
