package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"bpaudit/internal/config"
	"bpaudit/pkg/anomaly"
	"bpaudit/pkg/persistence"
	"bpaudit/pkg/report"
	"bpaudit/pkg/scan"
)

var (
	scanOutputPath string
	scanFormat     string
	scanDBPath     string
	scanSave       bool
)

var scanCmd = &cobra.Command{
	Use:   "scan <path>",
	Short: "Scan a directory of blueprint files and report cadence anomalies",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanOutputPath, "output", "o", "", "write the report to this file instead of stdout")
	scanCmd.Flags().StringVar(&scanFormat, "format", "json", "report format: json or html")
	scanCmd.Flags().StringVar(&scanDBPath, "db", "", "scan database path (required with --save)")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "persist this scan to --db for later diffing")
}

func runScan(cmd *cobra.Command, args []string) error {
	root := args[0]
	logVerbose("scanning %s", root)

	limits := appCfg.ScanLimits()
	result, err := scan.Run(context.Background(), root, limits, appCfg.Concurrency, appCfg.SimulationHorizon())
	if err != nil {
		return inputError(fmt.Errorf("scan %q: %w", root, err))
	}

	if scanSave {
		if scanDBPath == "" {
			return usageError(fmt.Errorf("--save requires --db"))
		}
		store, err := persistence.Open(scanDBPath)
		if err != nil {
			return fmt.Errorf("open scan database: %w", err)
		}
		defer store.Close()

		absRoot, err := filepath.Abs(root)
		if err != nil {
			absRoot = root
		}
		rec, err := store.SaveScan(context.Background(), absRoot, result.Units, result.Findings)
		if err != nil {
			return fmt.Errorf("save scan: %w", err)
		}
		logVerbose("saved scan %s", rec.ID)
	}

	overrides, err := config.LoadDeclaredDPSOverrides(appCfg.DeclaredDPSFile)
	if err != nil {
		return inputError(fmt.Errorf("load declared-DPS overrides: %w", err))
	}
	doc := report.BuildWithDeclaredDPS(result, overrides.Lookup)

	var out []byte
	switch scanFormat {
	case "json":
		out, err = report.MarshalJSONDocument(doc)
	case "html":
		out, err = report.RenderHTMLDocument(doc)
	default:
		return usageError(fmt.Errorf("unknown format %q (want json or html)", scanFormat))
	}
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if scanOutputPath == "" {
		fmt.Println(string(out))
	} else if err := os.WriteFile(scanOutputPath, out, 0o644); err != nil {
		return fmt.Errorf("write report to %q: %w", scanOutputPath, err)
	}

	if hitResourceLimit(result.Findings) {
		return resourceLimitError(fmt.Errorf("scan hit a resource ceiling; see RESOURCE_LIMIT findings in the report"))
	}
	return nil
}

func hitResourceLimit(findings []anomaly.Finding) bool {
	for _, f := range findings {
		if f.Code == "RESOURCE_LIMIT" {
			return true
		}
	}
	return false
}
