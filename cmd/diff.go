package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"bpaudit/pkg/diffing"
	"bpaudit/pkg/model"
	"bpaudit/pkg/persistence"
)

var diffDBPath string

var diffCmd = &cobra.Command{
	Use:   "diff <path>",
	Short: "Compare the two most recent persisted scans of a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVar(&diffDBPath, "db", "", "scan database path (required)")
	diffCmd.MarkFlagRequired("db")
}

func runDiff(cmd *cobra.Command, args []string) error {
	root := args[0]
	if diffDBPath == "" {
		return usageError(fmt.Errorf("--db is required"))
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}

	store, err := persistence.Open(diffDBPath)
	if err != nil {
		return fmt.Errorf("open scan database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	recs, err := store.ListScans(ctx, absRoot)
	if err != nil {
		return fmt.Errorf("list scans: %w", err)
	}
	if len(recs) == 0 {
		return inputError(fmt.Errorf("no scans recorded for %q; run `bpaudit scan --save` first", absRoot))
	}

	after, err := store.LoadUnits(ctx, recs[0].ID)
	if err != nil {
		return fmt.Errorf("load scan %s units: %w", recs[0].ID, err)
	}

	before := map[string]model.Unit{}
	if len(recs) > 1 {
		before, err = store.LoadUnits(ctx, recs[1].ID)
		if err != nil {
			return fmt.Errorf("load scan %s units: %w", recs[1].ID, err)
		}
	}

	diffs := diffing.Compare(before, after)
	if len(diffs) == 0 {
		fmt.Println("no differences")
		return nil
	}
	for _, d := range diffs {
		fmt.Printf("%s: %s\n", d.Kind, d.UnitID)
		if d.Detail != "" {
			fmt.Println(d.Detail)
		}
	}
	return nil
}
