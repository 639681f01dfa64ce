package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bpaudit/pkg/archive"
)

var extractCmd = &cobra.Command{
	Use:   "extract <archive-or-install-root> <dest>",
	Short: "Extract *_unit.bp files from a mod package archive or install root into a flat directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	archivePath, dest := args[0], args[1]
	logVerbose("extracting unit blueprints from %s into %s", archivePath, dest)

	written, err := archive.ExtractUnitBlueprints(archivePath, dest)
	if err != nil {
		return inputError(fmt.Errorf("extract %q: %w", archivePath, err))
	}

	fmt.Printf("extracted %d unit blueprint file(s) to %s\n", len(written), dest)
	for _, f := range written {
		fmt.Printf("  %s\n", f)
	}
	return nil
}
