package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// These variables are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of bpaudit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bpaudit %s\n", Version)
		if verbose {
			fmt.Printf("  commit: %s\n", Commit)
			fmt.Printf("  built:  %s\n", Date)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
