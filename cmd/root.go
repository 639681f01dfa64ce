package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bpaudit/internal/config"
	"bpaudit/internal/logging"
)

var (
	verbose    bool
	configPath string

	logger *zap.Logger
	appCfg *config.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bpaudit",
	Short: "bpaudit audits RTS blueprint files for weapon cadence anomalies",
	Long: `bpaudit parses declarative unit and weapon blueprint files without
executing embedded scripts, computes canonical weapon combat behavior, and
detects cadence-interference anomalies across a unit's weapons.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initRuntime,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute adds all child commands to the root command and runs it,
// returning the exit code the process should use.
func Execute() int {
	err := rootCmd.Execute()
	return ExitCode(err)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a bpaudit config YAML file")
}

func initRuntime(cmd *cobra.Command, args []string) error {
	l, err := logging.New(verbose)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	logger = l

	cfg, err := config.Load(configPath)
	if err != nil {
		return usageError(fmt.Errorf("load config: %w", err))
	}
	appCfg = cfg

	return nil
}

func logVerbose(format string, args ...interface{}) {
	if logger != nil {
		logger.Sugar().Debugf(format, args...)
	}
}
