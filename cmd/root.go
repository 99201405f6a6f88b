// File: cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/obspull/obspull-cli/internal/config"
	"github.com/obspull/obspull-cli/internal/observability"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd is the base command. Running it bare starts the interactive
// grade pull, same as the pull subcommand.
var rootCmd = &cobra.Command{
	Use:     "obspull",
	Short:   "obspull fetches exam grades from the OBS student portal.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			// A fallback logger so the failure itself gets reported.
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "obspull"})
			return err
		}
		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Debug("Starting obspull", zap.String("version", Version))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPull(cmd.Context())
	},
	SilenceUsage: true,
}

// ExecuteContext runs the CLI under ctx and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	defer observability.Sync()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newPullCmd())
	rootCmd.AddCommand(newSolveCmd())
	rootCmd.AddCommand(newUsersCmd())
}
