// File: cmd/pull.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/obspull/obspull-cli/api/schemas"
	"github.com/obspull/obspull-cli/internal/auth"
	"github.com/obspull/obspull-cli/internal/browser"
	"github.com/obspull/obspull-cli/internal/captcha"
	"github.com/obspull/obspull-cli/internal/captcha/digitnet"
	"github.com/obspull/obspull-cli/internal/captcha/tessocr"
	"github.com/obspull/obspull-cli/internal/config"
	"github.com/obspull/obspull-cli/internal/observability"
	"github.com/obspull/obspull-cli/internal/session"
	"github.com/obspull/obspull-cli/internal/store"
	"github.com/obspull/obspull-cli/internal/ui"
)

func newPullCmd() *cobra.Command {
	pullCmd := &cobra.Command{
		Use:   "pull",
		Short: "Logs in to the portal and displays the grade table",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(cmd.Context())
		},
	}
	pullCmd.Flags().Bool("headless", true, "run the browser without a window")
	pullCmd.Flags().String("weights", "", "path to the digit classifier weights file")
	return pullCmd
}

// runPull assembles the full stack and hands control to the session
// orchestrator. The browser shuts down after the loop regardless of
// how it ended.
func runPull(ctx context.Context) error {
	logger := observability.GetLogger()

	if v := viper.GetViper(); v.IsSet("headless") {
		cfg.Browser.Headless = v.GetBool("headless")
	}
	if w := viper.GetString("weights"); w != "" {
		cfg.Captcha.WeightsPath = w
	}

	terminal := ui.NewTerminal(logger)
	terminal.Banner()

	solver := buildSolver(cfg.Captcha, terminal, logger)

	credStore, err := store.NewFileStore(cfg.Store.Dir)
	if err != nil {
		return fmt.Errorf("failed to open credential store: %w", err)
	}

	launcher := browser.NewLauncher(cfg.Browser, logger)
	defer func() {
		if err := launcher.Shutdown(context.Background()); err != nil {
			logger.Warn("Browser shutdown failed", zap.Error(err))
		}
	}()

	machine := auth.NewMachine(
		launcher,
		solver,
		terminal,
		auth.NewPhraseMatcher(cfg.Portal),
		cfg.Portal,
		cfg.Auth,
		logger,
	)

	return session.NewOrchestrator(machine, credStore, terminal, logger).Run(ctx)
}

// buildSolver selects the classifier backend. A missing weights file
// downgrades to manual captcha entry instead of failing the run.
func buildSolver(cfg config.CaptchaConfig, terminal *ui.Terminal, logger *zap.Logger) schemas.CaptchaSolver {
	var cls schemas.Classifier
	switch cfg.Classifier {
	case "tesseract":
		cls = tessocr.New()
	case "digitnet", "":
		net, err := digitnet.Load(cfg.WeightsPath)
		if err != nil {
			logger.Warn("Classifier weights unavailable, captchas will be entered manually",
				zap.String("path", cfg.WeightsPath), zap.Error(err))
			terminal.Notify("No classifier weights found; you will be asked to solve captchas.")
			return nil
		}
		cls = net
	default:
		logger.Warn("Unknown classifier backend, captchas will be entered manually",
			zap.String("classifier", cfg.Classifier))
		return nil
	}
	return captcha.NewSolver(cfg, cls, logger)
}
