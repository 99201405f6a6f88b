// File: cmd/solve.go
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obspull/obspull-cli/internal/captcha"
	"github.com/obspull/obspull-cli/internal/captcha/digitnet"
	"github.com/obspull/obspull-cli/internal/observability"
)

// newSolveCmd creates the offline captcha debugging command. It runs
// the full segmentation and classification pipeline on a saved image
// without touching the portal.
func newSolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "solve <image>",
		Short: "Solves a saved captcha image and prints the pipeline's view of it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			img, err := captcha.LoadGray(args[0])
			if err != nil {
				return fmt.Errorf("failed to load image: %w", err)
			}

			seg := captcha.NewSegmenter(cfg.Captcha)
			boxes := seg.Segment(img)
			fmt.Fprintf(cmd.OutOrStdout(), "regions: %d\n", len(boxes))
			for i, b := range boxes {
				fmt.Fprintf(cmd.OutOrStdout(), "  [%d] x=%d..%d y=%d..%d\n",
					i, b.Min.X, b.Max.X, b.Min.Y, b.Max.Y)
			}

			net, err := digitnet.Load(cfg.Captcha.WeightsPath)
			if err != nil {
				return fmt.Errorf("failed to load classifier weights: %w", err)
			}
			answer, ok := captcha.NewSolver(cfg.Captcha, net, logger).Solve(img)
			if !ok {
				return errors.New("the pipeline could not solve this image")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "answer: %s\n", answer)
			return nil
		},
	}
}
