package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pulumi/pulumi/sdk/v3/go/auto/optpreview"
	"github.com/spf13/cobra"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/internal/logging"
)

func newPreviewCmd() *cobra.Command {
	var opts stackOptions

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the pending deployment plan",
		Long: `Preview computes the resource changes a deploy would apply,
without touching anything.

Examples:
    dify-aws preview
    dify-aws preview -c prod.yaml -s prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(opts)
		},
	}

	addStackFlags(cmd, &opts)
	return cmd
}

func runPreview(opts stackOptions) error {
	ctx := contextWithSignals()
	log := logging.WithComponent("preview")

	stack, cfg, err := selectStack(ctx, opts)
	if err != nil {
		return err
	}
	log.Info().Str("stack", opts.stackName).Str("region", cfg.Region).Msg("previewing")

	res, err := stack.Preview(ctx, optpreview.ProgressStreams(os.Stdout))
	if err != nil {
		return fmt.Errorf("preview failed: %w", err)
	}

	log.Info().Interface("changes", res.ChangeSummary).Msg("preview complete")
	return nil
}

// contextWithSignals cancels on SIGINT/SIGTERM so engine operations stop
// cleanly.
func contextWithSignals() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx
}
