package main

import (
	"fmt"
	"os"

	"github.com/pulumi/pulumi/sdk/v3/go/auto/optup"
	"github.com/spf13/cobra"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/internal/logging"
)

func newUpCmd() *cobra.Command {
	var opts stackOptions

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Deploy or update the stack",
		Long: `Up deploys the declared resources and prints the stack outputs,
including the operational commands for the console service.

Examples:
    dify-aws up
    dify-aws up -c prod.yaml -s prod`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(opts)
		},
	}

	addStackFlags(cmd, &opts)
	return cmd
}

func runUp(opts stackOptions) error {
	ctx := contextWithSignals()
	log := logging.WithComponent("up")

	stack, cfg, err := selectStack(ctx, opts)
	if err != nil {
		return err
	}
	log.Info().Str("stack", opts.stackName).Str("region", cfg.Region).Msg("deploying")

	res, err := stack.Up(ctx, optup.ProgressStreams(os.Stdout))
	if err != nil {
		return fmt.Errorf("deploy failed: %w", err)
	}

	log.Info().Msg("deployment complete")
	printOutputs(res.Outputs, os.Stdout, false)
	return nil
}
