package main

import (
	"fmt"
	"os"

	"github.com/pulumi/pulumi/sdk/v3/go/auto/optdestroy"
	"github.com/spf13/cobra"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/internal/logging"
)

func newDestroyCmd() *cobra.Command {
	var (
		opts stackOptions
		yes  bool
	)

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Tear the stack down",
		Long: `Destroy removes every resource in the stack, including the database
and the storage bucket with its contents. There is no undo.

Examples:
    dify-aws destroy --yes
    dify-aws destroy -s prod --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("destroy is irreversible; re-run with --yes to confirm")
			}
			return runDestroy(opts)
		},
	}

	addStackFlags(cmd, &opts)
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the teardown")
	return cmd
}

func runDestroy(opts stackOptions) error {
	ctx := contextWithSignals()
	log := logging.WithComponent("destroy")

	stack, _, err := selectStack(ctx, opts)
	if err != nil {
		return err
	}
	log.Info().Str("stack", opts.stackName).Msg("destroying")

	if _, err := stack.Destroy(ctx, optdestroy.ProgressStreams(os.Stdout)); err != nil {
		return fmt.Errorf("destroy failed: %w", err)
	}

	log.Info().Msg("stack destroyed")
	return nil
}
