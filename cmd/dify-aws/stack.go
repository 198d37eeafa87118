package main

import (
	"context"
	"fmt"

	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/spf13/cobra"

	difyaws "github.com/remote-swe-user/dify-self-hosted-on-aws"
)

// projectName is the Pulumi project the inline program runs under.
const projectName = "dify-aws"

// stackOptions are the flags shared by every stack-driving subcommand.
type stackOptions struct {
	configPath string
	stackName  string
}

func addStackFlags(cmd *cobra.Command, opts *stackOptions) {
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "dify.yaml", "Deployment config file")
	cmd.Flags().StringVarP(&opts.stackName, "stack", "s", "dev", "Stack name")
}

// selectStack loads the config and binds the inline program to the named
// stack, creating it on first use.
func selectStack(ctx context.Context, opts stackOptions) (auto.Stack, *difyaws.Config, error) {
	cfg, err := difyaws.LoadConfig(opts.configPath)
	if err != nil {
		return auto.Stack{}, nil, err
	}

	stack, err := auto.UpsertStackInlineSource(ctx, opts.stackName, projectName, difyaws.Program(cfg))
	if err != nil {
		return auto.Stack{}, nil, fmt.Errorf("select stack %s: %w", opts.stackName, err)
	}

	if err := stack.SetConfig(ctx, "aws:region", auto.ConfigValue{Value: cfg.Region}); err != nil {
		return auto.Stack{}, nil, fmt.Errorf("set aws:region: %w", err)
	}

	return stack, cfg, nil
}
