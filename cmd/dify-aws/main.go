// Command dify-aws deploys a self-hosted Dify onto AWS ECS Fargate.
//
// Usage:
//
//	dify-aws preview              Show the pending deployment plan
//	dify-aws up                   Deploy or update the stack
//	dify-aws destroy --yes        Tear the stack down
//	dify-aws outputs              Print stack outputs
//	dify-aws graph                Render the deployment topology
//	dify-aws version              Show version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/internal/logging"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "dify-aws",
		Short: "Deploy self-hosted Dify on AWS ECS Fargate",
		Long: `dify-aws declares and drives a self-hosted Dify deployment on AWS.

The deployment is described in a YAML config file:

    region: us-east-1
    allowAnySysCalls: false
    sandboxPythonPackages:
      - requests==2.31.0

Then preview and deploy:

    dify-aws preview -c dify.yaml
    dify-aws up -c dify.yaml`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(nil, verbose)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newUpCmd(),
		newPreviewCmd(),
		newDestroyCmd(),
		newOutputsCmd(),
		newGraphCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
