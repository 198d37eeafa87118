package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remote-swe-user/dify-self-hosted-on-aws/dify"
	"github.com/remote-swe-user/dify-self-hosted-on-aws/internal/graph"
)

func newGraphCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the deployment topology",
		Long: `Graph renders the static deployment topology: both services, their
containers, and the collaborator constructs they reach.

The output can be rendered with Graphviz:
    dify-aws graph | dot -Tpng -o topology.png

Or used in GitHub markdown (Mermaid format):
    dify-aws graph -f mermaid`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	return cmd
}

func runGraph(format string) error {
	var graphFormat graph.Format
	switch format {
	case "dot":
		graphFormat = graph.FormatDOT
	case "mermaid":
		graphFormat = graph.FormatMermaid
	default:
		return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", format)
	}

	gen := &graph.Generator{Format: graphFormat}
	return gen.Generate(dify.DeploymentTopology(), os.Stdout)
}
