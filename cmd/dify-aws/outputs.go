package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/spf13/cobra"
)

func newOutputsCmd() *cobra.Command {
	var (
		opts         stackOptions
		outputFormat string
		showSecrets  bool
	)

	cmd := &cobra.Command{
		Use:   "outputs",
		Short: "Print stack outputs",
		Long: `Outputs prints the stack's exported values: the public URL and the
operational commands for the console service.

Examples:
    dify-aws outputs
    dify-aws outputs -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutputs(opts, outputFormat, showSecrets)
		},
	}

	addStackFlags(cmd, &opts)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print secret output values in plaintext")
	return cmd
}

func runOutputs(opts stackOptions, format string, showSecrets bool) error {
	ctx := contextWithSignals()

	stack, _, err := selectStack(ctx, opts)
	if err != nil {
		return err
	}
	outputs, err := stack.Outputs(ctx)
	if err != nil {
		return fmt.Errorf("read outputs: %w", err)
	}

	switch format {
	case "text":
		printOutputs(outputs, os.Stdout, showSecrets)
		return nil
	case "json":
		values := make(map[string]interface{}, len(outputs))
		for name, out := range outputs {
			if out.Secret && !showSecrets {
				values[name] = "[secret]"
				continue
			}
			values[name] = out.Value
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(values)
	default:
		return fmt.Errorf("unknown format: %s (use 'text' or 'json')", format)
	}
}

// printOutputs writes name = value lines, sorted, masking secrets unless
// asked not to.
func printOutputs(outputs map[string]auto.OutputValue, w io.Writer, showSecrets bool) {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out := outputs[name]
		if out.Secret && !showSecrets {
			fmt.Fprintf(w, "%s = [secret]\n", name)
			continue
		}
		fmt.Fprintf(w, "%s = %v\n", name, out.Value)
	}
}
