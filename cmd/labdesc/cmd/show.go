package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/labdesc/pkg/descriptor"
)

var showFormat string

var showCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Print a validated descriptor in normalized form",
	Long: `Load a descriptor and print it back in JSON or YAML.

Examples:
  labdesc show scenarios/cka-fix-pod-scheduling
  labdesc show scenarios/cka-fix-pod-scheduling/index.json --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showFormat, "format", string(descriptor.FormatJSON), "Output format (json, yaml)")
}

func runShow(cmd *cobra.Command, args []string) error {
	format := descriptor.Format(showFormat)
	if format != descriptor.FormatJSON && format != descriptor.FormatYAML {
		return fmt.Errorf("unknown format %q", showFormat)
	}

	d, err := descriptor.Load(descriptorPath(args[0], appCfg.Catalog.Descriptor))
	if err != nil {
		return err
	}

	out, err := descriptor.Encode(d, format)
	if err != nil {
		return err
	}

	_, err = cmd.OutOrStdout().Write(out)

	return err
}
