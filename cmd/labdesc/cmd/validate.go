package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/labdesc/pkg/descriptor"
)

var validateVerbose bool

var validateCmd = &cobra.Command{
	Use:   "validate <path>...",
	Short: "Validate lab descriptors",
	Long: `Load each descriptor and report schema and file reference problems.
A path may be a descriptor file or a scenario directory containing one.

Examples:
  labdesc validate scenarios/cka-fix-pod-scheduling
  labdesc validate scenarios/*/index.json -v`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVarP(&validateVerbose, "verbose", "v", false, "List resolved file references of valid descriptors")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0

	for _, arg := range args {
		path := descriptorPath(arg, appCfg.Catalog.Descriptor)

		d, err := descriptor.Load(path)
		if err != nil {
			failed++

			printValidationError(out, path, err)

			continue
		}

		fmt.Fprintf(out, "OK    %s (%d steps, image %s)\n", path, len(d.Details.Steps), d.Backend.ImageID)

		if validateVerbose {
			for _, ref := range descriptor.References(d) {
				fmt.Fprintf(out, "        %-32s %s\n", ref.Field, descriptor.Resolve(path, ref.Path))
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d descriptors failed validation", failed, len(args))
	}

	return nil
}

func printValidationError(out io.Writer, path string, err error) {
	var schemaErr *descriptor.SchemaError
	if errors.As(err, &schemaErr) {
		fmt.Fprintf(out, "FAIL  %s: schema violations\n", path)

		for _, fe := range schemaErr.Errs {
			fmt.Fprintf(out, "        %s\n", fe.Error())
		}

		return
	}

	fmt.Fprintf(out, "FAIL  %v\n", err)
}
