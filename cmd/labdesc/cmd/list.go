package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/labdesc/pkg/catalog"
)

var (
	listRoot string
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenarios of a catalog",
	Long: `Load every scenario under the catalog root and list them.

Examples:
  labdesc list
  labdesc list --root ./scenarios --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listRoot, "root", "", "Catalog root (default: catalog.root from config)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
}

func runList(cmd *cobra.Command, _ []string) error {
	root := listRoot
	if root == "" {
		root = appCfg.Catalog.Root
	}

	reg, err := catalog.NewRegistry(log, root, appCfg.Catalog.Descriptor)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	summaries := reg.Summaries()

	if listJSON {
		data, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling scenarios: %w", err)
		}

		fmt.Fprintln(out, string(data))

		return nil
	}

	fmt.Fprintf(out, "%-32s %-28s %5s  %s\n", "NAME", "IMAGE", "STEPS", "TITLE")

	for _, s := range summaries {
		fmt.Fprintf(out, "%-32s %-28s %5d  %s\n", s.Name, s.ImageID, s.Steps, s.Title)
	}

	fmt.Fprintf(out, "\n%d scenarios, images: %s\n", reg.Count(), strings.Join(reg.ImageIDs(), ", "))

	return nil
}
