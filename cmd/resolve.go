package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <name>...",
	Short: "Resolve class names to their canonical form",
	Long: `Resolve class names the way links are resolved in the browser: exact
names first, then case-insensitive matches, then legacy alternate names.

Examples:
  docview resolve ext.panel.panel
  docview resolve Ext.Panel Ext.grid.GridPanel`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	d, err := openDocs(cmd.Context())
	if err != nil {
		return err
	}

	unknown := 0
	for _, raw := range args {
		name := d.catalog.Resolve(raw)
		if !d.catalog.Known(raw) {
			unknown++
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t(unknown)\n", raw)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", raw, name)
	}
	if unknown > 0 {
		return fmt.Errorf("%d of %d names did not resolve", unknown, len(args))
	}
	return nil
}
