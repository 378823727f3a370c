package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/docview/internal/version"
)

var (
	versionOutput = newOutputValue("text", "text", "json")
	versionShort  bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	// Printing the version needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().VarP(versionOutput, "output", "o", "output format (text, json)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "show the short version only")
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()
	out := cmd.OutOrStdout()

	switch {
	case versionOutput.format == "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case versionShort:
		_, err := fmt.Fprintln(out, info.Short())
		return err
	default:
		_, err := fmt.Fprintln(out, info.String())
		return err
	}
}
