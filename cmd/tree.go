package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/docview/internal/tree"
)

var (
	treeGrouping = newGroupingValue(tree.ByPackage)
	treePrivate  bool
	treeOutput   = newOutputValue("text", "text", "json", "yaml")
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the class tree",
	Long: `Print the class tree the browser shows, grouped by package or by
inheritance.

Examples:
  docview tree --dir ./docs/output
  docview tree --grouping inheritance --private
  docview tree -o json`,
	Args: cobra.NoArgs,
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().Var(treeGrouping, "grouping", "class tree grouping (package, inheritance)")
	treeCmd.Flags().BoolVar(&treePrivate, "private", false, "include private classes")
	treeCmd.Flags().VarP(treeOutput, "output", "o", "output format (text, json, yaml)")
}

func runTree(cmd *cobra.Command, args []string) error {
	d, err := openDocs(cmd.Context())
	if err != nil {
		return err
	}

	root := treeGrouping.strategy.Build(d.catalog.Classes(), tree.Options{ShowPrivate: treePrivate})
	return writeTree(cmd.OutOrStdout(), root, treeOutput.format)
}

func writeTree(w io.Writer, root *tree.Node, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(root)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return err
		}
		return enc.Close()
	default:
		var err error
		root.Walk(func(node *tree.Node, depth int) bool {
			if node == root || err != nil {
				return err == nil
			}
			line := strings.Repeat("  ", depth-1) + node.Text
			if node.Private {
				line += " (private)"
			}
			_, err = fmt.Fprintln(w, line)
			return err == nil
		})
		return err
	}
}
