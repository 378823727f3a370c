package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/docview/internal/members"
)

var (
	membersShow   = members.DefaultShowFlags()
	membersOutput = newOutputValue("text", "text", "json")
)

var membersCmd = &cobra.Command{
	Use:   "members <class> [filter]",
	Short: "List the members of a class",
	Long: `List the members of a class grouped by member type, the way the class
toolbar shows them. The optional filter keeps members whose name contains it.

Examples:
  docview members Ext.panel.Panel
  docview members Ext.panel.Panel set --private
  docview members panel -o json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runMembers,
}

func init() {
	rootCmd.AddCommand(membersCmd)

	membersCmd.Flags().BoolVar(&membersShow.Public, "public", membersShow.Public, "show public members")
	membersCmd.Flags().BoolVar(&membersShow.Private, "private", membersShow.Private, "show private members")
	membersCmd.Flags().BoolVar(&membersShow.Deprecated, "deprecated", membersShow.Deprecated, "show deprecated members")
	membersCmd.Flags().BoolVar(&membersShow.Internal, "internal", membersShow.Internal, "show internal members")
	membersCmd.Flags().VarP(membersOutput, "output", "o", "output format (text, json)")
}

func runMembers(cmd *cobra.Command, args []string) error {
	d, err := openDocs(cmd.Context())
	if err != nil {
		return err
	}

	name := d.catalog.Resolve(args[0])
	doc, err := d.loader.LoadSync(cmd.Context(), name)
	if err != nil {
		return err
	}

	text := ""
	if len(args) > 1 {
		text = args[1]
	}
	groups := members.FilterGroups(members.Groups(doc, d.catalog.MemberTypes()), text, membersShow)
	return writeGroups(cmd.OutOrStdout(), doc.Name, groups, membersOutput.format)
}

func writeGroups(w io.Writer, class string, groups []members.Group, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}

	if _, err := fmt.Fprintln(w, class); err != nil {
		return err
	}
	for _, g := range groups {
		if len(g.Links) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "\n%s (%d)\n", g.Title, len(g.Links)); err != nil {
			return err
		}
		for _, l := range g.Links {
			var tags []string
			if l.Inherited {
				tags = append(tags, "inherited")
			}
			if l.Meta.Private {
				tags = append(tags, "private")
			}
			if l.Meta.Deprecated {
				tags = append(tags, "deprecated")
			}
			line := "  " + l.Label
			if len(tags) > 0 {
				line += "  [" + strings.Join(tags, ", ") + "]"
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}
