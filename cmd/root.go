// Package cmd provides the docview command-line interface.
//
// Configuration comes from, in order of precedence:
//
//  1. Command-line flags (--port, --dir, ...)
//  2. Environment variables with the DOCVIEW_ prefix (DOCVIEW_SERVER_PORT)
//  3. The configuration file given by --config, or .docview.yml in the
//     working directory
//  4. Built-in defaults
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/docview/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "docview",
	Short: "Browse generated API documentation",
	Long: `docview serves generated class documentation to the browser. Each tab
gets its own navigation session: history, per-class scroll and member
expansion, member filtering and a class tree grouped by package or
inheritance.

Quick Start:
  docview serve --dir ./docs/output    Serve a local documentation build
  docview serve --source https://...   Serve documentation from a URL
  docview tree --grouping inheritance  Print the class tree
  docview members Ext.panel.Panel get  Filter the members of a class`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Bind(viper.GetViper(), cfgFile)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.docview.yml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("source", "", "base URL of the documentation output")
	rootCmd.PersistentFlags().String("dir", "", "directory holding the documentation output")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("source.base_url", rootCmd.PersistentFlags().Lookup("source"))
	_ = viper.BindPFlag("source.dir", rootCmd.PersistentFlags().Lookup("dir"))
}
