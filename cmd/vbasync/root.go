package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// global holds the flags every command shares.
var global struct {
	configFile              string
	document                string
	folder                  string
	logLevel                string
	diffTool                string
	allowNewDocumentModules bool
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vbasync",
	Short: "Round-trip the VBA project of an office document through a source folder",
	Long: `vbasync extracts the VBA project embedded in an office document into a folder
of plain-text source files, and publishes edited source files back into the
document. Changes are listed as patches that can be reviewed and selected before
they are applied; differences in letter case alone are never reported.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&global.configFile, "config", "", "config file (default is ./.vbasync.yaml when present)")
	flags.StringVarP(&global.document, "document", "d", "", "office document holding the VBA project")
	flags.StringVarP(&global.folder, "folder", "f", "", "source folder (default is the document name with a .src suffix)")
	flags.StringVar(&global.logLevel, "log-level", "", "log level: trace, debug, info, warn or error")
	flags.StringVar(&global.diffTool, "diff-tool", "", "external program used by the diff command")
	flags.BoolVar(&global.allowNewDocumentModules, "allow-new-document-modules", false,
		"let publish add document modules the host document does not have")

	rootCmd.AddCommand(versionCmd)

	rootCmd.AddCommand(newSyncCommand("extract", "Write the document's VBA project into the source folder"))
	rootCmd.AddCommand(newSyncCommand("publish", "Write the source folder into the document's VBA project"))
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newDiffCommand())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Print the version number of vbasync`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "vbasync version %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
