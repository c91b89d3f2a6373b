package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/vbasync/pkg/vbasync"
	"github.com/arthur-debert/vbasync/pkg/vbasync/filesystem"
	"github.com/arthur-debert/vbasync/pkg/vbasync/patch"
)

func newSyncCommand(action, short string) *cobra.Command {
	var (
		only   []string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := openRun(cmd, action)
			if err != nil {
				return err
			}
			defer run.Close()

			if len(only) > 0 {
				if err := run.Selection().Only(only...); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "DRY RUN: %s would apply:\n", action)
				printPatches(out, run.Selection())
				return nil
			}

			res, err := run.Commit()
			if err != nil {
				return err
			}
			if len(res.Applied) == 0 {
				fmt.Fprintln(out, "Nothing to do.")
				return nil
			}
			for _, p := range res.Applied {
				fmt.Fprintf(out, "  %s\n", p.Describe())
			}
			fmt.Fprintf(out, "Applied %d change(s) to %s\n", len(res.Applied), res.Target)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, "apply only the changes of these modules")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the changes without applying them")

	return cmd
}

func newStatusCommand() *cobra.Command {
	var action string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "List the changes a run would apply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := openRun(cmd, action)
			if err != nil {
				return err
			}
			defer run.Close()

			out := cmd.OutOrStdout()
			if len(run.Patches()) == 0 {
				fmt.Fprintf(out, "%s: folder and document agree\n", run.Direction)
				return nil
			}
			fmt.Fprintf(out, "%s: %d change(s)\n", run.Direction, len(run.Patches()))
			printPatches(out, run.Selection())
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "direction to compare in: extract or publish (default extract)")

	return cmd
}

func newDiffCommand() *cobra.Command {
	var action string

	cmd := &cobra.Command{
		Use:   "diff [module]",
		Short: "Preview the changes of one module",
		Long: `Preview the changes of one module as a unified diff, or with the configured
external diff tool.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := openRun(cmd, action)
			if err != nil {
				return err
			}
			defer run.Close()
			return run.Preview(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "direction to compare in: extract or publish (default extract)")

	return cmd
}

func printPatches(w io.Writer, sel *patch.Selection) {
	for _, p := range sel.Patches() {
		mark := " "
		if sel.Committed(p) {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s\n", mark, p.Describe())
	}
}

// openRun merges the config file with the command line and opens a run.
func openRun(cmd *cobra.Command, action string) (*vbasync.Run, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg = cfg.Merge(vbasync.Config{
		Action:                  action,
		Document:                global.document,
		Folder:                  global.folder,
		AllowNewDocumentModules: global.allowNewDocumentModules,
		DiffTool:                global.diffTool,
		LogLevel:                global.logLevel,
	})
	if cfg.Action == "" {
		cfg.Action = "extract"
	}

	level, err := vbasync.LogLevelFromString(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := vbasync.NewLogger(cmd.ErrOrStderr(), level)

	fsys, cfg, err := resolvePaths(cfg)
	if err != nil {
		return nil, err
	}
	return vbasync.Open(fsys, cfg, logger)
}

func loadConfig() (vbasync.Config, error) {
	name := global.configFile
	if name == "" {
		if _, err := os.Stat(vbasync.DefaultConfigFile); errors.Is(err, fs.ErrNotExist) {
			return vbasync.Config{}, nil
		}
		name = vbasync.DefaultConfigFile
	}
	abs, err := filepath.Abs(name)
	if err != nil {
		return vbasync.Config{}, err
	}
	return vbasync.LoadConfig(filesystem.NewOSFileSystem(filepath.Dir(abs)), filepath.Base(abs))
}

// resolvePaths roots the file system at the volume holding the document
// and rewrites the document and folder as slash paths inside it.
func resolvePaths(cfg vbasync.Config) (filesystem.FileSystem, vbasync.Config, error) {
	if cfg.Document == "" {
		return nil, cfg, &vbasync.ConfigError{Field: "document", Reason: "is required"}
	}
	if cfg.Folder == "" {
		cfg.Folder = strings.TrimSuffix(cfg.Document, filepath.Ext(cfg.Document)) + vbasync.FolderSuffix
	}
	doc, err := filepath.Abs(cfg.Document)
	if err != nil {
		return nil, cfg, err
	}
	root := filepath.VolumeName(doc) + string(filepath.Separator)

	rel := func(p string) (string, error) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		r, err := filepath.Rel(root, abs)
		if err != nil {
			return "", err
		}
		return filepath.ToSlash(r), nil
	}
	if cfg.Document, err = rel(doc); err != nil {
		return nil, cfg, err
	}
	if cfg.Folder, err = rel(cfg.Folder); err != nil {
		return nil, cfg, err
	}
	return filesystem.NewOSFileSystem(root), cfg, nil
}
