package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trove-dev/trove/configs"
	"github.com/trove-dev/trove/internal/config"
	"github.com/trove-dev/trove/internal/ignore"
	"github.com/trove-dev/trove/internal/output"
	"github.com/trove-dev/trove/pkg/version"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config and ignore file",
		Long: `Initialize a directory for trove.

This writes two commented templates into the target directory:

  .trove.yaml   configuration (every key at its default)
  .troveignore  exclusion patterns (gitignore syntax)

Existing files are preserved unless --force is given, in which case a
timestamped backup is taken before overwriting.`,
		Example: `  # Initialize the current directory
  trove init

  # Initialize another tree
  trove init ~/notes

  # Replace existing files, keeping backups
  trove init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runInit(cmd, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files (a backup is kept)")

	return cmd
}

func runInit(cmd *cobra.Command, path string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	root, err := targetRoot(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("access %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", root)
	}

	out.Statusf("🚀", "trove %s - initializing %s", version.Version, root)
	out.Newline()

	if err := writeTemplate(out, filepath.Join(root, config.ProjectConfigName), configs.ProjectConfigTemplate, force); err != nil {
		return err
	}
	if err := writeTemplate(out, filepath.Join(root, ignore.IgnoreFileName), configs.IgnoreTemplate, force); err != nil {
		return err
	}

	out.Newline()
	out.Successf("Ready. Next steps:")
	suffix := ""
	if path != "" {
		suffix = " " + path
	}
	out.Code("trove index" + suffix + "\ntrove search <query>" + suffix)
	return nil
}

// writeTemplate writes content to path unless the file already exists. With
// force, the existing file is backed up first and then replaced.
func writeTemplate(out *output.Writer, path, content string, force bool) error {
	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Statusf("ℹ️ ", "Existing %s preserved (use --force to replace)", filepath.Base(path))
			return nil
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return fmt.Errorf("back up %s: %w", path, err)
		}
		if backup != "" {
			out.Statusf("📦", "Backed up %s to %s", filepath.Base(path), filepath.Base(backup))
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	out.Statusf("📝", "Created %s", filepath.Base(path))
	return nil
}
