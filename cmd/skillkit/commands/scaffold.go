package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/skillkit/cmd/skillkit/commands/flags"
	"github.com/thoreinstein/skillkit/internal/backup"
	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/scaffold"
)

var (
	scaffoldName   string
	scaffoldForce  bool
	scaffoldDryRun bool
	scaffoldJSON   bool
	restoreList    bool
)

func init() {
	scaffoldCmd.Flags().StringVar(&scaffoldName, "name", "",
		"project name used in README and compose files (default: directory name)")
	scaffoldCmd.Flags().BoolVarP(&scaffoldForce, "force", "f", false,
		"overwrite files that differ from the skeleton (they are backed up first)")
	scaffoldCmd.Flags().BoolVar(&scaffoldDryRun, "dry-run", false,
		"show what would be written without touching the filesystem")
	scaffoldCmd.Flags().BoolVar(&scaffoldJSON, "json", false,
		"output the result as JSON")

	scaffoldRestoreCmd.Flags().BoolVar(&restoreList, "list", false,
		"list the backups instead of restoring")
	scaffoldCmd.AddCommand(scaffoldRestoreCmd)
	rootCmd.AddCommand(scaffoldCmd)
}

var scaffoldCmd = &cobra.Command{
	Use:   "scaffold [dir] [python-version]",
	Short: "Create a FastAPI project skeleton",
	Long: `Write a FastAPI project skeleton into dir (default ".").

The skeleton holds an app/ package (settings, SQLModel database, models and a
tasks router), a pytest suite, Dockerfile, docker-compose.yml,
requirements.txt, .env, .env.example, .gitignore and README.md. The Python
version (default from python_version in config, else 3.11) is used for the
Docker base image, the README and requirements.txt.

Every file is rendered before anything is written. If a write fails, files
and directories created by the run are removed and overwritten files are
restored. Re-running with the same inputs changes nothing.

Existing files with different content are left alone and reported as
conflicts; --force overwrites them after backing them up to
.skillkit/backups. An existing .env is never overwritten.`,
	Example: `  # Scaffold into the current directory
  skillkit scaffold

  # Scaffold a new project for Python 3.12
  skillkit scaffold ./todo-api 3.12

  # Preview, then overwrite local changes
  skillkit scaffold ./todo-api --dry-run
  skillkit scaffold ./todo-api --force

  See Also:
    skillkit scaffold restore - Undo a --force run`,
	Args: cobra.MaximumNArgs(2),
	RunE: runScaffold,
}

var scaffoldRestoreCmd = &cobra.Command{
	Use:   "restore <dir> [backup-id]",
	Short: "Restore files overwritten by scaffold --force",
	Long: `Restore the files a scaffold --force run backed up.

Without a backup ID the most recent backup is restored. Every file is checked
against its recorded SHA-256 before anything is written.`,
	Example: `  # Restore the most recent backup
  skillkit scaffold restore ./todo-api

  # List backups, then restore one
  skillkit scaffold restore ./todo-api --list
  skillkit scaffold restore ./todo-api 20260123T100712`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runScaffoldRestore,
}

func runScaffold(cmd *cobra.Command, args []string) error {
	opts := scaffold.Options{
		Dir:           scaffold.DefaultDir,
		PythonVersion: flags.Config().PythonVersion,
		ProjectName:   scaffoldName,
		Force:         scaffoldForce,
		DryRun:        scaffoldDryRun,
	}
	if len(args) > 0 {
		opts.Dir = args[0]
	}
	if len(args) > 1 {
		opts.PythonVersion = args[1]
	}

	result, err := scaffold.Run(cmd.Context(), opts)
	conflicted := errors.Is(err, scaffold.ErrConflict) && result != nil
	if err != nil && !conflicted {
		return err
	}

	w := cmd.OutOrStdout()
	if scaffoldJSON {
		if err := writeJSON(w, result); err != nil {
			return err
		}
	} else {
		writeScaffoldText(w, result)
	}

	if conflicted {
		return errors.NewUserError(err, "Re-run with --force to overwrite them (a backup is kept)")
	}
	if conflicts := result.Conflicts(); len(conflicts) > 0 {
		return errors.NewUserError(
			errors.Wrapf(scaffold.ErrConflict, "%d file(s) would conflict", len(conflicts)),
			"Re-run with --force to overwrite them (a backup is kept)",
		)
	}
	return nil
}

func writeScaffoldText(w io.Writer, r *scaffold.Result) {
	verb := "Scaffolded"
	switch {
	case r.DryRun:
		verb = "Would scaffold"
	case len(r.Conflicts()) > 0:
		verb = "Nothing written for"
	}
	fmt.Fprintf(w, "%s %s (Python %s) in %s\n\n", verb, r.ProjectName, r.PythonVersion, r.Dir)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range r.Files {
		fmt.Fprintf(tw, "  %s\t%s\n", actionLabel(f.Action), f.Path)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)

	if r.BackupID != "" {
		fmt.Fprintf(w, "Previous versions saved as backup %s (skillkit scaffold restore %s)\n\n", r.BackupID, r.Dir)
	}
	if n := r.Count(scaffold.ActionSkipped); n > 0 {
		fmt.Fprintf(w, "Kept %d existing secret file(s); compare them with .env.example.\n\n", n)
	}
	if conflicts := r.Conflicts(); len(conflicts) > 0 {
		fmt.Fprintf(w, "%d file(s) differ from the skeleton; no file was written.\n", len(conflicts))
		return
	}
	if !r.DryRun {
		fmt.Fprint(w, scaffold.NextSteps(r))
	}
}

func actionLabel(a scaffold.Action) string {
	label := string(a)
	switch a {
	case scaffold.ActionCreated:
		return color.GreenString(label)
	case scaffold.ActionUpdated:
		return color.CyanString(label)
	case scaffold.ActionConflict:
		return color.RedString(label)
	case scaffold.ActionSkipped:
		return color.YellowString(label)
	default:
		return color.HiBlackString(label)
	}
}

func runScaffoldRestore(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return errors.Wrapf(err, "resolving %s", args[0])
	}
	w := cmd.OutOrStdout()
	mgr := backup.NewManager(dir)

	if restoreList {
		manifests, err := mgr.List()
		if err != nil {
			if errors.Is(err, backup.ErrNoBackupsFound) {
				fmt.Fprintln(w, "No backups found.")
				return nil
			}
			return errors.Wrap(err, "listing backups")
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tFILES")
		for _, m := range manifests {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", m.ID, m.CreatedAt.Local().Format("2006-01-02 15:04:05"), len(m.Files))
		}
		return errors.Wrap(tw.Flush(), "writing table")
	}

	var manifest *backup.Manifest
	if len(args) > 1 {
		manifest, err = mgr.Restore(args[1])
	} else {
		latest, lerr := mgr.Latest()
		if lerr != nil {
			return restoreError(dir, lerr)
		}
		fmt.Fprintf(w, "Using most recent backup: %s\n", latest.ID)
		manifest, err = mgr.Restore(latest.ID)
	}
	if err != nil {
		return restoreError(dir, err)
	}

	fmt.Fprintln(w, color.GreenString("✓ Restored %d file(s) from backup %s", len(manifest.Files), manifest.ID))
	for _, f := range manifest.Files {
		fmt.Fprintf(w, "  %s\n", f.Path)
	}
	return nil
}

func restoreError(dir string, err error) error {
	switch {
	case errors.Is(err, backup.ErrNoBackupsFound):
		return errors.NewUserError(errors.Wrapf(err, "in %s", dir), "Run: skillkit scaffold restore "+dir+" --list")
	case errors.Is(err, backup.ErrBackupCorrupted):
		return errors.NewSystemError(err, "The backup no longer matches its manifest; nothing was restored")
	default:
		return errors.Wrap(err, "restoring backup")
	}
}

// writeJSON encodes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encoding JSON")
	}
	return nil
}
