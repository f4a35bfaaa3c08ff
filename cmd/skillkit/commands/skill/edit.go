package skill

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/skillkit/internal/editor"
	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/paths"
)

var editRoot string

// openEditor opens path in the user's editor. Tests replace it.
var openEditor = editor.Open

func init() {
	editCmd.Flags().StringVar(&editRoot, "root", "", "skills directory to search (default: configured roots)")
	Cmd.AddCommand(editCmd)
}

var editCmd = &cobra.Command{
	Use:   "edit <name|path>",
	Short: "Open a SKILL.md in $EDITOR",
	Long: `Open a skill's SKILL.md in your editor.

You can provide either:
  - The name of a skill in the searched roots (e.g. "fastapi")
  - A path to a skill directory or SKILL.md (e.g. "./fastapi" or ".")

Uses $VISUAL, then $EDITOR, then nano or vi.`,
	Example: `  # Open a skill by name
  skillkit skill edit fastapi

  # Open the skill in the current directory
  skillkit skill edit .

  See Also:
    skillkit skill show     - Show skill details
    skillkit skill validate - Validate after editing`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx := cmd.Context()

	if info, err := os.Stat(target); err == nil {
		file := target
		if info.IsDir() {
			file = filepath.Join(target, paths.SkillFile)
		}
		if _, err := os.Stat(file); err != nil {
			return errors.NewUserError(errors.Newf("no %s in %s", paths.SkillFile, target), "Run: skillkit skill init "+target)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Opening %s...\n", file)
		return openEditor(ctx, file)
	}

	roots, err := resolveRoots(editRoot)
	if err != nil {
		return err
	}
	entry, err := findSkill(cmd, roots, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Opening %s...\n", entry.File)
	return openEditor(ctx, entry.File)
}
