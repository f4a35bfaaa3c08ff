package skill

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/logging"
	"github.com/thoreinstein/skillkit/internal/skill/discover"
	"github.com/thoreinstein/skillkit/internal/validator"
)

var (
	lintStrict  bool
	lintJSON    bool
	lintInclude []string
	lintExclude []string
	lintWorkers int
)

func init() {
	lintCmd.Flags().BoolVar(&lintStrict, "strict", false,
		"enable strict validation (allowed-tools syntax, line limit is an error)")
	lintCmd.Flags().BoolVar(&lintJSON, "json", false,
		"output results as JSON")
	lintCmd.Flags().StringSliceVar(&lintInclude, "include", nil,
		"only lint skills whose directory matches a glob (e.g. 'python/**')")
	lintCmd.Flags().StringSliceVar(&lintExclude, "exclude", nil,
		"skip skills whose directory matches a glob")
	lintCmd.Flags().IntVar(&lintWorkers, "workers", 0,
		"number of skills validated in parallel (default: number of CPUs)")
	Cmd.AddCommand(lintCmd)
}

var lintCmd = &cobra.Command{
	Use:   "lint [root]",
	Short: "Validate every skill under a directory",
	Long: `Find every skill under root and validate them in parallel.

A skill is any directory holding a SKILL.md. Hidden directories are skipped.
Include and exclude globs match the skill directory relative to root and are
added to the include/exclude lists from the config file.

Exit codes:
  0 - Every skill is valid
  1 - At least one skill failed validation`,
	Example: `  # Lint the default skill roots
  skillkit skill lint

  # Lint a directory, skipping drafts
  skillkit skill lint ./skills --exclude 'drafts/**'

  # Machine-readable output for CI
  skillkit skill lint ./skills --strict --json

  See Also:
    skillkit skill validate - Validate a single skill`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)

	var explicit string
	if len(args) > 0 {
		explicit = args[0]
	}
	roots, err := resolveRoots(explicit)
	if err != nil {
		return err
	}

	d := newDiscoverer(ctx, lintInclude, lintExclude)
	linter := discover.NewLinter(newValidator(lintStrict), lintWorkers)

	var results []*validator.Result
	for _, root := range roots {
		entries, res, err := linter.Lint(ctx, d, root)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.NewUserError(err, "Check the path, or run: skillkit doctor")
			}
			return errors.Wrapf(err, "linting %s", root)
		}
		logger.Debug("linted skills", "root", root, "count", len(entries))
		for _, r := range res {
			if rel, err := filepath.Rel(root, r.Path); err == nil && len(roots) == 1 {
				r.Path = filepath.ToSlash(rel)
			}
		}
		results = append(results, res...)
	}

	if len(results) == 0 && !lintJSON {
		fmt.Fprintln(cmd.OutOrStdout(), "No skills found.")
		return nil
	}

	format := validator.FormatText
	if lintJSON {
		format = validator.FormatJSON
	}
	if err := validator.NewReporter(cmd.OutOrStdout(), format).ReportAll(results); err != nil {
		return err
	}

	if validator.Summarize(results).Failed > 0 {
		return errors.ErrValidationFailed
	}
	return nil
}
