package skill

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/validator"
)

var (
	validateStrict bool
	validateJSON   bool
	validateInfo   bool
)

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false,
		"enable strict validation (allowed-tools syntax, line limit is an error)")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false,
		"output results as JSON")
	validateCmd.Flags().BoolVar(&validateInfo, "info", false,
		"include informational notes in text output")
	Cmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate <path>",
	Short: "Validate a skill",
	Long: `Validate one skill. The path may name the skill directory or its SKILL.md.

Checks the frontmatter (required name and description, name matching the
directory, model aliases), the line-count guideline,
relative links and the reference files under references/.

Exit codes:
  0 - Skill is valid
  1 - Skill validation failed`,
	Example: `  # Validate skill in current directory
  skillkit skill validate .

  # Strict validation
  skillkit skill validate ./fastapi --strict

  # Output validation results as JSON
  skillkit skill validate ./fastapi --json

  See Also:
    skillkit skill lint  - Validate every skill under a directory
    skillkit skill init  - Create a new skill`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		path = args[0]
	}

	result, err := newValidator(validateStrict).ValidateFile(path)
	if err != nil {
		return errors.Wrapf(err, "validating %s", path)
	}

	format := validator.FormatText
	if validateJSON {
		format = validator.FormatJSON
	}
	reporter := validator.NewReporter(cmd.OutOrStdout(), format).WithInfo(validateInfo)
	if err := reporter.Report(result); err != nil {
		return err
	}

	if result.HasErrors() {
		return errors.ErrValidationFailed
	}
	return nil
}
