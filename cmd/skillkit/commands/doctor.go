package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/thoreinstein/skillkit/cmd/skillkit/commands/flags"
	"github.com/thoreinstein/skillkit/internal/config"
	"github.com/thoreinstein/skillkit/internal/doctor"
	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/logging"
	"github.com/thoreinstein/skillkit/internal/paths"
)

var (
	doctorJSON bool
	doctorAll  bool
	doctorFix  bool
	doctorDir  string
)

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false,
		"output results as JSON")
	doctorCmd.Flags().BoolVar(&doctorAll, "all", false,
		"show every check, including passed ones")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false,
		"tighten permissions on .env files, then check again")
	doctorCmd.Flags().StringVar(&doctorDir, "dir", ".",
		"project directory whose .env files are checked")
	doctorCmd.MarkFlagsMutuallyExclusive("json", "all")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose configuration issues",
	Long: `Run diagnostic checks on the skillkit configuration, the skill roots, the
tools scaffolded projects need, and the .env files of a project.

doctor runs even when the config file is broken, so it can report why.

Output modes:
  (default)   Show errors and warnings
  --all, -v   Show all checks including passed ones
  -q          No output, exit code only
  --json      Machine-readable JSON output

Exit codes:
  0 - No errors or warnings
  1 - Warnings present, no errors
  2 - Errors present`,
	Example: `  # Check everything
  skillkit doctor

  # Check a scaffolded project and fix .env permissions
  skillkit doctor --dir ./todo-api --fix`,
	Annotations: map[string]string{skipConfigCheck: "true"},
	Args:        cobra.NoArgs,
	PreRunE:     validateDoctorFlags,
	RunE:        runDoctor,
}

// validateDoctorFlags rejects output modes that contradict each other.
func validateDoctorFlags(_ *cobra.Command, _ []string) error {
	if quiet && (doctorJSON || doctorAll) {
		return errors.NewUserError(errors.New("--quiet cannot be combined with --json or --all"), "")
	}
	return nil
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	runner, err := doctorRunner(cmd)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	report := runner.Run()

	if doctorFix {
		fixes := runner.Fix()
		if !quiet && !doctorJSON {
			writeFixResults(w, fixes)
		}
		report = runner.Run()
	}

	if err := outputDoctorReport(w, report); err != nil {
		return err
	}

	switch {
	case report.HasErrors():
		return errors.NewExitError(
			errors.Wrapf(errors.ErrValidationFailed, "%d check(s) failed", report.Summary.Errors),
			errors.ExitSystem,
		)
	case report.HasWarnings():
		return errors.Wrapf(errors.ErrValidationFailed, "%d warning(s)", report.Summary.Warnings)
	}
	return nil
}

func doctorRunner(cmd *cobra.Command) (*doctor.Runner, error) {
	cfgPath := configFile
	if cfgPath == "" {
		cfgPath = config.FileUsed()
	}

	var roots []string
	if dir := flags.Config().SkillsDir; dir != "" {
		roots = append(roots, paths.ExpandHome(dir))
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "getting working directory")
		}
		roots = append(roots, paths.ProjectSkillRoot(wd))
		if user := paths.UserSkillRoot(); user != "" {
			roots = append(roots, user)
		}
	}

	dir, err := filepath.Abs(doctorDir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %s", doctorDir)
	}

	logging.FromContext(cmd.Context()).Debug("running doctor", "config", cfgPath, "roots", roots, "dir", dir)

	return doctor.NewRunner(
		doctor.NewConfigCheck(cfgPath),
		doctor.NewSkillsDirCheck(roots...),
		doctor.NewToolCheck(),
		doctor.NewEnvFileCheck(dir),
	), nil
}

func outputDoctorReport(w io.Writer, report *doctor.Report) error {
	if quiet {
		return nil
	}
	if doctorJSON {
		return writeJSON(w, report)
	}
	outputDoctorText(w, report)
	return nil
}

func outputDoctorText(w io.Writer, report *doctor.Report) {
	showAll := doctorAll || verbosity > 0

	hasOutput := false
	for _, result := range report.Results {
		problem := result.Status == doctor.SeverityError || result.Status == doctor.SeverityWarning
		if !showAll && !problem {
			continue
		}

		hasOutput = true
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(result.Status), result.Category, result.Name, result.Message)

		if result.FixHint != "" && problem {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
		if problems, ok := result.Details["problems"].([]string); ok && showAll {
			for _, p := range problems {
				fmt.Fprintf(w, "    - %s\n", p)
			}
		}
	}

	if hasOutput {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
}

func writeFixResults(w io.Writer, fixes []doctor.FixResult) {
	if len(fixes) == 0 {
		fmt.Fprintln(w, "Nothing to fix.")
		fmt.Fprintln(w)
		return
	}
	for _, f := range fixes {
		if f.Fixed {
			fmt.Fprintf(w, "%s %s: %s\n", color.GreenString("✓"), f.Path, f.Description)
			continue
		}
		fmt.Fprintf(w, "%s %s: %s (%v)\n", color.RedString("✗"), f.Path, f.Description, f.Error)
	}
	fmt.Fprintln(w)
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return color.GreenString("✓")
	case doctor.SeverityInfo:
		return color.CyanString("ℹ")
	case doctor.SeverityWarning:
		return color.YellowString("⚠")
	case doctor.SeverityError:
		return color.RedString("✗")
	default:
		return "?"
	}
}
