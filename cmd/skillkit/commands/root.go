// Package commands implements the CLI commands for skillkit.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/skillkit/cmd"
	"github.com/thoreinstein/skillkit/cmd/skillkit/commands/flags"
	"github.com/thoreinstein/skillkit/cmd/skillkit/commands/skill"
	"github.com/thoreinstein/skillkit/internal/config"
	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/logging"
)

// debugEnv raises the log level when no -v flag is given: 1 or true for
// debug, 2 for trace.
const debugEnv = config.EnvPrefix + "_DEBUG"

// skipConfigCheck is the annotation that lets a command run with a broken
// config file. doctor uses it so it can report the problem.
const skipConfigCheck = "skip-config-check"

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// configFile holds an explicit config file path.
var configFile string

// configLoadErr holds any error that occurred during config loading.
var configLoadErr error

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv, -vvv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: ./config.yaml, then the user config directory)")

	rootCmd.Version = cmd.Version
	rootCmd.SetVersionTemplate("skillkit version {{.Version}}\n")

	// Errors are printed by ReportError.
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(skill.Cmd)
}

func initConfig() {
	config.Init()
	cfg, err := config.Load(configFile)
	configLoadErr = err
	flags.SetConfig(cfg)
}

var rootCmd = &cobra.Command{
	Use:   "skillkit",
	Short: "Tooling for agent skill documents and FastAPI project skeletons",
	Long: `skillkit validates and lints agent skill documents (SKILL.md files with
YAML frontmatter), scaffolds FastAPI project skeletons, and generates pytest
fixtures.`,
	Example: `  # Validate one skill
  skillkit skill validate ./skills/fastapi

  # Lint every skill under a directory
  skillkit skill lint ./skills

  # Scaffold a FastAPI project for Python 3.12
  skillkit scaffold ./todo-api 3.12

  # Check the installation
  skillkit doctor

  See Also: skillkit config, skillkit fixture`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := setupLogging(cmd); err != nil {
			return err
		}
		return checkConfig(cmd)
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(errors.New("cannot use --quiet and --verbose together"), "Pick one of -q or -v")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity
		if v == 0 {
			switch os.Getenv(debugEnv) {
			case "1", "true":
				v = 2
			case "2":
				v = 3
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	opts := &slog.HandlerOptions{Level: level}

	var primary slog.Handler
	switch logging.Format(logFormat) {
	case logging.FormatJSON:
		primary = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	case logging.FormatText:
		primary = logging.NewHandler(cmd.ErrOrStderr(), opts)
	default:
		return errors.NewUserError(errors.Newf("unknown log format %q", logFormat), "Use --log-format text or --log-format json")
	}

	handler := primary
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.NewUserError(errors.Wrap(err, "opening log file"), "Check that the log file path is writable")
		}
		handler = logging.NewMultiHandler(primary, slog.NewJSONHandler(f, opts))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))
	return nil
}

// checkConfig reports a config load failure unless the command opted out.
func checkConfig(cmd *cobra.Command) error {
	if configLoadErr == nil || cmd.Name() == "help" {
		return nil
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigCheck] != "" {
			logging.FromContext(cmd.Context()).Debug("ignoring config error", "error", configLoadErr)
			return nil
		}
	}
	return errors.NewConfigError(configLoadErr)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// ReportError prints err the way the CLI reports failures and returns the
// process exit code. Validation failures have already been reported by the
// command, so only their exit code is used.
func ReportError(w io.Writer, err error) int {
	if err == nil {
		return errors.ExitSuccess
	}
	if !errors.Is(err, errors.ErrValidationFailed) {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	var exitErr *errors.ExitError
	if errors.As(err, &exitErr) && exitErr.Suggestion != "" {
		fmt.Fprintf(w, "  %s\n", exitErr.Suggestion)
	}
	return errors.ExitCode(err)
}
