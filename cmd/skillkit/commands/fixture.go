package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/fixture"
	"github.com/thoreinstein/skillkit/pkg/fileutil"
)

var (
	fixtureType   string
	fixtureName   string
	fixtureScope  string
	fixtureParams []string
	fixtureOutput string
	fixtureForce  bool
	fixtureJSON   bool
)

func init() {
	fixtureGenerateCmd.Flags().StringVarP(&fixtureType, "type", "t", "",
		"fixture type (see: skillkit fixture list)")
	fixtureGenerateCmd.Flags().StringVarP(&fixtureName, "name", "n", "",
		"base name of the fixture, a Python identifier")
	fixtureGenerateCmd.Flags().StringVar(&fixtureScope, "scope", fixture.DefaultScope,
		"scope for scoped fixtures: function, class, module, package, session")
	fixtureGenerateCmd.Flags().StringSliceVar(&fixtureParams, "params", nil,
		"values for parametrized fixtures (default: value1,value2)")
	_ = fixtureGenerateCmd.MarkFlagRequired("type")
	_ = fixtureGenerateCmd.MarkFlagRequired("name")

	for _, c := range []*cobra.Command{fixtureConftestCmd, fixtureTemplateCmd} {
		c.Flags().StringVarP(&fixtureOutput, "output", "o", "",
			"write to a file instead of stdout")
		c.Flags().BoolVarP(&fixtureForce, "force", "f", false,
			"overwrite the output file if it exists")
	}
	fixtureListCmd.Flags().BoolVar(&fixtureJSON, "json", false, "Output in JSON format")

	fixtureCmd.AddCommand(fixtureGenerateCmd, fixtureConftestCmd, fixtureListCmd, fixtureTemplateCmd)
	rootCmd.AddCommand(fixtureCmd)
}

var fixtureCmd = &cobra.Command{
	Use:   "fixture",
	Short: "Generate pytest fixtures",
	Long: `Generate pytest fixture code: a single fixture, a complete conftest.py from
a definitions file, or a reference conftest.py to start from.`,
}

var fixtureGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print the code for one fixture",
	Example: `  # A factory fixture named user_factory
  skillkit fixture generate --type factory --name user

  # A session-scoped fixture
  skillkit fixture generate -t scoped -n engine --scope session

  # A parametrized fixture
  skillkit fixture generate -t parametrized -n backend --params sqlite,postgres`,
	Args: cobra.NoArgs,
	RunE: runFixtureGenerate,
}

var fixtureConftestCmd = &cobra.Command{
	Use:   "conftest <definitions>",
	Short: "Generate a conftest.py from a YAML or TOML definitions file",
	Long: `Generate a complete conftest.py from a definitions file.

The file is YAML (.yaml, .yml) or TOML (.toml) with a list of fixtures:

  fixtures:
    - type: factory
      name: user
    - type: scoped
      name: engine
      scope: session

Fixtures are written in the order they are defined. Unknown keys are errors.`,
	Example: `  # Print to stdout
  skillkit fixture conftest fixtures.yaml

  # Write tests/conftest.py
  skillkit fixture conftest fixtures.toml -o tests/conftest.py`,
	Args: cobra.ExactArgs(1),
	RunE: runFixtureConftest,
}

var fixtureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the fixture types",
	Args:  cobra.NoArgs,
	RunE:  runFixtureList,
}

var fixtureTemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Print a reference conftest.py",
	Long: `Print a conftest.py demonstrating common fixture patterns: an in-memory
database session, a FastAPI test client, factories, mocks, temporary files,
parametrized and scoped fixtures.`,
	Args: cobra.NoArgs,
	RunE: runFixtureTemplate,
}

func runFixtureGenerate(cmd *cobra.Command, _ []string) error {
	spec := fixture.Spec{
		Kind:   fixture.Kind(fixtureType),
		Name:   fixtureName,
		Scope:  fixtureScope,
		Params: fixtureParams,
	}
	code, err := fixture.Generate(spec)
	if err != nil {
		return fixtureError(err)
	}
	_, err = io.WriteString(cmd.OutOrStdout(), code)
	return errors.Wrap(err, "writing fixture")
}

func runFixtureConftest(cmd *cobra.Command, args []string) error {
	specs, err := fixture.LoadDefinitions(args[0])
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.NewUserError(err, "Check the definitions file path")
		}
		return fixtureError(err)
	}
	code, err := fixture.GenerateConftest(specs)
	if err != nil {
		return fixtureError(err)
	}
	return writeOutput(cmd, []byte(code), fmt.Sprintf("%d fixture(s)", len(specs)))
}

func runFixtureList(cmd *cobra.Command, _ []string) error {
	kinds := fixture.Kinds()
	if fixtureJSON {
		return writeJSON(cmd.OutOrStdout(), kinds)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tDESCRIPTION")
	for _, k := range kinds {
		fmt.Fprintf(tw, "%s\t%s\n", k.Kind, k.Summary)
	}
	return errors.Wrap(tw.Flush(), "writing table")
}

func runFixtureTemplate(cmd *cobra.Command, _ []string) error {
	return writeOutput(cmd, fixture.Template(), "reference conftest")
}

// writeOutput writes data to --output, or to stdout without it.
func writeOutput(cmd *cobra.Command, data []byte, what string) error {
	if fixtureOutput == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return errors.Wrap(err, "writing output")
	}
	if _, err := os.Stat(fixtureOutput); err == nil && !fixtureForce {
		return errors.NewUserError(errors.Newf("%s already exists", fixtureOutput), "Use --force to overwrite it")
	}
	if err := fileutil.AtomicWriteFile(fixtureOutput, data, 0o644); err != nil {
		return errors.NewSystemError(errors.Wrapf(err, "writing %s", fixtureOutput), "")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s to %s\n", what, fixtureOutput)
	return nil
}

// fixtureError marks errors caused by bad input as user errors.
func fixtureError(err error) error {
	for _, target := range []error{
		fixture.ErrUnknownKind, fixture.ErrInvalidName, fixture.ErrInvalidScope,
		fixture.ErrDuplicateName, fixture.ErrNoFixtures, fixture.ErrUnknownFormat,
	} {
		if errors.Is(err, target) {
			return errors.NewUserError(err, "Run: skillkit fixture list")
		}
	}
	return errors.NewUserError(err, "Check the definitions file syntax")
}
