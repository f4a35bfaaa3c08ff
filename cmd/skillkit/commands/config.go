package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/skillkit/cmd/skillkit/commands/flags"
	"github.com/thoreinstein/skillkit/internal/config"
	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/pkg/fileutil"
)

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage skillkit configuration",
	Long: `Manage skillkit configuration stored in config.yaml.

The file is looked up in $SKILLKIT_CONFIG_DIR, or in the current directory and
then the user config directory. Any key can be overridden with a SKILLKIT_
environment variable, e.g. SKILLKIT_MAX_LINES=300.

Without a subcommand, lists all configuration values.`,
	Example: `  # List all configuration
  skillkit config

  # Get a specific value
  skillkit config get max_lines

  # Set a value
  skillkit config set known_models inherit,sonnet,opus

See Also: skillkit doctor`,
	Args: cobra.NoArgs,
	RunE: runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Long: `Get a single configuration value by key. List values are comma-separated.

Keys: ` + strings.Join(config.Keys(), ", "),
	Example: `  # Get the line limit
  skillkit config get max_lines

See Also: skillkit config set, skillkit config list`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and write the config file.

List values (required_sections, known_models, include, exclude) take a
comma-separated value; an empty value clears the list. The result is validated
before it is written.

Keys: ` + strings.Join(config.Keys(), ", "),
	Example: `  # Make lint strict by default
  skillkit config set strict true

  # Require sections in every skill
  skillkit config set required_sections Instructions,Examples

See Also: skillkit config get, skillkit config list`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration",
	Long:  `List the effective configuration, with defaults and environment overrides applied, in YAML format.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Show which config file is used",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfigCheck: "true"},
	RunE:        runConfigPath,
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	val, err := flags.Config().Get(args[0])
	if err != nil {
		return errors.NewUserError(err, "Valid keys: "+strings.Join(config.Keys(), ", "))
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	path := configFile
	if path == "" {
		path = config.WritePath()
	}

	// Start from the file alone so environment overrides are not persisted.
	cfg, err := readConfigFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return errors.NewUserError(err, "Valid keys: "+strings.Join(config.Keys(), ", "))
	}
	if err := config.Save(path, cfg); err != nil {
		if errors.Is(err, errors.ErrInvalidConfig) {
			return errors.NewUserError(err, "")
		}
		return errors.NewSystemError(errors.Wrapf(err, "writing %s", path), "")
	}

	got, _ := cfg.Get(key)
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, got)
	return nil
}

// readConfigFile decodes the YAML file at path over the defaults. A missing
// file yields the defaults.
func readConfigFile(path string) (*config.Config, error) {
	cfg := config.Default()
	data, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, errors.NewSystemError(errors.Wrapf(err, "reading %s", path), "")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError(errors.Wrapf(err, "parsing %s", path))
	}
	return cfg, nil
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	data, err := yaml.Marshal(flags.Config())
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	_, err = cmd.OutOrStdout().Write(data)
	return errors.Wrap(err, "writing config")
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	used := configFile
	if used == "" {
		used = config.FileUsed()
	}
	if used == "" {
		fmt.Fprintln(w, "config file: (none, using defaults)")
	} else {
		fmt.Fprintf(w, "config file: %s\n", used)
	}
	fmt.Fprintf(w, "writes to:   %s\n", config.WritePath())
	return nil
}
