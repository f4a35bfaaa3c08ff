package config

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/paths"
	"github.com/thoreinstein/skillkit/pkg/fileutil"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "SKILLKIT"

// Defaults applied by Init.
const (
	DefaultVersion           = 1
	DefaultMaxLines          = 500
	DefaultMaxReferenceLines = 1000
	DefaultPythonVersion     = "3.11"
)

// DefaultKnownModels lists the model aliases accepted in skill frontmatter.
var DefaultKnownModels = []string{"inherit", "sonnet", "opus", "haiku"}

// Config is the skillkit configuration.
type Config struct {
	Version           int      `mapstructure:"version" yaml:"version"`
	SkillsDir         string   `mapstructure:"skills_dir" yaml:"skills_dir,omitempty"`
	MaxLines          int      `mapstructure:"max_lines" yaml:"max_lines"`
	MaxReferenceLines int      `mapstructure:"max_reference_lines" yaml:"max_reference_lines"`
	RequiredSections  []string `mapstructure:"required_sections" yaml:"required_sections,omitempty"`
	KnownModels       []string `mapstructure:"known_models" yaml:"known_models"`
	Strict            bool     `mapstructure:"strict" yaml:"strict"`
	PythonVersion     string   `mapstructure:"python_version" yaml:"python_version"`
	Include           []string `mapstructure:"include" yaml:"include,omitempty"`
	Exclude           []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
}

// Default returns a configuration populated with default values.
func Default() *Config {
	return &Config{
		Version:           DefaultVersion,
		MaxLines:          DefaultMaxLines,
		MaxReferenceLines: DefaultMaxReferenceLines,
		KnownModels:       append([]string(nil), DefaultKnownModels...),
		PythonVersion:     DefaultPythonVersion,
	}
}

// Init resets Viper and installs search paths, env binding and defaults.
// Call it once at startup before Load.
func Init() {
	viper.Reset()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if dir := os.Getenv(EnvPrefix + "_CONFIG_DIR"); dir != "" {
		viper.AddConfigPath(dir)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(paths.ConfigDir())
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	def := Default()
	viper.SetDefault("version", def.Version)
	viper.SetDefault("skills_dir", def.SkillsDir)
	viper.SetDefault("max_lines", def.MaxLines)
	viper.SetDefault("max_reference_lines", def.MaxReferenceLines)
	viper.SetDefault("required_sections", []string{})
	viper.SetDefault("known_models", def.KnownModels)
	viper.SetDefault("strict", def.Strict)
	viper.SetDefault("python_version", def.PythonVersion)
	viper.SetDefault("include", []string{})
	viper.SetDefault("exclude", []string{})
}

// Load reads and validates the configuration.
// With an explicit path the file must exist. Without one, a missing file
// means defaults.
func Load(path string) (*Config, error) {
	if path != "" {
		viper.SetConfigFile(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			// defaults only
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			return nil, errors.Wrapf(errors.ErrNotFound, "config file not found at %s", path)
		default:
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}

	if errs := Validate(&cfg); len(errs) > 0 {
		return nil, errors.Wrap(joinErrors(errs), "validating config")
	}
	return &cfg, nil
}

// FileUsed returns the config file Viper read, or "" when defaults are in use.
func FileUsed() string {
	return viper.ConfigFileUsed()
}

// WritePath returns where `config set` writes: the file in use, or the
// default user config file.
func WritePath() string {
	if used := FileUsed(); used != "" {
		return used
	}
	return paths.ConfigFile()
}

// Save writes cfg to path atomically after validating it.
func Save(path string, cfg *Config) error {
	if errs := Validate(cfg); len(errs) > 0 {
		return errors.Wrap(joinErrors(errs), "validating config")
	}
	if err := paths.EnsureDir(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	return fileutil.AtomicWriteYAML(path, cfg, 0o644)
}

// Keys returns every settable configuration key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(accessors))
	for k := range accessors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the string form of key. List values are comma-joined.
func (c *Config) Get(key string) (string, error) {
	acc, ok := accessors[key]
	if !ok {
		return "", unknownKey(key)
	}
	return acc.get(c), nil
}

// Set parses value according to the type of key and stores it.
// List keys take a comma-separated value; an empty value clears the list.
func (c *Config) Set(key, value string) error {
	acc, ok := accessors[key]
	if !ok {
		return unknownKey(key)
	}
	if err := acc.set(c, value); err != nil {
		return errors.Wrapf(err, "setting %s", key)
	}
	return nil
}

type accessor struct {
	get func(*Config) string
	set func(*Config, string) error
}

var accessors = map[string]accessor{
	"version":             intAccessor(func(c *Config) *int { return &c.Version }),
	"skills_dir":          stringAccessor(func(c *Config) *string { return &c.SkillsDir }),
	"max_lines":           intAccessor(func(c *Config) *int { return &c.MaxLines }),
	"max_reference_lines": intAccessor(func(c *Config) *int { return &c.MaxReferenceLines }),
	"required_sections":   listAccessor(func(c *Config) *[]string { return &c.RequiredSections }),
	"known_models":        listAccessor(func(c *Config) *[]string { return &c.KnownModels }),
	"strict": {
		get: func(c *Config) string { return strconv.FormatBool(c.Strict) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Newf("%q is not a boolean", v)
			}
			c.Strict = b
			return nil
		},
	},
	"python_version": stringAccessor(func(c *Config) *string { return &c.PythonVersion }),
	"include":        listAccessor(func(c *Config) *[]string { return &c.Include }),
	"exclude":        listAccessor(func(c *Config) *[]string { return &c.Exclude }),
}

func intAccessor(field func(*Config) *int) accessor {
	return accessor{
		get: func(c *Config) string { return strconv.Itoa(*field(c)) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return errors.Newf("%q is not an integer", v)
			}
			*field(c) = n
			return nil
		},
	}
}

func stringAccessor(field func(*Config) *string) accessor {
	return accessor{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			*field(c) = v
			return nil
		},
	}
}

func listAccessor(field func(*Config) *[]string) accessor {
	return accessor{
		get: func(c *Config) string { return strings.Join(*field(c), ",") },
		set: func(c *Config, v string) error {
			var out []string
			for _, part := range strings.Split(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
			*field(c) = out
			return nil
		},
	}
}

func unknownKey(key string) error {
	return errors.NewUserError(
		errors.Newf("unknown config key %q", key),
		"Valid keys: "+strings.Join(Keys(), ", "),
	)
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return errors.Wrap(errors.ErrInvalidConfig, strings.Join(msgs, "; "))
}
