package config

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/thoreinstein/skillkit/internal/errors"
)

// Validation errors for configuration fields.
var (
	ErrUnsupportedVersion = errors.New("unsupported config version")
	ErrNonPositive        = errors.New("must be greater than zero")
	ErrInvalidPath        = errors.New("invalid path")
	ErrInvalidPython      = errors.New("invalid python version")
	ErrInvalidPattern     = errors.New("invalid glob pattern")
	ErrInvalidModel       = errors.New("invalid model alias")
)

var (
	pythonVersionRe = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)
	modelAliasRe    = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]*$`)
)

// Validate checks cfg and returns every problem found, or nil.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{errors.New("config is nil")}
	}

	var errs []error

	if cfg.Version != DefaultVersion {
		errs = append(errs, &FieldError{Field: "version", Value: strconv.Itoa(cfg.Version), Err: ErrUnsupportedVersion})
	}
	if cfg.MaxLines <= 0 {
		errs = append(errs, &FieldError{Field: "max_lines", Value: strconv.Itoa(cfg.MaxLines), Err: ErrNonPositive})
	}
	if cfg.MaxReferenceLines <= 0 {
		errs = append(errs, &FieldError{Field: "max_reference_lines", Value: strconv.Itoa(cfg.MaxReferenceLines), Err: ErrNonPositive})
	}
	if err := validatePath(cfg.SkillsDir); err != nil {
		errs = append(errs, &FieldError{Field: "skills_dir", Value: cfg.SkillsDir, Err: err})
	}
	if err := ValidatePythonVersion(cfg.PythonVersion); err != nil {
		errs = append(errs, &FieldError{Field: "python_version", Value: cfg.PythonVersion, Err: err})
	}
	for _, m := range cfg.KnownModels {
		if !modelAliasRe.MatchString(m) {
			errs = append(errs, &FieldError{Field: "known_models", Value: m, Err: ErrInvalidModel})
		}
	}
	for _, p := range cfg.Include {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, &FieldError{Field: "include", Value: p, Err: ErrInvalidPattern})
		}
	}
	for _, p := range cfg.Exclude {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, &FieldError{Field: "exclude", Value: p, Err: ErrInvalidPattern})
		}
	}

	return errs
}

// ValidatePythonVersion accepts major.minor or major.minor.patch.
func ValidatePythonVersion(v string) error {
	if !pythonVersionRe.MatchString(v) {
		return ErrInvalidPython
	}
	if _, err := semver.NewVersion(v); err != nil {
		return errors.Wrap(ErrInvalidPython, err.Error())
	}
	return nil
}

// validatePath is syntactic only. An empty path means the default.
func validatePath(path string) error {
	if path == "" {
		return nil
	}
	if strings.ContainsRune(path, '\x00') {
		return ErrInvalidPath
	}
	return nil
}

// FieldError reports a problem with one configuration field.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error() + ": " + e.Value
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Is lets every field error match errors.ErrInvalidConfig.
func (e *FieldError) Is(target error) bool {
	return target == errors.ErrInvalidConfig
}
