package skill

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/skillkit/internal/skill/toolperm"
)

// Skill is a parsed SKILL.md.
type Skill struct {
	// Name is the skill identifier. It must match the directory name.
	Name string `yaml:"name" json:"name"`

	// Description tells an agent when to load the skill.
	Description string `yaml:"description" json:"description"`

	// AllowedTools lists the tool permissions the skill expects.
	AllowedTools ToolList `yaml:"allowed-tools,omitempty" json:"allowed-tools,omitempty"`

	// Model is an optional model alias such as "sonnet" or "inherit".
	Model string `yaml:"model,omitempty" json:"model,omitempty"`

	// License is an SPDX identifier or a short license note.
	License string `yaml:"license,omitempty" json:"license,omitempty"`

	// Compatibility lists the assistants the skill was written for.
	Compatibility []string `yaml:"compatibility,omitempty" json:"compatibility,omitempty"`

	// Metadata holds free-form keys such as author and version.
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`

	// Instructions is the Markdown body with surrounding whitespace trimmed.
	Instructions string `yaml:"-" json:"-"`

	// Body is the untrimmed body exactly as it follows the frontmatter.
	Body string `yaml:"-" json:"-"`

	// Path is the SKILL.md file the skill was read from, when known.
	Path string `yaml:"-" json:"path,omitempty"`

	// Lines is the total line count of the source file.
	Lines int `yaml:"-" json:"lines,omitempty"`

	// BodyLine is the 1-based line on which the body starts.
	BodyLine int `yaml:"-" json:"-"`
}

// Dir returns the directory holding the skill file, or "" without a path.
func (s *Skill) Dir() string {
	if s.Path == "" {
		return ""
	}
	return filepath.Dir(s.Path)
}

// Version returns metadata.version, or "".
func (s *Skill) Version() string {
	return s.Metadata["version"]
}

// ToolList is the allowed-tools value. In YAML it may be a list or a single
// string of tokens separated by spaces or commas.
type ToolList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *ToolList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := value.Decode(&items); err != nil {
			return errors.Wrap(err, "allowed-tools list")
		}
		out := make(ToolList, 0, len(items))
		for _, item := range items {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*t = out
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" && value.Tag != "!!null" {
			return errors.Newf("allowed-tools must be a string or list of strings, got %s", value.Tag)
		}
		tokens := toolperm.Split(value.Value)
		if len(tokens) == 0 {
			*t = nil
			return nil
		}
		*t = tokens
		return nil
	default:
		return errors.Newf("allowed-tools must be a string or list of strings, got %s", value.Tag)
	}
}

// MarshalYAML renders the list as a single space-separated string.
func (t ToolList) MarshalYAML() (any, error) {
	if len(t) == 0 {
		return nil, nil
	}
	return t.String(), nil
}

// String returns the space-delimited form.
func (t ToolList) String() string {
	return strings.Join(t, " ")
}
