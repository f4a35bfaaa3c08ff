package fixture

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/pkg/fileutil"
)

// Format is a definitions file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Definitions is the top level of a definitions file:
//
//	fixtures:
//	  - type: factory
//	    name: user
//	  - type: scoped
//	    name: engine
//	    scope: session
type Definitions struct {
	Fixtures []Spec `yaml:"fixtures" toml:"fixtures"`
}

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errors.Wrapf(ErrUnknownFormat, "%s (use .yaml, .yml or .toml)", filepath.Base(path))
	}
}

// LoadDefinitions reads and validates a definitions file.
func LoadDefinitions(path string) ([]Spec, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := fileutil.ReadFileWithLimit(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	specs, err := DecodeDefinitions(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return specs, nil
}

// DecodeDefinitions parses data and validates every spec. Unknown keys are
// rejected so that typos like "scpoe" do not silently fall back to defaults.
func DecodeDefinitions(data []byte, format Format) ([]Spec, error) {
	var defs Definitions
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&defs); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "parsing YAML")
		}
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&defs); err != nil {
			return nil, errors.Wrap(err, "parsing TOML")
		}
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}

	if len(defs.Fixtures) == 0 {
		return nil, ErrNoFixtures
	}
	for i, s := range defs.Fixtures {
		n, err := s.Normalize()
		if err != nil {
			return nil, errors.Wrapf(err, "fixture %d", i+1)
		}
		defs.Fixtures[i] = n
	}
	return defs.Fixtures, nil
}
