package fixture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlDefs = `fixtures:
  - type: scoped
    name: engine
    scope: session
  - type: parametrized
    name: backend
    params: [sqlite, postgres]
  - type: factory
    name: user
`

const tomlDefs = `[[fixtures]]
type = "scoped"
name = "engine"
scope = "session"

[[fixtures]]
type = "parametrized"
name = "backend"
params = ["sqlite", "postgres"]

[[fixtures]]
type = "factory"
name = "user"
`

func TestLoadDefinitions(t *testing.T) {
	want := []Spec{
		{Kind: KindScoped, Name: "engine", Scope: "session"},
		{Kind: KindParametrized, Name: "backend", Params: []string{"sqlite", "postgres"}},
		{Kind: KindFactory, Name: "user"},
	}

	for name, content := range map[string]string{"fixtures.yaml": yamlDefs, "fixtures.yml": yamlDefs, "fixtures.toml": tomlDefs} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			got, err := LoadDefinitions(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadDefinitions_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	_, err := LoadDefinitions(write("fixtures.json", "{}"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = LoadDefinitions(write("empty.yaml", ""))
	assert.ErrorIs(t, err, ErrNoFixtures)

	_, err = LoadDefinitions(write("typo.yaml", "fixtures:\n  - type: scoped\n    name: db\n    scpoe: session\n"))
	assert.ErrorContains(t, err, "parsing YAML")

	_, err = LoadDefinitions(write("typo.toml", "[[fixtures]]\ntype = \"data\"\nname = \"x\"\nextra = 1\n"))
	assert.ErrorContains(t, err, "parsing TOML")

	_, err = LoadDefinitions(write("bad.yaml", "fixtures:\n  - type: data\n    name: not-valid\n"))
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.ErrorContains(t, err, "fixture 1")

	_, err = LoadDefinitions(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
