package skill

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/skill/parser"
)

func resetInitFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		initName, initDescription, initLicense, initVersion = "", "", "", ""
		initAuthor, initModel, initAllowedTools, initDirs = "", "", "", ""
		initForce = false
	}
	reset()
	t.Cleanup(reset)
}

func TestInitCommand_NonInteractive(t *testing.T) {
	resetInitFlags(t)
	isolate(t)
	initName = "fastapi-testing"
	initDescription = "Test FastAPI apps with pytest. Use when writing API tests."
	initAllowedTools = "Read, Write Bash(pytest:*)"
	initVersion = "0.1.0"
	initAuthor = "qa"
	initDirs = "references,scripts"

	dir := filepath.Join(t.TempDir(), "fastapi-testing")
	out, err := runCommand(t, initCmd, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "created at")

	s, err := parser.New().ParseFile(filepath.Join(dir, "SKILL.md"))
	require.NoError(t, err)
	assert.Equal(t, "fastapi-testing", s.Name)
	assert.Equal(t, []string{"Read", "Write", "Bash(pytest:*)"}, []string(s.AllowedTools))
	assert.Equal(t, "0.1.0", s.Version())
	assert.Equal(t, "qa", s.Metadata["author"])
	assert.Contains(t, s.Instructions, "# Fastapi Testing")

	assert.FileExists(t, filepath.Join(dir, "references", ".keep"))
	assert.FileExists(t, filepath.Join(dir, "scripts", ".keep"))
	assert.NoDirExists(t, filepath.Join(dir, "assets"))

	v, err := newValidator(false).ValidateFile(dir)
	require.NoError(t, err)
	assert.False(t, v.HasErrors(), "%v", v.Errors())
}

func TestInitCommand_PromptsUseDefaults(t *testing.T) {
	resetInitFlags(t)
	isolate(t)

	dir := filepath.Join(t.TempDir(), "My Skill!")
	out, err := runCommand(t, initCmd, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Skill Name [my-skill]")
	assert.Contains(t, out, "differs from skill name")

	s, err := parser.New().ParseFile(filepath.Join(dir, "SKILL.md"))
	require.NoError(t, err)
	assert.Equal(t, "my-skill", s.Name)
	assert.Equal(t, "MIT", s.License)
}

func TestInitCommand_RefusesOverwrite(t *testing.T) {
	resetInitFlags(t)
	isolate(t)
	initName = "fastapi"
	initDirs = "references"
	dir := writeSkill(t, t.TempDir(), "fastapi", "keep me\n")

	_, err := runCommand(t, initCmd, dir)
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))

	data, err := os.ReadFile(filepath.Join(dir, "SKILL.md"))
	require.NoError(t, err)
	assert.Equal(t, "keep me\n", string(data))

	initForce = true
	_, err = runCommand(t, initCmd, dir)
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(dir, "SKILL.md"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "---\nname: fastapi\n"))
}

func TestInitCommand_InvalidInputs(t *testing.T) {
	resetInitFlags(t)
	isolate(t)

	initName = "Bad_Name"
	_, err := runCommand(t, initCmd, filepath.Join(t.TempDir(), "x"))
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))

	initName = "ok"
	initDirs = "docs"
	_, err = runCommand(t, initCmd, filepath.Join(t.TempDir(), "ok"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown directory "docs"`)
}

func TestSanitizeDefaultName(t *testing.T) {
	tests := map[string]string{
		"My Skill!":     "my-skill",
		"fastapi":       "fastapi",
		"--":            "new-skill",
		"Data  Science": "data-science",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeDefaultName(in), in)
	}
}

func TestValidateName(t *testing.T) {
	assert.ErrorIs(t, validateName(""), errors.ErrMissingName)
	assert.Error(t, validateName(strings.Repeat("a", maxNameLength+1)))
	assert.Error(t, validateName("double--hyphen"))
	assert.NoError(t, validateName("fastapi-2"))
}

func TestAskLine(t *testing.T) {
	var out bytes.Buffer
	sc := bufio.NewScanner(strings.NewReader("pytest-testing\n\n"))

	assert.Equal(t, "pytest-testing", askLine(&out, sc, "Skill Name", "new-skill"))
	assert.Equal(t, "MIT", askLine(&out, sc, "License", "MIT"), "empty answer keeps the default")
	assert.Equal(t, "", askLine(&out, sc, "Author", ""), "EOF keeps the default")
	assert.Equal(t, "Skill Name [new-skill]: License [MIT]: Author: \n", out.String())
}

func TestAskBool(t *testing.T) {
	tests := []struct {
		input string
		def   bool
		want  bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"", false, false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got := askBool(&out, bufio.NewScanner(strings.NewReader(tt.input)), "Create 'scripts' directory?", tt.def)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Contains(t, out.String(), "Create 'scripts' directory? [")
	}
}
