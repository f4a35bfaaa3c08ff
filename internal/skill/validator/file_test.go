package validator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/skillkit/internal/validator"
)

// writeSkill creates <root>/<name>/SKILL.md plus extra files relative to the
// skill directory and returns the skill directory.
func writeSkill(t *testing.T, name, content string, extra map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644))
	for rel, body := range extra {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return dir
}

const pytestSkill = `---
name: pytest-testing
description: Write pytest suites with fixtures, parametrisation and coverage
allowed-tools: Read Write Bash(pytest:*)
metadata:
  version: 1.0.0
---
# Pytest Testing

Start with [fixtures](references/fixtures.md) and run
[the generator](scripts/fixture_generator.py).
`

func TestValidateFile_Valid(t *testing.T) {
	dir := writeSkill(t, "pytest-testing", pytestSkill, map[string]string{
		"references/fixtures.md":        "# Fixtures\n",
		"scripts/fixture_generator.py": "print('hi')\n",
	})

	result, err := New(WithStrict(true)).ValidateFile(dir)
	require.NoError(t, err)
	assert.Empty(t, result.Issues)
	assert.Equal(t, filepath.Join(dir, "SKILL.md"), result.Path)
}

func TestValidateFile_Problems(t *testing.T) {
	tests := []struct {
		name    string
		dirName string
		content string
		extra   map[string]string
		opts    []Option
		field   string
		sev     validator.Severity
		line    int
		wantMsg string
	}{
		{
			name:    "missing frontmatter",
			dirName: "x",
			content: "# no frontmatter\n",
			field:   "frontmatter",
			sev:     validator.SeverityError,
			line:    1,
			wantMsg: "must start with YAML frontmatter",
		},
		{
			name:    "unclosed frontmatter",
			dirName: "x",
			content: "---\nname: x\n",
			field:   "frontmatter",
			sev:     validator.SeverityError,
			wantMsg: "closing ---",
		},
		{
			name:    "bad yaml reports line",
			dirName: "x",
			content: "---\nname: x\ndescription: [unterminated\n---\nbody\n",
			field:   "frontmatter",
			sev:     validator.SeverityError,
			wantMsg: "invalid YAML",
		},
		{
			name:    "schema required",
			dirName: "x",
			content: "---\nname: x\n---\nbody\n",
			field:   "description",
			sev:     validator.SeverityError,
			wantMsg: "is required",
		},
		{
			name:    "schema type",
			dirName: "x",
			content: "---\nname: x\ndescription: " + okDescription + "\nmetadata:\n  tags: [a, b]\n---\nbody\n",
			field:   "metadata",
			sev:     validator.SeverityError,
			line:    4,
		},
		{
			name:    "allowed-tools wrong shape",
			dirName: "x",
			content: "---\nname: x\ndescription: " + okDescription + "\nallowed-tools:\n  read: true\n---\nbody\n",
			field:   "allowed-tools",
			sev:     validator.SeverityError,
			line:    4,
			wantMsg: "string or a list of strings",
		},
		{
			name:    "name length from schema",
			dirName: strings.Repeat("n", 65),
			content: "---\nname: " + strings.Repeat("n", 65) + "\ndescription: " + okDescription + "\n---\nbody\n",
			field:   "name",
			sev:     validator.SeverityError,
			line:    2,
		},
		{
			name:    "directory mismatch",
			dirName: "other",
			content: "---\nname: pytest\ndescription: " + okDescription + "\n---\nbody\n",
			field:   "name",
			sev:     validator.SeverityError,
			line:    2,
			wantMsg: "match directory name other",
		},
		{
			name:    "broken link",
			dirName: "x",
			content: "---\nname: x\ndescription: " + okDescription + "\n---\n\nSee [api](references/api.md).\n",
			field:   "links",
			sev:     validator.SeverityError,
			line:    6,
			wantMsg: "does not exist",
		},
		{
			name:    "escaping link",
			dirName: "x",
			content: "---\nname: x\ndescription: " + okDescription + "\n---\nSee [other](../other/SKILL.md).\n",
			field:   "links",
			sev:     validator.SeverityError,
			line:    5,
			wantMsg: "outside the skill directory",
		},
		{
			name:    "oversized reference",
			dirName: "x",
			content: "---\nname: x\ndescription: " + okDescription + "\n---\nbody\n",
			extra:   map[string]string{"references/big.md": strings.Repeat("line\n", 11)},
			opts:    []Option{WithMaxReferenceLines(10)},
			field:   "references",
			sev:     validator.SeverityWarning,
			wantMsg: "11 lines",
		},
		{
			name:    "unknown key is info",
			dirName: "x",
			content: "---\nname: x\ndescription: " + okDescription + "\ncolour: blue\n---\nbody\n",
			field:   "colour",
			sev:     validator.SeverityInfo,
			line:    4,
			wantMsg: "unrecognised",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeSkill(t, tt.dirName, tt.content, tt.extra)

			result, err := New(tt.opts...).ValidateFile(filepath.Join(dir, "SKILL.md"))
			require.NoError(t, err)

			issue := issueFor(result, tt.sev, tt.field)
			require.NotNil(t, issue, "issues: %v", result.Issues)
			if tt.wantMsg != "" {
				assert.Contains(t, issue.Message, tt.wantMsg)
			}
			if tt.line != 0 {
				assert.Equal(t, tt.line, issue.Line)
			}
		})
	}
}

func TestValidateFile_SymlinkedLinkOutside(t *testing.T) {
	dir := writeSkill(t, "pytest-testing", pytestSkill, map[string]string{
		"scripts/fixture_generator.py": "print('hi')\n",
	})
	secret := filepath.Join(t.TempDir(), "credentials.md")
	require.NoError(t, os.WriteFile(secret, []byte("token\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "references"), 0o755))
	require.NoError(t, os.Symlink(secret, filepath.Join(dir, "references", "fixtures.md")))

	result, err := New().ValidateFile(dir)
	require.NoError(t, err)
	require.Len(t, result.Errors(), 1)
	issue := result.Errors()[0]
	assert.Equal(t, "links", issue.Field)
	assert.Equal(t, "link points outside the skill directory", issue.Message)
	assert.Equal(t, "references/fixtures.md", issue.Value)
}

func TestValidateFile_SymlinkedLinkInside(t *testing.T) {
	dir := writeSkill(t, "pytest-testing", pytestSkill, map[string]string{
		"scripts/fixture_generator.py": "print('hi')\n",
		"docs/fixtures.md":             "# Fixtures\n",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "references"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join("..", "docs", "fixtures.md"), filepath.Join(dir, "references", "fixtures.md")))

	result, err := New().ValidateFile(dir)
	require.NoError(t, err)
	assert.Empty(t, result.Errors())
}

func TestValidateFile_SchemaSuppressesDuplicates(t *testing.T) {
	dir := writeSkill(t, "x", "---\nname: x\n---\nbody\n", nil)

	result, err := New().ValidateFile(dir)
	require.NoError(t, err)

	count := 0
	for _, i := range result.Errors() {
		if i.Field == "description" {
			count++
		}
	}
	assert.Equal(t, 1, count, "issues: %v", result.Issues)
}

func TestValidateFile_Missing(t *testing.T) {
	result, err := New().ValidateFile(t.TempDir())
	require.NoError(t, err)
	require.True(t, result.HasErrors())
	assert.Equal(t, "SKILL.md not found", result.Errors()[0].Message)
}

func TestValidateFile_ErrorsSortFirst(t *testing.T) {
	dir := writeSkill(t, "x", "---\nname: x\ndescription: short\n---\nSee [a](missing.md)\n", nil)

	result, err := New().ValidateFile(dir)
	require.NoError(t, err)
	require.NotEmpty(t, result.Issues)
	assert.Equal(t, validator.SeverityError, result.Issues[0].Severity)
	assert.Equal(t, validator.SeverityWarning, result.Issues[len(result.Issues)-1].Severity)
}

func TestSchemaJSON(t *testing.T) {
	assert.Contains(t, string(SchemaJSON()), `"required": ["name", "description"]`)
	_, err := loadSchema()
	require.NoError(t, err)
}
