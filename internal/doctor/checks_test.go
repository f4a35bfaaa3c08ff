package doctor

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string, perm os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
}

func TestConfigCheck(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    Severity
		message string
	}{
		{"valid yaml", "config.yaml", "version: 1\nmax_lines: 400\nrequired_sections: [Overview]\n", SeverityPass, "config file is valid"},
		{"valid toml", "config.toml", "version = 1\nstrict = true\n", SeverityPass, "config file is valid"},
		{"valid json", "config.json", `{"version": 1, "python_version": "3.12"}`, SeverityPass, "config file is valid"},
		{"yaml syntax", "config.yaml", "max_lines: [400\n", SeverityError, "YAML"},
		{"json syntax", "config.json", "{\n  \"version\": 1,\n}", SeverityError, "JSON syntax error at line 3"},
		{"toml syntax", "config.toml", "version = \n", SeverityError, "TOML syntax error at line"},
		{"wrong type", "config.yaml", "max_lines: lots\n", SeverityError, "YAML type error"},
		{"invalid values", "config.yaml", "max_lines: 0\npython_version: three\n", SeverityError, "2 invalid config value(s)"},
		{"unknown key", "config.yaml", "version: 1\nmax_line: 10\n", SeverityWarning, "unknown config keys: max_line"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			writeFile(t, path, tt.content, 0o644)

			res := NewConfigCheck(path).Run()
			assert.Equal(t, tt.want, res.Status, res.Message)
			assert.Contains(t, res.Message, tt.message)
			assert.Equal(t, "config", res.Category)
		})
	}
}

func TestConfigCheck_Missing(t *testing.T) {
	res := NewConfigCheck(filepath.Join(t.TempDir(), "config.yaml")).Run()
	assert.Equal(t, SeverityInfo, res.Status)
	assert.Contains(t, res.Message, "using defaults")
}

func TestSkillsDirCheck(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "fastapi", "SKILL.md"), "---\nname: fastapi\n---\n", 0o644)
	writeFile(t, filepath.Join(root, "testing", "pytest", "SKILL.md"), "---\nname: pytest\n---\n", 0o644)
	writeFile(t, filepath.Join(root, ".hidden", "SKILL.md"), "x", 0o644)
	writeFile(t, filepath.Join(root, "notes", "README.md"), "x", 0o644)

	res := NewSkillsDirCheck(root, filepath.Join(root, "absent")).Run()
	assert.Equal(t, SeverityPass, res.Status)
	assert.Equal(t, "2 skill(s) in 1 directory", res.Message)
	assert.Equal(t, map[string]int{root: 2}, res.Details["roots"])
}

func TestSkillsDirCheck_NoRoots(t *testing.T) {
	res := NewSkillsDirCheck(filepath.Join(t.TempDir(), "absent")).Run()
	assert.Equal(t, SeverityInfo, res.Status)
	assert.NotEmpty(t, res.FixHint)

	res = NewSkillsDirCheck().Run()
	assert.Equal(t, SeverityInfo, res.Status)
}

func TestSkillsDirCheck_EmptyAndNotDir(t *testing.T) {
	empty := t.TempDir()
	res := NewSkillsDirCheck(empty).Run()
	assert.Equal(t, SeverityWarning, res.Status)

	file := filepath.Join(t.TempDir(), "skills")
	writeFile(t, file, "x", 0o644)
	res = NewSkillsDirCheck(file).Run()
	assert.Equal(t, SeverityError, res.Status)
	assert.Contains(t, res.Message, "is not a directory")
}

func TestToolCheck(t *testing.T) {
	c := NewToolCheck("python3", "docker")
	c.lookPath = func(name string) (string, error) {
		if name == "python3" {
			return "/usr/bin/python3", nil
		}
		return "", exec.ErrNotFound
	}

	res := c.Run()
	assert.Equal(t, SeverityInfo, res.Status)
	assert.Equal(t, "not on PATH: docker", res.Message)
	assert.Equal(t, map[string]string{"python3": "/usr/bin/python3"}, res.Details["found"])

	c.lookPath = func(name string) (string, error) { return "/bin/" + name, nil }
	assert.Equal(t, SeverityPass, c.Run().Status)

	assert.Equal(t, DefaultTools, NewToolCheck().tools)
}

func TestEnvFileCheck(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "# local\nexport SECRET_KEY=\"changeme-now\"\nDATABASE_URL=postgres://app:hunter2@db/app\nDEBUG=true\n", 0o644)
	writeFile(t, filepath.Join(dir, ".env.example"), "SECRET_KEY=\n", 0o644)
	writeFile(t, filepath.Join(dir, ".env.test"), "DEBUG=false\n", 0o600)

	c := NewEnvFileCheck(dir)
	res := c.Run()

	assert.Equal(t, SeverityWarning, res.Status)
	assert.True(t, res.Fixable)
	assert.Contains(t, res.FixHint, "chmod 600 "+filepath.Join(dir, ".env"))

	files, ok := res.Details["files"].(map[string]map[string]string)
	require.True(t, ok)
	require.Contains(t, files, ".env")
	assert.NotContains(t, files, ".env.example")
	assert.Equal(t, "****-now", files[".env"]["SECRET_KEY"])
	assert.Equal(t, "postgres://app:%2A%2A%2A%2Ater2@db/app", files[".env"]["DATABASE_URL"])
	assert.Equal(t, "true", files[".env"]["DEBUG"])

	fixes := NewRunner(c).Fix()
	require.Len(t, fixes, 1)
	assert.True(t, fixes[0].Fixed)

	res = c.Run()
	assert.Equal(t, SeverityPass, res.Status)
	assert.False(t, c.CanFix())
}

func TestEnvFileCheck_GroupWritable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "DEBUG=true\n", 0o620)

	res := NewEnvFileCheck(dir).Run()
	assert.Equal(t, SeverityWarning, res.Status)

	issues, ok := res.Details["issues"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, issues, 1)
	assert.Equal(t, "accessible by group or other users (mode 0620)", issues[0]["problem"])
	assert.Equal(t, "0620", issues[0]["permissions"])
}

func TestEnvFileCheck_NoFiles(t *testing.T) {
	res := NewEnvFileCheck(t.TempDir()).Run()
	assert.Equal(t, SeverityPass, res.Status)
	assert.Equal(t, "no .env files", res.Message)

	res = NewEnvFileCheck(filepath.Join(t.TempDir(), "missing")).Run()
	assert.Equal(t, SeverityError, res.Status)
}

func TestOffsetToLineCol(t *testing.T) {
	data := []byte("ab\ncd\n")
	tests := []struct {
		offset, line, col int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 2, 1},
		{100, 3, 1},
		{-5, 1, 1},
	}
	for _, tt := range tests {
		line, col := offsetToLineCol(data, tt.offset)
		assert.Equal(t, tt.line, line, "offset %d", tt.offset)
		assert.Equal(t, tt.col, col, "offset %d", tt.offset)
	}
}
