package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/skillkit/internal/doctor"
	"github.com/thoreinstein/skillkit/internal/errors"
)

// doctorSandbox returns an isolated project directory with a valid config.
func doctorSandbox(t *testing.T) string {
	t.Helper()
	cfgDir := sandbox(t)
	writeConfig(t, cfgDir, "version: 1\n")
	return t.TempDir()
}

func TestDoctor_Clean(t *testing.T) {
	project := doctorSandbox(t)

	out, err := execute(t, "doctor", "--dir", project)
	require.NoError(t, err)
	assert.Contains(t, out, "Summary: ")
	assert.Contains(t, out, "0 warnings, 0 errors")
	assert.NotContains(t, out, "✗")
}

func TestDoctor_AllShowsPassedChecks(t *testing.T) {
	project := doctorSandbox(t)

	out, err := execute(t, "doctor", "--dir", project, "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "[config] config: config file is valid")
	assert.Contains(t, out, "[filesystem] env-files: no .env files")
	assert.Contains(t, out, "skills-dir")
	assert.Contains(t, out, "tools")
}

func TestDoctor_JSON(t *testing.T) {
	project := doctorSandbox(t)

	out, err := execute(t, "doctor", "--dir", project, "--json")
	require.NoError(t, err)

	var report doctor.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Results, 4)

	names := make([]string, 0, len(report.Results))
	for _, r := range report.Results {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"config", "skills-dir", "tools", "env-files"}, names)
	assert.Equal(t, 0, report.Summary.Errors)
}

func TestDoctor_JSONAndAllConflict(t *testing.T) {
	project := doctorSandbox(t)

	_, err := execute(t, "doctor", "--dir", project, "--json", "--all")
	require.Error(t, err)
}

func TestDoctor_QuietPrintsNothing(t *testing.T) {
	project := doctorSandbox(t)

	out, err := execute(t, "-q", "doctor", "--dir", project)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDoctor_SkillsFound(t *testing.T) {
	cfgDir := sandbox(t)
	root := t.TempDir()
	writeConfig(t, cfgDir, "version: 1\nskills_dir: "+root+"\n")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "fastapi"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "fastapi", "SKILL.md"), []byte("---\nname: fastapi\n---\n"), 0o644))

	out, err := execute(t, "doctor", "--dir", t.TempDir(), "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "1 skill(s) in 1 directory")
}

func TestDoctor_EnvPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not checked on windows")
	}
	project := doctorSandbox(t)
	env := filepath.Join(project, ".env")
	require.NoError(t, os.WriteFile(env, []byte("SECRET_KEY=hunter2hunter2\nDEBUG=true\n"), 0o600))
	require.NoError(t, os.Chmod(env, 0o644))

	out, err := execute(t, "doctor", "--dir", project)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidationFailed))
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
	assert.Contains(t, out, "env-files")
	assert.Contains(t, out, "hint: chmod 600 "+env)
	assert.NotContains(t, out, "hunter2hunter2")

	out, err = execute(t, "doctor", "--dir", project, "--fix")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+env)

	info, err := os.Stat(env)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestDoctor_BrokenConfigStillRuns(t *testing.T) {
	cfgDir := sandbox(t)
	writeConfig(t, cfgDir, "max_lines: [\n")

	out, err := execute(t, "doctor", "--dir", t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidationFailed))
	assert.Equal(t, errors.ExitSystem, errors.ExitCode(err))
	assert.Contains(t, out, "[config] config:")
	assert.Contains(t, out, "1 errors")
}

func TestDoctor_InvalidConfigValue(t *testing.T) {
	cfgDir := sandbox(t)
	writeConfig(t, cfgDir, "version: 1\nmax_lines: 0\n")

	out, err := execute(t, "doctor", "--dir", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.ExitSystem, errors.ExitCode(err))
	assert.Contains(t, out, "invalid config value(s)")
}
