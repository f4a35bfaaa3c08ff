package scaffold

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/skillkit/internal/backup"
	"github.com/thoreinstein/skillkit/internal/errors"
	"github.com/thoreinstein/skillkit/internal/logging"
)

var skeleton = []string{
	".env",
	".env.example",
	".gitignore",
	"Dockerfile",
	"README.md",
	"app/__init__.py",
	"app/config.py",
	"app/database.py",
	"app/main.py",
	"app/models.py",
	"app/routers/__init__.py",
	"app/routers/tasks.py",
	"docker-compose.yml",
	"requirements.txt",
	"tests/__init__.py",
	"tests/conftest.py",
	"tests/test_main.py",
}

func testContext(t *testing.T) context.Context {
	return logging.NewContext(t.Context(), logging.ForTest(t))
}

// snapshot maps every file under dir to its content.
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		if d.IsDir() {
			out[filepath.ToSlash(rel)+"/"] = ""
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestTemplates(t *testing.T) {
	assert.Equal(t, skeleton, Templates())
}

func TestRender(t *testing.T) {
	data, err := NewData("todo-api", "3.12.1")
	require.NoError(t, err)
	assert.Equal(t, "3.12", data.PythonMinor)

	files, err := Render(data)
	require.NoError(t, err)
	require.Len(t, files, len(skeleton))

	byPath := map[string]File{}
	for _, f := range files {
		assert.NotEmpty(t, f.Content, f.Path)
		byPath[f.Path] = f
	}
	assert.Contains(t, string(byPath["Dockerfile"].Content), "FROM python:3.12.1-slim\n")
	assert.Contains(t, string(byPath["requirements.txt"].Content), "# Python 3.12.1")
	assert.Contains(t, string(byPath["README.md"].Content), "# todo-api\n")
	assert.Contains(t, string(byPath["README.md"].Content), "python3.12 -m venv")
	assert.Contains(t, string(byPath["app/main.py"].Content), `@app.get("/health")`)
	assert.Equal(t, fs.FileMode(0o600), byPath[".env"].Perm)
	assert.Equal(t, fs.FileMode(0o644), byPath[".env.example"].Perm)
}

func TestNewData_InvalidPython(t *testing.T) {
	for _, v := range []string{"3", "three", "3.11-rc1", "v3.11", ""} {
		_, err := NewData("api", v)
		assert.Error(t, err, v)
	}
}

func TestNewData_InvalidProjectName(t *testing.T) {
	for _, name := range []string{`my "api"`, "my api", "-api", ".hidden", "api\nAPP_NAME=x", "tasks$(id)", "naïve"} {
		_, err := NewData(name, "3.12")
		require.Error(t, err, name)
		assert.ErrorIs(t, err, ErrInvalidProjectName, name)
	}
	for _, name := range []string{"api", "todo-api", "Todo_API.v2", "001"} {
		_, err := NewData(name, "3.12")
		assert.NoError(t, err, name)
	}
}

func TestRun_RejectsUnsafeDirName(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my api")

	_, err := Run(testContext(t), Options{Dir: dir})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidProjectName)
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
	assert.NoDirExists(t, dir)

	res, err := Run(testContext(t), Options{Dir: dir, ProjectName: "my-api"})
	require.NoError(t, err)
	assert.Equal(t, "my-api", res.ProjectName)
}

func TestRun_CreatesSkeleton(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-api")

	res, err := Run(testContext(t), Options{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, "my-api", res.ProjectName)
	assert.Equal(t, DefaultPythonVersion, res.PythonVersion)
	assert.Equal(t, len(skeleton), res.Count(ActionCreated))

	for _, rel := range skeleton {
		assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(rel)))
	}
	info, err := os.Stat(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), info.Mode().Perm())
}

func TestRun_Idempotent(t *testing.T) {
	dir := t.TempDir()
	ctx := testContext(t)

	_, err := Run(ctx, Options{Dir: dir, PythonVersion: "3.12"})
	require.NoError(t, err)
	before := snapshot(t, dir)

	res, err := Run(ctx, Options{Dir: dir, PythonVersion: "3.12"})
	require.NoError(t, err)
	assert.Equal(t, len(skeleton), res.Count(ActionUnchanged))
	assert.Equal(t, before, snapshot(t, dir))
}

func TestRun_ConflictsWithoutForce(t *testing.T) {
	dir := t.TempDir()
	ctx := testContext(t)
	_, err := Run(ctx, Options{Dir: dir})
	require.NoError(t, err)

	dockerfile := filepath.Join(dir, "Dockerfile")
	require.NoError(t, os.WriteFile(dockerfile, []byte("FROM alpine\n"), 0o644))

	res, err := Run(ctx, Options{Dir: dir, PythonVersion: DefaultPythonVersion})
	require.ErrorIs(t, err, ErrConflict)
	assert.EqualError(t, err, "Dockerfile: existing files differ from the skeleton")
	require.NotNil(t, res)
	assert.Equal(t, []FileResult{{Path: "Dockerfile", Action: ActionConflict}}, res.Conflicts())
	assert.Empty(t, res.BackupID)

	got, err := os.ReadFile(dockerfile)
	require.NoError(t, err)
	assert.Equal(t, "FROM alpine\n", string(got))
}

func TestRun_ConflictLeavesFreshTargetUntouched(t *testing.T) {
	dir := t.TempDir()
	dockerfile := filepath.Join(dir, "Dockerfile")
	require.NoError(t, os.WriteFile(dockerfile, []byte("FROM alpine\n"), 0o644))
	before := snapshot(t, dir)

	res, err := Run(testContext(t), Options{Dir: dir})
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, len(skeleton)-1, res.Count(ActionCreated), "the plan is still reported")

	assert.Equal(t, before, snapshot(t, dir))
	assert.NoFileExists(t, filepath.Join(dir, "app", "main.py"))
	assert.NoDirExists(t, filepath.Join(dir, ".skillkit"))
}

func TestRun_ForceBacksUpAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	ctx := testContext(t)
	_, err := Run(ctx, Options{Dir: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM alpine\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATABASE_URL=postgres://prod\n"), 0o600))

	res, err := Run(ctx, Options{Dir: dir, Force: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.BackupID)

	actions := map[string]Action{}
	for _, f := range res.Files {
		actions[f.Path] = f.Action
	}
	assert.Equal(t, ActionUpdated, actions["Dockerfile"])
	assert.Equal(t, ActionSkipped, actions[".env"])

	env, err := os.ReadFile(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, "DATABASE_URL=postgres://prod\n", string(env))

	m, err := backup.NewManager(dir).Get(res.BackupID)
	require.NoError(t, err)
	require.Len(t, m.Files, 1)
	assert.Equal(t, "Dockerfile", m.Files[0].Path)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "planned")

	res, err := Run(testContext(t), Options{Dir: dir, DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, len(skeleton), res.Count(ActionCreated))
	assert.NoDirExists(t, dir)
}

func TestRun_TargetIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := Run(testContext(t), Options{Dir: file})
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
}

func TestRun_InvalidPythonVersion(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "api")
	_, err := Run(testContext(t), Options{Dir: dir, PythonVersion: "latest"})
	require.Error(t, err)
	assert.Equal(t, errors.ExitUser, errors.ExitCode(err))
	assert.NoDirExists(t, dir)
}

func TestRun_RollbackOnWriteFailure(t *testing.T) {
	orig := writeFile
	t.Cleanup(func() { writeFile = orig })

	parent := t.TempDir()
	dir := filepath.Join(parent, "api")

	writes := 0
	writeFile = func(path string, data []byte, perm os.FileMode) error {
		writes++
		if strings.HasSuffix(filepath.ToSlash(path), "app/routers/tasks.py") {
			return errors.New("disk full")
		}
		return orig(path, data, perm)
	}

	_, err := Run(testContext(t), Options{Dir: dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Greater(t, writes, 1)
	assert.NoDirExists(t, dir, "the run created the directory so rollback removes it")

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_RollbackRestoresOverwrittenFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := testContext(t)
	_, err := Run(ctx, Options{Dir: dir})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte("FROM alpine\n"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(dir, "tests", "test_main.py")))
	require.NoError(t, os.Remove(filepath.Join(dir, "tests", "conftest.py")))
	require.NoError(t, os.Remove(filepath.Join(dir, "tests", "__init__.py")))
	require.NoError(t, os.Remove(filepath.Join(dir, "tests")))
	before := snapshot(t, dir)

	orig := writeFile
	t.Cleanup(func() { writeFile = orig })
	writeFile = func(path string, data []byte, perm os.FileMode) error {
		if strings.HasSuffix(filepath.ToSlash(path), "tests/test_main.py") {
			return errors.New("disk full")
		}
		return orig(path, data, perm)
	}

	_, err = Run(ctx, Options{Dir: dir, Force: true})
	require.Error(t, err)

	after := snapshot(t, dir)
	for k := range after {
		if strings.HasPrefix(k, backup.StateDir+"/") {
			delete(after, k)
		}
	}
	assert.Equal(t, before, after)
}

func TestNextSteps(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	out := NextSteps(&Result{Dir: filepath.Join(wd, "svc"), ProjectName: "svc", PythonVersion: "3.11.9"})
	assert.Contains(t, out, "cd svc\n")
	assert.Contains(t, out, "python3.11 -m venv")
	assert.Contains(t, out, "docker compose up --build")

	out = NextSteps(&Result{Dir: wd, ProjectName: "x", PythonVersion: "3.11"})
	assert.NotContains(t, out, "cd ")
}

func TestNextSteps_QuotesDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	out := NextSteps(&Result{Dir: filepath.Join(wd, "my api"), ProjectName: "api", PythonVersion: "3.12"})
	assert.Contains(t, out, "  cd 'my api'\n")

	out = NextSteps(&Result{Dir: filepath.Join(wd, "it's; rm -rf ~"), ProjectName: "api", PythonVersion: "3.12"})
	assert.Contains(t, out, `  cd 'it'\''s; rm -rf ~'`+"\n")
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"svc":         "svc",
		"../todo-api": "../todo-api",
		"my api":      "'my api'",
		"$(whoami)":   "'$(whoami)'",
		"it's":        `'it'\''s'`,
		"a\"b":        `'a"b'`,
	}
	for in, want := range tests {
		assert.Equal(t, want, shellQuote(in), in)
	}
}
