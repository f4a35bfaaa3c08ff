package skill

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/skillkit/cmd/skillkit/commands/flags"
	"github.com/thoreinstein/skillkit/internal/logging"
)

func validSkill(name string) string {
	return `---
name: ` + name + `
description: Build FastAPI services with SQLModel persistence. Use when creating REST APIs.
allowed-tools: Read Write Bash(pytest:*)
license: MIT
metadata:
  version: 1.2.0
  author: platform-team
---
# FastAPI

## Instructions

Create routers under app/routers and cover them with pytest.
`
}

// writeSkill writes a SKILL.md under root/name and returns the directory.
func writeSkill(t *testing.T, root, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644))
	return dir
}

// runCommand invokes cmd's RunE with captured output and a test logger.
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetContext(logging.NewContext(t.Context(), logging.ForTest(t)))
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
		cmd.SetIn(nil)
	})
	err := cmd.RunE(cmd, args)
	return buf.String(), err
}

// isolate points the default skill roots at an empty home directory and
// resets the loaded configuration.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	flags.SetConfig(nil)
	t.Cleanup(func() { flags.SetConfig(nil) })
	return home
}
