package commands

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/thoreinstein/skillkit/cmd/skillkit/commands/flags"
)

// execute runs the root command with args and returns what it wrote to
// stdout. Configuration is read from a private directory; write a
// config.yaml there with writeConfig before calling execute.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	resetFlags(rootCmd)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)

	orig := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(orig)
		resetFlags(rootCmd)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		flags.SetConfig(nil)
	})

	err := rootCmd.ExecuteContext(t.Context())
	if stderr.Len() > 0 {
		t.Logf("stderr: %s", stderr.String())
	}
	return stdout.String(), err
}

// sandbox isolates HOME, the working directory and the config directory.
// It returns the config directory.
func sandbox(t *testing.T) string {
	t.Helper()
	cfgDir := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SKILLKIT_CONFIG_DIR", cfgDir)
	t.Setenv("SKILLKIT_DEBUG", "")
	t.Chdir(t.TempDir())
	return cfgDir
}

// writeConfig writes config.yaml into dir and returns its path.
func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// resetFlags restores every flag under c to its default. Flag variables are
// package level and survive between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}
