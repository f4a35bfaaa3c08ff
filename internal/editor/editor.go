// Package editor launches the user's preferred text editor.
package editor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrNoEditor indicates that no editor could be found.
var ErrNoEditor = errors.New("no editor found")

// Editor runs an editor command on a file.
type Editor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	getenv   func(string) string
	lookPath func(string) (string, error)
}

// New returns an Editor attached to the process's standard streams.
func New() *Editor {
	return &Editor{
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
	}
}

// Open opens path with the default Editor.
func Open(ctx context.Context, path string) error {
	return New().Open(ctx, path)
}

// Open runs the editor on path and waits for it to exit.
func (e *Editor) Open(ctx context.Context, path string) error {
	argv, err := e.command()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "running editor %s", argv[0])
	}
	return nil
}

// command resolves the editor: $VISUAL, then $EDITOR, then nano, then vi.
// Variables may carry arguments, as in EDITOR="code --wait".
func (e *Editor) command() ([]string, error) {
	for _, key := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(e.getenv(key)); len(fields) > 0 {
			return fields, nil
		}
	}
	for _, fallback := range []string{"nano", "vi"} {
		if _, err := e.lookPath(fallback); err == nil {
			return []string{fallback}, nil
		}
	}
	return nil, errors.WithHint(ErrNoEditor, "set $EDITOR")
}
