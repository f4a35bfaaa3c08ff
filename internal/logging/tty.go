package logging

import (
	"io"
	"os"

	"golang.org/x/term"
)

type fder interface {
	Fd() uintptr
}

// IsTTY reports whether v is backed by a terminal. Anything that does not
// expose a file descriptor, such as a bytes.Buffer in tests, is not.
func IsTTY(v any) bool {
	f, ok := v.(fder)
	return ok && term.IsTerminal(int(f.Fd()))
}

// IsInteractive reports whether prompts can be shown: both the input the
// answer comes from and the output the question goes to are terminals.
func IsInteractive(in io.Reader, out io.Writer) bool {
	return IsTTY(in) && IsTTY(out)
}

// SupportsColor reports whether ANSI colors should be written to w.
//
// NO_COLOR (https://no-color.org) and TERM=dumb switch color off.
// CLICOLOR_FORCE set to anything but 0 switches it on for non-terminals,
// for example when piping skillkit output through less -R.
func SupportsColor(w io.Writer) bool {
	return colorAllowed(IsTTY(w))
}

func colorAllowed(isTTY bool) bool {
	if _, off := os.LookupEnv("NO_COLOR"); off || os.Getenv("TERM") == "dumb" {
		return false
	}
	if force := os.Getenv("CLICOLOR_FORCE"); force != "" && force != "0" {
		return true
	}
	return isTTY
}
