package ui

import (
	"io"
	"os"

	"golang.org/x/term"
)

// ColorEnabled reports whether colour should be written to w: w must be a
// terminal, NO_COLOR must be unset and TERM must not be "dumb".
func ColorEnabled(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
