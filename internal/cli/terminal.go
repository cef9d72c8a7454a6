package cli

import (
	"io"
	"os"

	"golang.org/x/term"
)

const minTableWidth = 40

// terminalOf reports whether w is an interactive terminal and, if so, its
// width. Anything that is not an *os.File is treated as a pipe.
func terminalOf(w io.Writer) (styled bool, width int) {
	f, ok := w.(*os.File)
	if !ok {
		return false, 0
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return false, 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width < minTableWidth {
		return true, 0
	}
	return true, width
}
