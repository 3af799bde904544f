package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// isInteractive reports whether r is a terminal the operator can type into.
func isInteractive(r io.Reader) bool {
	file, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
