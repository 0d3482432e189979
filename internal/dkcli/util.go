package dkcli

import "os"

// openOrStdin opens path for reading. Used by commands whose primary
// input can come from either a named file or piped stdin.
func openOrStdin(path string) (*os.File, error) {
	return os.Open(path)
}
