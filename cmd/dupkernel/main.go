// Package main provides dupkernel, a command-line front end over the
// content-addressed dedup backup engine kernel.
package main

import (
	"os"
	"strings"

	"github.com/meeee/dupkernel/internal/dkcli"
)

func main() {
	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	exitCode := dkcli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, env)

	os.Exit(exitCode)
}
