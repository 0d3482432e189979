package dkcli

import (
	"context"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/meeee/dupkernel/internal/config"
	"github.com/meeee/dupkernel/pkg/bench"
)

// BenchCmd writes a seeded stream of pseudorandom bytes, for exercising
// the Splitter and Bloom components under reproducible load.
func BenchCmd(_ config.Config) *Command {
	flags := flag.NewFlagSet("bench", flag.ContinueOnError)
	out := flags.StringP("output", "o", "", "Write to `file` instead of stdout")
	length := flags.Int64P("length", "l", 1<<20, "Number of bytes to write")
	seed := flags.Int64P("seed", "s", 1, "PRNG seed")
	verbose := flags.BoolP("verbose", "v", false, "Print a running megabyte counter to stderr")

	return &Command{
		Flags: flags,
		Usage: "bench [-o file] [-l length] [-s seed]",
		Short: "Write a seeded stream of pseudorandom bytes",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			w := o.Out()

			if *out != "" {
				f, err := os.Create(*out) //nolint:gosec
				if err != nil {
					return err
				}

				defer func() { _ = f.Close() }()

				w = f
			}

			n, err := bench.WriteRandom(w, *length, *seed, *verbose, o.Err())
			if err != nil {
				return err
			}

			if *verbose {
				o.ErrPrintln()
			}

			o.ErrPrintln("wrote", n, "bytes")

			return nil
		},
	}
}
