package dkcli

import (
	"context"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/meeee/dupkernel/internal/config"
	"github.com/meeee/dupkernel/pkg/chunk"
)

// SplitCmd splits stdin (or a file) into content-defined chunks and
// prints one line per chunk: offset, length, trailing zero-bit count.
func SplitCmd(cfg config.Config, stdin io.Reader) *Command {
	flags := flag.NewFlagSet("split", flag.ContinueOnError)
	path := flags.StringP("file", "f", "", "Read from `file` instead of stdin")
	bufSize := flags.Int("buffer-size", chunk.DefaultBufferSize, "Initial chunker buffer size in bytes")

	return &Command{
		Flags: flags,
		Usage: "split [-f file]",
		Short: "Split input into content-defined chunks",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			_ = cfg // BlobBits is a compile-time constant of pkg/chunk; Splitter has no per-call override.

			r := stdin

			if *path != "" {
				f, err := openOrStdin(*path)
				if err != nil {
					return err
				}

				defer func() { _ = f.Close() }()

				r = f
			}

			c := chunk.NewChunker(r, chunk.WithBufferSize(*bufSize))

			for {
				ch, err := c.Next()
				if err == io.EOF {
					return nil
				}

				if err != nil {
					return fmt.Errorf("split: %w", err)
				}

				o.Printf("%d\t%d\t%d\n", ch.Offset, len(ch.Data), ch.ZeroBits)
			}
		},
	}
}
