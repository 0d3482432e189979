package dkcli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/meeee/dupkernel/internal/config"
	"github.com/meeee/dupkernel/internal/fslock"
	"github.com/meeee/dupkernel/internal/progress"
	"github.com/meeee/dupkernel/pkg/midx"
)

var errMidxNeedsInputs = errors.New("midx: at least one input index file is required")

// MidxCmd merges one or more on-disk fingerprint indices into a single
// combined index with a fan-out prefix table.
func MidxCmd(cfg config.Config) *Command {
	flags := flag.NewFlagSet("midx", flag.ContinueOnError)
	out := flags.StringP("output", "o", "combined.midx", "Output index `path`")
	bits := flags.Int("bits", 8, "Fan-out prefix width in bits")

	return &Command{
		Flags: flags,
		Usage: "midx -o <output> <input-index>...",
		Short: "Merge sorted on-disk fingerprint indices into one combined index",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errMidxNeedsInputs
			}

			disks := make([]*midx.DiskIndex, 0, len(args))

			defer func() {
				for _, d := range disks {
					_ = d.Close()
				}
			}()

			inputs := make([]midx.InputIndex, 0, len(args))

			var total uint32

			for _, path := range args {
				d, err := midx.OpenDiskIndex(path, *bits)
				if err != nil {
					return fmt.Errorf("midx: opening %s: %w", path, err)
				}

				disks = append(disks, d)
				in := d.AsInput()
				inputs = append(inputs, in)
				total += uint32(in.Count)
			}

			reporter := progress.NewReporter(o.Err(), "midx", cfg.ProgressInterval)

			var n uint32

			err := fslock.WithLock(*out, func() error {
				built, err := midx.BuildAndWrite(*out, *bits, total, inputs, reporter)
				n = built

				return err
			})
			if err != nil {
				return err
			}

			o.Printf("merged %d distinct fingerprint(s) into %s\n", n, *out)

			return nil
		},
	}
}
