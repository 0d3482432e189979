package dkcli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/meeee/dupkernel/pkg/chunk"
)

var errSelftestFailed = errors.New("selftest: rolling-checksum round-trip failed")

// SelftestCmd runs the rolling-checksum round-trip invariant and
// reports success or failure. Unlike the kernel's boolean Selftest
// primitive (true on success), the process exit code follows normal
// CLI convention: 0 on success, non-zero on failure.
func SelftestCmd() *Command {
	flags := flag.NewFlagSet("selftest", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "selftest",
		Short: "Verify the rolling-checksum round-trip invariant",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			if !chunk.Selftest() {
				return errSelftestFailed
			}

			o.Println("ok")

			return nil
		},
	}
}
