package dkcli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/meeee/dupkernel/internal/config"
	"github.com/meeee/dupkernel/pkg/bloom"
)

var errBloomUsage = errors.New("bloom: expected 'add <hex-fingerprint...>' or 'contains <hex-fingerprint>'")

// BloomCmd adds or queries 20-byte hex-encoded fingerprints against a
// filter file, creating it if absent.
func BloomCmd(cfg config.Config) *Command {
	flags := flag.NewFlagSet("bloom", flag.ContinueOnError)
	path := flags.StringP("file", "f", "bloom.filter", "Filter file `path`")
	nbits := flags.Int("nbits", cfg.BloomNbits, "log2 of the filter's byte-addressable width")
	k := flags.Int("k", cfg.BloomK, "Number of probes, 4 or 5")

	return &Command{
		Flags: flags,
		Usage: "bloom <add|contains> <hex-fingerprint>...",
		Short: "Insert or query 20-byte fingerprints in a Bloom filter file",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) < 2 {
				return errBloomUsage
			}

			filter, err := loadOrCreateFilter(*path, *nbits)
			if err != nil {
				return err
			}

			switch args[0] {
			case "add":
				shas, err := decodeFingerprints(args[1:])
				if err != nil {
					return err
				}

				n, err := bloom.Add(filter, shas, *nbits, *k)
				if err != nil {
					return err
				}

				if err := os.WriteFile(*path, filter, 0o644); err != nil { //nolint:gosec
					return fmt.Errorf("bloom: writing %s: %w", *path, err)
				}

				o.Printf("added %d fingerprint(s)\n", n)

				return nil
			case "contains":
				sha, err := hex.DecodeString(args[1])
				if err != nil {
					return fmt.Errorf("bloom: decoding fingerprint: %w", err)
				}

				verdict, steps, err := bloom.Contains(filter, sha, *nbits, *k)
				if err != nil {
					return err
				}

				o.Printf("%s %d\n", verdictLabel(verdict), steps)

				return nil
			default:
				return errBloomUsage
			}
		},
	}
}

func verdictLabel(v bloom.Verdict) string {
	if v == bloom.Present {
		return "present"
	}

	return "absent"
}

func decodeFingerprints(hexArgs []string) ([]byte, error) {
	out := make([]byte, 0, len(hexArgs)*bloom.FingerprintSize)

	for _, h := range hexArgs {
		fp, err := hex.DecodeString(h)
		if err != nil {
			return nil, fmt.Errorf("bloom: decoding fingerprint %q: %w", h, err)
		}

		out = append(out, fp...)
	}

	return out, nil
}

func loadOrCreateFilter(path string, nbits int) ([]byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err == nil {
		return data, nil
	}

	if os.IsNotExist(err) {
		return bloom.New(nbits), nil
	}

	return nil, fmt.Errorf("bloom: reading %s: %w", path, err)
}
