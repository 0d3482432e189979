// Package bench provides the seeded pseudorandom bulk writer and random
// fingerprint generator used to exercise the kernel's other components
// under load. Neither helper is security-sensitive; both use a
// non-cryptographic PRNG.
package bench

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"
)

const blockSize = 1024

// WriteRandom seeds a non-cryptographic PRNG with seed and writes len
// bytes to w in 1024-byte blocks of freshly generated uint32 words, with
// a trailing partial block for any remainder. A short write (w.Write
// returning n < requested with a nil error, which io.Writer forbids but
// some callers wrap loosely) or any write error ends the loop early;
// WriteRandom returns the number of bytes actually written and, if the
// loop ended due to an error, that error.
//
// When verbose is true, a running megabyte counter is printed to
// progressOut each time another full MiB has been written.
func WriteRandom(w io.Writer, length int64, seed int64, verbose bool, progressOut io.Writer) (int64, error) {
	r := rand.New(rand.NewSource(seed)) //nolint:gosec

	block := make([]byte, blockSize)

	var written int64

	var lastMB int64

	for written < length {
		n := blockSize
		if remaining := length - written; remaining < int64(blockSize) {
			n = int(remaining)
		}

		fillRandomWords(block[:n], r)

		wrote, err := w.Write(block[:n])
		written += int64(wrote)

		if err != nil {
			return written, fmt.Errorf("bench: write random block: %w", err)
		}

		if wrote < n {
			return written, nil
		}

		if verbose && progressOut != nil {
			if mb := written / (1 << 20); mb != lastMB {
				lastMB = mb
				fmt.Fprintf(progressOut, "\r%d MiB", mb)
			}
		}
	}

	return written, nil
}

// fillRandomWords fills buf with successive little-endian uint32 words
// drawn from r, truncating the final word if buf's length isn't a
// multiple of 4.
func fillRandomWords(buf []byte, r *rand.Rand) {
	var word [4]byte

	for off := 0; off < len(buf); off += 4 {
		binary.LittleEndian.PutUint32(word[:], r.Uint32())

		copy(buf[off:], word[:])
	}
}

var (
	shaOnce sync.Once
	shaRand *rand.Rand
	shaMu   sync.Mutex
)

// seedFunc supplies the initial PRNG seed for RandomSha. It defaults to
// a wall-clock reading but is overridable in tests so output stays
// deterministic.
var seedFunc = func() int64 { return time.Now().UnixNano() }

// RandomSha returns 20 non-cryptographic random bytes for benchmarking
// only. The underlying PRNG is seeded from wall-clock time on first
// call and reused (not reseeded) on subsequent calls. Concurrent calls
// are serialised; the kernel's concurrency model otherwise assumes
// single-threaded Bench use, but RandomSha's shared seed state is
// common enough to need its own lock.
func RandomSha() []byte {
	shaOnce.Do(func() {
		shaRand = rand.New(rand.NewSource(seedFunc())) //nolint:gosec
	})

	out := make([]byte, 20)

	shaMu.Lock()
	_, _ = shaRand.Read(out)
	shaMu.Unlock()

	return out
}
