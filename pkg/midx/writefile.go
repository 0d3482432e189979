package midx

import (
	"bytes"
	"encoding/binary"

	"github.com/natefinch/atomic"
)

// BuildAndWrite merges inputs into a freshly allocated buffer sized for
// total entries and bits fan-out prefix bits, fills the 12-byte header
// with magic, the format version, and bits, and atomically replaces the
// file at path with the result.
//
// The replacement is atomic with respect to readers: WriteFile never
// exposes a partially written file at path, matching the teacher
// filesystem layer's WriteFileAtomic.
func BuildAndWrite(path string, bits int, total uint32, inputs []InputIndex, progress Progress) (uint32, error) {
	out := make([]byte, requiredOutputLen(bits, total))

	binary.BigEndian.PutUint32(out[0:4], magic)
	binary.BigEndian.PutUint32(out[4:8], formatVersion)
	binary.BigEndian.PutUint32(out[8:12], uint32(bits))

	emitted, err := MergeInto(out, bits, total, inputs, progress)
	if err != nil {
		return 0, err
	}

	// MergeInto only guarantees the first requiredOutputLen(bits, emitted)
	// bytes are meaningful; trim the slack reserved for the total-emitted
	// duplicates that never made it to disk before persisting.
	out = out[:requiredOutputLen(bits, emitted)]

	if err := atomic.WriteFile(path, bytes.NewReader(out)); err != nil {
		return 0, err
	}

	return emitted, nil
}

const (
	magic         = 0x6d696478 // "midx"
	formatVersion = 1
)
