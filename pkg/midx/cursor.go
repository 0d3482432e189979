package midx

import (
	"encoding/binary"
	"errors"

	"github.com/meeee/dupkernel/pkg/bloom"
)

// ErrMalformedInput is returned when an InputIndex's offsets and count
// don't fit inside its mapped region.
var ErrMalformedInput = errors.New("midx: malformed input index")

// InputIndex describes one sorted, on-disk fingerprint index to be
// folded into a combined index by MergeInto.
//
// The fingerprint array at Map[ShaOffset:] must be sorted ascending by
// lexicographic byte order with no duplicates within this one input.
// The parallel name array at Map[NameOffset:], if present, holds one
// big-endian uint32 per fingerprint in the same order.
type InputIndex struct {
	Map        []byte
	Count      int
	ShaOffset  int
	NameOffset int // -1 if no parallel name array is present
	NameBase   uint32
}

// cursor walks one InputIndex's fingerprint (and, if present, name)
// arrays in lockstep. idx is the cursor's position in the caller's
// input list, used to break ties when two cursors from different
// inputs carry the same fingerprint: the earlier input wins.
type cursor struct {
	src      *InputIndex
	idx      int
	pos      int
	hasNames bool
}

func newCursor(src *InputIndex, idx int) (*cursor, error) {
	need := src.ShaOffset + src.Count*bloom.FingerprintSize
	if src.Count < 0 || src.ShaOffset < 0 || need > len(src.Map) {
		return nil, ErrMalformedInput
	}

	hasNames := src.NameOffset >= 0
	if hasNames {
		needNames := src.NameOffset + src.Count*4
		if needNames > len(src.Map) {
			return nil, ErrMalformedInput
		}
	}

	return &cursor{src: src, idx: idx, hasNames: hasNames}, nil
}

// key returns the 20-byte fingerprint the cursor currently points at.
func (c *cursor) key() []byte {
	off := c.src.ShaOffset + c.pos*bloom.FingerprintSize

	return c.src.Map[off : off+bloom.FingerprintSize]
}

// name returns name_base if no name array is present, otherwise
// name_base plus the big-endian uint32 at the current name position.
func (c *cursor) name() uint32 {
	if !c.hasNames {
		return c.src.NameBase
	}

	off := c.src.NameOffset + c.pos*4

	return c.src.NameBase + binary.BigEndian.Uint32(c.src.Map[off:off+4])
}

// advance moves both cursors forward by one entry.
func (c *cursor) advance() {
	c.pos++
}

// exhausted reports whether the cursor has reached the end of its input.
func (c *cursor) exhausted() bool {
	return c.pos >= c.src.Count
}
