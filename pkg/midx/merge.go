// Package midx implements the k-way merge that consolidates multiple
// sorted on-disk fingerprint indices into one combined index with a
// fan-out prefix table.
package midx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sort"

	"github.com/meeee/dupkernel/pkg/bitops"
	"github.com/meeee/dupkernel/pkg/bloom"
)

// HeaderSize is the length of the caller-managed header preceding the
// fan-out table in a combined index.
const HeaderSize = 12

// ErrShortOutput is returned when out is too small to hold the fan-out
// table, fingerprint array, and name array implied by bits and total.
var ErrShortOutput = errors.New("midx: output buffer too small")

// Progress is notified periodically during a merge so a caller can
// render advisory progress. See internal/progress for the TTY-gated
// stderr implementation MergeInto's callers typically pass in.
type Progress interface {
	Report(processed, total uint64)
}

// NoProgress discards progress notifications.
type NoProgress struct{}

// Report implements Progress by doing nothing.
func (NoProgress) Report(uint64, uint64) {}

// requiredOutputLen returns the minimum length of out for the given
// fan-out width and upper-bound entry count.
func requiredOutputLen(bits int, total uint32) int {
	fanoutSize := 1 << uint(bits)

	return HeaderSize + 4*fanoutSize + 24*int(total)
}

// compareOrder orders two cursors for the merge's pop-the-tail walk:
// primarily by descending key, and for cursors sharing a key, by
// ascending input index so the earliest input's cursor sits closest
// to the tail and is popped (and thus emitted) first. It returns a
// negative number if a sorts before b, zero if equivalent, positive
// if after.
func compareOrder(a, b *cursor) int {
	if c := bytes.Compare(a.key(), b.key()); c != 0 {
		return -c
	}

	switch {
	case a.idx == b.idx:
		return 0
	case a.idx > b.idx:
		return -1
	default:
		return 1
	}
}

// reinsertDescending places c into cursors[0:live], a slice ordered by
// compareOrder, restoring that order. cursors must have length >=
// live+1; the slot at index live is used as scratch space during the
// shift and ends up holding whatever element the shift displaces into
// it.
func reinsertDescending(cursors []*cursor, live int, c *cursor) {
	lo, hi := 0, live
	for lo < hi {
		mid := (lo + hi) / 2
		if compareOrder(cursors[mid], c) >= 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}

	copy(cursors[lo+1:live+1], cursors[lo:live])
	cursors[lo] = c
}

func prefixOf(key []byte, bits int) uint32 {
	if bits == 0 {
		return 0
	}

	v, _ := bitops.ExtractBits(key, bits)

	return v
}

// MergeInto performs the k-way merge: it writes a fan-out table, deduplicated sorted fingerprint array, and
// parallel name array into out starting at byte offset 12, and returns
// the number of distinct fingerprints emitted, N.
//
// out must be at least 12 + 4*2^bits + 24*total bytes. total is an
// upper bound on the number of output entries (e.g. the sum of input
// counts); it is never validated against the input counts. With an
// under-estimated total, later fingerprint entries overwrite the
// name-array region of out, and MergeInto panics with an index out of
// range once a name write falls past the end of out.
//
// Only the first 12 + 4*2^bits + 24*N bytes of out hold meaningful
// data on return: sha[0..N) immediately followed by name[0..N), per
// the on-disk layout DiskIndex expects. Any bytes beyond that (the
// slack reserved for total - N entries that went unused to dedup) are
// left as whatever MergeInto happened to write through them and must
// not be persisted; callers writing a file should truncate to that
// length.
//
// On error, the fan-out region of out may already have been partially
// written; treat out as indeterminate.
func MergeInto(out []byte, bits int, total uint32, inputs []InputIndex, progress Progress) (uint32, error) {
	if len(out) < requiredOutputLen(bits, total) {
		return 0, ErrShortOutput
	}

	if progress == nil {
		progress = NoProgress{}
	}

	cursors := make([]*cursor, 0, len(inputs))

	for i := range inputs {
		c, err := newCursor(&inputs[i], i)
		if err != nil {
			return 0, err
		}

		if !c.exhausted() {
			cursors = append(cursors, c)
		}
	}

	sort.Slice(cursors, func(i, j int) bool {
		return compareOrder(cursors[i], cursors[j]) < 0
	})

	fanoutSize := 1 << uint(bits)
	fanout := out[HeaderSize : HeaderSize+4*fanoutSize]
	shaArray := out[HeaderSize+4*fanoutSize:]
	nameArray := out[HeaderSize+4*fanoutSize+bloom.FingerprintSize*int(total):]

	var (
		last      []byte
		emitted   uint32
		prefix    uint32
		processed uint64
	)

	for len(cursors) > 0 {
		live := len(cursors) - 1
		c := cursors[live]
		key := c.key()

		newPrefix := prefixOf(key, bits)
		for prefix < newPrefix {
			binary.BigEndian.PutUint32(fanout[prefix*4:], emitted)
			prefix++
		}

		if last == nil || !bytes.Equal(last, key) {
			copy(shaArray[int(emitted)*bloom.FingerprintSize:], key)
			binary.BigEndian.PutUint32(nameArray[emitted*4:], c.name())
			last = append(last[:0], key...)
			emitted++
		}

		c.advance()

		if c.exhausted() {
			cursors = cursors[:live]
		} else {
			cursors = cursors[:live+1]
			reinsertDescending(cursors, live, c)
		}

		processed++

		progress.Report(processed, uint64(total))
	}

	for ; prefix < uint32(fanoutSize); prefix++ {
		binary.BigEndian.PutUint32(fanout[prefix*4:], emitted)
	}

	// The name array was written at an offset sized for the worst case
	// of total entries so it could be located before the true,
	// dedup-reduced count was known. Slide it down so it immediately
	// follows the emitted sha entries, matching the on-disk layout
	// OpenDiskIndex expects: name[0..N) right after sha[0..N), N =
	// emitted. When total == emitted this is a same-range no-op.
	shaOffset := HeaderSize + 4*fanoutSize
	dstNameOff := shaOffset + bloom.FingerprintSize*int(emitted)
	copy(out[dstNameOff:dstNameOff+4*int(emitted)], nameArray[:4*int(emitted)])

	return emitted, nil
}
