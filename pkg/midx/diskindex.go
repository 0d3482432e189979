package midx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrBadFanoutHeader is returned when an on-disk index's fan-out table
// doesn't agree with the file's actual length.
var ErrBadFanoutHeader = errors.New("midx: fan-out table inconsistent with file size")

// DiskIndex is a memory-mapped, read-only view of one on-disk
// fingerprint index file in the layout written by BuildAndWrite: a
// 12-byte header, a 4*2^bits-byte fan-out table, a sorted fingerprint
// array, and a parallel name array.
type DiskIndex struct {
	f   *os.File
	Map []byte
	// Bits is the fan-out prefix width this index was built with.
	Bits int
}

// OpenDiskIndex mmaps path read-only and validates its fan-out header
// against the file's length. The caller must call Close when done.
//
// Possible errors:
//   - *os.PathError: open, fstat
//   - ErrBadFanoutHeader: file too short, or fan_out[2^bits-1] disagrees
//     with the fingerprint count implied by the file's length
func OpenDiskIndex(path string, bits int) (*DiskIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, err
	}

	size := info.Size()
	if size < int64(requiredOutputLen(bits, 0)) {
		_ = f.Close()

		return nil, fmt.Errorf("%w: file length %d too short for bits=%d", ErrBadFanoutHeader, size, bits)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	fanoutSize := 1 << uint(bits)
	total := binary.BigEndian.Uint32(data[HeaderSize+4*(fanoutSize-1):])

	want := int64(requiredOutputLen(bits, total))
	if size != want {
		_ = unix.Munmap(data)
		_ = f.Close()

		return nil, fmt.Errorf("%w: fan_out[%d]=%d implies length %d, file is %d",
			ErrBadFanoutHeader, fanoutSize-1, total, want, size)
	}

	return &DiskIndex{f: f, Map: data, Bits: bits}, nil
}

// Count returns the number of distinct fingerprints in the index, read
// from the final fan-out slot.
func (d *DiskIndex) Count() uint32 {
	fanoutSize := 1 << uint(d.Bits)

	return binary.BigEndian.Uint32(d.Map[HeaderSize+4*(fanoutSize-1):])
}

// AsInput returns an InputIndex view over this disk index's fingerprint
// and name arrays, suitable for passing to MergeInto.
func (d *DiskIndex) AsInput() InputIndex {
	fanoutSize := 1 << uint(d.Bits)
	count := int(d.Count())
	shaOffset := HeaderSize + 4*fanoutSize
	nameOffset := shaOffset + 20*count

	return InputIndex{
		Map:        d.Map,
		Count:      count,
		ShaOffset:  shaOffset,
		NameOffset: nameOffset,
	}
}

// Close unmaps the file and closes the underlying descriptor.
func (d *DiskIndex) Close() error {
	err := unix.Munmap(d.Map)
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}

	return err
}
