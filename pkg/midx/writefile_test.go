package midx_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meeee/dupkernel/pkg/midx"
)

func TestBuildAndWriteThenOpenDiskIndex(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "combined.midx")

	const bits = 1

	inputA := midx.InputIndex{
		Map:        append(fp(0x00), nameBytes(107)...),
		Count:      1,
		ShaOffset:  0,
		NameOffset: 20,
	}
	inputB := midx.InputIndex{
		Map:        append(fp(0xff), nameBytes(202)...),
		Count:      1,
		ShaOffset:  0,
		NameOffset: 20,
	}

	n, err := midx.BuildAndWrite(path, bits, 2, []midx.InputIndex{inputA, inputB}, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(2), n)

	di, err := midx.OpenDiskIndex(path, bits)
	require.NoError(t, err)

	defer func() { require.NoError(t, di.Close()) }()

	require.Equal(t, uint32(2), di.Count())

	in := di.AsInput()
	require.Equal(t, 2, in.Count)
	require.Equal(t, fp(0x00), in.Map[in.ShaOffset:in.ShaOffset+20])
	require.Equal(t, fp(0xff), in.Map[in.ShaOffset+20:in.ShaOffset+40])
}

func TestBuildAndWriteThenOpenDiskIndexWithDuplicate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "combined.midx")

	const bits = 0

	inputA := midx.InputIndex{
		Map:        append(fp(0x42), nameBytes(1)...),
		Count:      1,
		ShaOffset:  0,
		NameOffset: 20,
	}
	inputB := midx.InputIndex{
		Map:        append(fp(0x42), nameBytes(9)...),
		Count:      1,
		ShaOffset:  0,
		NameOffset: 20,
	}

	// total=2 is only an upper bound: the two inputs share a
	// fingerprint, so exactly one entry is actually emitted.
	n, err := midx.BuildAndWrite(path, bits, 2, []midx.InputIndex{inputA, inputB}, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(1), n)

	di, err := midx.OpenDiskIndex(path, bits)
	require.NoError(t, err)

	defer func() { require.NoError(t, di.Close()) }()

	require.Equal(t, uint32(1), di.Count())

	in := di.AsInput()
	require.Equal(t, 1, in.Count)
	require.Equal(t, fp(0x42), in.Map[in.ShaOffset:in.ShaOffset+20])

	nameOff := in.NameOffset
	require.Equal(t, uint32(1), binary.BigEndian.Uint32(in.Map[nameOff:]),
		"name must come from the earlier input, immediately following the single emitted sha entry")
}

func TestOpenDiskIndexRejectsTruncatedFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "short.midx")

	require.NoError(t, os.WriteFile(path, make([]byte, 4), 0o644))

	_, err := midx.OpenDiskIndex(path, 1)
	require.ErrorIs(t, err, midx.ErrBadFanoutHeader)
}
