package midx_test

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meeee/dupkernel/pkg/bloom"
	"github.com/meeee/dupkernel/pkg/midx"
)

func fp(b byte) []byte {
	out := make([]byte, 20)
	for i := range out {
		out[i] = b
	}

	return out
}

func nameBytes(n uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, n)

	return b
}

func fanoutAt(out []byte, bits, p int) uint32 {
	_ = bits

	return binary.BigEndian.Uint32(out[midx.HeaderSize+p*4:])
}

func TestMergeTwoSingletonIndices(t *testing.T) {
	t.Parallel()

	const bits = 1

	inputA := midx.InputIndex{
		Map:        append(fp(0x00), nameBytes(107)...),
		Count:      1,
		ShaOffset:  0,
		NameOffset: 20,
		NameBase:   0,
	}
	inputB := midx.InputIndex{
		Map:        append(fp(0xff), nameBytes(202)...),
		Count:      1,
		ShaOffset:  0,
		NameOffset: 20,
		NameBase:   0,
	}

	out := make([]byte, midx.HeaderSize+4*(1<<bits)+24*2)

	n, err := midx.MergeInto(out, bits, 2, []midx.InputIndex{inputA, inputB}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)

	assert.Equal(t, uint32(1), fanoutAt(out, bits, 0))
	assert.Equal(t, uint32(2), fanoutAt(out, bits, 1))

	shaOff := midx.HeaderSize + 4*(1<<bits)
	nameOff := shaOff + bloom.FingerprintSize*2

	assert.Equal(t, fp(0x00), out[shaOff:shaOff+20])
	assert.Equal(t, fp(0xff), out[shaOff+20:shaOff+40])

	assert.Equal(t, uint32(107), binary.BigEndian.Uint32(out[nameOff:]))
	assert.Equal(t, uint32(202), binary.BigEndian.Uint32(out[nameOff+4:]))

	wantFanout := []byte{0, 0, 0, 1, 0, 0, 0, 2}
	if diff := cmp.Diff(wantFanout, out[midx.HeaderSize:midx.HeaderSize+8]); diff != "" {
		t.Errorf("fan-out table mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeDeduplicatesAcrossInputs(t *testing.T) {
	t.Parallel()

	const bits = 0

	inputA := midx.InputIndex{
		Map:        append(fp(0x42), nameBytes(0)...),
		Count:      1,
		ShaOffset:  0,
		NameOffset: 20,
		NameBase:   1,
	}
	inputB := midx.InputIndex{
		Map:        append(fp(0x42), nameBytes(0)...),
		Count:      1,
		ShaOffset:  0,
		NameOffset: 20,
		NameBase:   9,
	}

	out := make([]byte, midx.HeaderSize+4*(1<<bits)+24*2)

	n, err := midx.MergeInto(out, bits, 2, []midx.InputIndex{inputA, inputB}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n, "duplicate fingerprint across inputs must be emitted once")

	assert.Equal(t, uint32(1), fanoutAt(out, bits, 0))

	shaOff := midx.HeaderSize + 4*(1<<bits)
	nameOff := shaOff + bloom.FingerprintSize*1

	assert.Equal(t, fp(0x42), out[shaOff:shaOff+20])
	assert.Equal(t, uint32(1), binary.BigEndian.Uint32(out[nameOff:]), "name comes from the earliest input that supplied the fingerprint")
}

func TestMergeNoNameArrayUsesBase(t *testing.T) {
	t.Parallel()

	const bits = 0

	input := midx.InputIndex{
		Map:        fp(0x01),
		Count:      1,
		ShaOffset:  0,
		NameOffset: -1,
		NameBase:   42,
	}

	out := make([]byte, midx.HeaderSize+4*(1<<bits)+24*1)

	n, err := midx.MergeInto(out, bits, 1, []midx.InputIndex{input}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n)

	shaOff := midx.HeaderSize + 4*(1<<bits)
	nameOff := shaOff + bloom.FingerprintSize

	assert.Equal(t, uint32(42), binary.BigEndian.Uint32(out[nameOff:]))
}

func TestMergeFanoutCoversFullRangeEvenAboveMaxPrefix(t *testing.T) {
	t.Parallel()

	const bits = 2 // prefixes 0..3, but the only key present has prefix 0

	input := midx.InputIndex{
		Map:        fp(0x00),
		Count:      1,
		ShaOffset:  0,
		NameOffset: -1,
		NameBase:   1,
	}

	out := make([]byte, midx.HeaderSize+4*(1<<bits)+24*1)

	n, err := midx.MergeInto(out, bits, 1, []midx.InputIndex{input}, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(1), n)

	for p := 0; p < 1<<bits; p++ {
		assert.Equal(t, uint32(1), fanoutAt(out, bits, p), "fan_out[%d] must equal deduplicated count", p)
	}
}

func TestMergeRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	input := midx.InputIndex{
		Map:        fp(0x00)[:10], // too short for Count=1
		Count:      1,
		ShaOffset:  0,
		NameOffset: -1,
	}

	out := make([]byte, midx.HeaderSize+4*1+24*1)

	_, err := midx.MergeInto(out, 0, 1, []midx.InputIndex{input}, nil)
	assert.ErrorIs(t, err, midx.ErrMalformedInput)
}

func TestMergeRejectsShortOutput(t *testing.T) {
	t.Parallel()

	input := midx.InputIndex{Map: fp(0x00), Count: 1, ShaOffset: 0, NameOffset: -1}

	_, err := midx.MergeInto(make([]byte, 4), 0, 1, []midx.InputIndex{input}, nil)
	assert.ErrorIs(t, err, midx.ErrShortOutput)
}

type recordingProgress struct {
	calls []uint64
}

func (r *recordingProgress) Report(processed, _ uint64) {
	r.calls = append(r.calls, processed)
}

func TestMergeReportsProgress(t *testing.T) {
	t.Parallel()

	inputA := midx.InputIndex{Map: fp(0x00), Count: 1, ShaOffset: 0, NameOffset: -1}
	inputB := midx.InputIndex{Map: fp(0xff), Count: 1, ShaOffset: 0, NameOffset: -1}

	out := make([]byte, midx.HeaderSize+4*1+24*2)

	rec := &recordingProgress{}

	_, err := midx.MergeInto(out, 0, 2, []midx.InputIndex{inputA, inputB}, rec)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, rec.calls)
}
