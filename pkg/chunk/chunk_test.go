package chunk_test

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meeee/dupkernel/pkg/chunk"
)

func TestSelftest(t *testing.T) {
	t.Parallel()

	assert.True(t, chunk.Selftest())
}

func TestBlobbits(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 13, chunk.Blobbits())
	assert.Equal(t, chunk.BlobBits, chunk.Blobbits())
}

func randomBuf(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed)) //nolint:gosec
	buf := make([]byte, n)
	_, _ = r.Read(buf)

	return buf
}

func TestFindDeterministic(t *testing.T) {
	t.Parallel()

	buf := randomBuf(256*1024, 1)

	off1, bits1 := chunk.Find(buf)
	off2, bits2 := chunk.Find(buf)

	assert.Equal(t, off1, off2)
	assert.Equal(t, bits1, bits2)
}

func TestFindNoSplitSentinel(t *testing.T) {
	t.Parallel()

	// A short, uniform buffer is extremely unlikely to hit the rolling
	// checksum's low-bit-zero condition.
	buf := bytes.Repeat([]byte{0x00}, 8)

	off, bits := chunk.Find(buf)
	assert.Equal(t, chunk.NoSplit, off)
	assert.Equal(t, -1, bits)
}

func TestFindStableUnderInsertion(t *testing.T) {
	t.Parallel()

	buf := randomBuf(512*1024, 2)

	off, _ := chunk.Find(buf)
	require.NotEqual(t, chunk.NoSplit, off, "expected a split point in 512KiB of random data")

	// Splits strictly after the inserted region should be unaffected by a
	// small insertion well before the original boundary, once the window
	// has filled again past the insertion point.
	insertAt := 0
	inserted := append(append(append([]byte{}, buf[:insertAt]...), []byte("Xinsert")...), buf[insertAt:]...)

	off2, _ := chunk.Find(inserted)
	require.NotEqual(t, chunk.NoSplit, off2)

	// The boundary shifts by exactly the inserted length because nothing
	// before it changed.
	assert.Equal(t, off+len("Xinsert"), off2)
}

func TestChunkerReassemblesStream(t *testing.T) {
	t.Parallel()

	data := randomBuf(4*1024*1024, 3)

	c := chunk.NewChunker(bytes.NewReader(data), chunk.WithBufferSize(64*1024))

	var reassembled bytes.Buffer

	var offsets []uint64

	for {
		ch, err := c.Next()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		offsets = append(offsets, ch.Offset)
		reassembled.Write(ch.Data)
	}

	assert.Equal(t, data, reassembled.Bytes())
	assert.Equal(t, uint64(0), offsets[0])
}

func TestChunkerEmptyStream(t *testing.T) {
	t.Parallel()

	c := chunk.NewChunker(bytes.NewReader(nil))

	_, err := c.Next()
	assert.ErrorIs(t, err, io.EOF)
}
