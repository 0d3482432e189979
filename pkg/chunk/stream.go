package chunk

import (
	"errors"
	"io"
)

// DefaultBufferSize is the internal read buffer size used by Chunker when
// none is supplied via WithBufferSize.
const DefaultBufferSize = 8 << 20 // 8 MiB

// Chunk is one content-defined chunk produced by a Chunker.
type Chunk struct {
	Offset   uint64 // absolute offset of the chunk start in the stream
	Data     []byte // chunk bytes; valid until the next call to Next
	ZeroBits int     // trailing zero bits at the boundary, -1 if the chunk
	// ended because the stream ran out rather than because a boundary
	// was found (the final, possibly short, chunk).
}

// Option configures a Chunker.
type Option func(*chunkerConfig)

type chunkerConfig struct {
	bufferSize int
}

// WithBufferSize overrides the internal read buffer size.
func WithBufferSize(n int) Option {
	return func(c *chunkerConfig) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// Chunker provides a convenient streaming API over Find: it wraps an
// io.Reader and returns successive content-defined chunks via Next.
//
// This is a supplement to the buffer-scoped Find primitive: a real
// backup engine chunks whole files, not single in-memory buffers, and
// needs the boundary found in one read to carry across into the next.
type Chunker struct {
	reader io.Reader

	buf    []byte
	cursor int
	offset uint64
	eof    bool
}

// NewChunker creates a Chunker reading from r.
func NewChunker(r io.Reader, opts ...Option) *Chunker {
	cfg := chunkerConfig{bufferSize: DefaultBufferSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Chunker{
		reader: r,
		buf:    make([]byte, cfg.bufferSize),
		cursor: cfg.bufferSize,
	}
}

func (c *Chunker) fillBuffer() error {
	n := len(c.buf) - c.cursor
	if n >= cap(c.buf)/2 || c.eof {
		return nil
	}

	copy(c.buf[:n], c.buf[c.cursor:])
	c.cursor = 0
	c.buf = c.buf[:cap(c.buf)]

	m, err := io.ReadFull(c.reader, c.buf[n:])
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		c.buf = c.buf[:n+m]
		c.eof = true

		return nil
	}

	if err != nil {
		return err
	}

	return nil
}

// Next returns the next chunk from the stream, or io.EOF once the stream
// is exhausted. The returned Chunk.Data is valid only until the next
// call to Next.
func (c *Chunker) Next() (Chunk, error) {
	if err := c.fillBuffer(); err != nil {
		return Chunk{}, err
	}

	if len(c.buf)-c.cursor == 0 {
		return Chunk{}, io.EOF
	}

	available := c.buf[c.cursor:]

	boundary, zb := Find(available)
	if boundary == NoSplit {
		// No boundary in the buffered window. At EOF that just means
		// the remainder is the final chunk; otherwise ask for more data
		// before declaring one (a boundary just past the window edge
		// would otherwise be missed).
		if !c.eof {
			if err := c.growAndRetry(); err != nil {
				return Chunk{}, err
			}

			return c.Next()
		}

		boundary = len(available)
		zb = -1
	}

	chunk := Chunk{
		Offset:   c.offset,
		Data:     available[:boundary],
		ZeroBits: zb,
	}

	c.cursor += boundary
	c.offset += uint64(boundary)

	return chunk, nil
}

// growAndRetry doubles the buffer when a boundary wasn't found before
// EOF and the window may simply have been too small.
func (c *Chunker) growAndRetry() error {
	n := len(c.buf) - c.cursor
	grown := make([]byte, len(c.buf)*2)
	copy(grown, c.buf[c.cursor:])
	c.buf = grown
	c.cursor = 0

	m, err := io.ReadFull(c.reader, c.buf[n:])
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		c.buf = c.buf[:n+m]
		c.eof = true

		return nil
	}

	return err
}

// Offset returns the current absolute stream offset.
func (c *Chunker) Offset() uint64 {
	return c.offset
}
