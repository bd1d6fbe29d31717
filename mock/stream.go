package mock

import (
	"io"

	"github.com/fwojciec/banter"
)

// Interface compliance check.
var _ banter.Stream = (*Stream)(nil)

// Stream is a test double for banter.Stream.
// NextFn panics when nil to catch missing setup. CloseFn is nil-safe
// because callers always close the stream.
type Stream struct {
	NextFn  func() (banter.Chunk, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (banter.Chunk, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// ChunkStream returns a Stream that yields chunks in order and then io.EOF.
func ChunkStream(chunks ...banter.Chunk) *Stream {
	i := 0
	return &Stream{
		NextFn: func() (banter.Chunk, error) {
			if i >= len(chunks) {
				return nil, io.EOF
			}
			c := chunks[i]
			i++
			return c, nil
		},
	}
}
