package gemini

import (
	"context"
	"io"
	"iter"

	"github.com/fwojciec/banter"
	"google.golang.org/genai"
)

type streamState int

const (
	stateOpen streamState = iota
	stateDone
	stateFailed
	stateClosed
)

// stream implements [banter.Stream] by wrapping the genai SDK's streaming iterator.
type stream struct {
	ctx   context.Context
	pull  func() (*genai.GenerateContentResponse, error, bool)
	stop  func()
	state streamState
	err   error
}

// Interface compliance check.
var _ banter.Stream = (*stream)(nil)

func newStream(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) *stream {
	next, stop := iter.Pull2(seq)
	return &stream{
		ctx:  ctx,
		pull: next,
		stop: stop,
	}
}

// Next returns the visible parts of the next response as a message chunk.
// Responses without visible text yield a chunk with no parts.
func (s *stream) Next() (banter.Chunk, error) {
	switch s.state {
	case stateDone:
		return nil, io.EOF
	case stateFailed:
		return nil, s.err
	case stateClosed:
		return nil, banter.ErrStreamClosed
	}
	if err := s.ctx.Err(); err != nil {
		s.state = stateFailed
		s.err = err
		return nil, err
	}
	resp, err, ok := s.pull()
	if !ok {
		s.state = stateDone
		return nil, io.EOF
	}
	if err != nil {
		s.state = stateFailed
		s.err = wrapError(err)
		return nil, s.err
	}
	return banter.ChunkMessage{Parts: replyParts(resp)}, nil
}

func (s *stream) Close() error {
	if s.state == stateOpen {
		s.state = stateClosed
	}
	s.stop()
	return nil
}
