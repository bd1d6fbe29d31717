package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/banter"
)

type streamState int

const (
	stateNew streamState = iota
	stateStreaming
	stateComplete
	stateError
	stateClosed
)

// stream implements [banter.Stream] by parsing SSE events from an HTTP response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	ctx     context.Context
	state   streamState
	err     error // terminal error, if any
}

// Interface compliance check.
var _ banter.Stream = (*stream)(nil)

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	return &stream{
		body:    body,
		scanner: bufio.NewScanner(body),
		ctx:     ctx,
	}
}

// Next reads the next text chunk from the SSE stream.
// Returns io.EOF when the stream completes normally.
func (s *stream) Next() (banter.Chunk, error) {
	switch s.state {
	case stateComplete:
		return nil, io.EOF
	case stateError:
		return nil, s.err
	case stateClosed:
		return nil, banter.ErrStreamClosed
	}

	for {
		eventType, data, err := s.readSSEEvent()
		if err != nil {
			s.terminate(err)
			return nil, s.err
		}

		s.state = stateStreaming

		chunk, err := s.processEvent(eventType, data)
		if err != nil {
			s.terminate(err)
			return nil, s.err
		}

		// processEvent may set a terminal state (message_stop).
		if s.state == stateComplete {
			return nil, io.EOF
		}

		if chunk != nil {
			return chunk, nil
		}
		// Non-text event (ping, message_start, etc.) - keep reading.
	}
}

// Close closes the underlying HTTP response body.
func (s *stream) Close() error {
	if s.state != stateComplete && s.state != stateError {
		s.state = stateClosed
	}
	return s.body.Close()
}

// terminate records a terminal error.
func (s *stream) terminate(err error) {
	s.state = stateError
	switch {
	case s.ctx.Err() != nil:
		s.err = s.ctx.Err()
	case err == io.EOF:
		// Normal completion via message_stop sets stateComplete before we
		// reach here, so a raw EOF means the stream ended unexpectedly.
		s.err = fmt.Errorf("anthropic: unexpected end of stream")
	default:
		s.err = err
	}
}

// readSSEEvent reads lines until a complete SSE event is assembled.
// Returns the event type and the data payload.
func (s *stream) readSSEEvent() (string, string, error) {
	var eventType string
	var dataBuf strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			// Empty line signals end of event.
			if dataBuf.Len() > 0 {
				return eventType, dataBuf.String(), nil
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimPrefix(line, "data: "))
		}
		// Ignore comments (lines starting with ':') and unknown fields.
	}

	if err := s.scanner.Err(); err != nil {
		return "", "", fmt.Errorf("anthropic: %w", err)
	}

	if dataBuf.Len() > 0 {
		return eventType, dataBuf.String(), nil
	}
	return "", "", io.EOF
}

// processEvent maps an SSE event to a chunk.
// Returns a nil chunk for events that carry no visible text.
func (s *stream) processEvent(eventType, data string) (banter.Chunk, error) {
	switch eventType {
	case "content_block_delta":
		return s.handleContentBlockDelta(data)
	case "message_stop":
		s.state = stateComplete
		return nil, nil
	case "error":
		return nil, s.handleError(data)
	default:
		// message_start, content_block_start/stop, message_delta, ping and
		// unknown event types carry no text.
		return nil, nil
	}
}

func (s *stream) handleContentBlockDelta(data string) (banter.Chunk, error) {
	var evt sseContentBlockDelta
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return nil, fmt.Errorf("anthropic: failed to parse content_block_delta: %w", err)
	}
	switch evt.Delta.Type {
	case "text_delta":
		return banter.ChunkText{Text: evt.Delta.Text}, nil
	default:
		// thinking, signature and tool input deltas are not shown.
		return nil, nil
	}
}

func (s *stream) handleError(data string) error {
	var evt sseError
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		return fmt.Errorf("anthropic: failed to parse error event: %w", err)
	}
	remote := &banter.RemoteError{Status: evt.Error.Type, Message: evt.Error.Message}
	switch evt.Error.Type {
	case "rate_limit_error":
		remote.Err = banter.ErrUsageLimited
	case "overloaded_error":
		remote.Err = banter.ErrProviderUnavailable
	}
	return fmt.Errorf("anthropic: %w", remote)
}
