package banter

import "context"

// Stream uses a pull-based iterator pattern. Next returns io.EOF once the
// reply is complete. Cancellation flows through the context passed to
// Provider.Stream. Close releases the underlying transport and is safe to
// call after Next has returned an error.
type Stream interface {
	Next() (Chunk, error)
	Close() error
}

// Provider is a strategy pattern interface for hosted AI backends.
type Provider interface {
	// Stream starts a streamed reply.
	Stream(ctx context.Context, req ChatRequest) (Stream, error)
	// Complete requests a single complete reply.
	Complete(ctx context.Context, req ChatRequest) (Response, error)
}

// Uploader stores files remotely so they can be referenced from requests.
type Uploader interface {
	Upload(ctx context.Context, files []File) ([]FileRef, error)
}
