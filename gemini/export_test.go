package gemini

import (
	"context"
	"iter"

	"github.com/fwojciec/banter"
	"google.golang.org/genai"
)

// NewStreamFromIter exposes the stream constructor for tests.
func NewStreamFromIter(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) banter.Stream {
	return newStream(ctx, seq)
}

// FileService is the Files API subset used by uploads.
type FileService = fileService

// UploadWith runs an upload against svc.
func UploadWith(ctx context.Context, svc FileService, files []banter.File) ([]banter.FileRef, error) {
	return upload(ctx, svc, files)
}
