// Package mock provides test doubles for banter interfaces using function fields.
package mock

import (
	"context"

	"github.com/fwojciec/banter"
)

// Interface compliance checks.
var (
	_ banter.Provider = (*Provider)(nil)
	_ banter.Uploader = (*Uploader)(nil)
)

// Provider is a test double for banter.Provider.
// Set StreamFn or CompleteFn before calling the matching method.
type Provider struct {
	StreamFn   func(ctx context.Context, req banter.ChatRequest) (banter.Stream, error)
	CompleteFn func(ctx context.Context, req banter.ChatRequest) (banter.Response, error)
}

// Stream delegates to StreamFn.
func (p *Provider) Stream(ctx context.Context, req banter.ChatRequest) (banter.Stream, error) {
	return p.StreamFn(ctx, req)
}

// Complete delegates to CompleteFn.
func (p *Provider) Complete(ctx context.Context, req banter.ChatRequest) (banter.Response, error) {
	return p.CompleteFn(ctx, req)
}

// Uploader is a test double for banter.Uploader.
type Uploader struct {
	UploadFn func(ctx context.Context, files []banter.File) ([]banter.FileRef, error)
}

// Upload delegates to UploadFn.
func (u *Uploader) Upload(ctx context.Context, files []banter.File) ([]banter.FileRef, error) {
	return u.UploadFn(ctx, files)
}
