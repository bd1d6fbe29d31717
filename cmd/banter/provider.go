package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/fwojciec/banter"
	"github.com/fwojciec/banter/anthropic"
	"github.com/fwojciec/banter/fs"
	"github.com/fwojciec/banter/gemini"
)

// backend is a provider client built for one API key.
type backend interface {
	banter.Provider
	banter.Uploader
}

// keySource supplies the current API key. "" means signed out.
type keySource interface {
	APIKey() (string, error)
}

type buildFunc func(ctx context.Context, key string) (backend, error)

// lazyProvider builds the provider client on first use and rebuilds it
// whenever the key changes, so signing in takes effect without a restart.
type lazyProvider struct {
	keys  keySource
	build buildFunc

	mu      sync.Mutex
	key     string
	backend backend
}

var (
	_ banter.Provider = (*lazyProvider)(nil)
	_ banter.Uploader = (*lazyProvider)(nil)
)

func newLazyProvider(keys keySource, build buildFunc) *lazyProvider {
	return &lazyProvider{keys: keys, build: build}
}

func (p *lazyProvider) Stream(ctx context.Context, req banter.ChatRequest) (banter.Stream, error) {
	b, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	return b.Stream(ctx, req)
}

func (p *lazyProvider) Complete(ctx context.Context, req banter.ChatRequest) (banter.Response, error) {
	b, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	return b.Complete(ctx, req)
}

func (p *lazyProvider) Upload(ctx context.Context, files []banter.File) ([]banter.FileRef, error) {
	b, err := p.get(ctx)
	if err != nil {
		return nil, err
	}
	return b.Upload(ctx, files)
}

func (p *lazyProvider) get(ctx context.Context) (backend, error) {
	key, err := p.keys.APIKey()
	if err != nil {
		return nil, fmt.Errorf("read API key: %w", err)
	}
	if key == "" {
		return nil, banter.ErrNotSignedIn
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backend != nil && p.key == key {
		return p.backend, nil
	}
	b, err := p.build(ctx, key)
	if err != nil {
		return nil, err
	}
	p.key, p.backend = key, b
	return b, nil
}

// anthropicBackend sends files inline, so uploads are local copies that the
// client reads back when building the request.
type anthropicBackend struct {
	*anthropic.Client
	store *fs.Store
}

func (b anthropicBackend) Upload(ctx context.Context, files []banter.File) ([]banter.FileRef, error) {
	return b.store.Upload(ctx, files)
}

// builder returns how to construct the named provider's client.
func builder(name string, store *fs.Store) (buildFunc, error) {
	switch name {
	case providerGemini:
		return func(ctx context.Context, key string) (backend, error) {
			client, err := gemini.New(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("gemini: %w", err)
			}
			return client, nil
		}, nil
	case providerAnthropic:
		return func(ctx context.Context, key string) (backend, error) {
			client := anthropic.New(key, anthropic.WithFileReader(store.ReadFile))
			return anthropicBackend{Client: client, store: store}, nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: must be %q or %q", name, providerGemini, providerAnthropic)
	}
}
