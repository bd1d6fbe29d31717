package mock

import (
	"context"

	"github.com/fwojciec/banter"
)

// Interface compliance checks.
var (
	_ banter.Authenticator = (*Authenticator)(nil)
	_ banter.FlagStore     = (*FlagStore)(nil)
	_ banter.Previewer     = (*Previewer)(nil)
)

// Authenticator is a test double for banter.Authenticator.
type Authenticator struct {
	IsSignedInFn func(ctx context.Context) (bool, error)
	SignInFn     func(ctx context.Context, credential string) error
	SignOutFn    func(ctx context.Context) error
}

// IsSignedIn delegates to IsSignedInFn.
func (a *Authenticator) IsSignedIn(ctx context.Context) (bool, error) {
	return a.IsSignedInFn(ctx)
}

// SignIn delegates to SignInFn.
func (a *Authenticator) SignIn(ctx context.Context, credential string) error {
	return a.SignInFn(ctx, credential)
}

// SignOut delegates to SignOutFn.
func (a *Authenticator) SignOut(ctx context.Context) error {
	return a.SignOutFn(ctx)
}

// FlagStore is a test double for banter.FlagStore.
type FlagStore struct {
	FlagFn    func(key string) (string, error)
	SetFlagFn func(key, value string) error
}

// Flag delegates to FlagFn.
func (s *FlagStore) Flag(key string) (string, error) {
	return s.FlagFn(key)
}

// SetFlag delegates to SetFlagFn.
func (s *FlagStore) SetFlag(key, value string) error {
	return s.SetFlagFn(key, value)
}

// Previewer is a test double for banter.Previewer.
type Previewer struct {
	OpenFn    func(f banter.File) (string, error)
	ReleaseFn func(url string) error
}

// Open delegates to OpenFn.
func (p *Previewer) Open(f banter.File) (string, error) {
	return p.OpenFn(f)
}

// Release delegates to ReleaseFn.
func (p *Previewer) Release(url string) error {
	return p.ReleaseFn(url)
}
