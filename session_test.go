package banter_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fwojciec/banter"
	"github.com/fwojciec/banter/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFlags is an in-memory FlagStore recording every write.
type memFlags struct {
	mu     sync.Mutex
	values map[string]string
	writes []string
}

func newMemFlags(kv ...string) *memFlags {
	m := &memFlags{values: make(map[string]string)}
	for i := 0; i+1 < len(kv); i += 2 {
		m.values[kv[i]] = kv[i+1]
	}
	return m
}

func (m *memFlags) store() *mock.FlagStore {
	return &mock.FlagStore{
		FlagFn: func(key string) (string, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			v, ok := m.values[key]
			if !ok {
				return "", banter.ErrFlagNotFound
			}
			return v, nil
		},
		SetFlagFn: func(key, value string) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			m.values[key] = value
			m.writes = append(m.writes, value)
			return nil
		},
	}
}

func TestNewSession_WarmStart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		flags *memFlags
		want  bool
	}{
		{"missing", newMemFlags(), false},
		{"one", newMemFlags(banter.SignedInKey, "1"), true},
		{"true", newMemFlags(banter.SignedInKey, "true"), true},
		{"zero", newMemFlags(banter.SignedInKey, "0"), false},
		{"garbage", newMemFlags(banter.SignedInKey, "yes"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := banter.NewSession(nil, tt.flags.store(), nil)
			assert.Equal(t, tt.want, s.SignedIn())
			assert.Empty(t, tt.flags.writes)
		})
	}

	t.Run("store error", func(t *testing.T) {
		t.Parallel()
		store := &mock.FlagStore{FlagFn: func(string) (string, error) { return "", errors.New("disk") }}
		s := banter.NewSession(nil, store, nil)
		assert.False(t, s.SignedIn())
	})

	t.Run("nil store", func(t *testing.T) {
		t.Parallel()
		assert.False(t, banter.NewSession(nil, nil, nil).SignedIn())
	})
}

func TestSession_Reconcile(t *testing.T) {
	t.Parallel()

	t.Run("authoritative state overwrites mirror", func(t *testing.T) {
		t.Parallel()
		flags := newMemFlags(banter.SignedInKey, "1")
		auth := &mock.Authenticator{IsSignedInFn: func(context.Context) (bool, error) { return false, nil }}
		s := banter.NewSession(auth, flags.store(), nil)
		require.True(t, s.SignedIn())

		require.NoError(t, s.Reconcile(context.Background()))
		assert.False(t, s.SignedIn())
		assert.Equal(t, []string{"0"}, flags.writes)
	})

	t.Run("signed in writes one", func(t *testing.T) {
		t.Parallel()
		flags := newMemFlags()
		auth := &mock.Authenticator{IsSignedInFn: func(context.Context) (bool, error) { return true, nil }}
		s := banter.NewSession(auth, flags.store(), nil)
		require.NoError(t, s.Reconcile(context.Background()))
		assert.True(t, s.SignedIn())
		assert.Equal(t, "1", flags.values[banter.SignedInKey])
	})

	t.Run("no authenticator leaves state", func(t *testing.T) {
		t.Parallel()
		flags := newMemFlags(banter.SignedInKey, "1")
		s := banter.NewSession(nil, flags.store(), nil)
		require.NoError(t, s.Reconcile(context.Background()))
		assert.True(t, s.SignedIn())
		assert.Empty(t, flags.writes)
	})

	t.Run("authenticator error leaves state", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("offline")
		flags := newMemFlags(banter.SignedInKey, "1")
		auth := &mock.Authenticator{IsSignedInFn: func(context.Context) (bool, error) { return false, boom }}
		s := banter.NewSession(auth, flags.store(), nil)
		err := s.Reconcile(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.True(t, s.SignedIn())
		assert.Empty(t, flags.writes)
	})
}

func TestSession_SignInOut(t *testing.T) {
	t.Parallel()

	t.Run("delegates and mirrors", func(t *testing.T) {
		t.Parallel()
		var gotCredential string
		flags := newMemFlags()
		auth := &mock.Authenticator{
			SignInFn: func(_ context.Context, credential string) error {
				gotCredential = credential
				return nil
			},
			SignOutFn: func(context.Context) error { return nil },
		}
		s := banter.NewSession(auth, flags.store(), nil)

		require.NoError(t, s.SignIn(context.Background(), "key-123"))
		assert.Equal(t, "key-123", gotCredential)
		assert.True(t, s.SignedIn())

		require.NoError(t, s.SignOut(context.Background()))
		assert.False(t, s.SignedIn())
		assert.Equal(t, []string{"1", "0"}, flags.writes)
	})

	t.Run("failed sign in keeps state", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("rejected")
		auth := &mock.Authenticator{SignInFn: func(context.Context, string) error { return boom }}
		s := banter.NewSession(auth, nil, nil)
		assert.ErrorIs(t, s.SignIn(context.Background(), "bad"), boom)
		assert.False(t, s.SignedIn())
	})

	t.Run("no authenticator", func(t *testing.T) {
		t.Parallel()
		s := banter.NewSession(nil, nil, nil)
		assert.ErrorIs(t, s.SignIn(context.Background(), "k"), banter.ErrAuthUnavailable)
		assert.ErrorIs(t, s.SignOut(context.Background()), banter.ErrAuthUnavailable)
	})
}
