package bubbletea_test

import (
	"context"
	"io"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/banter"
	bt "github.com/fwojciec/banter/bubbletea"
	"github.com/fwojciec/banter/mock"
	"github.com/stretchr/testify/require"
)

// fixture wires a real controller to test doubles.
type fixture struct {
	conversation *banter.Conversation
	attachments  *banter.Attachments
	session      *banter.Session
	provider     banter.Provider
}

func newFixture(t *testing.T, signedIn bool, auth banter.Authenticator) *fixture {
	t.Helper()
	var mu sync.Mutex
	flags := map[string]string{}
	if signedIn {
		flags[banter.SignedInKey] = "1"
	}
	store := &mock.FlagStore{
		FlagFn: func(key string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			v, ok := flags[key]
			if !ok {
				return "", banter.ErrFlagNotFound
			}
			return v, nil
		},
		SetFlagFn: func(key, value string) error {
			mu.Lock()
			defer mu.Unlock()
			flags[key] = value
			return nil
		},
	}
	return &fixture{
		conversation: banter.NewConversation(),
		attachments:  banter.NewAttachments(nil, nil),
		session:      banter.NewSession(auth, store, nil),
		provider:     replyProvider("Hello!"),
	}
}

func (f *fixture) model(opts ...bt.Option) bt.Model {
	c := banter.NewController(f.provider, nil, f.session, f.conversation, f.attachments)
	return bt.New(c, f.conversation, f.session, f.attachments, banter.DefaultTheme(), opts...)
}

// replyProvider streams the given chunks and ends.
func replyProvider(chunks ...string) *mock.Provider {
	return &mock.Provider{
		StreamFn: func(ctx context.Context, req banter.ChatRequest) (banter.Stream, error) {
			cs := make([]banter.Chunk, len(chunks))
			for i, c := range chunks {
				cs[i] = banter.ChunkText{Text: c}
			}
			return mock.ChunkStream(cs...), nil
		},
	}
}

// hangingProvider streams first and then blocks until the turn is cancelled.
func hangingProvider(first string) *mock.Provider {
	return &mock.Provider{
		StreamFn: func(ctx context.Context, req banter.ChatRequest) (banter.Stream, error) {
			sent := false
			return &mock.Stream{NextFn: func() (banter.Chunk, error) {
				if !sent {
					sent = true
					return banter.ChunkText{Text: first}, nil
				}
				<-ctx.Done()
				return nil, io.EOF
			}}, nil
		},
	}
}

// initModel sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, m bt.Model) bt.Model {
	t.Helper()
	return initModelWithSize(t, m, 80, 24)
}

// initModelWithSize initializes the viewport with a custom terminal size.
func initModelWithSize(t *testing.T, m bt.Model, width, height int) bt.Model {
	t.Helper()
	return updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func typeText(t *testing.T, m bt.Model, s string) bt.Model {
	t.Helper()
	return updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}
