package bubbletea_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/fwojciec/banter"
	bt "github.com/fwojciec/banter/bubbletea"
	"github.com/fwojciec/banter/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, nil)
	m := f.model()

	assert.False(t, m.Running())
	assert.Empty(t, m.Status())
	assert.Empty(t, m.SelectedModel())
	assert.Equal(t, "Initializing...", m.View())
}

func TestModel_Update(t *testing.T) {
	t.Parallel()

	t.Run("window size initializes viewport", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model())

		assert.Equal(t, 80, m.Viewport.Width)
		assert.Equal(t, 21, m.Viewport.Height) // 24 - tray - status - input
		assert.Contains(t, m.View(), "Enter to send")
	})

	t.Run("window size resize updates viewport dimensions", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model())
		m = updateModel(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

		assert.Equal(t, 120, m.Viewport.Width)
		assert.Equal(t, 37, m.Viewport.Height)
	})

	t.Run("tiny terminal keeps one viewport line", func(t *testing.T) {
		t.Parallel()
		m := initModelWithSize(t, newFixture(t, true, nil).model(), 20, 2)
		assert.Equal(t, 1, m.Viewport.Height)
	})

	t.Run("initial suggestions are offered", func(t *testing.T) {
		t.Parallel()
		m := initModelWithSize(t, newFixture(t, true, nil).model(), 200, 24)
		assert.Contains(t, m.View(), "Tab: "+banter.InitialSuggestions[0])
	})

	t.Run("status shows model and sign-in state", func(t *testing.T) {
		t.Parallel()
		m := initModelWithSize(t, newFixture(t, false, nil).model(bt.WithModels("gemini-2.5-flash")), 200, 24)
		assert.Contains(t, m.View(), "gemini-2.5-flash · signed out")
	})
}

func TestModel_Keys(t *testing.T) {
	t.Parallel()

	t.Run("ctrl+c quits when idle", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model())
		_, cmd := m.Update(key(tea.KeyCtrlC))
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	})

	t.Run("empty enter does nothing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		m := initModel(t, f.model())
		m, cmd := updateKey(t, m, tea.KeyEnter)
		assert.Nil(t, cmd)
		assert.False(t, m.Running())
		assert.Zero(t, f.conversation.Len())
	})

	t.Run("enter while signed out asks to sign in", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false, nil)
		m := initModel(t, f.model())
		m = typeText(t, m, "hi")
		m = updateModel(t, m, key(tea.KeyEnter))

		assert.Equal(t, "Sign in required", m.Status())
		assert.Equal(t, "hi", m.Input.Value())
		assert.False(t, m.Running())
		assert.Zero(t, f.conversation.Len())
	})

	t.Run("enter starts a turn", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model())
		m = typeText(t, m, "hi")
		m, cmd := updateKey(t, m, tea.KeyEnter)

		assert.NotNil(t, cmd)
		assert.True(t, m.Running())
		assert.Empty(t, m.Input.Value())
		assert.Contains(t, m.View(), "Sending... Esc to stop")
	})

	t.Run("ctrl+t cycles models", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model(bt.WithModels("a", "b")))
		assert.Equal(t, "a", m.SelectedModel())

		m = updateModel(t, m, key(tea.KeyCtrlT))
		assert.Equal(t, "b", m.SelectedModel())
		assert.Equal(t, "Model: b", m.Status())

		m = updateModel(t, m, key(tea.KeyCtrlT))
		assert.Equal(t, "a", m.SelectedModel())
	})

	t.Run("ctrl+t without models is a no-op", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model())
		m = updateModel(t, m, key(tea.KeyCtrlT))
		assert.Empty(t, m.SelectedModel())
		assert.Empty(t, m.Status())
	})

	t.Run("tab fills suggestions in turn", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model())

		m = updateModel(t, m, key(tea.KeyTab))
		assert.Equal(t, banter.InitialSuggestions[0], m.Input.Value())

		m = updateModel(t, m, key(tea.KeyTab))
		assert.Equal(t, banter.InitialSuggestions[1], m.Input.Value())
	})

	t.Run("tab keeps typed text", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model())
		m = typeText(t, m, "my own")
		m = updateModel(t, m, key(tea.KeyTab))
		assert.Equal(t, "my own", m.Input.Value())
	})

	t.Run("ctrl+n starts a new chat", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		f.conversation.AppendUser("old", nil)
		f.conversation.AppendAssistant("old reply", false)
		m := initModel(t, f.model())
		require.Contains(t, ansi.Strip(bt.RenderContent(m)), "old reply")

		m = updateModel(t, m, key(tea.KeyCtrlN))

		assert.Zero(t, f.conversation.Len())
		assert.Equal(t, "New chat", m.Status())
		assert.Empty(t, bt.RenderContent(m))
	})

	t.Run("ctrl+o opens the picker and esc closes it", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model(bt.WithPickerDir(t.TempDir())))

		m, cmd := updateKey(t, m, tea.KeyCtrlO)
		assert.True(t, bt.InPicker(m))
		assert.NotNil(t, cmd)
		assert.Contains(t, m.View(), "Attach an image")

		m = updateModel(t, m, key(tea.KeyEsc))
		assert.False(t, bt.InPicker(m))
	})

	t.Run("ctrl+l opens the credential prompt when signed out", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, false, &mock.Authenticator{}).model())

		m = updateModel(t, m, key(tea.KeyCtrlL))
		assert.True(t, bt.InSignIn(m))
		assert.Contains(t, m.View(), "Enter to sign in, Esc to cancel")

		m = typeText(t, m, "secret")
		assert.NotContains(t, m.View(), "secret")

		m = updateModel(t, m, key(tea.KeyEsc))
		assert.False(t, bt.InSignIn(m))
		assert.Empty(t, m.Credential.Value())
	})

	t.Run("ctrl+l signs out when signed in", func(t *testing.T) {
		t.Parallel()
		auth := &mock.Authenticator{
			SignOutFn: func(ctx context.Context) error { return nil },
		}
		f := newFixture(t, true, auth)
		m := initModel(t, f.model())

		_, cmd := updateKey(t, m, tea.KeyCtrlL)
		require.NotNil(t, cmd)
		msg := cmd()
		assert.Equal(t, bt.AuthDoneMsg{SignedIn: false}, msg)
		assert.False(t, f.session.SignedIn())

		m = updateModel(t, m, msg)
		assert.Equal(t, "Signed out", m.Status())
	})

	t.Run("failed sign out is reported", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model())
		m = updateModel(t, m, bt.AuthDoneMsg{SignedIn: true, Err: errors.New("offline")})
		assert.Equal(t, "Error: offline", m.Status())
	})
}

func TestModel_Attachments(t *testing.T) {
	t.Parallel()

	images := func(pattern string) ([]banter.File, error) {
		return []banter.File{
			{Name: "a.png", MimeType: "image/png"},
			{Name: "b.jpg", MimeType: "image/jpeg"},
		}, nil
	}

	t.Run("attach command adds matching images", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		m := initModel(t, f.model(bt.WithGlob(images)))
		m = typeText(t, m, "/attach *.png")
		m = updateModel(t, m, key(tea.KeyEnter))

		assert.Equal(t, "Attached 2 images", m.Status())
		assert.Equal(t, 2, f.attachments.Len())
		assert.Empty(t, m.Input.Value())
		assert.False(t, m.Running())
		view := m.View()
		assert.Contains(t, view, "2/6")
		assert.Contains(t, view, "[1] a.png")
		assert.Contains(t, view, "[2] b.jpg")
	})

	t.Run("attach command without pattern shows usage", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model(bt.WithGlob(images)))
		m = typeText(t, m, "/attach")
		m = updateModel(t, m, key(tea.KeyEnter))
		assert.Equal(t, "Usage: /attach <pattern>", m.Status())
	})

	t.Run("glob failure is reported", func(t *testing.T) {
		t.Parallel()
		failing := func(string) ([]banter.File, error) { return nil, errors.New("bad pattern") }
		m := initModel(t, newFixture(t, true, nil).model(bt.WithGlob(failing)))
		m = typeText(t, m, "/attach [")
		m = updateModel(t, m, key(tea.KeyEnter))
		assert.Equal(t, "Attach failed: bad pattern", m.Status())
	})

	t.Run("picked non-image is not attached", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, "notes.txt")
		require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

		f := newFixture(t, true, nil)
		m := bt.AttachPath(initModel(t, f.model()), path)

		assert.Equal(t, "No images attached (up to 6)", m.Status())
		assert.Zero(t, f.attachments.Len())
	})

	t.Run("picked image is attached", func(t *testing.T) {
		t.Parallel()
		inspect := func(path string) (banter.File, error) {
			return banter.File{Name: filepath.Base(path), Path: path, MimeType: "image/png"}, nil
		}
		f := newFixture(t, true, nil)
		m := bt.AttachPath(initModel(t, f.model(bt.WithInspector(inspect))), "/photos/cat.png")

		assert.Equal(t, "Attached cat.png", m.Status())
		assert.Equal(t, 1, f.attachments.Len())
	})

	t.Run("ctrl+x removes the last attachment", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		m := initModel(t, f.model(bt.WithGlob(images)))
		m = typeText(t, m, "/attach *")
		m = updateModel(t, m, key(tea.KeyEnter))

		m = updateModel(t, m, key(tea.KeyCtrlX))

		assert.Equal(t, "Removed b.jpg", m.Status())
		require.Len(t, f.attachments.List(), 1)
		assert.Equal(t, "a.png", f.attachments.List()[0].File.Name)
	})

	t.Run("attachments alone can be sent", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model(bt.WithGlob(images)))
		m = typeText(t, m, "/attach *")
		m = updateModel(t, m, key(tea.KeyEnter))

		m = updateModel(t, m, key(tea.KeyEnter))
		assert.True(t, m.Running())
	})
}

func TestModel_Reconcile(t *testing.T) {
	t.Parallel()

	for name, msg := range map[string]tea.Msg{
		"focus":               tea.FocusMsg{},
		"credentials changed": bt.CredentialsChangedMsg{},
	} {
		t.Run(name+" revalidates the session", func(t *testing.T) {
			t.Parallel()
			auth := &mock.Authenticator{
				IsSignedInFn: func(ctx context.Context) (bool, error) { return true, nil },
			}
			f := newFixture(t, false, auth)
			m := initModel(t, f.model())

			_, cmd := m.Update(msg)
			require.NotNil(t, cmd)
			assert.Equal(t, bt.ReconciledMsg{}, cmd())
			assert.True(t, f.session.SignedIn())
		})
	}

	t.Run("failed check keeps the state", func(t *testing.T) {
		t.Parallel()
		auth := &mock.Authenticator{
			IsSignedInFn: func(ctx context.Context) (bool, error) { return false, errors.New("offline") },
		}
		f := newFixture(t, true, auth)
		m := initModel(t, f.model())

		_, cmd := m.Update(tea.FocusMsg{})
		msg, ok := cmd().(bt.ReconciledMsg)
		require.True(t, ok)
		assert.Error(t, msg.Err)
		assert.True(t, f.session.SignedIn())
	})
}

func TestModel_Events(t *testing.T) {
	t.Parallel()

	t.Run("streaming state changes the status", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model())
		m = typeText(t, m, "hi")
		m = updateModel(t, m, key(tea.KeyEnter))

		m = updateModel(t, m, bt.EventMsg{Event: banter.EventState{State: banter.StateStreaming}})
		assert.Contains(t, m.View(), "Streaming... Esc to stop")
	})

	t.Run("submit done returns to idle", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model())
		m = typeText(t, m, "hi")
		m = updateModel(t, m, key(tea.KeyEnter))

		m = updateModel(t, m, bt.SubmitDoneMsg{})
		assert.False(t, m.Running())
		assert.Contains(t, m.View(), "Enter to send")
	})

	t.Run("not signed in error sets status", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model())
		m = updateModel(t, m, bt.SubmitDoneMsg{Err: banter.ErrNotSignedIn})
		assert.Equal(t, "Sign in required", m.Status())
	})

	t.Run("busy error is ignored", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newFixture(t, true, nil).model())
		m = updateModel(t, m, bt.SubmitDoneMsg{Err: banter.ErrBusy})
		assert.Empty(t, m.Status())
	})

	t.Run("thinking indicator shows until text arrives", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		m := initModel(t, f.model())
		m = typeText(t, m, "hi")
		m = updateModel(t, m, key(tea.KeyEnter))
		f.conversation.AppendUser("hi", nil)
		assert.Contains(t, bt.RenderContent(m), "Thinking...")

		id := f.conversation.AppendAssistantPlaceholder()
		f.conversation.AppendChunk(id, "Hel")
		assert.NotContains(t, bt.RenderContent(m), "Thinking...")
	})
}

func TestModel_RenderContent(t *testing.T) {
	t.Parallel()

	t.Run("user turn with image chip", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		f.conversation.AppendUser("look at this", []string{"blob:1", "blob:2"})
		m := initModel(t, f.model())

		out := ansi.Strip(bt.RenderContent(m))
		assert.Contains(t, out, "> look at this")
		assert.Contains(t, out, "[2 images]")
	})

	t.Run("assistant turn has timestamp and renders math", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		f.conversation.AppendUser("pythagoras", nil)
		f.conversation.AppendAssistant("It is $a^2 + b^2 = c^2$.", false)
		m := initModel(t, f.model())

		turns := f.conversation.Turns()
		out := ansi.Strip(bt.RenderContent(m))
		assert.Contains(t, out, turns[1].Timestamp.Format("15:04"))
		assert.Contains(t, out, "a² + b² = c²")
		assert.NotContains(t, out, "$")
	})

	t.Run("fenced code is highlighted apart from prose", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		f.conversation.AppendAssistant("Run this:\n```go\nfmt.Println(\"hi\")\n```\nDone.", false)
		m := initModel(t, f.model())

		out := ansi.Strip(bt.RenderContent(m))
		assert.Contains(t, out, "Run this:")
		assert.Contains(t, out, `fmt.Println("hi")`)
		assert.Contains(t, out, "Done.")
		assert.NotContains(t, out, "```")
	})

	t.Run("failed turn is shown as error text", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		f.conversation.AppendAssistant("AI error: bad image", true)
		m := initModel(t, f.model())

		assert.Contains(t, ansi.Strip(bt.RenderContent(m)), "AI error: bad image")
	})

	t.Run("remote control sequences are stripped", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		f.conversation.AppendAssistant("safe\x1b]0;title\x07 text", false)
		m := initModel(t, f.model())

		out := bt.RenderContent(m)
		assert.NotContains(t, out, "title")
		assert.Contains(t, ansi.Strip(out), "safe text")
	})

	t.Run("empty assistant placeholder renders nothing", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		f.conversation.AppendAssistantPlaceholder()
		m := initModel(t, f.model())
		assert.Empty(t, bt.RenderContent(m))
	})
}

func TestModel_Teatest(t *testing.T) {
	t.Parallel()

	// Follow-up suggestions only show once the turn is over.
	idle := []byte(banter.FollowUpSuggestions[0])

	t.Run("full chat cycle with streamed reply", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		f.provider = replyProvider("Hello ", "world!")
		m := f.model()

		tm := teatest.NewTestModel(t, m,
			teatest.WithInitialTermSize(80, 24),
		)

		tm.Type("hi")
		tm.Send(key(tea.KeyEnter))

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("world!")) && bytes.Contains(out, idle)
		}, teatest.WithDuration(5*time.Second))

		tm.Send(key(tea.KeyCtrlC))

		fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
		final, ok := fm.(bt.Model)
		require.True(t, ok)
		assert.False(t, final.Running())

		turns := f.conversation.Turns()
		require.Len(t, turns, 2)
		assert.Equal(t, "hi", turns[0].Text)
		assert.Equal(t, "Hello world!", turns[1].Text)
	})

	t.Run("esc stops a streaming reply", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		f.provider = hangingProvider("Partial")
		m := f.model()

		tm := teatest.NewTestModel(t, m,
			teatest.WithInitialTermSize(80, 24),
		)

		tm.Type("hi")
		tm.Send(key(tea.KeyEnter))

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("Partial"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(key(tea.KeyEsc))

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, idle)
		}, teatest.WithDuration(5*time.Second))

		tm.Send(key(tea.KeyCtrlC))
		tm.WaitFinished(t, teatest.WithFinalTimeout(5*time.Second))

		turns := f.conversation.Turns()
		require.Len(t, turns, 2)
		assert.Equal(t, "Partial", turns[1].Text)
		assert.False(t, turns[1].Failed)
	})

	t.Run("usage limit is shown in place of the reply", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true, nil)
		f.provider = &mock.Provider{
			StreamFn: func(ctx context.Context, req banter.ChatRequest) (banter.Stream, error) {
				return nil, &banter.RemoteError{Code: 429, Message: "quota", Err: banter.ErrUsageLimited}
			},
		}
		m := f.model()

		tm := teatest.NewTestModel(t, m,
			teatest.WithInitialTermSize(80, 24),
		)

		tm.Type("hi")
		tm.Send(key(tea.KeyEnter))

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte(banter.UsageLimitedText)) && bytes.Contains(out, idle)
		}, teatest.WithDuration(5*time.Second))

		tm.Send(key(tea.KeyCtrlC))
		tm.WaitFinished(t, teatest.WithFinalTimeout(5*time.Second))

		turns := f.conversation.Turns()
		require.Len(t, turns, 2)
		assert.True(t, turns[1].Failed)
	})

	t.Run("sign in through the credential prompt", func(t *testing.T) {
		t.Parallel()
		var (
			mu       sync.Mutex
			received string
			signedIn bool
		)
		auth := &mock.Authenticator{
			IsSignedInFn: func(ctx context.Context) (bool, error) {
				mu.Lock()
				defer mu.Unlock()
				return signedIn, nil
			},
			SignInFn: func(ctx context.Context, credential string) error {
				mu.Lock()
				defer mu.Unlock()
				received = credential
				signedIn = true
				return nil
			},
		}
		f := newFixture(t, false, auth)
		m := f.model()

		tm := teatest.NewTestModel(t, m,
			teatest.WithInitialTermSize(80, 24),
		)

		tm.Send(key(tea.KeyCtrlL))
		tm.Type("sk-test")
		tm.Send(key(tea.KeyEnter))

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("Signed in"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(key(tea.KeyCtrlC))
		tm.WaitFinished(t, teatest.WithFinalTimeout(5*time.Second))

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "sk-test", received)
		assert.True(t, f.session.SignedIn())
	})
}

func updateKey(t *testing.T, m bt.Model, k tea.KeyType) (bt.Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(key(k))
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model, cmd
}
