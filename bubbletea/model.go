package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/banter"
	"github.com/fwojciec/banter/fs"
)

var _ tea.Model = Model{}

// chromeHeight is the number of lines below the viewport: the tray or
// suggestions line, the status line and the input.
const chromeHeight = 3

// attachCommand attaches every image matching a glob pattern.
const attachCommand = "/attach"

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}

type mode int

const (
	modeChat mode = iota
	modePicker
	modeSignIn
)

// Model is the Bubble Tea model for the banter TUI.
type Model struct {
	// Input is the prompt input. Exported for test access.
	Input textinput.Model
	// Credential is the masked input used to sign in. Exported for test access.
	Credential textinput.Model
	// Viewport is the scrollable conversation. Exported for test access.
	Viewport viewport.Model
	// Picker is the image file picker. Exported for test access.
	Picker filepicker.Model

	controller   *banter.Controller
	conversation *banter.Conversation
	session      *banter.Session
	attachments  *banter.Attachments

	styles   Styles
	keys     keyMap
	spinner  spinner.Model
	renderer *turnRenderer

	inspect func(path string) (banter.File, error)
	glob    func(pattern string) ([]banter.File, error)

	models     []string
	model      int
	suggestion int

	mode      mode
	state     banter.State
	running   bool
	eventCh   chan banter.Event
	doneCh    chan error
	status    string
	statusErr bool
	statusOK  bool
	ready     bool
}

// Option configures a [Model].
type Option func(*Model)

// WithModels sets the selectable model IDs. The first one is selected.
func WithModels(models ...string) Option {
	return func(m *Model) { m.models = models }
}

// WithPickerDir sets the directory the file picker opens in.
func WithPickerDir(dir string) Option {
	return func(m *Model) { m.Picker.CurrentDirectory = dir }
}

// WithInspector sets how picked paths are turned into files.
// Default is fs.Inspect.
func WithInspector(fn func(path string) (banter.File, error)) Option {
	return func(m *Model) { m.inspect = fn }
}

// WithGlob sets how /attach patterns are resolved. Default is fs.Glob.
func WithGlob(fn func(pattern string) ([]banter.File, error)) Option {
	return func(m *Model) { m.glob = fn }
}

// New creates a new TUI Model driving the given controller.
func New(controller *banter.Controller, conversation *banter.Conversation, session *banter.Session, attachments *banter.Attachments, theme banter.Theme, opts ...Option) Model {
	styles := NewStyles(theme)

	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	cred := textinput.New()
	cred.Placeholder = "API key"
	cred.Prompt = "API key: "
	cred.EchoMode = textinput.EchoPassword
	cred.EchoCharacter = '•'

	fp := filepicker.New()
	fp.AllowedTypes = imageExtensions
	fp.CurrentDirectory = "."

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Accent))

	m := Model{
		Input:        ti,
		Credential:   cred,
		Picker:       fp,
		controller:   controller,
		conversation: conversation,
		session:      session,
		attachments:  attachments,
		styles:       styles,
		keys:         defaultKeyMap(),
		spinner:      sp,
		renderer:     newTurnRenderer(theme, styles),
		inspect:      fs.Inspect,
		glob:         fs.Glob,
		state:        banter.StateIdle,
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

// Running returns whether a turn is in flight.
func (m Model) Running() bool { return m.running }

// Status returns the transient status message, if any.
func (m Model) Status() string { return m.status }

// SelectedModel returns the model ID sent with the next submit.
// Empty means the provider default.
func (m Model) SelectedModel() string {
	if len(m.models) == 0 {
		return ""
	}
	return m.models[m.model]
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, reconcile(m.session))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		var cmd tea.Cmd
		m.Picker, cmd = m.Picker.Update(msg)
		return m, cmd

	case tea.FocusMsg, CredentialsChangedMsg:
		return m, reconcile(m.session)

	case ReconciledMsg:
		return m, nil

	case AuthDoneMsg:
		switch {
		case msg.Err != nil:
			m = m.setStatus(fmt.Sprintf("Error: %v", msg.Err), true)
		case msg.SignedIn:
			m = m.setStatus("Signed in", false)
			m.statusOK = true
		default:
			m = m.setStatus("Signed out", false)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modePicker:
			return m.handlePickerKey(msg)
		case modeSignIn:
			return m.handleSignInKey(msg)
		}
		return m.handleKey(msg)

	case EventMsg:
		if s, ok := msg.Event.(banter.EventState); ok {
			m.state = s.State
		}
		m = m.refresh()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case SubmitDoneMsg:
		m.running = false
		m.state = banter.StateIdle
		m.eventCh = nil
		m.doneCh = nil
		switch {
		case msg.Err == nil:
		case errors.Is(msg.Err, banter.ErrNotSignedIn):
			m = m.setStatus("Sign in required", true)
		case errors.Is(msg.Err, banter.ErrBusy), errors.Is(msg.Err, banter.ErrEmptyInput):
		default:
			m = m.setStatus(fmt.Sprintf("Error: %v", msg.Err), true)
		}
		cmd := m.Input.Focus()
		return m.refresh(), cmd

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m = m.refresh()
		return m, cmd
	}

	// Directory listings arrive as messages after the picker opens.
	var cmd tea.Cmd
	m.Picker, cmd = m.Picker.Update(msg)
	cmds = append(cmds, cmd)

	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running && m.mode == modeChat {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.mode == modePicker {
		return m.styles.Accent.Render("Attach an image (esc to cancel)") + "\n" + m.Picker.View()
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.chipsLine())
	b.WriteString("\n")
	b.WriteString(m.statusView())
	b.WriteString("\n")
	if m.mode == modeSignIn {
		b.WriteString(m.Credential.View())
	} else {
		b.WriteString(m.Input.View())
	}
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	vpHeight := msg.Height - chromeHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}

	m.Input.Width = msg.Width
	m.Credential.Width = msg.Width
	return m.refresh()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.running {
			m.controller.Stop()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Stop):
		if m.running {
			m.controller.Stop()
		}
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.NewChat):
		m.controller.NewChat()
		m.renderer.reset()
		m.suggestion = 0
		m = m.setStatus("New chat", false)
		return m.refresh(), nil

	case key.Matches(msg, m.keys.Attach):
		if m.running {
			return m.setStatus("Wait for the reply to finish", true), nil
		}
		m.mode = modePicker
		return m, m.Picker.Init()

	case key.Matches(msg, m.keys.Detach):
		list := m.attachments.List()
		if len(list) == 0 || m.running {
			return m, nil
		}
		last := list[len(list)-1]
		m.attachments.Remove(last.ID)
		return m.setStatus("Removed "+last.File.Name, false), nil

	case key.Matches(msg, m.keys.Auth):
		if m.running {
			return m, nil
		}
		if m.session.SignedIn() {
			return m, signOut(m.session)
		}
		m.mode = modeSignIn
		m.Input.Blur()
		cmd := m.Credential.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Model):
		if len(m.models) == 0 {
			return m, nil
		}
		m.model = (m.model + 1) % len(m.models)
		return m.setStatus("Model: "+m.SelectedModel(), false), nil

	case key.Matches(msg, m.keys.Suggest):
		return m.fillSuggestion(), nil
	}

	// When idle, pass keys to both the input (for typing) and viewport
	// (for scrolling). Only forward non-character keys to viewport to avoid
	// conflicts (e.g. 'j'/'k' are viewport scroll AND text characters).
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Stop) {
		m.mode = modeChat
		return m, nil
	}
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.Picker, cmd = m.Picker.Update(msg)
	if ok, path := m.Picker.DidSelectFile(msg); ok {
		m.mode = modeChat
		return m.attachPath(path), cmd
	}
	if ok, _ := m.Picker.DidSelectDisabledFile(msg); ok {
		m = m.setStatus("Only images can be attached", true)
	}
	return m, cmd
}

func (m Model) handleSignInKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Stop):
		m = m.closeSignIn()
		cmd := m.Input.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Submit):
		credential := strings.TrimSpace(m.Credential.Value())
		if credential == "" {
			return m, nil
		}
		m = m.closeSignIn()
		cmd := m.Input.Focus()
		return m, tea.Batch(cmd, signIn(m.session, credential))
	}
	var cmd tea.Cmd
	m.Credential, cmd = m.Credential.Update(msg)
	return m, cmd
}

func (m Model) closeSignIn() Model {
	m.Credential.SetValue("")
	m.Credential.Blur()
	m.mode = modeChat
	return m
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.running {
		return m, nil
	}
	text := strings.TrimSpace(m.Input.Value())
	if text == attachCommand || strings.HasPrefix(text, attachCommand+" ") {
		m.Input.SetValue("")
		return m.attachGlob(strings.TrimSpace(strings.TrimPrefix(text, attachCommand))), nil
	}
	if text == "" && m.attachments.Len() == 0 {
		return m, nil
	}
	if !m.session.SignedIn() {
		return m.setStatus("Sign in required", true), nil
	}

	m.Input.SetValue("")
	m.status = ""
	m.running = true
	m.state = banter.StateSending
	m.eventCh = make(chan banter.Event, 256)
	m.doneCh = make(chan error, 1)
	m.Input.Blur()
	m = m.refresh()

	return m, tea.Batch(
		startSubmit(m.controller, text, m.SelectedModel(), m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
		m.spinner.Tick,
	)
}

func (m Model) fillSuggestion() Model {
	suggestions := banter.Suggestions(m.conversation)
	if len(suggestions) == 0 || m.running {
		return m
	}
	if v := m.Input.Value(); v != "" && !slices.Contains(suggestions, v) {
		return m
	}
	m.Input.SetValue(suggestions[m.suggestion%len(suggestions)])
	m.Input.CursorEnd()
	m.suggestion++
	return m
}

func (m Model) attachPath(path string) Model {
	f, err := m.inspect(path)
	if err != nil {
		return m.setStatus(fmt.Sprintf("Attach failed: %v", err), true)
	}
	return m.attachFiles([]banter.File{f})
}

func (m Model) attachGlob(pattern string) Model {
	if pattern == "" {
		return m.setStatus("Usage: /attach <pattern>", true)
	}
	files, err := m.glob(fs.ExpandHome(pattern))
	if err != nil {
		return m.setStatus(fmt.Sprintf("Attach failed: %v", err), true)
	}
	return m.attachFiles(files)
}

func (m Model) attachFiles(files []banter.File) Model {
	added, err := m.attachments.Add(files)
	switch {
	case err != nil && len(added) == 0:
		return m.setStatus(fmt.Sprintf("Attach failed: %v", err), true)
	case len(added) == 0:
		return m.setStatus(fmt.Sprintf("No images attached (up to %d)", banter.MaxAttachments), true)
	case err != nil:
		return m.setStatus(fmt.Sprintf("Attached %d, some failed: %v", len(added), err), true)
	case len(added) == 1:
		return m.setStatus("Attached "+added[0].File.Name, false)
	default:
		return m.setStatus(fmt.Sprintf("Attached %d images", len(added)), false)
	}
}

func (m Model) setStatus(text string, isErr bool) Model {
	m.status = text
	m.statusErr = isErr
	m.statusOK = false
	return m
}

// refresh re-renders the conversation into the viewport.
func (m Model) refresh() Model {
	if !m.ready {
		return m
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	turns := m.conversation.Turns()
	parts := make([]string, 0, len(turns)+1)
	for _, t := range turns {
		if out := m.renderer.render(t, m.Viewport.Width); out != "" {
			parts = append(parts, out)
		}
	}
	if m.running && awaitingText(turns) {
		parts = append(parts, m.spinner.View()+m.styles.Muted.Render(" Thinking..."))
	}
	return strings.Join(parts, "\n\n")
}

// awaitingText reports whether no reply text has arrived for the latest
// user turn yet.
func awaitingText(turns []banter.Turn) bool {
	if len(turns) == 0 {
		return true
	}
	last := turns[len(turns)-1]
	return last.IsUser() || last.Text == ""
}

func (m Model) chipsLine() string {
	width := m.Viewport.Width
	if atts := m.attachments.List(); len(atts) > 0 {
		return m.styles.Chip.Render(trayLine(atts, width))
	}
	if m.Input.Value() == "" || m.suggestion > 0 {
		if s := banter.Suggestions(m.conversation); len(s) > 0 && !m.running {
			return m.styles.Muted.Render(suggestionLine(s, width))
		}
	}
	return ""
}

func (m Model) statusView() string {
	width := m.Viewport.Width
	if m.status != "" {
		style := m.styles.Accent
		switch {
		case m.statusErr:
			style = m.styles.Error
		case m.statusOK:
			style = m.styles.Success
		}
		return style.Render(fit(m.status, width))
	}

	var left string
	switch {
	case m.mode == modeSignIn:
		left = "Enter to sign in, Esc to cancel"
	case m.running && m.state == banter.StateStreaming:
		left = "Streaming... Esc to stop"
	case m.running:
		left = "Sending... Esc to stop"
	default:
		left = "Enter to send, Ctrl+O attach, Ctrl+N new chat, Ctrl+L sign in, Ctrl+C quit"
	}
	auth := "signed out"
	if m.session.SignedIn() {
		auth = "signed in"
	}
	right := auth
	if model := m.SelectedModel(); model != "" {
		right = model + " · " + auth
	}
	return m.styles.Muted.Render(statusLine(left, right, width))
}

// startSubmit runs one controller turn in a goroutine and signals completion.
func startSubmit(c *banter.Controller, text, model string, eventCh chan<- banter.Event, doneCh chan<- error) tea.Cmd {
	return func() tea.Msg {
		err := c.Submit(context.Background(), text,
			banter.WithModel(model),
			banter.WithEventHandler(func(e banter.Event) { eventCh <- e }),
		)
		close(eventCh)
		doneCh <- err
		return nil
	}
}

// listenForEvent waits for the next event from the channel.
// When the channel closes, it reads the error from doneCh and returns SubmitDoneMsg.
func listenForEvent(ch <-chan banter.Event, doneCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			err := <-doneCh
			return SubmitDoneMsg{Err: err}
		}
		return EventMsg{Event: evt}
	}
}

func reconcile(s *banter.Session) tea.Cmd {
	return func() tea.Msg {
		return ReconciledMsg{Err: s.Reconcile(context.Background())}
	}
}

func signIn(s *banter.Session, credential string) tea.Cmd {
	return func() tea.Msg {
		err := s.SignIn(context.Background(), credential)
		return AuthDoneMsg{SignedIn: err == nil, Err: err}
	}
}

func signOut(s *banter.Session) tea.Cmd {
	return func() tea.Msg {
		err := s.SignOut(context.Background())
		return AuthDoneMsg{SignedIn: err != nil, Err: err}
	}
}
