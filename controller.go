package banter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Controller runs one request/response cycle at a time: it builds the
// request from the conversation, uploads pending attachments, streams the
// reply into the conversation and handles cancellation and failure.
type Controller struct {
	provider     Provider
	uploader     Uploader
	session      *Session
	conversation *Conversation
	attachments  *Attachments
	logger       *slog.Logger
	streaming    bool
	freeTier     bool
	instruction  string

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	epoch  uint64
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStreaming selects between streamed replies (the default) and single
// complete responses.
func WithStreaming(on bool) ControllerOption {
	return func(c *Controller) { c.streaming = on }
}

// WithFreeTier asks the backend to serve requests on its free tier.
func WithFreeTier(on bool) ControllerOption {
	return func(c *Controller) { c.freeTier = on }
}

// WithInstruction replaces the formatting instruction sent ahead of the
// history. An empty instruction is omitted.
func WithInstruction(text string) ControllerOption {
	return func(c *Controller) { c.instruction = text }
}

// NewController creates an idle controller. provider may be nil, in which
// case Submit renders ErrProviderUnavailable into the conversation; uploader
// may be nil, in which case attachments are sent without files.
func NewController(provider Provider, uploader Uploader, session *Session, conversation *Conversation, attachments *Attachments, opts ...ControllerOption) *Controller {
	c := &Controller{
		provider:     provider,
		uploader:     uploader,
		session:      session,
		conversation: conversation,
		attachments:  attachments,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		streaming:    true,
		instruction:  FormattingInstruction,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitOption configures a single Submit invocation.
type SubmitOption func(*submitConfig)

type submitConfig struct {
	onEvent func(Event)
	model   string
}

// WithEventHandler sets a callback that receives each controller event
// during the submit. If nil or not set, events are silently discarded.
func WithEventHandler(h func(Event)) SubmitOption {
	return func(c *submitConfig) {
		c.onEvent = h
	}
}

// WithModel sets the model ID for this submit.
// Empty string means the provider uses its default model.
func WithModel(model string) SubmitOption {
	return func(c *submitConfig) {
		c.model = model
	}
}

func (cfg *submitConfig) emit(e Event) {
	if cfg.onEvent != nil {
		cfg.onEvent(e)
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit sends text and the pending attachments and blocks until the reply
// is complete, cancelled or failed. It returns ErrBusy, ErrNotSignedIn or
// ErrEmptyInput without touching the conversation. Backend failures are
// rendered into the conversation as a failed assistant turn and Submit
// returns nil.
func (c *Controller) Submit(ctx context.Context, text string, opts ...SubmitOption) error {
	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	text = strings.TrimSpace(text)
	ctx, epoch, err := c.begin(ctx, text)
	if err != nil {
		return err
	}
	cfg.emit(EventState{State: StateSending})

	if err := c.run(ctx, text, epoch, &cfg); err != nil {
		c.fail(err, epoch, &cfg)
		return nil
	}
	c.finish(epoch, &cfg)
	return nil
}

// Stop cancels the in-flight turn. Text received so far stays in the
// conversation. It reports whether a turn was in flight.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel()
	return true
}

// NewChat cancels any in-flight turn, drops the pending attachments and
// empties the conversation.
func (c *Controller) NewChat() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.epoch++
	c.mu.Unlock()

	c.attachments.Clear()
	c.conversation.Reset()
}

func (c *Controller) begin(ctx context.Context, text string) (context.Context, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return nil, 0, ErrBusy
	}
	if c.session == nil || !c.session.SignedIn() {
		return nil, 0, ErrNotSignedIn
	}
	if text == "" && c.attachments.Len() == 0 {
		return nil, 0, ErrEmptyInput
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateSending
	return ctx, c.epoch, nil
}

func (c *Controller) run(ctx context.Context, text string, epoch uint64, cfg *submitConfig) error {
	if c.stale(ctx, epoch) {
		return nil
	}
	messages := c.history()
	userID := c.conversation.AppendUser(text, c.attachments.Previews())
	cfg.emit(EventTurn{ID: userID, Role: RoleUser})

	refs, uploadErr := c.upload(ctx)
	// NewChat may have reset the conversation while uploading.
	if c.stale(ctx, epoch) {
		return nil
	}
	msg := TextMessage(RoleUser, text)
	switch {
	case len(refs) > 0:
		c.conversation.AttachFiles(userID, refs)
		msg = Message{Role: RoleUser, Content: fileContent(refs, text)}
	case text == "" && uploadErr != nil:
		return fmt.Errorf("attachments not sent: %w", uploadErr)
	case text == "":
		return fmt.Errorf("attachments not sent: %w", ErrEmptyInput)
	}
	messages = append(messages, msg)

	if c.provider == nil {
		return ErrProviderUnavailable
	}
	req := ChatRequest{
		Model:    cfg.model,
		Messages: messages,
		FreeTier: c.freeTier,
		Stream:   c.streaming,
	}
	if c.streaming {
		return c.stream(ctx, req, epoch, cfg)
	}
	return c.complete(ctx, req, cfg)
}

// history converts the turns before the current submit into request
// messages, led by the formatting instruction. Turns with neither text nor
// files, such as a reply cancelled before its first chunk, are skipped.
func (c *Controller) history() []Message {
	turns := c.conversation.Turns()
	messages := make([]Message, 0, len(turns)+2)
	if c.instruction != "" {
		messages = append(messages, TextMessage(RoleUser, c.instruction))
	}
	for _, t := range turns {
		if t.Text == "" && len(t.Files) == 0 {
			continue
		}
		messages = append(messages, t.Message())
	}
	return messages
}

// upload stores the pending files remotely. Failures are logged and the
// turn proceeds without files; the error is returned only so a turn with
// nothing else to send can report it.
func (c *Controller) upload(ctx context.Context) ([]FileRef, error) {
	files := c.attachments.Files()
	if len(files) == 0 || c.uploader == nil {
		return nil, nil
	}
	refs, err := c.uploader.Upload(ctx, files)
	if err != nil {
		c.logger.Warn("upload attachments", "files", len(files), "error", err)
		return nil, fmt.Errorf("upload attachments: %w", err)
	}
	return refs, nil
}

func (c *Controller) stream(ctx context.Context, req ChatRequest, epoch uint64, cfg *submitConfig) error {
	s, err := c.provider.Stream(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("open stream: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			c.logger.Debug("close stream", "error", err)
		}
	}()
	// Providers may open streams lazily and ignore a cancelled context.
	if c.stale(ctx, epoch) {
		return nil
	}

	c.setState(StateStreaming, cfg)
	id := c.conversation.AppendAssistantPlaceholder()
	cfg.emit(EventTurn{ID: id, Role: RoleAssistant})

	for {
		if ctx.Err() != nil {
			return nil
		}
		chunk, err := s.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read stream: %w", err)
		}
		// A chunk that arrives after Stop is dropped.
		if ctx.Err() != nil {
			return nil
		}
		text := TextOf(chunk)
		if text == "" {
			continue
		}
		c.conversation.AppendChunk(id, text)
		cfg.emit(EventChunk{ID: id, Text: text})
	}
}

func (c *Controller) complete(ctx context.Context, req ChatRequest, cfg *submitConfig) error {
	resp, err := c.provider.Complete(ctx, req)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("complete: %w", err)
	}
	id := c.conversation.AppendAssistant(DisplayText(resp), false)
	cfg.emit(EventTurn{ID: id, Role: RoleAssistant})
	return nil
}

// finish ends a completed or cancelled turn. Attachments are kept when a
// new chat started meanwhile, since they belong to it.
func (c *Controller) finish(epoch uint64, cfg *submitConfig) {
	if c.current(epoch) {
		c.attachments.Clear()
	}
	c.setState(StateIdle, cfg)
}

// fail renders err as a failed assistant turn. Attachments are kept so the
// user can retry.
func (c *Controller) fail(err error, epoch uint64, cfg *submitConfig) {
	c.logger.Error("chat turn failed", "error", err)
	c.setState(StateError, cfg)
	if c.current(epoch) {
		id := c.conversation.AppendAssistant(ClassifyError(err), true)
		cfg.emit(EventTurn{ID: id, Role: RoleAssistant})
	}
	c.setState(StateIdle, cfg)
}

// stale reports whether the turn was stopped or belongs to a chat that
// NewChat replaced.
func (c *Controller) stale(ctx context.Context, epoch uint64) bool {
	return ctx.Err() != nil || !c.current(epoch)
}

func (c *Controller) current(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch == epoch
}

func (c *Controller) setState(s State, cfg *submitConfig) {
	c.mu.Lock()
	c.state = s
	if s == StateIdle && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
	cfg.emit(EventState{State: s})
}
