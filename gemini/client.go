package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fwojciec/banter"
	"google.golang.org/genai"
)

// Interface compliance checks.
var (
	_ banter.Provider = (*Client)(nil)
	_ banter.Uploader = (*Client)(nil)
)

// Client implements [banter.Provider] for the Google Gemini API.
type Client struct {
	client    *genai.Client
	model     string
	maxTokens int
	baseURL   string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the default model ID used when a request names none.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	gc, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c.client = gc
	return c, nil
}

// Stream sends a streaming request to the Gemini API and returns a
// [banter.Stream] of message chunks.
func (c *Client) Stream(ctx context.Context, req banter.ChatRequest) (banter.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	seq := c.client.Models.GenerateContentStream(ctx, c.modelFor(req), ConvertMessages(req.Messages), c.config())
	return newStream(ctx, seq), nil
}

// Complete sends a single request and returns the whole reply.
func (c *Client) Complete(ctx context.Context, req banter.ChatRequest) (banter.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.modelFor(req), ConvertMessages(req.Messages), c.config())
	if err != nil {
		return nil, wrapError(err)
	}
	return banter.ResponseMessage{Content: banter.ContentParts{Parts: replyParts(resp)}}, nil
}

// Upload stores files with the Gemini Files API. The returned paths are
// file URIs that requests reference through file items. If any file fails,
// the ones already stored are deleted and no refs are returned.
func (c *Client) Upload(ctx context.Context, files []banter.File) ([]banter.FileRef, error) {
	return upload(ctx, c.client.Files, files)
}

// fileService is the part of the Files API that uploads use.
type fileService interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

func upload(ctx context.Context, svc fileService, files []banter.File) ([]banter.FileRef, error) {
	refs := make([]banter.FileRef, 0, len(files))
	var names []string
	for _, f := range files {
		uploaded, err := svc.UploadFromPath(ctx, f.Path, &genai.UploadFileConfig{
			MIMEType:    f.MimeType,
			DisplayName: f.Name,
		})
		if err != nil {
			err = fmt.Errorf("gemini: upload %s: %w", f.Name, wrapError(err))
			return nil, errors.Join(err, discard(ctx, svc, names))
		}
		names = append(names, uploaded.Name)
		mime := uploaded.MIMEType
		if mime == "" {
			mime = f.MimeType
		}
		refs = append(refs, banter.FileRef{Path: uploaded.URI, MimeType: mime})
	}
	return refs, nil
}

// discard deletes stored files. It runs even when ctx is cancelled.
func discard(ctx context.Context, svc fileService, names []string) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for _, name := range names {
		if _, err := svc.Delete(ctx, name, nil); err != nil {
			errs = append(errs, fmt.Errorf("gemini: delete %s: %w", name, wrapError(err)))
		}
	}
	return errors.Join(errs...)
}

func (c *Client) modelFor(req banter.ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return c.model
}

func (c *Client) config() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
	}
}

// ConvertMessages converts banter Messages to genai Contents.
// Exported for testing.
func ConvertMessages(msgs []banter.Message) []*genai.Content {
	result := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		role := "user"
		if msg.Role == banter.RoleAssistant {
			role = "model"
		}
		result = append(result, &genai.Content{
			Role:  role,
			Parts: convertParts(msg.Content),
		})
	}
	return result
}

func convertParts(items []banter.ContentItem) []*genai.Part {
	var parts []*genai.Part
	for _, item := range items {
		switch it := item.(type) {
		case banter.TextItem:
			parts = append(parts, &genai.Part{Text: it.Text})
		case banter.FileItem:
			parts = append(parts, &genai.Part{
				FileData: &genai.FileData{
					FileURI:  it.Path,
					MIMEType: it.MimeType,
				},
			})
		}
	}
	return parts
}

// replyParts collects the visible text parts of the first candidate.
// Thought parts are skipped.
func replyParts(resp *genai.GenerateContentResponse) []banter.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var parts []banter.Part
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought || p.Text == "" {
			continue
		}
		parts = append(parts, banter.Part{Text: p.Text})
	}
	return parts
}

// wrapError maps SDK errors onto banter's taxonomy. Quota exhaustion wraps
// [banter.ErrUsageLimited]; other API errors become [banter.RemoteError].
func wrapError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("gemini: %w", err)
	}
	remote := &banter.RemoteError{
		Code:    apiErr.Code,
		Status:  apiErr.Status,
		Message: apiErr.Message,
		Err:     err,
	}
	if apiErr.Code == http.StatusTooManyRequests || strings.EqualFold(apiErr.Status, "RESOURCE_EXHAUSTED") {
		remote.Err = banter.ErrUsageLimited
	}
	return fmt.Errorf("gemini: %w", remote)
}
