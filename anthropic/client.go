package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fwojciec/banter"
)

// Interface compliance check.
var _ banter.Provider = (*Client)(nil)

// Client implements [banter.Provider] for the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	readFile   func(path string) ([]byte, error)
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the default model ID used when a request names none.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithFileReader sets how file item paths are resolved to image bytes.
// The API has no file storage of its own, so images are inlined.
// Default is os.ReadFile.
func WithFileReader(fn func(path string) ([]byte, error)) Option {
	return func(c *Client) { c.readFile = fn }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		maxTokens:  defaultMaxTokens,
		httpClient: http.DefaultClient,
		readFile:   os.ReadFile,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream sends a streaming request to the Anthropic Messages API and returns
// a [banter.Stream] of text chunks.
func (c *Client) Stream(ctx context.Context, req banter.ChatRequest) (banter.Stream, error) {
	resp, err := c.post(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return newStream(ctx, resp.Body), nil
}

// Complete sends a non-streaming request and returns the whole reply.
func (c *Client) Complete(ctx context.Context, req banter.ChatRequest) (banter.Response, error) {
	resp, err := c.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}
	parts := make([]banter.Part, 0, len(apiResp.Content))
	for _, b := range apiResp.Content {
		if b.Type == "text" {
			parts = append(parts, banter.Part{Text: b.Text})
		}
	}
	return banter.ResponseMessage{Content: banter.ContentParts{Parts: parts}}, nil
}

// post sends the request and returns the response when the status is 200.
// The caller owns the response body.
func (c *Client) post(ctx context.Context, req banter.ChatRequest, stream bool) (*http.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	body, err := c.buildRequestBody(req, stream)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}
	return resp, nil
}

func (c *Client) buildRequestBody(req banter.ChatRequest, stream bool) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	msgs, err := c.convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	return json.Marshal(apiRequest{
		Model:     model,
		MaxTokens: c.maxTokens,
		Stream:    stream,
		Messages:  msgs,
	})
}

// convertMessages maps request messages onto API messages. Consecutive
// messages with the same role are merged, and messages left without
// content are dropped.
func (c *Client) convertMessages(msgs []banter.Message) ([]apiMessage, error) {
	var result []apiMessage
	for _, msg := range msgs {
		blocks, err := c.convertContent(msg.Content)
		if err != nil {
			return nil, err
		}
		if len(blocks) == 0 {
			continue
		}
		role := string(msg.Role)
		if n := len(result); n > 0 && result[n-1].Role == role {
			result[n-1].Content = append(result[n-1].Content, blocks...)
			continue
		}
		result = append(result, apiMessage{Role: role, Content: blocks})
	}
	return result, nil
}

func (c *Client) convertContent(items []banter.ContentItem) ([]apiContentBlock, error) {
	result := make([]apiContentBlock, 0, len(items))
	for _, item := range items {
		switch it := item.(type) {
		case banter.TextItem:
			if it.Text == "" {
				continue
			}
			result = append(result, apiContentBlock{Type: "text", Text: it.Text})
		case banter.FileItem:
			data, err := c.readFile(it.Path)
			if err != nil {
				return nil, fmt.Errorf("read file item: %w", err)
			}
			result = append(result, apiContentBlock{
				Type: "image",
				Source: &apiImageSource{
					Type:      "base64",
					MediaType: it.MimeType,
					Data:      base64.StdEncoding.EncodeToString(data),
				},
			})
		}
	}
	return result, nil
}

// parseHTTPError converts a non-200 response into a [banter.RemoteError].
// Rate limiting wraps [banter.ErrUsageLimited]; an overloaded API wraps
// [banter.ErrProviderUnavailable].
func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: HTTP %d (failed to read body: %w)", resp.StatusCode, err)
	}
	remote := &banter.RemoteError{Code: resp.StatusCode}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		remote.Status = apiErr.Error.Type
		remote.Message = apiErr.Error.Message
	} else {
		remote.Status = http.StatusText(resp.StatusCode)
		remote.Message = string(bytes.TrimSpace(body))
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		remote.Err = banter.ErrUsageLimited
	case 529:
		remote.Err = banter.ErrProviderUnavailable
	}
	return fmt.Errorf("anthropic: %w", remote)
}
