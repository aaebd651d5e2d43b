// Package imagegen talks to an OpenAI-compatible image generation endpoint.
//
// client.go implements Generate, which asks the endpoint to render a prompt
// and returns the URL of the result. downloader.go implements Fetch, which
// streams the image bytes back. naming.go derives output file names.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"imagine/core"

	"github.com/sashabaranov/go-openai"
)

// HTTPDoer is the transport used for every request. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// GenerationResult is the useful part of a successful generation response.
type GenerationResult struct {
	// URL of the rendered image. Temporary; download it promptly.
	URL string

	// RevisedPrompt is the prompt the model actually used, when it reports one.
	RevisedPrompt string
}

// Client generates images and downloads them.
//
// Thread Safety: Client is safe for concurrent use. It holds only
// read-only settings and the shared HTTPDoer.
type Client struct {
	api     *openai.Client
	doer    HTTPDoer
	model   string
	size    string
	quality string
	style   string
}

// ClientConfig holds the settings for NewClientWithConfig.
type ClientConfig struct {
	// APIKey is the bearer token (required)
	APIKey string

	// BaseURL is the API root (default: https://api.openai.com/v1)
	BaseURL string

	// Model and Size are sent with every generation request
	Model string
	Size  string

	// Quality and Style are sent only when non-empty
	Quality string
	Style   string

	// HTTPClient performs every request (default: http.DefaultClient)
	HTTPClient HTTPDoer
}

// NewClient creates a client from the run configuration and a shared transport.
func NewClient(cfg *core.Config, doer HTTPDoer) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	return NewClientWithConfig(ClientConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Size:       cfg.Size,
		Quality:    cfg.Quality,
		Style:      cfg.Style,
		HTTPClient: doer,
	})
}

// NewClientWithConfig creates a client with explicit settings.
func NewClientWithConfig(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("imagegen: API key is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = core.DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = core.DefaultModel
	}
	size := cfg.Size
	if size == "" {
		size = core.DefaultSize
	}
	doer := cfg.HTTPClient
	if doer == nil {
		doer = http.DefaultClient
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL
	clientConfig.HTTPClient = &statusRecordingDoer{next: doer}

	return &Client{
		api:     openai.NewClientWithConfig(clientConfig),
		doer:    doer,
		model:   model,
		size:    size,
		quality: cfg.Quality,
		style:   cfg.Style,
	}, nil
}

// Model returns the configured image model name.
func (c *Client) Model() string {
	return c.model
}

// Size returns the configured image size.
func (c *Client) Size() string {
	return c.size
}

// Generate submits one generation request for prompt and returns the URL of
// the first rendered image. Exactly one attempt is made.
//
// Errors are *TransportError when no response arrived, *RemoteError for any
// status other than 200 and *ProtocolError when a 200 response carries no
// usable URL.
func (c *Client) Generate(ctx context.Context, prompt string) (*GenerationResult, error) {
	if prompt == "" {
		return nil, fmt.Errorf("imagegen: prompt cannot be empty")
	}

	req := openai.ImageRequest{
		Model:   c.model,
		Size:    c.size,
		N:       1,
		Prompt:  prompt,
		Quality: c.quality,
		Style:   c.style,
	}

	status := &statusRecord{}
	resp, err := c.api.CreateImage(withStatusRecord(ctx, status), req)
	if err != nil {
		return nil, classifyGenerateError(ctx, status, err)
	}
	if status.code != http.StatusOK {
		return nil, &RemoteError{Op: "generate", StatusCode: status.code}
	}

	if len(resp.Data) == 0 {
		return nil, &ProtocolError{Op: "generate", Reason: "response contains no images"}
	}
	if resp.Data[0].URL == "" {
		return nil, &ProtocolError{Op: "generate", Reason: "image entry has no URL"}
	}

	return &GenerationResult{
		URL:           resp.Data[0].URL,
		RevisedPrompt: resp.Data[0].RevisedPrompt,
	}, nil
}

func classifyGenerateError(ctx context.Context, status *statusRecord, err error) error {
	switch {
	case status.code == 0:
		return &TransportError{Op: "generate", Err: err}
	case status.code != http.StatusOK:
		remote := &RemoteError{Op: "generate", StatusCode: status.code}
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			remote.Message = apiErr.Message
		}
		return remote
	case ctx.Err() != nil:
		// the body stopped arriving because the call was cancelled
		return &TransportError{Op: "generate", Err: err}
	default:
		return &ProtocolError{Op: "generate", Reason: "cannot decode response body", Err: err}
	}
}

// statusRecord receives the HTTP status of the response to one call.
type statusRecord struct {
	code int
}

type statusRecordKey struct{}

func withStatusRecord(ctx context.Context, rec *statusRecord) context.Context {
	return context.WithValue(ctx, statusRecordKey{}, rec)
}

// statusRecordingDoer lets Generate tell a transport failure from an error
// status, independently of how the API library wraps either.
type statusRecordingDoer struct {
	next HTTPDoer
}

func (d *statusRecordingDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.next.Do(req)
	if resp != nil {
		if rec, ok := req.Context().Value(statusRecordKey{}).(*statusRecord); ok {
			rec.code = resp.StatusCode
		}
	}
	return resp, err
}
