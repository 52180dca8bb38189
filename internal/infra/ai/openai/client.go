package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/neurolytics/neuroscan/internal/domain/ai"
)

const (
	defaultModel        = "gpt-4o"
	defaultMaxTokens    = 8192
	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 2 * time.Minute
)

// Config is the immutable model configuration, built once at startup.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float32
	MaxTokens    int
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// Client talks to an OpenAI-compatible inference gateway. Every prompt call
// is a fresh conversation.
type Client struct {
	*openai.Client
	cfg     Config
	baseURL string
}

func NewClient(cfg Config) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	return &Client{
		Client:  openai.NewClientWithConfig(apiCfg),
		cfg:     cfg,
		baseURL: apiCfg.BaseURL,
	}
}

// Upload pushes media bytes to the provider's file store.
func (c *Client) Upload(ctx context.Context, r io.Reader, filename, mimeType string) (*ai.Asset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read media: %w", err)
	}
	f, err := c.CreateFileBytes(ctx, openai.FileBytesRequest{
		Name:    filename,
		Bytes:   data,
		Purpose: openai.PurposeType("vision"),
	})
	if err != nil {
		return nil, wrapAPIError(fmt.Errorf("upload media: %w", err))
	}
	return &ai.Asset{ID: f.ID, State: stateFor(f.Status), MIMEType: mimeType}, nil
}

// AwaitActive polls the asset on a fixed interval until the provider reports
// it active. The wait is bounded by the configured poll timeout and by ctx.
func (c *Client) AwaitActive(ctx context.Context, asset *ai.Asset) (*ai.Asset, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	current := *asset
	for current.State == ai.StateProcessing {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for media %s: %w", current.ID, ctx.Err())
		case <-ticker.C:
			f, err := c.GetFile(ctx, current.ID)
			if err != nil {
				return nil, wrapAPIError(fmt.Errorf("poll media %s: %w", current.ID, err))
			}
			current.State = stateFor(f.Status)
		}
	}
	if current.State != ai.StateActive {
		return nil, fmt.Errorf("%w: media %s", ai.ErrProcessingFailed, current.ID)
	}
	return &current, nil
}

// Analyze sends the asset plus a text prompt as a single multimodal message.
func (c *Client) Analyze(ctx context.Context, asset *ai.Asset, promptText string) (string, error) {
	req := c.newRequest()
	req.Messages = []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    c.fileContentURL(asset.ID),
					Detail: openai.ImageURLDetailAuto,
				},
			},
			{Type: openai.ChatMessagePartTypeText, Text: promptText},
		},
	}}
	return c.complete(ctx, req)
}

// Generate sends a text-only prompt.
func (c *Client) Generate(ctx context.Context, promptText string) (string, error) {
	req := c.newRequest()
	req.Messages = []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleUser,
		Content: promptText,
	}}
	return c.complete(ctx, req)
}

func (c *Client) newRequest() openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	model := c.cfg.Model
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = c.cfg.MaxTokens
	} else {
		req.MaxTokens = c.cfg.MaxTokens
	}
	return req
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrapAPIError(fmt.Errorf("failed to create chat completion: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// fileContentURL points the vision request at the uploaded file's content
// endpoint on the same gateway.
func (c *Client) fileContentURL(fileID string) string {
	return strings.TrimSuffix(c.baseURL, "/") + "/files/" + fileID + "/content"
}

func stateFor(status string) ai.AssetState {
	switch strings.ToLower(status) {
	case "processed", "active":
		return ai.StateActive
	case "error", "deleted", "failed":
		return ai.StateFailed
	default:
		return ai.StateProcessing
	}
}

func wrapAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
		return fmt.Errorf("%w: %v", ai.ErrQuotaExceeded, err)
	}
	return err
}
