// Package ai wraps the language model used to transcribe and judge media.
package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
)

// Defaults for the model endpoint
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel   = "gemini-2.5-pro"
	DefaultTimeout = 20 * time.Minute
)

// ErrEmptyResponse is returned when the model answers with no content
var ErrEmptyResponse = errors.New("model returned an empty response")

// Audio is an inline audio attachment
type Audio struct {
	Data   []byte
	Format string // "mp3" or "wav"
}

// Prompt is one request to the model
type Prompt struct {
	System string
	Text   string
	Audio  *Audio
	// JSON asks the endpoint for a JSON object reply
	JSON bool
}

// Completer sends a prompt and returns the raw reply text
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// ClientConfig configures a Client
type ClientConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
}

// Client is a Completer over an OpenAI-compatible chat completions API
type Client struct {
	client openai.Client
	cfg    ClientConfig
	logger zerolog.Logger
}

// NewClient creates a chat client. The API key is required.
func NewClient(cfg ClientConfig, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("ai: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &Client{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		logger: logger.With().Str("component", "ai").Str("model", cfg.Model).Logger(),
	}, nil
}

// Complete sends the prompt as a single chat turn
func (c *Client) Complete(ctx context.Context, p Prompt) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if p.System != "" {
		messages = append(messages, openai.SystemMessage(p.System))
	}

	if p.Audio != nil {
		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(p.Text),
			openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
				Data:   base64.StdEncoding.EncodeToString(p.Audio.Data),
				Format: p.Audio.Format,
			}),
		}
		messages = append(messages, openai.UserMessage(parts))
	} else {
		messages = append(messages, openai.UserMessage(p.Text))
	}

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       c.cfg.Model,
		Temperature: openai.Float(c.cfg.Temperature),
	}
	if p.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	c.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Bool("audio", p.Audio != nil).
		Msg("model replied")

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
