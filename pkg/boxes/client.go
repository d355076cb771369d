package boxes

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/pyhub-apps/pdfcatalog-golang/pkg/raster"
)

// DefaultModels are tried in order when no model is preferred.
var DefaultModels = []string{"glm-4v-flash", "glm-4v-plus", "glm-4v"}

// Upload limits for page images.
const (
	maxSide       = 1024
	jpegQuality   = 75
	lowQuality    = 50
	maxImageBytes = 800 * 1024
)

// noToken is sent when the endpoint needs no API key; the openai provider
// refuses to start without one.
const noToken = "unused"

// ErrRateLimited is returned when a model keeps answering 429.
var ErrRateLimited = errors.New("rate limited after retries")

// Client sends a page image to an OpenAI-compatible chat-completions
// endpoint and parses the reply as boxes.
type Client struct {
	baseURL    string
	apiKey     string
	models     []string
	providers  map[string]llms.Model
	httpClient *http.Client
	logger     zerolog.Logger
	retries    int
	backoff    time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithModels sets the candidate models, tried in order.
func WithModels(models ...string) Option {
	return func(c *Client) {
		if len(models) > 0 {
			c.models = models
		}
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetry sets how often a 429 is retried and the base backoff; the n-th
// retry waits n times the base.
func WithRetry(retries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = retries
		c.backoff = backoff
	}
}

// NewClient creates a client for the endpoint at baseURL, the part before
// /chat/completions (for example https://api.openai.com/v1); a full
// chat-completions URL is accepted too. One provider is built per candidate
// model.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/chat/completions"),
		apiKey:     apiKey,
		models:     DefaultModels,
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
		retries:    3,
		backoff:    15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	token := c.apiKey
	if token == "" {
		token = noToken
	}
	c.providers = make(map[string]llms.Model, len(c.models))
	for _, model := range c.models {
		llm, err := openai.New(
			openai.WithBaseURL(c.baseURL),
			openai.WithToken(token),
			openai.WithModel(model),
			openai.WithHTTPClient(c.httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("create client for model %s: %w", model, err)
		}
		c.providers[model] = llm
	}
	return c, nil
}

// Boxes sends img with instruction to the first model that answers. The
// model preference in ctx, if any, is tried first and updated on success.
// Boxes are returned as parsed; validating them is the caller's job.
func (c *Client) Boxes(ctx context.Context, img image.Image, instruction string) ([]Box, error) {
	if instruction == "" {
		instruction = DefaultInstruction
	}
	dataURI, err := encodeImage(img)
	if err != nil {
		return nil, err
	}

	pref := PreferenceFrom(ctx)
	var lastErr error
	for _, model := range c.candidates(pref.Model()) {
		text, err := c.call(ctx, model, dataURI, instruction)
		if err != nil {
			lastErr = err
			c.logger.Debug().Err(err).Str("model", model).Msg("box service model failed")
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		pref.Set(model)
		return ParseBoxes(text), nil
	}
	return nil, fmt.Errorf("all models failed: %w", lastErr)
}

// candidates lists the configured models with preferred first. A preferred
// model this client does not know is ignored.
func (c *Client) candidates(preferred string) []string {
	if _, ok := c.providers[preferred]; !ok {
		return c.models
	}
	out := []string{preferred}
	for _, m := range c.models {
		if m != preferred {
			out = append(out, m)
		}
	}
	return out
}

func (c *Client) call(ctx context.Context, model, dataURI, instruction string) (string, error) {
	messages := []llms.MessageContent{{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.ImageURLPart(dataURI),
			llms.TextPart(instruction),
		},
	}}

	for attempt := 0; ; attempt++ {
		resp, err := c.providers[model].GenerateContent(ctx, messages,
			llms.WithMaxTokens(2048),
			llms.WithTemperature(0.1),
		)
		switch {
		case err == nil:
			if len(resp.Choices) == 0 {
				return "", errors.New("response has no choices")
			}
			return resp.Choices[0].Content, nil

		case ctx.Err() != nil:
			return "", ctx.Err()

		case isRateLimited(err) && attempt < c.retries:
			wait := c.backoff * time.Duration(attempt+1)
			c.logger.Debug().Str("model", model).Dur("wait", wait).Msg("rate limited, backing off")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}

		case isRateLimited(err):
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)

		default:
			return "", fmt.Errorf("generate content: %w", err)
		}
	}
}

// isRateLimited reports whether err is the provider's report of a 429.
func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

// encodeImage downsizes img and encodes it as a JPEG data URI, dropping the
// quality when the first encoding is too large.
func encodeImage(img image.Image) (string, error) {
	small := raster.FitWithin(img, maxSide)
	data, err := raster.EncodeJPEG(small, jpegQuality)
	if err != nil {
		return "", err
	}
	if len(data) > maxImageBytes {
		if data, err = raster.EncodeJPEG(small, lowQuality); err != nil {
			return "", err
		}
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}
