package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	logx "github.com/avvvet/coffeebuddy/pkg/logger"
	"github.com/tidwall/gjson"
)

const (
	DefaultURL          = "https://api.anthropic.com/v1/messages"
	DefaultVersion      = "2023-06-01"
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
)

type Options struct {
	URL         string
	APIKey      string
	Version     string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Timeout     time.Duration

	MaxAttempts  int
	InitialDelay time.Duration
}

type Option func(*AnthropicProvider)

// WithHTTPClient replaces the default client, e.g. with a fake transport.
func WithHTTPClient(c *http.Client) Option {
	return func(a *AnthropicProvider) { a.client = c }
}

// WithSleeper replaces the wait between attempts.
func WithSleeper(s Sleeper) Option {
	return func(a *AnthropicProvider) { a.sleep = s }
}

// AnthropicProvider calls the Messages API with bounded retries and
// exponential backoff.
type AnthropicProvider struct {
	opts   Options
	client *http.Client
	sleep  Sleeper
}

func NewAnthropicProvider(opts Options, options ...Option) *AnthropicProvider {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = DefaultInitialDelay
	}

	a := &AnthropicProvider{
		opts: opts,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		sleep: sleepContext,
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// Complete sends the request and returns content[0].text of the reply.
func (a *AnthropicProvider) Complete(ctx context.Context, request *MessageRequest) (string, error) {
	body, err := json.Marshal(apiRequest{
		Model:       a.opts.Model,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
		TopP:        a.opts.TopP,
		System:      request.System,
		Messages:    request.Messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	payload, err := a.Invoke(ctx, body)
	if err != nil {
		return "", err
	}

	text := gjson.GetBytes(payload, "content.0.text")
	if text.Type != gjson.String || text.Str == "" {
		if msg := gjson.GetBytes(payload, "error.message"); msg.Exists() {
			return "", fmt.Errorf("%w: %s", ErrUnexpectedResponse, msg.String())
		}
		return "", ErrUnexpectedResponse
	}

	logx.Debug().
		Int64("input_tokens", gjson.GetBytes(payload, "usage.input_tokens").Int()).
		Int64("output_tokens", gjson.GetBytes(payload, "usage.output_tokens").Int()).
		Msg("model reply received")

	return text.Str, nil
}

// Invoke POSTs body up to MaxAttempts times and returns the first response
// body that is valid JSON and not an overload signal. Attempts are separated
// by InitialDelay * 2^i; there is no wait after the last one. A done context
// stops the loop at once.
func (a *AnthropicProvider) Invoke(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < a.opts.MaxAttempts; attempt++ {
		payload, err := a.attempt(ctx, body)
		if err == nil {
			return payload, nil
		}
		lastErr = err

		kind := classify(ctx, err)
		logx.Warn().Err(err).Int("attempt", attempt+1).Str("kind", kind.String()).Msg("model call failed")
		if kind == Fatal {
			return nil, err
		}

		if attempt < a.opts.MaxAttempts-1 {
			delay := Backoff(a.opts.InitialDelay, attempt)
			logx.Info().Dur("delay", delay).Msg("retrying model call")
			if err := a.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}

	return nil, &ExhaustedRetriesError{Attempts: a.opts.MaxAttempts, Last: lastErr}
}

func (a *AnthropicProvider) attempt(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.opts.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.opts.APIKey)
	req.Header.Set("anthropic-version", a.opts.Version)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("invalid JSON response (status %d)", resp.StatusCode)
	}

	if gjson.GetBytes(payload, "type").String() == "error" &&
		gjson.GetBytes(payload, "error.type").String() == "overloaded_error" {
		return nil, fmt.Errorf("%w (status %d)", ErrOverloaded, resp.StatusCode)
	}

	return payload, nil
}
