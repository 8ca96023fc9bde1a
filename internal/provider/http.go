package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"brickyard/internal/errors"
)

// HTTPCompleter talks to a hosted messages-style completion API
type HTTPCompleter struct {
	apiKey         string
	baseURL        string
	model          string
	maxTokens      int
	defaultTimeout time.Duration
	client         *http.Client
}

// HTTPConfig configures an HTTPCompleter
type HTTPConfig struct {
	// APIKey authenticates requests; falls back to BRICKYARD_API_KEY
	APIKey string

	// BaseURL is the API root, e.g. "https://api.anthropic.com/v1"
	BaseURL string

	// Model names the model to invoke
	Model string

	// MaxTokens is the default response cap
	MaxTokens int

	// DefaultTimeout applies when a request carries none
	DefaultTimeout time.Duration
}

// DefaultHTTPConfig returns the stock configuration for the hosted messages
// API. BRICKYARD_MODEL overrides the model name.
func DefaultHTTPConfig() HTTPConfig {
	model := os.Getenv("BRICKYARD_MODEL")
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return HTTPConfig{
		BaseURL: "https://api.anthropic.com/v1",
		Model:   model,
	}
}

// NewHTTPCompleter creates an HTTP-backed completer
func NewHTTPCompleter(cfg HTTPConfig) (*HTTPCompleter, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("BRICKYARD_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeProviderAuth, "no API key configured").
			WithSuggestion("Set the BRICKYARD_API_KEY environment variable")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New(errors.ErrCodeProviderConfig, "base_url is required")
	}
	if cfg.Model == "" {
		return nil, errors.New(errors.ErrCodeProviderConfig, "model is required")
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}
	defaultTimeout := cfg.DefaultTimeout
	if defaultTimeout == 0 {
		defaultTimeout = 5 * time.Minute
	}

	return &HTTPCompleter{
		apiKey:         apiKey,
		baseURL:        cfg.BaseURL,
		model:          cfg.Model,
		maxTokens:      maxTokens,
		defaultTimeout: defaultTimeout,
		// Per-call deadlines come from the request context; no client-wide
		// timeout that could undercut a configured generous one.
		client: &http.Client{},
	}, nil
}

// Wire structures for the messages endpoint
type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason,omitempty"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Name implements Completer
func (c *HTTPCompleter) Name() string {
	return "http:" + c.model
}

// Complete implements Completer
func (c *HTTPCompleter) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	timeout := req.Timeout
	if timeout == 0 {
		timeout = c.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	startTime := time.Now()

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	body, err := json.Marshal(wireRequest{
		Model:       c.model,
		Messages:    []wireMessage{{Role: "user", Content: req.Prompt}},
		System:      req.SystemPrompt,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderAPI, "marshal completion request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderAPI, "create completion request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewProviderTimeoutError(timeout.String())
		}
		return nil, errors.Wrap(errors.ErrCodeProviderUnavailable, "send completion request", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderAPI, "read completion response", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var errResp wireResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, errors.New(errors.ErrCodeProviderAPI,
				fmt.Sprintf("completion API error: %s", errResp.Error.Message))
		}
		return nil, errors.New(errors.ErrCodeProviderAPI,
			fmt.Sprintf("completion http error %d: %s", httpResp.StatusCode, string(respBody)))
	}

	var resp wireResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderAPI, "unmarshal completion response", err)
	}

	content := ""
	if len(resp.Content) > 0 {
		content = resp.Content[0].Text
	}

	return &CompletionResponse{
		Content:      content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Latency:      time.Since(startTime),
		StopReason:   resp.StopReason,
	}, nil
}

// Compile-time verification that HTTPCompleter implements Completer
var _ Completer = (*HTTPCompleter)(nil)
