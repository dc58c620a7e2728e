package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/deedcao/Audio-to-text/internal/audio"
)

// Config contains model client configuration.
type Config struct {
	Endpoint      string
	APIKey        string
	Model         string
	Timeout       time.Duration
	MaxRetries    int
	MaxConcurrent int

	// RetryBackoff is the base delay of the exponential backoff; it doubles
	// each attempt up to maxBackoff. Rate-limit and quota errors wait at
	// least rateLimitFloor regardless.
	RetryBackoff time.Duration
}

const (
	maxBackoff     = 30 * time.Second
	rateLimitFloor = 5 * time.Second
)

// Observer receives per-request lifecycle events; the metrics package
// implements it. A nil observer is valid.
type Observer interface {
	RecordModelRequest()
	RecordModelSuccess(seconds float64)
	RecordModelFailure(seconds float64)
	RecordModelRetry()
}

// Client is an HTTP client for the generative-model API. It bounds
// concurrent requests with a semaphore and retries classified transient
// failures with a bounded exponential-backoff loop.
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{}
	observer   Observer

	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalRetries    uint64

	mu sync.RWMutex
}

// ClientStats is a snapshot of request counters.
type ClientStats struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	FailedRequests  uint64  `json:"failed_requests"`
	SuccessRate     float64 `json:"success_rate"`
	TotalRetries    uint64  `json:"total_retries"`
	ActiveRequests  int     `json:"active_requests"`
}

// NewClient creates a model API client. The observer may be nil.
func NewClient(config Config, observer Observer) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 3
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		semaphore: make(chan struct{}, config.MaxConcurrent),
		observer:  observer,
	}, nil
}

// Request/response shapes of the generateContent protocol. Audio travels as
// an inline_data part carrying the base64 WAV, which is why the segment
// encoder produces a text-safe payload in the first place.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// TranscribeSegment sends one encoded segment for verbatim transcription
// and returns the fragment text.
func (c *Client) TranscribeSegment(ctx context.Context, seg *audio.EncodedSegment) (string, error) {
	if seg == nil || seg.Base64 == "" {
		return "", &APIError{Class: ClassInvalidInput, Message: "empty segment payload"}
	}

	return c.generate(ctx, []part{
		{Text: transcribePrompt},
		{InlineData: &inlineData{MIMEType: "audio/wav", Data: seg.Base64}},
	})
}

// generate performs one model call with semaphore admission and the
// bounded retry loop. Remaining attempts and the current delay are carried
// as loop state; there is deliberately no recursion here.
func (c *Client) generate(ctx context.Context, parts []part) (string, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	start := time.Now()
	c.countRequest()
	if c.observer != nil {
		c.observer.RecordModelRequest()
	}

	var lastErr error
	delay := c.config.RetryBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.countRetry()
			if c.observer != nil {
				c.observer.RecordModelRetry()
			}

			wait := delay
			if apiErr, ok := lastErr.(*APIError); ok && apiErr.needsBackoffFloor() && wait < rateLimitFloor {
				wait = rateLimitFloor
			}

			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}

			delay *= 2
			if delay > maxBackoff {
				delay = maxBackoff
			}
		}

		text, err := c.doRequest(ctx, parts)
		if err == nil {
			c.countSuccess()
			if c.observer != nil {
				c.observer.RecordModelSuccess(time.Since(start).Seconds())
			}
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if apiErr, ok := err.(*APIError); ok && !apiErr.Retryable() {
			break
		}
	}

	c.countFailure()
	if c.observer != nil {
		c.observer.RecordModelFailure(time.Since(start).Seconds())
	}
	return "", lastErr
}

// doRequest performs a single generateContent call.
func (c *Client) doRequest(ctx context.Context, parts []part) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: parts}},
	})
	if err != nil {
		return "", &APIError{Class: ClassInvalidInput, Message: fmt.Sprintf("encoding request: %v", err)}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.config.Endpoint, "/"), c.config.Model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &APIError{Class: ClassInvalidInput, Message: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &APIError{Class: ClassNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", &APIError{Class: ClassNetwork, Message: fmt.Sprintf("reading response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyStatus(resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return "", &APIError{Class: ClassNetwork, StatusCode: resp.StatusCode, Message: fmt.Sprintf("parsing response: %v", err)}
	}
	if len(genResp.Candidates) == 0 {
		return "", &APIError{Class: ClassInvalidInput, StatusCode: resp.StatusCode, Message: "response contains no candidates"}
	}

	var sb strings.Builder
	for _, p := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

func (c *Client) countRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) countSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) countFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) countRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
}

// GetStats returns current client statistics.
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		TotalRetries:    c.totalRetries,
		ActiveRequests:  len(c.semaphore),
	}
}
