package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"shellmind/internal/logging"
)

// ClientConfig configures the OpenAI-compatible client.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
}

// Client talks to any chat/completions endpoint: OpenAI, OpenRouter,
// Ollama's compatibility layer, and the like.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxRetries  int
	httpClient  *http.Client

	mu          sync.Mutex
	lastRequest time.Time
}

var _ Oracle = (*Client)(nil)

// minRequestGap is the client-side rate limit between requests.
const minRequestGap = 100 * time.Millisecond

// NewClient builds a Client. Missing fields fall back to OpenAI
// defaults.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  cfg.MaxRetries,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Think decides what to do with a user turn. Model and parse failures
// come back as an error decision; only context cancellation surfaces
// as a non-nil error.
func (c *Client) Think(ctx context.Context, in ThinkInput) (Decision, error) {
	raw, err := c.complete(ctx, thinkSystemPrompt, buildThinkPrompt(in))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Decision{}, ctxErr
		}
		logging.OracleError("Think failed: %v", err)
		return ErrorDecision(err), nil
	}

	decision, err := parseDecision(raw)
	if err != nil {
		logging.OracleError("Think returned malformed decision: %v", err)
		return ErrorDecision(err), nil
	}

	logging.Oracle("Think: %s", decision.Kind)
	return decision, nil
}

// Reflect judges progress after an observation. Same failure contract
// as Think.
func (c *Client) Reflect(ctx context.Context, in ReflectInput) (Reflection, error) {
	raw, err := c.complete(ctx, reflectSystemPrompt, buildReflectPrompt(in))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Reflection{}, ctxErr
		}
		logging.OracleError("Reflect failed: %v", err)
		return ErrorReflection(err), nil
	}

	reflection, err := parseReflection(raw)
	if err != nil {
		logging.OracleError("Reflect returned malformed verdict: %v", err)
		return ErrorReflection(err), nil
	}

	logging.Oracle("Reflect: %s", reflection.Kind)
	return reflection, nil
}

// ContinuesTask classifies whether input continues the running task.
// Failures default to false so a broken model never hijacks a fresh
// request into a stale task.
func (c *Client) ContinuesTask(ctx context.Context, goal, input string) (bool, error) {
	raw, err := c.complete(ctx, continuationSystemPrompt, buildContinuationPrompt(goal, input))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		logging.OracleError("Continuation check failed: %v", err)
		return false, nil
	}

	continues, err := parseContinuation(raw)
	if err != nil {
		logging.OracleError("Continuation verdict malformed: %v", err)
		return false, nil
	}
	return continues, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// complete sends one chat/completions request with retries and
// exponential backoff on transient failures.
func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	if c.apiKey == "" {
		return "", errors.New("API key not configured")
	}

	c.throttle()

	start := time.Now()
	logging.Get(logging.CategoryOracle).Debug("Request: model=%s system_len=%d user_len=%d",
		c.model, len(systemPrompt), len(userPrompt))

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   4096,
		Temperature: c.temperature,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(body))
			logging.Audit().OracleCall(c.model, time.Since(start).Milliseconds(), false, lastErr.Error())
			continue
		}
		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("status %d: %s", resp.StatusCode, truncateBody(body))
			logging.Audit().OracleCall(c.model, time.Since(start).Milliseconds(), false, err.Error())
			return "", err
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", fmt.Errorf("parse response: %w", err)
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("API error: %s", parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return "", errors.New("no completion returned")
		}

		logging.Audit().OracleCall(c.model, time.Since(start).Milliseconds(), true, "")
		logging.Get(logging.CategoryOracle).Debug("Completed in %v", time.Since(start))
		return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elapsed := time.Since(c.lastRequest); elapsed < minRequestGap {
		time.Sleep(minRequestGap - elapsed)
	}
	c.lastRequest = time.Now()
}

func truncateBody(body []byte) string {
	const max = 500
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
