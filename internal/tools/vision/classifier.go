// Package vision provides the classify_image tool. Classification
// goes through an OpenAI-compatible vision endpoint; images are
// inlined as data URLs so no file server is needed.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shellmind/internal/logging"
)

// Classifier answers a question about an image.
type Classifier interface {
	Classify(ctx context.Context, imagePath, question string) (string, error)
}

// Options configures the HTTP classifier.
type Options struct {
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
}

// HTTPClassifier talks to a chat/completions endpoint that accepts
// image_url content parts (vLLM, Ollama, OpenAI vision models).
type HTTPClassifier struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

var _ Classifier = (*HTTPClassifier)(nil)

// NewHTTPClassifier builds a classifier. Defaults target a local
// vLLM-style server.
func NewHTTPClassifier(opts Options) *HTTPClassifier {
	if opts.Endpoint == "" {
		opts.Endpoint = "http://localhost:8002/v1"
	}
	if opts.Model == "" {
		opts.Model = "Qwen/Qwen2.5-VL-3B-Instruct"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &HTTPClassifier{
		endpoint: strings.TrimRight(opts.Endpoint, "/"),
		model:    opts.Model,
		apiKey:   opts.APIKey,
		client:   &http.Client{Timeout: opts.Timeout},
	}
}

var imageMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// Classify sends the image and question, returning the model's text
// answer.
func (c *HTTPClassifier) Classify(ctx context.Context, imagePath, question string) (string, error) {
	timer := logging.StartTimer(logging.CategoryTools, "Classify")
	defer timer.Stop()

	mime, ok := imageMIMETypes[strings.ToLower(filepath.Ext(imagePath))]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", filepath.Ext(imagePath))
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))

	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
					{"type": "text", "text": question},
				},
			},
		},
		"max_tokens":  100,
		"temperature": 0.0,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision endpoint status %d: %s", resp.StatusCode, respBody)
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("vision endpoint returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
