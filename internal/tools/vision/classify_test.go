package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shellmind/internal/tools"
)

type stubClassifier struct {
	answer string
	err    error
	paths  []string
}

func (s *stubClassifier) Classify(_ context.Context, imagePath, _ string) (string, error) {
	s.paths = append(s.paths, imagePath)
	return s.answer, s.err
}

// tiny valid PNG header, enough for a file the tool will accept
var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func writeImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, pngBytes, 0o644))
	return path
}

func TestClassifyImageTool(t *testing.T) {
	dir := t.TempDir()
	img := writeImage(t, dir, "cat.png")

	ec, err := tools.NewExecutionContext(dir)
	require.NoError(t, err)
	stub := &stubClassifier{answer: "yes"}
	tool := ClassifyImageTool(ec, stub)

	out, err := tool.Execute(t.Context(), map[string]any{
		"image_path": "cat.png",
		"question":   "Is there a cat in this photo?",
	})
	require.NoError(t, err)

	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "yes", result["response"])

	// Relative path resolved against the execution context.
	require.Len(t, stub.paths, 1)
	assert.Equal(t, img, stub.paths[0])
}

func TestClassifyImageMissingFile(t *testing.T) {
	ec, err := tools.NewExecutionContext(t.TempDir())
	require.NoError(t, err)
	tool := ClassifyImageTool(ec, &stubClassifier{answer: "yes"})

	_, err = tool.Execute(t.Context(), map[string]any{
		"image_path": "ghost.png",
		"question":   "anything?",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestClassifyImageMissingArgs(t *testing.T) {
	ec, err := tools.NewExecutionContext(t.TempDir())
	require.NoError(t, err)
	tool := ClassifyImageTool(ec, &stubClassifier{})

	_, err = tool.Execute(t.Context(), map[string]any{"question": "hm?"})
	assert.Error(t, err)

	_, err = tool.Execute(t.Context(), map[string]any{"image_path": "a.png"})
	assert.Error(t, err)
}

func TestClassifyImageClassifierError(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "dog.png")

	ec, err := tools.NewExecutionContext(dir)
	require.NoError(t, err)
	tool := ClassifyImageTool(ec, &stubClassifier{err: fmt.Errorf("endpoint down")})

	_, err = tool.Execute(t.Context(), map[string]any{
		"image_path": "dog.png",
		"question":   "anything?",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint down")
}

func TestHTTPClassifierSendsDataURL(t *testing.T) {
	dir := t.TempDir()
	img := writeImage(t, dir, "scene.png")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Content []map[string]any `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Len(t, payload.Messages, 1)
		require.Len(t, payload.Messages[0].Content, 2)

		imageURL := payload.Messages[0].Content[0]["image_url"].(map[string]any)["url"].(string)
		assert.True(t, strings.HasPrefix(imageURL, "data:image/png;base64,"))

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": " yes. "}},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPClassifier(Options{Endpoint: srv.URL + "/v1", Model: "test-vl"})
	answer, err := c.Classify(t.Context(), img, "Is it outdoors?")
	require.NoError(t, err)
	assert.Equal(t, "yes.", answer)
}

func TestHTTPClassifierRejectsUnknownExtension(t *testing.T) {
	c := NewHTTPClassifier(Options{})
	_, err := c.Classify(t.Context(), "/tmp/document.pdf", "what?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported image type")
}

func TestHTTPClassifierEndpointFailure(t *testing.T) {
	dir := t.TempDir()
	img := writeImage(t, dir, "x.png")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClassifier(Options{Endpoint: srv.URL})
	_, err := c.Classify(t.Context(), img, "anything?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
