package oracle

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		})
	}
}

func newTestClient(url string) *Client {
	return NewClient(ClientConfig{
		BaseURL:    url,
		APIKey:     "test-key",
		Model:      "test-model",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})
}

func TestClientThinkRespond(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, `{"text": "hello there"}`))
	defer srv.Close()

	d, err := newTestClient(srv.URL).Think(t.Context(), ThinkInput{Input: "hi"})
	require.NoError(t, err)
	assert.Equal(t, DecisionRespond, d.Kind)
	assert.Equal(t, "hello there", d.Text)
}

func TestClientThinkPlan(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t,
		`{"plan": {"steps": [{"thought": "look", "tool": "list_directory", "args": {"path": "."}}]}}`))
	defer srv.Close()

	d, err := newTestClient(srv.URL).Think(t.Context(), ThinkInput{Input: "what is here"})
	require.NoError(t, err)
	require.Equal(t, DecisionPlan, d.Kind)
	assert.Len(t, d.Plan.Steps, 1)
}

func TestClientThinkMalformedIsFailureSafe(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, `I refuse to emit JSON today`))
	defer srv.Close()

	d, err := newTestClient(srv.URL).Think(t.Context(), ThinkInput{Input: "hi"})
	require.NoError(t, err)
	assert.Equal(t, DecisionError, d.Kind)
	assert.NotEmpty(t, d.Text)
}

func TestClientServerFailureIsFailureSafe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d, err := newTestClient(srv.URL).Think(t.Context(), ThinkInput{Input: "hi"})
	require.NoError(t, err)
	assert.Equal(t, DecisionError, d.Kind)
}

func TestClientRetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		chatHandler(t, `{"text": "second try"}`)(w, r)
	}))
	defer srv.Close()

	d, err := newTestClient(srv.URL).Think(t.Context(), ThinkInput{Input: "hi"})
	require.NoError(t, err)
	assert.Equal(t, DecisionRespond, d.Kind)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientReflectFinish(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, `{"status": "finish", "summary": "all done"}`))
	defer srv.Close()

	r, err := newTestClient(srv.URL).Reflect(t.Context(), ReflectInput{
		Goal: "clean logs",
		Observations: []Observation{
			{Tool: "run_shell_command", Args: map[string]any{"command": "rm old.log"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ReflectFinish, r.Kind)
	assert.Equal(t, "all done", r.Summary)
}

func TestClientContinuesTaskDefaultsFalseOnFailure(t *testing.T) {
	srv := httptest.NewServer(chatHandler(t, `garbage`))
	defer srv.Close()

	continues, err := newTestClient(srv.URL).ContinuesTask(t.Context(), "refactor auth", "also fix the tests")
	require.NoError(t, err)
	assert.False(t, continues)
}

func TestClientMissingAPIKey(t *testing.T) {
	c := NewClient(ClientConfig{BaseURL: "http://localhost:1", Timeout: time.Second})
	d, err := c.Think(t.Context(), ThinkInput{Input: "hi"})
	require.NoError(t, err)
	assert.Equal(t, DecisionError, d.Kind)
}
