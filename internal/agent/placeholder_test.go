package agent

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolveWholeValueKeepsType(t *testing.T) {
	outputs := []any{
		map[string]any{"entries": []any{"a.txt", "b.txt"}},
	}
	args := map[string]any{
		"items": "<output_of_step_1>['entries']",
	}

	got := ResolvePlaceholders(args, outputs)
	want := map[string]any{
		"items": []any{"a.txt", "b.txt"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resolved args mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveUnwrapsResultEnvelope(t *testing.T) {
	outputs := []any{
		map[string]any{"result": map[string]any{"stdout": "hello\n", "exit_code": 0}},
	}
	args := map[string]any{
		"content": "<output_of_step_1>['stdout']",
	}

	got := ResolvePlaceholders(args, outputs)
	if got["content"] != "hello\n" {
		t.Errorf("content = %v, want stdout from unwrapped envelope", got["content"])
	}
}

func TestResolveEnvelopeAddressableBothWays(t *testing.T) {
	outputs := []any{
		map[string]any{"result": []any{"a.jpg", "b.jpg"}},
	}
	want := []any{"a.jpg", "b.jpg"}

	// Explicit ['result'] addresses the envelope key.
	got := ResolvePlaceholders(map[string]any{"image_path": "<output_of_step_1>['result']"}, outputs)
	if diff := cmp.Diff(want, got["image_path"]); diff != "" {
		t.Errorf("['result'] accessor mismatch (-want +got):\n%s", diff)
	}

	// A bare placeholder and a direct index both see the payload.
	got = ResolvePlaceholders(map[string]any{"v": "<output_of_step_1>"}, outputs)
	if diff := cmp.Diff(want, got["v"]); diff != "" {
		t.Errorf("bare placeholder mismatch (-want +got):\n%s", diff)
	}
	got = ResolvePlaceholders(map[string]any{"v": "<output_of_step_1>[0]"}, outputs)
	if got["v"] != "a.jpg" {
		t.Errorf("[0] = %v, want a.jpg", got["v"])
	}
}

func TestResolveEmbeddedStringifies(t *testing.T) {
	outputs := []any{
		map[string]any{"count": float64(3)},
	}
	args := map[string]any{
		"command": "echo found <output_of_step_1>['count'] files",
	}

	got := ResolvePlaceholders(args, outputs)
	if got["command"] != "echo found 3 files" {
		t.Errorf("command = %q", got["command"])
	}
}

func TestResolveEmbeddedListQuotesTokens(t *testing.T) {
	outputs := []any{
		map[string]any{"entries": []any{"a 1.txt", "b.txt"}},
	}
	args := map[string]any{
		"command": "rm <output_of_step_1>['entries']",
	}

	got := ResolvePlaceholders(args, outputs)
	if got["command"] != `rm "a 1.txt" "b.txt"` {
		t.Errorf("command = %q", got["command"])
	}
}

func TestResolveAccessorForms(t *testing.T) {
	outputs := []any{
		map[string]any{
			"files": []any{
				map[string]any{"name": "first"},
				map[string]any{"name": "second"},
			},
		},
	}

	cases := []struct {
		placeholder string
		want        any
	}{
		{`<output_of_step_1>['files'][0]['name']`, "first"},
		{`<output_of_step_1>["files"][1]["name"]`, "second"},
		{`<output_of_step_1>.files[0].name`, "first"},
		{`<output_of_step_1>['files'][-1]['name']`, "second"},
		{`<output_of_step_1>`, outputs[0]},
	}
	for _, tc := range cases {
		got := ResolvePlaceholders(map[string]any{"v": tc.placeholder}, outputs)
		if diff := cmp.Diff(tc.want, got["v"]); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", tc.placeholder, diff)
		}
	}
}

func TestResolveFailureIsSoft(t *testing.T) {
	outputs := []any{
		map[string]any{"stdout": "ok"},
	}

	cases := []string{
		"<output_of_step_9>['stdout']",  // missing step
		"<output_of_step_1>['absent']",  // bad key
		"<output_of_step_1>[5]",         // index on non-list
		"<output_of_step_0>",            // steps are 1-indexed
	}
	for _, placeholder := range cases {
		got := ResolvePlaceholders(map[string]any{"v": placeholder}, outputs)
		if got["v"] != placeholder {
			t.Errorf("%s: expected placeholder left in place, got %v", placeholder, got["v"])
		}
	}
}

func TestResolveRejectsExpressionSyntax(t *testing.T) {
	outputs := []any{map[string]any{"stdout": "ok"}}

	// Anything beyond key/index accessors is outside the grammar and
	// must not resolve.
	placeholder := "<output_of_step_1>['stdout'].__class__"
	got := ResolvePlaceholders(map[string]any{"v": placeholder}, outputs)
	if got["v"] != placeholder {
		t.Errorf("expression-like accessor resolved: %v", got["v"])
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	outputs := []any{map[string]any{"stdout": "done"}}
	args := map[string]any{
		"command": "echo <output_of_step_1>['stdout']",
		"path":    "/tmp/plain",
		"count":   float64(2),
	}

	once := ResolvePlaceholders(args, outputs)
	twice := ResolvePlaceholders(once, outputs)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second resolution changed args (-once +twice):\n%s", diff)
	}
}
