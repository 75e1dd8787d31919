package agent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"shellmind/internal/logging"
)

// Placeholders let a plan step reference an earlier step's output:
// <output_of_step_N> followed by optional accessors. The grammar is
// deliberately tiny and parsed by hand; nothing in a placeholder is
// ever evaluated as code.
//
//	<output_of_step_2>
//	<output_of_step_2>['stdout']
//	<output_of_step_1>[0]
//	<output_of_step_3>.entries[2]
var placeholderPattern = regexp.MustCompile(`<output_of_step_(\d+)>((?:\[[^\[\]]*\]|\.[A-Za-z_][A-Za-z0-9_]*)*)`)

var accessorPattern = regexp.MustCompile(`\['([^']*)'\]|\["([^"]*)"\]|\[(-?\d+)\]|\.([A-Za-z_][A-Za-z0-9_]*)`)

type accessor struct {
	key     string
	index   int
	isIndex bool
}

// parseAccessors turns the trailing accessor text into a chain.
// A chain that does not re-assemble to the input means the text
// contained something outside the grammar.
func parseAccessors(s string) ([]accessor, error) {
	if s == "" {
		return nil, nil
	}
	matches := accessorPattern.FindAllStringSubmatch(s, -1)
	consumed := 0
	var chain []accessor
	for _, m := range matches {
		consumed += len(m[0])
		switch {
		case m[4] != "":
			chain = append(chain, accessor{key: m[4]})
		case m[3] != "":
			idx, err := strconv.Atoi(m[3])
			if err != nil {
				return nil, fmt.Errorf("bad index %q", m[3])
			}
			chain = append(chain, accessor{index: idx, isIndex: true})
		case m[2] != "":
			chain = append(chain, accessor{key: m[2]})
		default:
			chain = append(chain, accessor{key: m[1]})
		}
	}
	if consumed != len(s) {
		return nil, fmt.Errorf("unsupported accessor syntax in %q", s)
	}
	return chain, nil
}

// unwrapResult peels the {"result": ...} envelope tools use so that
// a bare placeholder yields the payload directly. Accessor chains see
// the envelope first and fall back to the payload, so both
// ['result'][0] and [0] address the same list.
func unwrapResult(v any) any {
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		if inner, ok := m["result"]; ok {
			return inner
		}
	}
	return v
}

func traverse(v any, chain []accessor) (any, error) {
	for _, acc := range chain {
		if acc.isIndex {
			list, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("index accessor on non-list value %T", v)
			}
			idx := acc.index
			if idx < 0 {
				idx += len(list)
			}
			if idx < 0 || idx >= len(list) {
				return nil, fmt.Errorf("index %d out of range (len %d)", acc.index, len(list))
			}
			v = list[idx]
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("key accessor %q on non-map value %T", acc.key, v)
		}
		val, ok := m[acc.key]
		if !ok {
			return nil, fmt.Errorf("key %q not present", acc.key)
		}
		v = val
	}
	return v, nil
}

// formatInline renders a resolved value for embedding inside a larger
// string. Lists become space-separated quoted tokens so a shell
// command can consume them as arguments.
func formatInline(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprintf("%q", fmt.Sprint(item))
		}
		return strings.Join(parts, " ")
	}
	return fmt.Sprint(v)
}

// ResolvePlaceholders substitutes step-output references in a step's
// arguments. stepOutputs is 1-indexed by step number (stepOutputs[0]
// is step 1). Resolution failures are soft: the placeholder text
// stays put so the tool's own error reporting can surface it, and the
// call is idempotent over already-resolved arguments.
func ResolvePlaceholders(args map[string]any, stepOutputs []any) map[string]any {
	resolved := make(map[string]any, len(args))
	for name, value := range args {
		str, ok := value.(string)
		if !ok || !strings.Contains(str, "<output_of_step_") {
			resolved[name] = value
			continue
		}
		resolved[name] = resolveString(str, stepOutputs)
	}
	return resolved
}

func resolveString(s string, stepOutputs []any) any {
	matches := placeholderPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return s
	}

	// A lone placeholder keeps the resolved value's type.
	if len(matches) == 1 && matches[0][0] == s {
		if v, ok := lookup(matches[0], stepOutputs); ok {
			return v
		}
		return s
	}

	out := s
	for _, m := range matches {
		v, ok := lookup(m, stepOutputs)
		if !ok {
			continue
		}
		out = strings.Replace(out, m[0], formatInline(v), 1)
	}
	return out
}

// lookup resolves one placeholder match against the step outputs.
func lookup(match []string, stepOutputs []any) (any, bool) {
	stepNum, err := strconv.Atoi(match[1])
	if err != nil || stepNum < 1 || stepNum > len(stepOutputs) {
		logging.ExecutorDebug("Placeholder %s references step %s outside 1..%d, leaving as-is",
			match[0], match[1], len(stepOutputs))
		return nil, false
	}

	chain, err := parseAccessors(match[2])
	if err != nil {
		logging.ExecutorDebug("Placeholder %s rejected: %v", match[0], err)
		return nil, false
	}

	output := stepOutputs[stepNum-1]
	if len(chain) == 0 {
		return unwrapResult(output), true
	}
	v, err := traverse(output, chain)
	if err != nil {
		v, err = traverse(unwrapResult(output), chain)
	}
	if err != nil {
		logging.ExecutorDebug("Placeholder %s failed to resolve: %v", match[0], err)
		return nil, false
	}
	return v, true
}
