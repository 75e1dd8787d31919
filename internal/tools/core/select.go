package core

import (
	"context"
	"fmt"
	"math"

	"shellmind/internal/logging"
	"shellmind/internal/tools"
)

// SelectFromListTool returns a tool that picks elements out of a list
// produced by an earlier step, either by index or by key/value filter.
func SelectFromListTool() *tools.Tool {
	return &tools.Tool{
		Name:        tools.NameSelectFromList,
		Description: "Select an element by index, or filter a list of objects by key/value, optionally projecting a single key",
		Category:    tools.CategoryGeneral,
		ReadOnly:    true,
		Execute:     executeSelectFromList,
		Schema: tools.ToolSchema{
			Required: []string{"input_list"},
			Properties: map[string]tools.Property{
				"input_list": {
					Type:        "array",
					Description: "The list to select from",
					Items:       &tools.PropertyItems{Type: "string"},
				},
				"index": {
					Type:        "integer",
					Description: "Zero-based index to select (negative counts from the end)",
				},
				"filter_key": {
					Type:        "string",
					Description: "Key to filter objects by",
				},
				"filter_value": {
					Type:        "string",
					Description: "Value the filter key must equal",
				},
				"return_key": {
					Type:        "string",
					Description: "Project this key from each matching object",
				},
			},
		},
	}
}

func executeSelectFromList(ctx context.Context, args map[string]any) (any, error) {
	list, ok := args["input_list"].([]any)
	if !ok {
		return nil, fmt.Errorf("input_list must be a list, got %T", args["input_list"])
	}

	logging.ToolsDebug("select_from_list: %d elements", len(list))

	// Index selection takes precedence over filtering
	if rawIdx, present := args["index"]; present {
		idx, err := toInt(rawIdx)
		if err != nil {
			return nil, fmt.Errorf("index: %w", err)
		}
		if idx < 0 {
			idx += len(list)
		}
		if idx < 0 || idx >= len(list) {
			return nil, fmt.Errorf("index %v out of range for list of %d", rawIdx, len(list))
		}
		return projectKey(list[idx], args)
	}

	filterKey, _ := args["filter_key"].(string)
	if filterKey == "" {
		return list, nil
	}
	filterValue := args["filter_value"]

	matched := make([]any, 0)
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if fmt.Sprintf("%v", obj[filterKey]) == fmt.Sprintf("%v", filterValue) {
			projected, err := projectKey(item, args)
			if err != nil {
				return nil, err
			}
			matched = append(matched, projected)
		}
	}

	// A single match collapses to the element itself
	if len(matched) == 1 {
		return matched[0], nil
	}
	return matched, nil
}

func projectKey(item any, args map[string]any) (any, error) {
	returnKey, _ := args["return_key"].(string)
	if returnKey == "" {
		return item, nil
	}
	obj, ok := item.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("return_key requires object elements, got %T", item)
	}
	value, present := obj[returnKey]
	if !present {
		return nil, fmt.Errorf("return_key %q not present in element", returnKey)
	}
	return value, nil
}

// toInt accepts the numeric types JSON decoding produces.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("not an integer: %T", v)
	}
}
