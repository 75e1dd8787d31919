// Package memorytools exposes long-term memory as tools: save_memory
// writes a fact into the vector store, recall_memory searches it.
package memorytools

import (
	"context"
	"fmt"

	"shellmind/internal/logging"
	"shellmind/internal/store"
	"shellmind/internal/tools"
)

// Store is the slice of LocalStore these tools need.
type Store interface {
	StoreMemory(ctx context.Context, content string, metadata map[string]any) error
	Search(ctx context.Context, query string, opts store.SearchOptions) ([]store.Memory, error)
}

// SaveMemoryTool returns the save_memory tool.
func SaveMemoryTool(s Store) *tools.Tool {
	return &tools.Tool{
		Name:        tools.NameSaveMemory,
		Description: "Save a fact to long-term memory for later recall",
		Category:    tools.CategoryMemory,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return executeSaveMemory(ctx, s, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"fact"},
			Properties: map[string]tools.Property{
				"fact": {
					Type:        "string",
					Description: "The fact to remember",
				},
				"memory_type": {
					Type:        "string",
					Description: "Category of the memory, defaults to 'fact'",
				},
			},
		},
	}
}

func executeSaveMemory(ctx context.Context, s Store, args map[string]any) (any, error) {
	fact, _ := args["fact"].(string)
	if fact == "" {
		return nil, fmt.Errorf("fact is required")
	}
	memType, _ := args["memory_type"].(string)
	if memType == "" {
		memType = "fact"
	}

	if err := s.StoreMemory(ctx, fact, map[string]any{"type": memType, "source": "save_memory"}); err != nil {
		return nil, err
	}

	logging.Tools("save_memory stored a %s (%d bytes)", memType, len(fact))
	return map[string]any{"status": "success", "message": "Fact saved to memory."}, nil
}

// RecallMemoryTool returns the recall_memory tool.
func RecallMemoryTool(s Store, limit int, minSimilarity float64) *tools.Tool {
	return &tools.Tool{
		Name:        tools.NameRecallMemory,
		Description: "Recall relevant facts from long-term memory",
		Category:    tools.CategoryMemory,
		ReadOnly:    true,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return executeRecallMemory(ctx, s, limit, minSimilarity, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"query"},
			Properties: map[string]tools.Property{
				"query": {
					Type:        "string",
					Description: "What to search memory for",
				},
				"memory_type": {
					Type:        "string",
					Description: "Restrict results to one memory category",
				},
				"limit": {
					Type:        "integer",
					Description: "Maximum number of facts to return",
				},
			},
		},
	}
}

func executeRecallMemory(ctx context.Context, s Store, defaultLimit int, minSimilarity float64, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	limit := defaultLimit
	if v, ok := args["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}
	memType, _ := args["memory_type"].(string)

	results, err := s.Search(ctx, query, store.SearchOptions{
		Limit:         limit,
		MinSimilarity: minSimilarity,
	})
	if err != nil {
		return nil, err
	}

	var facts []any
	for _, m := range results {
		if memType != "" {
			if got, _ := m.Metadata["type"].(string); got != memType {
				continue
			}
		}
		facts = append(facts, m.Content)
	}

	if len(facts) == 0 {
		return map[string]any{"status": "not_found", "message": "No relevant facts found in memory."}, nil
	}
	logging.Tools("recall_memory matched %d facts for %q", len(facts), query)
	return map[string]any{"status": "success", "facts": facts}, nil
}

// RegisterAll registers the memory tools.
func RegisterAll(registry *tools.Registry, s Store, recallLimit int, minSimilarity float64) {
	registry.MustRegister(SaveMemoryTool(s))
	registry.MustRegister(RecallMemoryTool(s, recallLimit, minSimilarity))
}
