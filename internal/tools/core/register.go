package core

import (
	"shellmind/internal/tools"
)

// RegisterAll registers the file and data tools with the given registry.
func RegisterAll(registry *tools.Registry, ec *tools.ExecutionContext) error {
	allTools := []*tools.Tool{
		ReadFileTool(ec),
		WriteFileTool(ec),
		ListDirectoryTool(ec),
		SelectFromListTool(),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	return nil
}
