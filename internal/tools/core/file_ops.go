// Package core provides the file and data-shaping tools of the closed set.
package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shellmind/internal/logging"
	"shellmind/internal/tools"
)

// ReadFileTool returns a tool for reading file contents.
// Relative paths resolve against the execution context, not the process.
func ReadFileTool(ec *tools.ExecutionContext) *tools.Tool {
	return &tools.Tool{
		Name:        tools.NameReadFile,
		Description: "Read the contents of a file",
		Category:    tools.CategoryFiles,
		ReadOnly:    true,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return executeReadFile(ec, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"file_path"},
			Properties: map[string]tools.Property{
				"file_path": {
					Type:        "string",
					Description: "The file path to read",
				},
			},
		},
	}
}

func executeReadFile(ec *tools.ExecutionContext, args map[string]any) (any, error) {
	path, _ := args["file_path"].(string)
	if path == "" {
		return nil, fmt.Errorf("file_path is required")
	}

	resolved := ec.Resolve(path)
	logging.ToolsDebug("read_file: path=%s", resolved)

	content, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	logging.Tools("read_file completed: %s (%d bytes)", resolved, len(content))
	return string(content), nil
}

// WriteFileTool returns a tool for writing content to a file.
// Always a critical action: the executor prompts before running it.
func WriteFileTool(ec *tools.ExecutionContext) *tools.Tool {
	return &tools.Tool{
		Name:        tools.NameWriteFile,
		Description: "Write content to a file, creating it if it doesn't exist",
		Category:    tools.CategoryFiles,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return executeWriteFile(ec, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"file_path", "content"},
			Properties: map[string]tools.Property{
				"file_path": {
					Type:        "string",
					Description: "The file path to write",
				},
				"content": {
					Type:        "string",
					Description: "The content to write",
				},
			},
		},
	}
}

func executeWriteFile(ec *tools.ExecutionContext, args map[string]any) (any, error) {
	path, _ := args["file_path"].(string)
	if path == "" {
		return nil, fmt.Errorf("file_path is required")
	}
	content, _ := args["content"].(string)

	resolved := ec.Resolve(path)
	logging.ToolsDebug("write_file: path=%s, size=%d", resolved, len(content))

	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	logging.Tools("write_file completed: %s (%d bytes)", resolved, len(content))
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), resolved), nil
}

// ListDirectoryTool returns a tool for listing directory contents.
func ListDirectoryTool(ec *tools.ExecutionContext) *tools.Tool {
	return &tools.Tool{
		Name:        tools.NameListDirectory,
		Description: "List the entries of a directory",
		Category:    tools.CategoryFiles,
		ReadOnly:    true,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return executeListDirectory(ec, args)
		},
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The directory to list (defaults to the working directory)",
					Default:     ".",
				},
			},
		},
	}
}

func executeListDirectory(ec *tools.ExecutionContext, args map[string]any) (any, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}

	resolved := ec.Resolve(path)
	logging.ToolsDebug("list_directory: path=%s", resolved)

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	// Directories carry a trailing slash so the model can tell them apart
	names := make([]any, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if entry.IsDir() {
			names = append(names, name+"/")
		} else {
			names = append(names, name)
		}
	}

	logging.Tools("list_directory completed: %s (%d entries)", resolved, len(names))
	return names, nil
}
