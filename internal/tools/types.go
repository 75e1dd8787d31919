// Package tools provides the closed tool set the agent can act with.
//
// Tools are registered once at startup. The set is fixed: the loop can
// only ever invoke what the registry holds, and nothing is loaded at
// runtime. Outputs are structured (maps, lists, scalars) so later plan
// steps can index into them.
package tools

import (
	"context"
)

// ToolCategory classifies tools for display and for the repetition guard,
// which treats read-only categories differently from mutating ones.
type ToolCategory string

const (
	// CategoryShell covers subprocess execution and shell state.
	CategoryShell ToolCategory = "/shell"

	// CategoryFiles covers file and directory operations.
	CategoryFiles ToolCategory = "/files"

	// CategoryVision covers image classification.
	CategoryVision ToolCategory = "/vision"

	// CategoryMemory covers long-term memory save and recall.
	CategoryMemory ToolCategory = "/memory"

	// CategoryGeneral covers data-shaping helpers.
	CategoryGeneral ToolCategory = "/general"
)

// Canonical tool names. The registry is populated with exactly these.
const (
	NameRunShellCommand = "run_shell_command"
	NameReadFile        = "read_file"
	NameWriteFile       = "write_file"
	NameListDirectory   = "list_directory"
	NameSelectFromList  = "select_from_list"
	NameClassifyImage   = "classify_image"
	NameSaveMemory      = "save_memory"
	NameRecallMemory    = "recall_memory"
)

// KnownNames returns the closed tool set, in registration order.
func KnownNames() []string {
	return []string{
		NameRunShellCommand,
		NameReadFile,
		NameWriteFile,
		NameListDirectory,
		NameSelectFromList,
		NameClassifyImage,
		NameSaveMemory,
		NameRecallMemory,
	}
}

// IsKnownName reports whether name belongs to the closed tool set.
func IsKnownName(name string) bool {
	for _, n := range KnownNames() {
		if n == name {
			return true
		}
	}
	return false
}

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// ToolSchema defines the JSON schema for tool arguments.
// The oracle receives these schemas when asked to plan.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
// The returned value may be a string, a map, or a list; plan steps
// reference pieces of it through placeholder accessors.
type ExecuteFunc func(ctx context.Context, args map[string]any) (any, error)

// Tool defines one member of the closed tool set.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does.
	// Sent to the oracle as part of the planning prompt.
	Description string

	// Category classifies the tool.
	Category ToolCategory

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema

	// ReadOnly marks tools that only gather information. The
	// repetition guard counts consecutive read-only actions.
	ReadOnly bool
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// ToolResult wraps the result of tool execution with metadata.
type ToolResult struct {
	// ToolName identifies which tool was executed.
	ToolName string

	// Output is the structured output from the tool.
	Output any

	// Error is set if the tool failed.
	Error error

	// DurationMs is how long execution took.
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}
