package shell

import (
	"shellmind/internal/tools"
)

// RegisterAll registers the shell execution tool with the given registry.
func RegisterAll(registry *tools.Registry, ec *tools.ExecutionContext, opts Options) error {
	return registry.Register(RunShellCommandTool(ec, opts))
}
