// Package tools – executor.go manages the fixed registry of callable
// tools and dispatches tool calls from the LLM to their handlers. The
// tool set is built once at startup; execution errors are rendered as
// text for the model and never abort the calling loop.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/agent"
)

// DefaultToolTimeout is the maximum time a single tool execution can take.
const DefaultToolTimeout = 30 * time.Second

// HandlerFunc is the signature for tool execution handlers.
// Receives parsed arguments and returns the result text or an error.
type HandlerFunc func(ctx context.Context, args map[string]any) (string, error)

// registeredTool bundles a tool definition with its handler.
type registeredTool struct {
	definition agent.ToolDefinition
	handler    HandlerFunc
}

// Executor holds the tool registry, fixed for the process lifetime
// after startup registration, and dispatches calls by name.
type Executor struct {
	tools   map[string]*registeredTool
	order   []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecutor creates an empty executor.
func NewExecutor(logger *slog.Logger) *Executor {
	return &Executor{
		tools:   make(map[string]*registeredTool),
		timeout: DefaultToolTimeout,
		logger:  logger.With("component", "tools"),
	}
}

// Register adds a tool. Meant to be called during startup only; the
// registry is read-only once calls start flowing.
func (e *Executor) Register(def agent.ToolDefinition, handler HandlerFunc) {
	name := def.Function.Name
	if _, exists := e.tools[name]; !exists {
		e.order = append(e.order, name)
	}
	e.tools[name] = &registeredTool{definition: def, handler: handler}
	e.logger.Debug("tool registered", "name", name)
}

// Definitions returns all registered tool definitions for the LLM, in
// registration order.
func (e *Executor) Definitions() []agent.ToolDefinition {
	defs := make([]agent.ToolDefinition, 0, len(e.tools))
	for _, name := range e.order {
		defs = append(defs, e.tools[name].definition)
	}
	return defs
}

// Execute runs one tool call. The expected failure kinds (unknown
// tool, malformed JSON arguments, handler error) all produce result
// text for the model rather than an error: they are data, not control
// flow.
func (e *Executor) Execute(ctx context.Context, call agent.ToolCall) agent.ToolResult {
	name := call.Function.Name
	result := agent.ToolResult{
		ToolCallID: call.ID,
		Name:       name,
	}

	// Arguments are checked before the name: malformed JSON is reported
	// as such even when the tool does not exist.
	args, err := parseArgs(call.Function.Arguments)
	if err != nil {
		result.Content = fmt.Sprintf("invalid JSON arguments for tool '%s'", name)
		e.logger.Warn("tool argument parse error", "name", name, "error", err)
		return result
	}

	tool, ok := e.tools[name]
	if !ok {
		result.Content = fmt.Sprintf("tool '%s' is not available", name)
		e.logger.Warn("unknown tool called", "name", name)
		return result
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	output, err := tool.handler(execCtx, args)
	duration := time.Since(start)

	if err != nil {
		result.Content = fmt.Sprintf("Error executing tool '%s': %v", name, err)
		e.logger.Warn("tool execution failed",
			"name", name,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return result
	}

	result.Content = output
	e.logger.Info("tool executed",
		"name", name,
		"duration_ms", duration.Milliseconds(),
		"output_len", len(output),
	)
	return result
}

// parseArgs parses JSON-encoded tool arguments into a map.
func parseArgs(raw string) (map[string]any, error) {
	if raw == "" || raw == "{}" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// MakeDefinition creates a tool definition from a name, description,
// and a JSON-Schema parameter map.
func MakeDefinition(name, description string, params map[string]any) agent.ToolDefinition {
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
	if params != nil {
		schema = params
	}

	schemaJSON, _ := json.Marshal(schema)

	return agent.ToolDefinition{
		Type: "function",
		Function: agent.FunctionDef{
			Name:        name,
			Description: description,
			Parameters:  schemaJSON,
		},
	}
}

// stringArg extracts a string argument, tolerating absent keys.
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}
