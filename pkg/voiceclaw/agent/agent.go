// Package agent – agent.go implements the bounded tool-calling loop
// that orchestrates the conversation store, the LLM gateway, and the
// tool executor. The loop iterates: call LLM → if tool_calls → execute
// tools → append results → call LLM again, until the model produces a
// final text response or the loop budget runs out.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/config"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/memory"
)

// ToolResult holds the output of a single tool execution. Content is
// always populated: execution errors are rendered as text for the
// model, not surfaced as Go errors.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
}

// ToolRunner executes tool calls requested by the model. Implemented by
// tools.Executor.
type ToolRunner interface {
	// Definitions returns the tool schemas advertised to the model.
	Definitions() []ToolDefinition

	// Execute runs one tool call and renders its outcome as text.
	Execute(ctx context.Context, call ToolCall) ToolResult
}

// completer is the slice of LLMClient the loop depends on.
type completer interface {
	Complete(ctx context.Context, messages []chatMessage, system string, tools []ToolDefinition) (*ChatResult, error)
}

// Agent runs one user turn through the tool-calling loop.
type Agent struct {
	llm          completer
	tools        ToolRunner
	store        *memory.Store
	systemPrompt string
	maxToolLoops int
	maxContext   int
	logger       *slog.Logger
}

// New creates an agent bound to its collaborators.
func New(llm *LLMClient, tools ToolRunner, store *memory.Store, cfg config.AgentConfig, logger *slog.Logger) *Agent {
	return &Agent{
		llm:          llm,
		tools:        tools,
		store:        store,
		systemPrompt: cfg.SystemPrompt,
		maxToolLoops: cfg.MaxToolLoops,
		maxContext:   cfg.MaxContextMessages,
		logger:       logger.With("component", "agent"),
	}
}

// Run executes the loop for one user utterance and returns the final
// answer text. Empty input returns empty immediately with no history
// mutation. The loop always terminates within maxToolLoops completion
// calls; exhausting the budget falls back to the most recent assistant
// text instead of failing.
func (a *Agent) Run(ctx context.Context, userText string) (string, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return "", nil
	}

	history, err := a.store.RecentMessages(a.maxContext)
	if err != nil {
		return "", fmt.Errorf("loading history: %w", err)
	}

	// Persist the user turn before any model call so a failure mid-loop
	// does not lose it.
	if err := a.store.AddMessage("user", userText); err != nil {
		return "", fmt.Errorf("saving user message: %w", err)
	}

	messages := make([]chatMessage, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userText})

	system, err := a.buildSystemPreamble()
	if err != nil {
		return "", err
	}

	var defs []ToolDefinition
	if a.tools != nil {
		defs = a.tools.Definitions()
	}

	a.logger.Debug("agent run started",
		"history", len(history),
		"tools", len(defs),
		"max_tool_loops", a.maxToolLoops,
	)

	for loop := 0; loop < a.maxToolLoops; loop++ {
		result, err := a.llm.Complete(ctx, messages, system, defs)
		if err != nil {
			return "", fmt.Errorf("completion call failed (loop %d): %w", loop+1, err)
		}

		if result.Content != "" {
			messages = append(messages, chatMessage{Role: "assistant", Content: result.Content})
		}

		// No tool calls: this is the final answer.
		if len(result.ToolCalls) == 0 {
			final := strings.TrimSpace(result.Content)
			if final != "" {
				if err := a.store.AddMessage("assistant", final); err != nil {
					a.logger.Warn("failed to persist assistant message", "error", err)
				}
			}
			a.logger.Info("agent completed", "loops", loop+1, "response_len", len(final))
			return final, nil
		}

		// Record the raw tool calls, then execute them in order.
		messages = append(messages, chatMessage{Role: "assistant", ToolCalls: result.ToolCalls})

		for _, call := range result.ToolCalls {
			res := a.executeToolCall(ctx, call)
			messages = append(messages, chatMessage{
				Role:       "tool",
				Content:    res.Content,
				ToolCallID: res.ToolCallID,
			})
		}
	}

	a.logger.Info("tool loop limit reached, returning last assistant content")

	// Best effort: most recent assistant text from the working list.
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != "assistant" {
			continue
		}
		final := strings.TrimSpace(m.Content)
		if final == "" {
			continue
		}
		if err := a.store.AddMessage("assistant", final); err != nil {
			a.logger.Warn("failed to persist assistant message", "error", err)
		}
		return final, nil
	}
	return "", nil
}

// executeToolCall dispatches one call to the runner. The model is free
// to request tools it was never offered, so a nil runner answers every
// call with the unknown-tool text instead of touching it.
func (a *Agent) executeToolCall(ctx context.Context, call ToolCall) ToolResult {
	if a.tools == nil {
		return ToolResult{
			ToolCallID: call.ID,
			Name:       call.Function.Name,
			Content:    fmt.Sprintf("tool '%s' is not available", call.Function.Name),
		}
	}
	return a.tools.Execute(ctx, call)
}

// buildSystemPreamble concatenates the base prompt with the rendered
// preference list, when any preferences exist.
func (a *Agent) buildSystemPreamble() (string, error) {
	keys, err := a.store.PreferenceKeys()
	if err != nil {
		return "", fmt.Errorf("loading preference keys: %w", err)
	}
	if len(keys) == 0 {
		return a.systemPrompt, nil
	}

	prefs, err := a.store.Preferences()
	if err != nil {
		return "", fmt.Errorf("loading preferences: %w", err)
	}

	var b strings.Builder
	b.WriteString(a.systemPrompt)
	b.WriteString("\n\nUserPreferences:\n")
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %s", k, prefs[k])
	}
	return b.String(), nil
}
