package agent

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/memory"
)

// scriptedLLM replays canned results in order, repeating the last one
// when the script runs out.
type scriptedLLM struct {
	results []*ChatResult
	calls   int
}

func (s *scriptedLLM) Complete(_ context.Context, _ []chatMessage, _ string, _ []ToolDefinition) (*ChatResult, error) {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx], nil
}

// recordingRunner answers every tool call with a fixed string and
// remembers what was called.
type recordingRunner struct {
	defs  []ToolDefinition
	calls []ToolCall
}

func (r *recordingRunner) Definitions() []ToolDefinition { return r.defs }

func (r *recordingRunner) Execute(_ context.Context, call ToolCall) ToolResult {
	r.calls = append(r.calls, call)
	return ToolResult{
		ToolCallID: call.ID,
		Name:       call.Function.Name,
		Content:    "ok",
	}
}

func newTestAgent(t *testing.T, llm completer, tools ToolRunner) (*Agent, *memory.Store) {
	t.Helper()
	store, err := memory.Open(filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return &Agent{
		llm:          llm,
		tools:        tools,
		store:        store,
		systemPrompt: "You are a test assistant.",
		maxToolLoops: 4,
		maxContext:   24,
		logger:       slog.Default(),
	}, store
}

func toolCall(id, name string) ToolCall {
	return ToolCall{
		ID:   id,
		Type: "function",
		Function: FunctionCall{
			Name:      name,
			Arguments: "{}",
		},
	}
}

func TestAgent_PlainAnswer(t *testing.T) {
	t.Parallel()

	llm := &scriptedLLM{results: []*ChatResult{{Content: "the answer"}}}
	a, store := newTestAgent(t, llm, &recordingRunner{})

	got, err := a.Run(context.Background(), "a question")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "the answer" {
		t.Errorf("Run() = %q, want %q", got, "the answer")
	}

	// Both turns persisted.
	msgs, err := store.RecentMessages(10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("stored conversation = %+v, want user then assistant", msgs)
	}
}

func TestAgent_EmptyInputShortCircuits(t *testing.T) {
	t.Parallel()

	llm := &scriptedLLM{results: []*ChatResult{{Content: "unreachable"}}}
	a, store := newTestAgent(t, llm, &recordingRunner{})

	got, err := a.Run(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "" {
		t.Errorf("Run(blank) = %q, want empty", got)
	}
	if llm.calls != 0 {
		t.Errorf("Run(blank) made %d completion calls, want 0", llm.calls)
	}

	msgs, err := store.RecentMessages(10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("Run(blank) stored %d messages, want 0", len(msgs))
	}
}

func TestAgent_ToolCallThenAnswer(t *testing.T) {
	t.Parallel()

	llm := &scriptedLLM{results: []*ChatResult{
		{ToolCalls: []ToolCall{toolCall("c1", "read_file")}},
		{Content: "done reading"},
	}}
	runner := &recordingRunner{}
	a, _ := newTestAgent(t, llm, runner)

	got, err := a.Run(context.Background(), "read my notes")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "done reading" {
		t.Errorf("Run() = %q, want %q", got, "done reading")
	}
	if len(runner.calls) != 1 || runner.calls[0].Function.Name != "read_file" {
		t.Errorf("tool calls = %+v, want one read_file call", runner.calls)
	}
	if llm.calls != 2 {
		t.Errorf("completion calls = %d, want 2", llm.calls)
	}
}

func TestAgent_ToolLoopIsBounded(t *testing.T) {
	t.Parallel()

	// A model that always asks for another tool call must still
	// terminate within the loop budget and return a string.
	llm := &scriptedLLM{results: []*ChatResult{
		{Content: "working on it", ToolCalls: []ToolCall{toolCall("c1", "search")}},
	}}
	runner := &recordingRunner{}
	a, _ := newTestAgent(t, llm, runner)

	got, err := a.Run(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if llm.calls != 4 {
		t.Errorf("completion calls = %d, want exactly maxToolLoops (4)", llm.calls)
	}
	if len(runner.calls) != 4 {
		t.Errorf("tool executions = %d, want 4", len(runner.calls))
	}
	// Falls back to the last assistant text instead of failing.
	if got != "working on it" {
		t.Errorf("Run() = %q, want fallback %q", got, "working on it")
	}
}

func TestAgent_PreferencesInSystemPreamble(t *testing.T) {
	t.Parallel()

	llm := &scriptedLLM{results: []*ChatResult{{Content: "hi"}}}
	a, store := newTestAgent(t, llm, &recordingRunner{})

	if err := store.SetPreference("name", "Sam"); err != nil {
		t.Fatalf("SetPreference() error = %v", err)
	}
	if err := store.SetPreference("units", "metric"); err != nil {
		t.Fatalf("SetPreference() error = %v", err)
	}

	system, err := a.buildSystemPreamble()
	if err != nil {
		t.Fatalf("buildSystemPreamble() error = %v", err)
	}
	if !strings.HasPrefix(system, "You are a test assistant.") {
		t.Errorf("preamble does not start with the base prompt: %q", system)
	}
	want := "UserPreferences:\n- name: Sam\n- units: metric"
	if !strings.Contains(system, want) {
		t.Errorf("preamble = %q, want it to contain %q", system, want)
	}
}

func TestAgent_NilToolsSurvivesToolCalls(t *testing.T) {
	t.Parallel()

	// A backend may request tools it was never offered. With no runner
	// wired, each call is answered with the unknown-tool text and the
	// loop keeps going.
	llm := &scriptedLLM{results: []*ChatResult{
		{ToolCalls: []ToolCall{toolCall("c1", "read_file")}},
		{Content: "no tools here"},
	}}
	a, _ := newTestAgent(t, llm, nil)

	got, err := a.Run(context.Background(), "read something")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "no tools here" {
		t.Errorf("Run() = %q, want %q", got, "no tools here")
	}
	if llm.calls != 2 {
		t.Errorf("completion calls = %d, want 2", llm.calls)
	}

	res := a.executeToolCall(context.Background(), toolCall("c2", "search"))
	if want := "tool 'search' is not available"; res.Content != want {
		t.Errorf("executeToolCall() = %q, want %q", res.Content, want)
	}
	if res.ToolCallID != "c2" {
		t.Errorf("executeToolCall() id = %q, want %q", res.ToolCallID, "c2")
	}
}

func TestAgent_NilToolsMeansNoDefinitions(t *testing.T) {
	t.Parallel()

	llm := &scriptedLLM{results: []*ChatResult{{Content: "plain"}}}
	a, _ := newTestAgent(t, llm, nil)

	got, err := a.Run(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got != "plain" {
		t.Errorf("Run() = %q, want %q", got, "plain")
	}
}
