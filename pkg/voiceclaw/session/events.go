// Package session implements the voice session engine: the state
// machine that owns one recording/transcription/assistant pass at a
// time, and the websocket control channel that drives it.
package session

// Session modes.
const (
	ModeSTT       = "stt"
	ModeAssistant = "assistant"
)

// States reported over the control channel.
const (
	StateIdle         = "idle"
	StateListening    = "listening"
	StateTranscribing = "transcribing"
	StateThinking     = "thinking"
	StateSpeaking     = "speaking"
)

// Command is an inbound control message. Unknown types are ignored.
type Command struct {
	Type string `json:"type"`
	Mode string `json:"mode,omitempty"`
}

// statusEvent reports a state transition.
type statusEvent struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

// resultEvent carries a transcript in stt mode.
type resultEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// assistantResultEvent carries the assistant's answer.
type assistantResultEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// errorEvent carries a human-readable failure message.
type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// llmStatusEvent reports LLM backend reachability.
type llmStatusEvent struct {
	Type      string `json:"type"`
	Available bool   `json:"available"`
}

// pongEvent answers a ping.
type pongEvent struct {
	Type string `json:"type"`
}

func newStatus(state string) statusEvent { return statusEvent{Type: "status", State: state} }

func newResult(text string) resultEvent { return resultEvent{Type: "result", Text: text} }

func newAssistantResult(text string) assistantResultEvent {
	return assistantResultEvent{Type: "assistant_result", Text: text}
}

func newError(message string) errorEvent { return errorEvent{Type: "error", Message: message} }

func newLLMStatus(available bool) llmStatusEvent {
	return llmStatusEvent{Type: "llm_status", Available: available}
}

func newPong() pongEvent { return pongEvent{Type: "pong"} }
