package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/audio"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/stt"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/tts"
)

// minUtteranceMs is the shortest capture counted as an utterance.
// Anything below this is treated as "nothing said".
const minUtteranceMs = 150

// Responder produces the assistant answer for a transcript.
// Implemented by agent.Agent.
type Responder interface {
	Run(ctx context.Context, userText string) (string, error)
}

// HealthChecker probes the LLM backend. Implemented by agent.LLMClient.
type HealthChecker interface {
	CheckHealth(ctx context.Context) bool
}

// EmitFunc delivers one outbound event to the client that started the
// session. Implementations must be safe to call from the session
// goroutine and must not block indefinitely.
type EmitFunc func(v any)

// Controller owns the process-wide session state. At most one session
// runs at a time; start requests while busy are rejected.
type Controller struct {
	recorder    Recorder
	transcriber stt.Transcriber
	responder   Responder
	speaker     tts.Provider
	health      HealthChecker
	sampleRate  int
	logger      *slog.Logger

	// base outlives individual sessions. A stop command cancels only
	// the capture phase; transcription and the agent run to completion
	// under base.
	base context.Context

	mu           sync.Mutex
	busy         bool
	cancel       context.CancelFunc
	mode         string
	llmAvailable bool
}

// NewController wires a controller. speaker may be nil when speech
// output is disabled.
func NewController(base context.Context, recorder Recorder, transcriber stt.Transcriber, responder Responder, speaker tts.Provider, health HealthChecker, sampleRate int, logger *slog.Logger) *Controller {
	return &Controller{
		recorder:    recorder,
		transcriber: transcriber,
		responder:   responder,
		speaker:     speaker,
		health:      health,
		sampleRate:  sampleRate,
		base:        base,
		mode:        ModeSTT,
		logger:      logger.With("component", "controller"),
	}
}

// Busy reports whether a session is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// LLMAvailable returns the last observed LLM backend reachability.
func (c *Controller) LLMAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.llmAvailable
}

// CheckLLM probes the LLM backend now, records the result, and
// reports whether availability changed since the previous observation.
func (c *Controller) CheckLLM(ctx context.Context) (available, changed bool) {
	available = c.health.CheckHealth(ctx)

	c.mu.Lock()
	changed = c.llmAvailable != available
	c.llmAvailable = available
	c.mu.Unlock()
	return available, changed
}

// Start begins a session if none is running. Rejections and the
// assistant-to-stt downgrade are reported through emit; Start itself
// never fails. The downgrade decision is made here, once, from the
// last observed availability.
func (c *Controller) Start(emit EmitFunc, mode string) {
	if mode != ModeSTT && mode != ModeAssistant {
		mode = ModeSTT
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		emit(newError("Already listening/transcribing."))
		return
	}

	if mode == ModeAssistant && !c.llmAvailable {
		emit(newError("LLM backend not reachable. Assistant mode unavailable. Using transcription mode."))
		mode = ModeSTT
	}

	ctx, cancel := context.WithCancel(c.base)
	c.busy = true
	c.cancel = cancel
	c.mode = mode
	c.mu.Unlock()

	go c.runSession(ctx, emit, mode)
}

// Stop requests cancellation of the in-flight capture, if any. The
// session finishes on its own; transcription of already-captured audio
// still happens.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Controller) runSession(ctx context.Context, emit EmitFunc, mode string) {
	sessionID := uuid.NewString()
	logger := c.logger.With("session_id", sessionID, "mode", mode)

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.cancel = nil
		c.mu.Unlock()
	}()

	fail := func(err error) {
		logger.Error("session failed", "error", err)
		emit(newError(err.Error()))
		emit(newStatus(StateIdle))
	}

	logger.Info("session started")
	emit(newStatus(StateListening))

	pcm, err := c.recorder.Record(ctx)
	if err != nil {
		fail(err)
		return
	}

	if audio.DurationMs(pcm, c.sampleRate) < minUtteranceMs {
		logger.Info("no utterance captured", "bytes", len(pcm))
		emit(newStatus(StateIdle))
		return
	}

	wavPath, err := audio.WriteTempWAV(pcm, c.sampleRate)
	if err != nil {
		fail(err)
		return
	}

	emit(newStatus(StateTranscribing))
	text, err := c.transcriber.TranscribeFile(c.base, wavPath)
	audio.RemoveQuiet(wavPath)
	if err != nil {
		fail(err)
		return
	}

	if mode == ModeAssistant {
		emit(newStatus(StateThinking))
		answer, err := c.responder.Run(c.base, text)
		if err != nil {
			fail(err)
			return
		}
		emit(newAssistantResult(answer))
		emit(newStatus(StateSpeaking))
		tts.SpeakBestEffort(c.base, c.speaker, answer, logger)
	} else {
		emit(newResult(text))
	}

	logger.Info("session finished")
	emit(newStatus(StateIdle))
}
