// Package tts provides text-to-speech output for VoiceClaw. Speech
// goes through an external synthesizer command (espeak-ng by default)
// fed over stdin, so any CLI speech tool can be dropped in via config.
package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/config"
)

// Provider is the interface for speech output backends.
type Provider interface {
	// Speak synthesizes and plays the text, blocking until playback ends.
	Speak(ctx context.Context, text string) error
}

// CommandProvider speaks by piping text to the stdin of an external
// synthesizer process.
type CommandProvider struct {
	command []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCommandProvider creates a provider from config. Returns nil, not
// an error, when speech output is disabled or unconfigured; callers
// treat a nil provider as "stay silent".
func NewCommandProvider(cfg config.TTSConfig, logger *slog.Logger) *CommandProvider {
	if !cfg.Enabled || len(cfg.Command) == 0 {
		return nil
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &CommandProvider{
		command: cfg.Command,
		timeout: timeout,
		logger:  logger.With("component", "tts"),
	}
}

// Speak runs the synthesizer command with the text on stdin. A
// wall-clock timeout caps runaway synthesis of long responses.
func (p *CommandProvider) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	execCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, p.command[0], p.command[1:]...)
	cmd.Stdin = strings.NewReader(text)

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("speech command timed out after %s", p.timeout)
		}
		return fmt.Errorf("speech command failed: %w", err)
	}

	p.logger.Debug("speech complete",
		"chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// SpeakBestEffort speaks through the provider and logs failures
// instead of propagating them. Speech loss never fails a session; the
// text has already been delivered over the control channel.
func SpeakBestEffort(ctx context.Context, p Provider, text string, logger *slog.Logger) {
	if p == nil {
		return
	}
	if err := p.Speak(ctx, text); err != nil {
		logger.Warn("speech output failed", "error", err)
	}
}
