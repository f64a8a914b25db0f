package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/audio"
	"github.com/jholhewres/voiceclaw/pkg/voiceclaw/config"
)

// Recorder captures one endpointed utterance of raw PCM. A short or
// empty result means "nothing said", not an error.
type Recorder interface {
	Record(ctx context.Context) ([]byte, error)
}

// CommandRecorder records through an external capture process and the
// VAD segmenter.
type CommandRecorder struct {
	captureCmd []string
	segmenter  *audio.Segmenter
	segCfg     audio.SegmenterConfig
	logger     *slog.Logger
}

// NewCommandRecorder builds the production recorder from audio config.
func NewCommandRecorder(cfg config.AudioConfig, logger *slog.Logger) (*CommandRecorder, error) {
	segCfg := audio.SegmenterConfig{
		SampleRate:   cfg.SampleRate,
		FrameMs:      cfg.FrameMs,
		MaxSilenceMs: cfg.MaxSilenceMs,
		MaxRecordMs:  cfg.MaxRecordMs,
		MinRecordMs:  cfg.MinRecordMs,
	}
	if err := segCfg.Validate(); err != nil {
		return nil, err
	}
	if len(cfg.CaptureCommand) == 0 {
		return nil, fmt.Errorf("audio capture command is not configured")
	}

	detector := audio.NewEnergyDetector(cfg.VADAggressiveness)
	return &CommandRecorder{
		captureCmd: cfg.CaptureCommand,
		segmenter:  audio.NewSegmenter(detector, logger),
		segCfg:     segCfg,
		logger:     logger.With("component", "recorder"),
	}, nil
}

// Record starts the capture process, segments one utterance, and stops
// the process again. The capture process lives only for the duration
// of one recording.
func (r *CommandRecorder) Record(ctx context.Context) ([]byte, error) {
	src, err := audio.NewCommandSource(r.captureCmd, r.segCfg.FrameBytes(), r.logger)
	if err != nil {
		return nil, err
	}
	if err := src.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting audio capture: %w", err)
	}
	defer src.Stop()

	return r.segmenter.Segment(ctx, src, r.segCfg)
}
