package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// SegmenterConfig carries the endpointing parameters for one capture.
type SegmenterConfig struct {
	// SampleRate is the PCM sample rate in Hz.
	SampleRate int

	// FrameMs is the frame duration; must be 10, 20 or 30.
	FrameMs int

	// MaxSilenceMs is the trailing silence that ends an utterance.
	MaxSilenceMs int

	// MaxRecordMs is the hard recording ceiling.
	MaxRecordMs int

	// MinRecordMs is the minimum utterance duration before trailing
	// silence may end capture.
	MinRecordMs int
}

// Validate checks the configuration before capture starts.
func (c SegmenterConfig) Validate() error {
	switch c.FrameMs {
	case 10, 20, 30:
	default:
		return fmt.Errorf("audio: frame_ms must be one of 10, 20, 30 (got %d)", c.FrameMs)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("audio: sample_rate must be positive (got %d)", c.SampleRate)
	}
	return nil
}

// FrameBytes returns the byte size of one full frame (16-bit mono).
func (c SegmenterConfig) FrameBytes() int {
	return c.SampleRate * c.FrameMs / 1000 * 2
}

// Segmenter turns a live frame stream into single finished utterances.
type Segmenter struct {
	det    Detector
	logger *slog.Logger
}

// NewSegmenter creates a segmenter using the given frame classifier.
func NewSegmenter(det Detector, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{
		det:    det,
		logger: logger.With("component", "segmenter"),
	}
}

// Segment pulls frames from src until an utterance is complete and
// returns the captured PCM bytes. An empty or very short result is a
// valid outcome meaning "nothing was said", not an error.
//
// Stop conditions, checked once per frame:
//   - ctx cancelled: return whatever was captured so far;
//   - total duration reached MaxRecordMs (hard ceiling);
//   - after speech started: MaxSilenceMs of trailing silence, but never
//     before MinRecordMs of total capture.
//
// Before speech starts, non-speech frames are discarded. Undersized
// frames are skipped without consuming time.
func (s *Segmenter) Segment(ctx context.Context, src FrameSource, cfg SegmenterConfig) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	frameBytes := cfg.FrameBytes()

	var (
		started   bool
		captured  []byte
		silenceMs int
		totalMs   int
	)

	for {
		frame, err := src.ReadFrame(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Debug("capture stopped", "reason", "cancelled",
					"total_ms", totalMs, "started", started)
				return captured, nil
			}
			if errors.Is(err, ErrSourceClosed) {
				s.logger.Debug("capture stopped", "reason", "source closed",
					"total_ms", totalMs, "started", started)
				return captured, nil
			}
			return nil, fmt.Errorf("audio: reading frame: %w", err)
		}

		if len(frame) < frameBytes {
			continue
		}

		isSpeech := s.det.IsSpeech(frame)
		totalMs += cfg.FrameMs

		if ctx.Err() != nil {
			s.logger.Debug("capture stopped", "reason", "cancelled",
				"total_ms", totalMs, "silence_ms", silenceMs, "started", started)
			return captured, nil
		}

		if !started {
			if isSpeech {
				started = true
				captured = append(captured, frame...)
			}
			if totalMs >= cfg.MaxRecordMs {
				s.logger.Debug("capture stopped", "reason", "max_record_ms",
					"total_ms", totalMs, "started", started)
				return captured, nil
			}
			continue
		}

		captured = append(captured, frame...)

		if isSpeech {
			silenceMs = 0
		} else {
			silenceMs += cfg.FrameMs
		}

		if totalMs >= cfg.MaxRecordMs {
			s.logger.Debug("capture stopped", "reason", "max_record_ms",
				"total_ms", totalMs, "silence_ms", silenceMs)
			return captured, nil
		}
		if silenceMs >= cfg.MaxSilenceMs && totalMs >= cfg.MinRecordMs {
			s.logger.Debug("capture stopped", "reason", "silence",
				"total_ms", totalMs, "silence_ms", silenceMs)
			return captured, nil
		}
	}
}

// DurationMs returns the duration of raw 16-bit mono PCM at the given
// sample rate.
func DurationMs(pcm []byte, sampleRate int) int {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / 2
	return samples * 1000 / sampleRate
}
