// Package audio implements PCM frame delivery and VAD endpointing for
// the voice session engine. The capture side produces fixed-duration
// 16-bit mono frames; the segmenter consumes them until an utterance is
// complete or the session is cancelled.
package audio

import (
	"context"
	"errors"
	"sync"
)

// ErrSourceClosed is returned by ReadFrame after the source is closed
// and its buffer is drained.
var ErrSourceClosed = errors.New("audio: frame source closed")

// FrameSource yields fixed-size PCM frames with a blocking pull.
type FrameSource interface {
	// ReadFrame returns the next frame, blocking until one is available,
	// the source is closed, or ctx is done.
	ReadFrame(ctx context.Context) ([]byte, error)
}

// ChannelSource is a bounded, channel-backed FrameSource. The producer
// side never blocks: when the buffer is full, Push drops the offered
// frame. Audio latency takes priority over completeness.
type ChannelSource struct {
	frames chan []byte

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewChannelSource creates a source with the given frame buffer depth.
func NewChannelSource(depth int) *ChannelSource {
	if depth <= 0 {
		depth = 256
	}
	return &ChannelSource{frames: make(chan []byte, depth)}
}

// Push offers a frame to the consumer. Returns false when the frame was
// dropped because the buffer is full or the source is closed.
func (s *ChannelSource) Push(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.frames <- frame:
		return true
	default:
		s.dropped++
		return false
	}
}

// Dropped reports how many frames were discarded due to back-pressure.
func (s *ChannelSource) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops the source. Buffered frames remain readable.
func (s *ChannelSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
}

// ReadFrame implements FrameSource.
func (s *ChannelSource) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case frame, ok := <-s.frames:
		if !ok {
			return nil, ErrSourceClosed
		}
		return frame, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
