package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestChannelSource_PushAndRead(t *testing.T) {
	t.Parallel()

	src := NewChannelSource(4)
	if !src.Push([]byte{1}) {
		t.Error("Push() = false with free buffer space")
	}

	frame, err := src.ReadFrame(context.Background())
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	if len(frame) != 1 || frame[0] != 1 {
		t.Errorf("ReadFrame() = %v, want [1]", frame)
	}
}

func TestChannelSource_DropsWhenFull(t *testing.T) {
	t.Parallel()

	src := NewChannelSource(2)
	src.Push([]byte{1})
	src.Push([]byte{2})

	// Buffer full: the offered frame is dropped, not an older one.
	if src.Push([]byte{3}) {
		t.Error("Push() = true on a full buffer")
	}
	if src.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", src.Dropped())
	}

	frame, _ := src.ReadFrame(context.Background())
	if frame[0] != 1 {
		t.Errorf("first frame = %d, want the oldest (1)", frame[0])
	}
}

func TestChannelSource_CloseDrainsThenReportsClosed(t *testing.T) {
	t.Parallel()

	src := NewChannelSource(4)
	src.Push([]byte{1})
	src.Close()

	if src.Push([]byte{2}) {
		t.Error("Push() = true after Close()")
	}

	// The buffered frame is still readable.
	if frame, err := src.ReadFrame(context.Background()); err != nil || frame[0] != 1 {
		t.Errorf("ReadFrame() after close = %v, %v; want buffered frame", frame, err)
	}

	if _, err := src.ReadFrame(context.Background()); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("ReadFrame() on drained source error = %v, want ErrSourceClosed", err)
	}
}

func TestChannelSource_ReadHonorsContext(t *testing.T) {
	t.Parallel()

	src := NewChannelSource(4)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := src.ReadFrame(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ReadFrame() error = %v, want deadline exceeded", err)
	}
}
