package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
)

// CommandSource runs an external capture command (arecord, sox, rec)
// that writes raw S16LE mono PCM to stdout, and slices the stream into
// fixed-size frames. It is the default microphone adapter: everything
// below "deliver frames at a fixed rate" stays outside the engine.
type CommandSource struct {
	argv       []string
	frameBytes int
	logger     *slog.Logger

	src    *ChannelSource
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCommandSource prepares a capture command producing frames of the
// given byte size.
func NewCommandSource(argv []string, frameBytes int, logger *slog.Logger) (*CommandSource, error) {
	if len(argv) == 0 {
		return nil, errors.New("audio: capture command is empty")
	}
	if frameBytes <= 0 {
		return nil, fmt.Errorf("audio: invalid frame size %d", frameBytes)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandSource{
		argv:       argv,
		frameBytes: frameBytes,
		logger:     logger.With("component", "capture"),
		src:        NewChannelSource(256),
		done:       make(chan struct{}),
	}, nil
}

// Start launches the capture process and begins framing its output.
func (c *CommandSource) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	cmd := exec.CommandContext(runCtx, c.argv[0], c.argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("audio: capture stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("audio: starting capture command %q: %w", c.argv[0], err)
	}

	c.logger.Debug("capture command started", "argv", c.argv, "frame_bytes", c.frameBytes)

	go func() {
		defer close(c.done)
		defer c.src.Close()
		defer cmd.Wait()

		for {
			frame := make([]byte, c.frameBytes)
			if _, err := io.ReadFull(stdout, frame); err != nil {
				if runCtx.Err() == nil && !errors.Is(err, io.EOF) {
					c.logger.Warn("capture stream ended", "error", err)
				}
				return
			}
			c.src.Push(frame)
		}
	}()

	return nil
}

// ReadFrame implements FrameSource.
func (c *CommandSource) ReadFrame(ctx context.Context) ([]byte, error) {
	return c.src.ReadFrame(ctx)
}

// Stop terminates the capture process and waits for the framer to exit.
func (c *CommandSource) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	<-c.done
	if n := c.src.Dropped(); n > 0 {
		c.logger.Debug("capture finished with dropped frames", "dropped", n)
	}
}
