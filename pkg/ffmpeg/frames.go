package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"strconv"
)

// ErrStopFrames can be returned by a frame callback to end streaming early
// without error.
var ErrStopFrames = errors.New("stop frames")

// FrameOptions configures StreamFrames.
type FrameOptions struct {
	FPS       int
	Width     int // 0 keeps the source width
	MaxFrames int // 0 means no limit
}

// StreamFrames decodes videoPath into PNG frames at a fixed rate and passes
// each to fn in order. Frames are piped, nothing is written to disk.
func (p *Processor) StreamFrames(ctx context.Context, videoPath string, opts FrameOptions, fn func(index int, frame image.Image) error) error {
	if !p.IsAvailable() {
		return fmt.Errorf("%w: %s", ErrNotFound, p.ffmpegPath)
	}
	if opts.FPS <= 0 {
		return fmt.Errorf("frame rate must be positive")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	filter := "fps=" + strconv.Itoa(opts.FPS)
	if opts.Width > 0 {
		filter += fmt.Sprintf(",scale=%d:-1:flags=lanczos", opts.Width)
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-i", videoPath, "-vf", filter}
	if opts.MaxFrames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(opts.MaxFrames))
	}
	args = append(args, "-f", "image2pipe", "-vcodec", "png", "-")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg frames: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return &ExecError{Step: "frames", Err: err}
	}

	r := bufio.NewReaderSize(stdout, 1<<16)
	count := 0
	var cbErr error
	for {
		if _, err := r.Peek(1); err == io.EOF {
			break
		}
		frame, err := png.Decode(r)
		if err != nil {
			cbErr = fmt.Errorf("decode frame %d: %w", count, err)
			break
		}
		if err := fn(count, frame); err != nil {
			cbErr = err
			break
		}
		count++
	}

	if cbErr != nil {
		cancel()
		cmd.Wait()
		if errors.Is(cbErr, ErrStopFrames) {
			return nil
		}
		return cbErr
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg frames: %w", ctx.Err())
		}
		return &ExecError{Step: "frames", Stderr: stderr.String(), Err: err}
	}
	if count == 0 {
		return fmt.Errorf("ffmpeg frames: no frames decoded")
	}
	return nil
}
