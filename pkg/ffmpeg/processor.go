// Package ffmpeg runs the ffmpeg and ffprobe binaries for GIF encoding.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNotFound is returned when the ffmpeg binary cannot be located.
var ErrNotFound = errors.New("ffmpeg not found")

// ExecError is returned when an ffmpeg or ffprobe process fails.
type ExecError struct {
	Step   string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if i := strings.LastIndex(msg, "\n"); i >= 0 {
		msg = msg[i+1:]
	}
	if msg == "" {
		return fmt.Sprintf("ffmpeg %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("ffmpeg %s: %v: %s", e.Step, e.Err, msg)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Processor runs ffmpeg commands.
type Processor struct {
	ffmpegPath  string
	ffprobePath string
}

// New creates a processor for the given binaries. Empty paths default to
// "ffmpeg" and "ffprobe" resolved from PATH.
func New(ffmpegPath, ffprobePath string) *Processor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Processor{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// IsAvailable checks if ffmpeg can be found.
func (p *Processor) IsAvailable() bool {
	_, err := exec.LookPath(p.ffmpegPath)
	return err == nil
}

// ProbeAvailable checks if ffprobe can be found.
func (p *Processor) ProbeAvailable() bool {
	_, err := exec.LookPath(p.ffprobePath)
	return err == nil
}

// Version returns the first line of `ffmpeg -version`.
func (p *Processor) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, p.ffmpegPath, "-version").Output()
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(out), "\n")
	if len(lines) > 0 && strings.TrimSpace(lines[0]) != "" {
		return strings.TrimSpace(lines[0]), nil
	}
	return "unknown", nil
}

// run executes ffmpeg with args, capturing stderr for error reporting.
func (p *Processor) run(ctx context.Context, step string, args ...string) error {
	if !p.IsAvailable() {
		return fmt.Errorf("%w: %s", ErrNotFound, p.ffmpegPath)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.ffmpegPath, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg %s: %w", step, ctx.Err())
		}
		return &ExecError{Step: step, Stderr: stderr.String(), Err: err}
	}
	return nil
}

// VideoInfo contains metadata about a video file.
type VideoInfo struct {
	Duration  float64 // seconds
	Width     int
	Height    int
	HasAudio  bool
	Codec     string
	FrameRate float64
	FileSize  int64
}

// GetVideoInfo extracts metadata from a video file with ffprobe.
func (p *Processor) GetVideoInfo(ctx context.Context, videoPath string) (*VideoInfo, error) {
	stat, err := os.Stat(videoPath)
	if err != nil {
		return nil, fmt.Errorf("stat video: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType    string `json:"codec_type"`
			CodecName    string `json:"codec_name"`
			Width        int    `json:"width"`
			Height       int    `json:"height"`
			AvgFrameRate string `json:"avg_frame_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	info := &VideoInfo{FileSize: stat.Size()}
	if dur, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = dur
	}
	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
		case "video":
			if info.Codec != "" {
				continue
			}
			info.Codec = s.CodecName
			info.Width = s.Width
			info.Height = s.Height
			info.FrameRate = parseFrameRate(s.AvgFrameRate)
		}
	}
	return info, nil
}

// parseFrameRate parses ffprobe rationals such as "30000/1001".
func parseFrameRate(rate string) float64 {
	if rate == "" || rate == "0/0" {
		return 0
	}
	parts := strings.SplitN(rate, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

// CleanupTempFiles removes temporary files created during processing.
func CleanupTempFiles(paths ...string) {
	for _, path := range paths {
		if path != "" {
			os.Remove(path)
		}
	}
}
