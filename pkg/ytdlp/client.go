// Package ytdlp wraps the yt-dlp binary for media info extraction and
// downloads.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNoMedia is returned when yt-dlp reports that a post has no downloadable
// media formats. Image-only tweets fail this way.
var ErrNoMedia = errors.New("ytdlp: no media formats")

// noMediaMarkers are the lowercased stderr fragments that classify an
// extraction failure as ErrNoMedia.
var noMediaMarkers = []string{
	"no video",
	"no media formats found",
	"could not find tweet",
}

// ExecError is returned when the yt-dlp process exits unsuccessfully.
type ExecError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("yt-dlp: %v", e.Err)
	}
	if i := strings.LastIndex(msg, "\n"); i >= 0 {
		msg = msg[i+1:]
	}
	return fmt.Sprintf("yt-dlp: %v: %s", e.Err, msg)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Is reports ErrNoMedia for extraction failures whose output names a
// missing-media condition.
func (e *ExecError) Is(target error) bool {
	if target != ErrNoMedia {
		return false
	}
	lower := strings.ToLower(e.Stderr)
	for _, m := range noMediaMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Client runs yt-dlp.
type Client struct {
	path string
}

// New creates a client for the yt-dlp binary at path. An empty path means
// "yt-dlp" resolved from PATH.
func New(path string) *Client {
	if path == "" {
		path = "yt-dlp"
	}
	return &Client{path: path}
}

// Path returns the configured binary.
func (c *Client) Path() string {
	return c.path
}

// IsAvailable checks whether the yt-dlp binary can be found.
func (c *Client) IsAvailable() bool {
	_, err := exec.LookPath(c.path)
	return err == nil
}

// Version returns the yt-dlp version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.run(ctx, []string{"--version"})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ExtractOptions configures an info-only extraction.
type ExtractOptions struct {
	// IgnoreErrors makes yt-dlp keep whatever it could extract instead of
	// aborting on the first extractor error.
	IgnoreErrors bool
}

// Extract returns the info dictionary for url without downloading anything.
func (c *Client) Extract(ctx context.Context, url string, opts ExtractOptions) (*Info, error) {
	args := []string{
		"--dump-single-json",
		"--no-playlist",
		"--no-warnings",
		"--quiet",
	}
	if opts.IgnoreErrors {
		args = append(args, "--ignore-errors")
	}
	args = append(args, "--", url)

	out, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}
	return ParseInfo(out)
}

// DownloadOptions configures a download.
type DownloadOptions struct {
	// Format is a yt-dlp format selector, e.g. "bestvideo+bestaudio/best".
	Format string
	// OutputTemplate is the output filename template, e.g. "/tmp/x/media_1.%(ext)s".
	OutputTemplate string
	// MergeFormat sets the container used when separate streams are merged.
	MergeFormat string
}

// Download fetches url to opts.OutputTemplate and returns the post-download
// info dictionary, which carries the written file paths.
func (c *Client) Download(ctx context.Context, url string, opts DownloadOptions) (*Info, error) {
	args := []string{
		"--dump-single-json",
		"--no-simulate",
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--quiet",
	}
	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}
	if opts.OutputTemplate != "" {
		args = append(args, "-o", opts.OutputTemplate)
	}
	if opts.MergeFormat != "" {
		args = append(args, "--merge-output-format", opts.MergeFormat)
	}
	args = append(args, "--", url)

	out, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}
	return ParseInfo(out)
}

func (c *Client) run(ctx context.Context, args []string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("yt-dlp: %w", ctx.Err())
		}
		return nil, &ExecError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

// ParseInfo decodes yt-dlp JSON output. Only the last JSON line is used, so
// stray log lines on stdout are tolerated.
func ParseInfo(out []byte) (*Info, error) {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var info Info
		if err := json.Unmarshal(line, &info); err != nil {
			return nil, fmt.Errorf("decode yt-dlp output: %w", err)
		}
		return &info, nil
	}
	return nil, fmt.Errorf("decode yt-dlp output: no JSON object")
}
