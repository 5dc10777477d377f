package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/iconidentify/gifgrab/internal/config"
	"github.com/iconidentify/gifgrab/internal/domain"
)

// ErrStalled is returned when no bytes arrive for the configured timeout.
var ErrStalled = errors.New("download stalled")

// HTTPDownloader implements Downloader. Downloads have no overall deadline;
// instead the configured timeout bounds the wait for response headers and
// every gap between body reads.
type HTTPDownloader struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
	referer   string
	logger    *slog.Logger
}

// NewHTTPDownloader creates a new HTTP downloader.
func NewHTTPDownloader(cfg config.DownloadConfig, logger *slog.Logger) *HTTPDownloader {
	if logger == nil {
		logger = slog.Default()
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	return &HTTPDownloader{
		client:    &http.Client{Transport: transport},
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		referer:   "https://x.com/",
		logger:    logger,
	}
}

// Download fetches url. Non-2xx responses are errors; 401/403 map to
// domain.ErrURLExpired and 429 to domain.ErrRateLimited.
func (d *HTTPDownloader) Download(ctx context.Context, url string) (*Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	stall := newStallTimer(d.timeout, cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		stall.stop()
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Mimic a browser; media CDNs reject obvious bots.
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/*,video/*;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Referer", d.referer)

	resp, err := d.client.Do(req)
	if err != nil {
		stall.stop()
		if stall.fired() {
			return nil, fmt.Errorf("%w: no response within %v", ErrStalled, d.timeout)
		}
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		stall.stop()
		switch resp.StatusCode {
		case http.StatusForbidden, http.StatusUnauthorized:
			return nil, domain.ErrURLExpired
		case http.StatusTooManyRequests:
			return nil, domain.ErrRateLimited
		default:
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
	}

	stall.reset()
	return &Response{
		Body:        newProgressReader(resp.Body, resp.ContentLength, stall, d.logger, url),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}, nil
}

// stallTimer cancels a request context when it is not reset in time.
type stallTimer struct {
	timeout time.Duration
	cancel  context.CancelFunc
	timer   *time.Timer

	mu      sync.Mutex
	expired bool
}

func newStallTimer(timeout time.Duration, cancel context.CancelFunc) *stallTimer {
	s := &stallTimer{timeout: timeout, cancel: cancel}
	if timeout > 0 {
		s.timer = time.AfterFunc(timeout, s.expire)
	}
	return s
}

func (s *stallTimer) expire() {
	s.mu.Lock()
	s.expired = true
	s.mu.Unlock()
	s.cancel()
}

func (s *stallTimer) fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired
}

func (s *stallTimer) reset() {
	if s.timer != nil {
		s.timer.Reset(s.timeout)
	}
}

func (s *stallTimer) stop() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.cancel()
}

// progressReader wraps a response body to track download progress and
// detect stalls (no data for the stall timeout).
type progressReader struct {
	reader     io.ReadCloser
	total      int64
	downloaded int64
	stall      *stallTimer
	lastLog    time.Time
	logger     *slog.Logger
	url        string
	mu         sync.Mutex
	closed     bool
}

func newProgressReader(r io.ReadCloser, total int64, stall *stallTimer, logger *slog.Logger, url string) *progressReader {
	return &progressReader{
		reader:  r,
		total:   total,
		stall:   stall,
		lastLog: time.Now(),
		logger:  logger,
		url:     url,
	}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)

	if n > 0 {
		p.stall.reset()

		p.mu.Lock()
		p.downloaded += int64(n)
		if time.Since(p.lastLog) > 30*time.Second {
			p.logProgress()
			p.lastLog = time.Now()
		}
		p.mu.Unlock()
	}

	if err != nil && err != io.EOF && p.stall.fired() {
		return n, fmt.Errorf("%w: no data received for %v", ErrStalled, p.stall.timeout)
	}
	return n, err
}

func (p *progressReader) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.stall.stop()
	return p.reader.Close()
}

func (p *progressReader) logProgress() {
	if p.total > 0 {
		pct := float64(p.downloaded) / float64(p.total) * 100
		p.logger.Info("download progress",
			"url", p.url,
			"downloaded_kb", p.downloaded/1024,
			"total_kb", p.total/1024,
			"percent", fmt.Sprintf("%.1f%%", pct),
		)
	} else {
		p.logger.Info("download progress",
			"url", p.url,
			"downloaded_kb", p.downloaded/1024,
		)
	}
}
