// Package browser is the last-resort media strategy: it renders the post in
// headless Chrome and scrapes media elements from the resulting DOM.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/iconidentify/gifgrab/internal/config"
	"github.com/iconidentify/gifgrab/internal/domain"
)

// Driver renders a page and returns its DOM as HTML.
type Driver interface {
	Render(ctx context.Context, url string) (string, error)
}

// annotateImagesJS records each image's rendered size in data attributes so
// it survives serialization to HTML.
const annotateImagesJS = `(() => {
	document.querySelectorAll('img').forEach(img => {
		img.setAttribute('` + attrRenderedWidth + `', String(img.width));
		img.setAttribute('` + attrRenderedHeight + `', String(img.height));
	});
	return true;
})()`

// ChromeDriver drives headless Chrome through the DevTools protocol.
type ChromeDriver struct {
	cfg       config.BrowserConfig
	userAgent string
	logger    *slog.Logger
}

// NewChromeDriver creates a driver. Chrome is started per Render call and
// torn down when it returns.
func NewChromeDriver(cfg config.BrowserConfig, userAgent string, logger *slog.Logger) *ChromeDriver {
	return &ChromeDriver{cfg: cfg, userAgent: userAgent, logger: logger}
}

func (d *ChromeDriver) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(d.cfg.WindowWidth, d.cfg.WindowHeight),
	)
	if d.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(d.userAgent))
	}
	if d.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(d.cfg.ExecPath))
	}
	return opts
}

// Render navigates to url, waits the configured settle time and returns the
// annotated DOM.
func (d *ChromeDriver) Render(ctx context.Context, url string) (string, error) {
	if !d.cfg.Enabled {
		return "", domain.ErrBrowserUnavailable
	}

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, d.allocatorOptions()...)
	defer cancelAlloc()

	taskCtx, cancelTask := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		d.logger.Debug(fmt.Sprintf(format, args...))
	}))
	defer cancelTask()

	start := time.Now()
	var annotated bool
	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(d.cfg.SettleTime),
		chromedp.Evaluate(annotateImagesJS, &annotated),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrBrowserUnavailable, err)
	}

	d.logger.Info("page rendered",
		"url", url,
		"bytes", len(html),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return html, nil
}
