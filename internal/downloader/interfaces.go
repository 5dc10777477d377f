package downloader

import (
	"context"
	"io"
)

// Downloader fetches remote media over HTTP.
type Downloader interface {
	// Download issues a GET for url. The caller must close the response body.
	Download(ctx context.Context, url string) (*Response, error)
}

// Response is a successful (2xx) download in progress.
type Response struct {
	Body        io.ReadCloser
	ContentType string
	// Size is the advertised content length, or -1 when unknown.
	Size int64
}
