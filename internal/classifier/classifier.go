// Package classifier validates post URLs and extracts the stable identifier
// used to name artifacts.
package classifier

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/iconidentify/gifgrab/internal/domain"
)

var (
	// twitterStatusRegex matches https://x.com/<user>/status/<id> and the
	// twitter.com, www. and mobile. variants. Trailing path segments such as
	// /photo/1 or /video/1 are allowed.
	twitterStatusRegex = regexp.MustCompile(`^https?://(?:www\.|mobile\.)?(?:twitter|x)\.com/(?:[^/?#]+/)+status/(\d+)(?:[/?#]|$)`)

	// youtubeRegex covers watch?v=, embed/, v/, e/, shorts/ and youtu.be links.
	youtubeRegex = regexp.MustCompile(`^https?://(?:[a-z0-9-]+\.)?(?:youtube(?:-nocookie)?\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?|shorts)/|.*[?&]v=)|youtu\.be/)([A-Za-z0-9_-]{11})`)
)

// Provider recognizes URLs of one site.
type Provider interface {
	Name() domain.Provider
	// Match returns the stable identifier for rawURL, or false when the URL
	// does not belong to this provider.
	Match(rawURL string) (string, bool)
}

// Classifier tries each provider in order.
type Classifier struct {
	providers []Provider
}

// New creates a classifier for the given providers. With no providers it
// recognizes Twitter/X and YouTube.
func New(providers ...Provider) *Classifier {
	if len(providers) == 0 {
		providers = []Provider{Twitter{}, YouTube{}}
	}
	return &Classifier{providers: providers}
}

// Classify validates rawURL and returns a request for it. It performs no I/O.
func (c *Classifier) Classify(rawURL string) (domain.MediaRequest, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return domain.MediaRequest{}, fmt.Errorf("%w: empty URL", domain.ErrInvalidURL)
	}
	if u, err := url.Parse(rawURL); err != nil || u.Host == "" {
		return domain.MediaRequest{}, fmt.Errorf("%w: %q", domain.ErrInvalidURL, rawURL)
	}

	for _, p := range c.providers {
		if id, ok := p.Match(rawURL); ok {
			return domain.MediaRequest{
				SourceURL: rawURL,
				Provider:  p.Name(),
				SourceID:  id,
			}, nil
		}
	}
	return domain.MediaRequest{}, fmt.Errorf("%w: unsupported URL %q", domain.ErrInvalidURL, rawURL)
}

// ClassifyAs is like Classify but only accepts URLs of the named provider.
func (c *Classifier) ClassifyAs(rawURL string, provider domain.Provider) (domain.MediaRequest, error) {
	req, err := c.Classify(rawURL)
	if err != nil {
		return req, err
	}
	if req.Provider != provider {
		return domain.MediaRequest{}, fmt.Errorf("%w: not a %s URL", domain.ErrInvalidURL, provider)
	}
	return req, nil
}

// Twitter matches Twitter/X status URLs.
type Twitter struct{}

func (Twitter) Name() domain.Provider { return domain.ProviderTwitter }

func (Twitter) Match(rawURL string) (string, bool) {
	m := twitterStatusRegex.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// YouTube matches YouTube video URLs and extracts the 11 character video ID.
type YouTube struct{}

func (YouTube) Name() domain.Provider { return domain.ProviderYouTube }

func (YouTube) Match(rawURL string) (string, bool) {
	m := youtubeRegex.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}
