package browser

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	attrRenderedWidth  = "data-rendered-width"
	attrRenderedHeight = "data-rendered-height"
)

// PageMedia is what a rendered page offers.
type PageMedia struct {
	// HasVideo is true when the page contains a video element, whether or
	// not a fetchable source was found for it.
	HasVideo bool
	VideoURL string
	// ImageURLs are candidate images in document order.
	ImageURLs []string
}

// Inspect parses rendered HTML. Relative URLs are resolved against pageURL.
// Images smaller than minSize in either rendered dimension are dropped, as
// are data: URIs. Media CDN images (twimg media/pbs) are preferred; when none
// qualify every non-data image URL is returned regardless of size.
func Inspect(html, pageURL string, minSize int) (*PageMedia, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	base, _ := url.Parse(pageURL)

	page := &PageMedia{}

	videos := doc.Find("video")
	if videos.Length() > 0 {
		page.HasVideo = true
		videos.EachWithBreak(func(_ int, v *goquery.Selection) bool {
			src := strings.TrimSpace(v.AttrOr("src", ""))
			if src == "" {
				src = strings.TrimSpace(v.Find("source").First().AttrOr("src", ""))
			}
			if src == "" {
				return true
			}
			page.VideoURL = resolve(base, src)
			return false
		})
		return page, nil
	}

	seen := make(map[string]bool)
	var all []string
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			return
		}
		src = resolve(base, src)
		if seen[src] {
			return
		}
		seen[src] = true
		if strings.HasPrefix(src, "data:") {
			return
		}
		all = append(all, src)

		if tooSmall(img, minSize) {
			return
		}
		if isMediaCDN(src) {
			page.ImageURLs = append(page.ImageURLs, src)
		}
	})

	if len(page.ImageURLs) == 0 {
		page.ImageURLs = all
	}
	return page, nil
}

// Fetchable reports whether the video URL can be downloaded over HTTP.
// Players that stream through MediaSource expose only blob: URLs.
func (p *PageMedia) Fetchable() bool {
	return strings.HasPrefix(p.VideoURL, "http://") || strings.HasPrefix(p.VideoURL, "https://")
}

// tooSmall reports whether an image's rendered size is below minSize. An
// image without a readable size is kept.
func tooSmall(img *goquery.Selection, minSize int) bool {
	w, errW := strconv.Atoi(img.AttrOr(attrRenderedWidth, ""))
	h, errH := strconv.Atoi(img.AttrOr(attrRenderedHeight, ""))
	if errW != nil || errH != nil {
		return false
	}
	return w < minSize || h < minSize
}

func isMediaCDN(src string) bool {
	return strings.Contains(src, "twimg") &&
		(strings.Contains(src, "media") || strings.Contains(src, "pbs"))
}

func resolve(base *url.URL, ref string) string {
	if base == nil || strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "blob:") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
