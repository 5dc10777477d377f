// Package ui provides the embedded web front-end.
//
// The page talks to the same origin it was served from: /process-twitter,
// /process-youtube and /downloads/{filename}.
package ui

import (
	_ "embed"
)

// IndexHTML is the converter page with Twitter/X and YouTube tabs.
//
//go:embed index.html
var IndexHTML []byte
