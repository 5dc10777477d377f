package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// keySource pulls a candidate API key out of a request.
type keySource struct {
	name string
	get  func(r *http.Request) string
}

// keySources are tried in order; the first non-empty key is the one
// checked. Query parameters let plain artifact links authenticate.
var keySources = []keySource{
	{"header", func(r *http.Request) string { return r.Header.Get("X-API-Key") }},
	{"bearer", func(r *http.Request) string {
		key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			return ""
		}
		return key
	}},
	{"query", func(r *http.Request) string { return r.URL.Query().Get("key") }},
	{"query", func(r *http.Request) string { return r.URL.Query().Get("api_key") }},
}

// requestKey returns the presented key and where it came from.
func requestKey(r *http.Request) (key, source string) {
	for _, src := range keySources {
		if key := src.get(r); key != "" {
			return key, src.name
		}
	}
	return "", ""
}

// APIKeyAuth rejects requests that do not present apiKey.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	want := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, source := requestKey(r)
			switch {
			case key == "":
				unauthorized(w, r, "missing API key", source)
			case subtle.ConstantTimeCompare([]byte(key), want) != 1:
				unauthorized(w, r, "invalid API key", source)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg, source string) {
	slog.Warn("api key rejected",
		"reason", msg,
		"source", source,
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
	)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="gifgrab"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"status": "Error", "message": msg})
}

// CORS adds CORS headers for the browser front-end.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
