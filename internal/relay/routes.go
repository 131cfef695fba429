package relay

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// RouteOptions configures the routes registered next to the TTS endpoint
type RouteOptions struct {
	// AudioDir is served under AudioURLPrefix. Empty disables static audio
	// serving (direct mode or a remote store).
	AudioDir       string
	AudioURLPrefix string

	// ClientBuildDir holds a prebuilt client application. Ignored if absent.
	ClientBuildDir string
}

// RegisterRoutes mounts the TTS endpoint, generated audio files and the
// client application fallback
func RegisterRoutes(r chi.Router, relay *Relay, opts RouteOptions) {
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method Not Allowed"})
	})

	r.Post("/api/tts", HandleTTS(relay))

	if opts.AudioDir != "" {
		prefix := "/" + strings.Trim(opts.AudioURLPrefix, "/")
		r.Get(prefix+"/*", http.StripPrefix(prefix, noListing(http.FileServer(http.Dir(opts.AudioDir)))).ServeHTTP)
	}

	if opts.ClientBuildDir != "" {
		if info, err := os.Stat(opts.ClientBuildDir); err == nil && info.IsDir() {
			r.Get("/*", SPAHandler(opts.ClientBuildDir))
		}
	}
}

// SPAHandler serves files from dir and falls back to dir/index.html for any
// path that does not name a file
func SPAHandler(dir string) http.HandlerFunc {
	index := filepath.Join(dir, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		p := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			http.ServeFile(w, r, p)
			return
		}
		http.ServeFile(w, r, index)
	}
}

// noListing hides directory listings from the audio file server
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
