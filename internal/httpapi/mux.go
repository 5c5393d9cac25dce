package httpapi

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
)

// NewMux returns a mux with /healthz. Feature routes are added by the caller.
func NewMux(store Pinger) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, store)
	return mux
}

// withStatic serves files from staticDir for GET and HEAD requests no route
// claims. Paths under /api/ always go to mux so wrong methods still get 405.
func withStatic(mux *http.ServeMux, staticDir string) http.Handler {
	if staticDir == "" {
		return mux
	}
	info, err := os.Stat(staticDir)
	if err != nil || !info.IsDir() {
		slog.Warn("static dir not found, static files disabled", "staticDir", staticDir)
		return mux
	}
	files := http.FileServer(http.Dir(staticDir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			mux.ServeHTTP(w, r)
			return
		}
		if _, pattern := mux.Handler(r); pattern != "" {
			mux.ServeHTTP(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			mux.ServeHTTP(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
