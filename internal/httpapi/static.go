package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"predictd/pkg/types"
)

var staticDir string

// SetStaticDir points the SPA fallback at a built frontend directory.
// Empty disables static serving.
func SetStaticDir(dir string) {
	staticDir = dir
}

// staticHandler serves the frontend build with an index.html fallback for
// client-side routes. API paths that reach it are real 404s and get JSON.
func staticHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
			writeJSON(w, http.StatusNotFound, types.ErrorResponse{
				Error: "not found",
				Code:  http.StatusNotFound,
			})
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if staticDir == "" {
			if r.URL.Path == "/" {
				writeJSON(w, http.StatusOK, types.MessageResponse{Message: "next-token prediction API is running"})
				return
			}
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}

		// Resolve inside the static root only.
		rel := strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/")
		full := filepath.Join(staticDir, rel)
		if fi, err := os.Stat(full); err == nil && !fi.IsDir() {
			http.ServeFile(w, r, full)
			return
		}
		index := filepath.Join(staticDir, "index.html")
		if _, err := os.Stat(index); err != nil {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		http.ServeFile(w, r, index)
	}
}
