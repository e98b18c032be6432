package api

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
)

// StaticFileServer serves the client bundle from dir and falls back to fallbackPath for
// client-side routes. It returns nil when dir does not exist.
func StaticFileServer(dir string, fallbackPath string) http.Handler {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Printf("[WARN] Static directory %s not available, serving API and websocket only", dir)
		return nil
	}

	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check if the requested path is a file that exists
		if info, err := os.Stat(filepath.Join(dir, filepath.Clean("/"+r.URL.Path))); err == nil && !info.IsDir() {
			fs.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, fallbackPath))
	})
}
