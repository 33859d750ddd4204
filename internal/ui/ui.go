// Package ui embeds the dashboard page and its scripts.
package ui

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

//go:embed assets
var Assets embed.FS

// GetFS returns the UI filesystem rooted at the assets directory
func GetFS() fs.FS {
	sub, err := fs.Sub(Assets, "assets")
	if err != nil {
		panic(err)
	}
	return sub
}

// AssetHandler serves the dashboard. index.html is never cached so a new
// build is picked up on reload.
func AssetHandler() http.HandlerFunc {
	assetsFS := GetFS()

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		name = strings.TrimPrefix(name, "assets/")
		if name == "" || name == "index.html" {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			w.Header().Set("Pragma", "no-cache")
			w.Header().Set("Expires", "0")
			name = "index.html"
		}

		content, err := fs.ReadFile(assetsFS, name)
		if err != nil {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}

		if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.Write(content)
	}
}
