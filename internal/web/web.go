package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// SequenceListPlaceholder is replaced with the catalog names JSON in index.html.
const SequenceListPlaceholder = "~SEQUENCELIST~"

//go:embed static/*
var content embed.FS

// Index returns a handler serving the control page with namesJSON injected.
//
// The page is rendered once, here; requests only copy the cached bytes.
// Panics if the embedded index.html is missing (build error).
//
// Parameters:
//   - namesJSON: Catalog names as a JSON array, e.g. ["Chase Single", ...]
//
// Returns:
//   - http.Handler: Handler for GET /
func Index(namesJSON string) http.Handler {
	page := Render(namesJSON)

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // Best-effort write; connection may be closed
		w.Write(page)
	})
}

// Render returns index.html with the placeholder replaced by namesJSON.
func Render(namesJSON string) []byte {
	raw, err := content.ReadFile("static/index.html")
	if err != nil {
		panic(fmt.Sprintf("web: failed to load embedded index.html: %v", err))
	}
	return []byte(strings.Replace(string(raw), SequenceListPlaceholder, namesJSON, 1))
}

// Static returns a handler serving the embedded assets under /static/.
//
// index.html is only served rendered, through Index; a direct request for it
// is redirected to "/".
func Static() http.Handler {
	assets, err := fs.Sub(content, "static")
	if err != nil {
		panic(fmt.Sprintf("web: failed to load embedded assets: %v", err))
	}
	fileServer := http.StripPrefix("/static", http.FileServer(http.FS(assets)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upath := path.Clean(r.URL.Path)
		if path.Base(upath) == "index.html" || upath == "/static" {
			http.Redirect(w, r, "/", http.StatusMovedPermanently)
			return
		}

		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		fileServer.ServeHTTP(w, r)
	})
}
