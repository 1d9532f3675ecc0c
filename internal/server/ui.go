package server

import (
	"bytes"
	"io"
	"io/fs"
	"net/http"
	"strings"
)

// uiFS holds the embedded renderer filesystem. Set via SetUI before
// creating the server.
var uiFS fs.FS

// SetUI sets the embedded filesystem for serving the bundled renderer.
func SetUI(fsys fs.FS) {
	uiFS = fsys
}

// spaHandler serves static files from the embedded FS with SPA fallback:
// any path not matching a real file returns index.html.
func spaHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if uiFS == nil {
			http.Error(w, "renderer not embedded in this build", http.StatusNotFound)
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		f, err := uiFS.Open(path)
		if err != nil {
			path = "index.html"
			f, err = uiFS.Open(path)
			if err != nil {
				http.Error(w, "404 page not found", http.StatusNotFound)
				return
			}
		}
		defer f.Close()

		// http.ServeFileFS requires Go 1.22; serve the file contents
		// directly so the handler works on Go 1.21 toolchains.
		info, err := f.Stat()
		if err != nil {
			http.Error(w, "404 page not found", http.StatusNotFound)
			return
		}
		rs, ok := f.(io.ReadSeeker)
		if !ok {
			data, err := io.ReadAll(f)
			if err != nil {
				http.Error(w, "500 internal server error", http.StatusInternalServerError)
				return
			}
			rs = bytes.NewReader(data)
		}
		http.ServeContent(w, r, path, info.ModTime(), rs)
	}
}
