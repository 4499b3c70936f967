package web

import (
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"
)

//go:embed static
var embedded embed.FS

// Assets returns the front-end files: the directory root when set, otherwise
// the copy embedded in the binary.
func Assets(root string) (fs.FS, error) {
	if root != "" {
		if _, err := os.Stat(root); err != nil {
			return nil, err
		}
		return os.DirFS(root), nil
	}
	return fs.Sub(embedded, "static")
}

// StaticHandler serves files from fsys. "/" serves index.html. Directory
// listings and redirects are never produced.
func StaticHandler(fsys fs.FS) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", contentType(name))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(data)
		}
	})
}

func contentType(name string) string {
	ext := path.Ext(name)
	if ext == ".webmanifest" {
		return "application/manifest+json"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
