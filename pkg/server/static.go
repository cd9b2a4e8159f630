package server

import (
	"io"
	"io/fs"
	"net/http"
	"path"
	"path/filepath"
	"strings"
)

// staticHandler serves files of fsys under prefix.
type staticHandler struct {
	fsys   fs.FS
	prefix string
}

func newStaticHandler(fsys fs.FS, prefix string) *staticHandler {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &staticHandler{fsys: fsys, prefix: prefix}
}

// relPath returns the sanitized file path of a request path. Traversal,
// absolute paths and platform separators are rejected rather than cleaned.
func (h *staticHandler) relPath(urlPath string) (string, bool) {
	if !strings.HasPrefix(urlPath, h.prefix) {
		return "", false
	}
	rel := strings.TrimPrefix(urlPath, h.prefix)
	if rel == "" {
		return "", false
	}

	// NUL can arrive via %00.
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}
	if strings.Contains(rel, "\\") {
		return "", false
	}
	// "/cesium//etc/passwd" leaves "/etc/passwd".
	if strings.HasPrefix(rel, "/") {
		return "", false
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || !fs.ValidPath(clean) {
		return "", false
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}
	return clean, true
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	rel, ok := h.relPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := h.fsys.Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	rs, ok := f.(io.ReadSeeker)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if isFingerprinted(rel) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
	}
	http.ServeContent(w, r, rel, info.ModTime(), rs)
}

// isFingerprinted reports whether a file name carries a content hash, e.g.
// "Cesium.a1b2c3d4.js".
func isFingerprinted(filePath string) bool {
	parts := strings.Split(path.Base(filePath), ".")
	if len(parts) < 3 {
		return false
	}
	hash := parts[len(parts)-2]
	if len(hash) < 8 {
		return false
	}
	for _, c := range hash {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
