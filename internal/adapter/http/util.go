package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strconv"
)

// maxBody bounds request bodies; an entry with its pain points fits well
// inside it.
const maxBody = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// parseJSON decodes exactly one JSON value from the body into dst. Unknown
// fields and trailing data are rejected.
func parseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if dec.More() {
		return errors.New("invalid json: trailing data after body")
	}
	return nil
}

// intQuery reads a positive integer query parameter. Missing, malformed and
// non-positive values all yield def.
func intQuery(r *http.Request, key string, def int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && n > 0 {
		return n
	}
	return def
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// spaFromDisk serves the web client out of dir. Paths that do not name a
// regular file get index.html so the client router can handle them.
func spaFromDisk(dir string) http.Handler {
	root := http.Dir(dir)
	files := http.FileServer(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isFile(root, path.Clean("/"+r.URL.Path)) {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, path.Join(dir, "index.html"))
	})
}

func isFile(root http.FileSystem, name string) bool {
	f, err := root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close() //nolint:errcheck
	info, err := f.Stat()
	return err == nil && info.Mode()&fs.ModeType == 0
}
