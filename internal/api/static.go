package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yegors/skytrack/pkg/logger"
)

// StaticFileHandler serves the built map front-end. Paths that match no
// file fall back to index.html so client-side routes load the app.
type StaticFileHandler struct {
	staticDir string
	notFound  http.HandlerFunc
	logger    *logger.Logger
}

// NewStaticFileHandler creates a new static file handler. notFound answers
// when neither the file nor index.html exists.
func NewStaticFileHandler(staticDir string, notFound http.HandlerFunc, loggerObj *logger.Logger) *StaticFileHandler {
	if notFound == nil {
		notFound = http.NotFound
	}
	return &StaticFileHandler{
		staticDir: staticDir,
		notFound:  notFound,
		logger:    loggerObj.Named("static-handler"),
	}
}

// ServeHTTP serves static files
func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/")
	if path == "" {
		path = "index.html"
	}

	absStaticDir, err := filepath.Abs(h.staticDir)
	if err != nil {
		h.logger.Error("Failed to get absolute path for static directory", logger.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	fullPath := filepath.Join(absStaticDir, path)
	if fullPath != absStaticDir && !strings.HasPrefix(fullPath, absStaticDir+string(filepath.Separator)) {
		h.logger.Warn("Attempted directory traversal",
			logger.String("requested_path", r.URL.Path),
			logger.String("full_path", fullPath))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	info, err := os.Stat(fullPath)
	if err == nil && info.IsDir() {
		fullPath = filepath.Join(fullPath, "index.html")
		info, err = os.Stat(fullPath)
	}
	if err != nil {
		if !os.IsNotExist(err) {
			h.logger.Error("Failed to stat file", logger.Error(err), logger.String("path", fullPath))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		// assets keep their 404, app routes get the shell
		if filepath.Ext(path) != "" {
			h.notFound(w, r)
			return
		}
		fullPath = filepath.Join(absStaticDir, "index.html")
		if info, err = os.Stat(fullPath); err != nil {
			h.notFound(w, r)
			return
		}
	}
	if info.IsDir() {
		h.notFound(w, r)
		return
	}

	// the app shell is never cached
	if filepath.Base(fullPath) == "index.html" {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	}

	h.logger.Debug("Serving static file",
		logger.String("requested_path", r.URL.Path),
		logger.String("file_path", fullPath))

	http.ServeFile(w, r, fullPath)
}
