// Package server exposes the watched tree over a small read-only HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"bili-tree/internal/models"
	"bili-tree/internal/pipeline"
	"bili-tree/internal/streams"
)

// TreeProvider abstracts the tree source for the HTTP handlers.
type TreeProvider interface {
	Tree() []models.CollectionNode
	Stats() pipeline.Stats
	Root() string
}

type serverHandler struct {
	lib    TreeProvider
	logger *log.Logger
}

// New creates the HTTP handler that exposes the tree, the run counters and
// per-episode stream listings.
func New(lib TreeProvider, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}

	h := &serverHandler{lib: lib, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/tree", h.handleTree)
	mux.HandleFunc("/stats", h.handleStats)
	mux.HandleFunc("/streams/{cid}", h.handleStreams)

	return logRequests(mux, logger)
}

func (h *serverHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, map[string]string{"status": "ok"})
}

func (h *serverHandler) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tree := h.lib.Tree()
	if tree == nil {
		tree = []models.CollectionNode{}
	}
	h.writeJSON(w, tree)
}

func (h *serverHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.lib.Stats())
}

func (h *serverHandler) handleStreams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	list, err := streams.Find(h.lib.Root(), r.PathValue("cid"))
	if err != nil {
		if errors.Is(err, streams.ErrNoStreamDir) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Debugf("streams lookup failed: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	h.writeJSON(w, list)
}

func (h *serverHandler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Errorf("failed to encode response: %v", err)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func logRequests(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"bytes", sw.size,
			"duration", time.Since(start))
	})
}
