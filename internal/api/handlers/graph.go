package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// GraphStore resolves artifact names to files (chart.Renderer)
type GraphStore interface {
	Path(name string) (string, error)
}

// GraphHandler serves chart PNGs
type GraphHandler struct {
	graphs GraphStore
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(graphs GraphStore) *GraphHandler {
	return &GraphHandler{graphs: graphs}
}

// Serve streams one chart
// GET /graph/{name}
func (h *GraphHandler) Serve(w http.ResponseWriter, r *http.Request) {
	path, err := h.graphs.Path(mux.Vars(r)["name"])
	if err != nil {
		respondError(w, http.StatusNotFound, "Graph not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, path)
}
