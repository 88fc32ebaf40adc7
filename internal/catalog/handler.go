package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/voltmap/voltmap/internal/diagram"
	"github.com/voltmap/voltmap/internal/graphstore"
)

// Handler serves the read-only diagram catalog: the list of diagrams the
// store knows about and full layout snapshots for the editor to open.
type Handler struct {
	store graphstore.Store
}

func NewHandler(store graphstore.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	diagrams, err := h.store.ListDiagrams(r.Context())
	if err != nil {
		slog.Error("list diagrams failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, diagrams)
}

// GetLayout loads a full layout snapshot. The diagram IRI arrives as a
// query parameter because IRIs routinely contain path separators.
func (h *Handler) GetLayout(w http.ResponseWriter, r *http.Request) {
	iri := r.URL.Query().Get("diagram")
	if iri == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "diagram query parameter is required"})
		return
	}

	d, glue, err := h.store.LoadLayout(r.Context(), iri)
	if err != nil {
		if errors.Is(err, graphstore.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "diagram not found"})
			return
		}
		slog.Error("load layout failed", "diagram", iri, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, diagram.Snapshot(d, glue))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
