package export

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/voltmap/voltmap/internal/diagram"
	"github.com/voltmap/voltmap/internal/graphstore"
)

type Handler struct {
	store graphstore.Store
}

func NewHandler(store graphstore.Store) *Handler {
	return &Handler{store: store}
}

// ExportSVG loads a layout from the store and streams it back as an
// SVG attachment.
func (h *Handler) ExportSVG(w http.ResponseWriter, r *http.Request) {
	iri := r.URL.Query().Get("diagram")
	if iri == "" {
		http.Error(w, "diagram query parameter is required", http.StatusBadRequest)
		return
	}

	d, glue, err := h.store.LoadLayout(r.Context(), iri)
	if err != nil {
		if errors.Is(err, graphstore.ErrNotFound) {
			http.Error(w, "diagram not found", http.StatusNotFound)
			return
		}
		slog.Error("export load layout", "diagram", iri, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	snap := diagram.Snapshot(d, glue)
	svg := RenderSVG(snap)

	name := snap.Name
	if name == "" {
		name = "diagram"
	}
	name = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, name)

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.svg"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(svg)))
	w.Write(svg)

	slog.Info("export complete", "diagram", iri, "size", len(svg))
}
