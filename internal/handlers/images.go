package handlers

import (
	"log/slog"
	"net/http"

	apperrors "bakery/internal/errors"
)

// GetImages returns the catalog with its cursor and selection.
func (h *Handlers) GetImages(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Catalog.Snapshot())
}

// RescanImages rebuilds the catalog from the configured sources.
func (h *Handlers) RescanImages(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.Rescan(); err != nil {
		apperrors.HandleHTTPError(w, h.Logger, apperrors.Wrap(err, "rescan images"))
		return
	}

	snap := h.Catalog.Snapshot()
	h.Logger.Info("Catalog rescanned from API", slog.Int("images", len(snap.Images)))
	h.writeJSON(w, http.StatusOK, snap)
}
