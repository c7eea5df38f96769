package handlers

import (
	"errors"
	"net/http"

	"bakery/db"
	"bakery/flash"
	apperrors "bakery/internal/errors"
	"bakery/internal/validation"

	"github.com/gorilla/mux"
)

// GetWrites returns the write history, newest first.
func (h *Handlers) GetWrites(w http.ResponseWriter, r *http.Request) {
	records, err := h.History.GetAll(r.Context())
	if err != nil {
		apperrors.HandleHTTPError(w, h.Logger, apperrors.NewDatabaseError("list writes", err))
		return
	}
	if records == nil {
		records = []*flash.WriteRecord{}
	}
	h.writeJSON(w, http.StatusOK, records)
}

// GetWrite returns one history record.
func (h *Handlers) GetWrite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := validation.ValidateWriteID(id); err != nil {
		apperrors.HandleHTTPError(w, h.Logger, apperrors.NewValidationError("get write", err))
		return
	}

	record, err := h.History.Get(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		apperrors.HandleHTTPError(w, h.Logger, apperrors.NewNotFoundError("get write", errors.New("write not found")))
		return
	}
	if err != nil {
		apperrors.HandleHTTPError(w, h.Logger, apperrors.NewDatabaseError("get write", err))
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}
