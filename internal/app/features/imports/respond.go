// internal/app/features/imports/respond.go
package imports

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/baymark/rollcall/internal/app/system/dberr"
	"go.uber.org/zap"
)

type errorBody struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
	Step     string `json:"step,omitempty"`
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Error("encoding response failed", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, errorBody{Error: msg})
}

// respondStoreError maps a persistence failure to its user-facing
// category, with the failing step when one was recorded.
func (h *Handler) respondStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch dberr.CategoryOf(err) {
	case dberr.NotFound:
		status = http.StatusNotFound
	case dberr.Duplicate:
		status = http.StatusConflict
	case dberr.InvalidReference, dberr.MissingField:
		status = http.StatusUnprocessableEntity
	case dberr.PermissionDenied:
		status = http.StatusForbidden
	}
	h.respondJSON(w, status, errorBody{
		Error:    err.Error(),
		Category: string(dberr.CategoryOf(err)),
		Step:     dberr.StepOf(err),
	})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 16<<20))
	if err := dec.Decode(v); err != nil {
		return errors.New("malformed JSON body")
	}
	return nil
}
