// internal/app/features/imports/batch.go
package imports

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/baymark/rollcall/internal/app/policy/importpolicy"
	"github.com/baymark/rollcall/internal/app/system/auth"
	"github.com/baymark/rollcall/internal/app/system/timeouts"
	"github.com/baymark/rollcall/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// HandleCreate opens a new batch in the upload stage.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	op, _ := auth.CurrentOperator(r)
	if !importpolicy.CanReviewBatch(r) {
		h.respondError(w, http.StatusForbidden, "not allowed to open import batches")
		return
	}

	var req createBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	now := time.Now().UTC()
	b := models.ImportBatch{
		BatchID:       uuid.NewString(),
		Stage:         models.StageUpload,
		Operator:      op.ID,
		HierarchyFile: req.HierarchyFile,
		AttributeFile: req.AttributeFile,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	b, err := h.Batches.Create(ctx, b)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	h.Audit.BatchCreated(ctx, op.ID, op.Name, b.BatchID,
		req.HierarchyFile.RowCount+req.AttributeFile.RowCount)
	h.respondJSON(w, http.StatusCreated, summarize(b))
}

// HandleList returns recent batch summaries.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	batches, err := h.Batches.ListRecent(ctx, 50)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}
	summaries := make([]batchSummary, 0, len(batches))
	for _, b := range batches {
		summaries = append(summaries, summarize(b))
	}
	h.respondJSON(w, http.StatusOK, summaries)
}

// HandleGet returns one batch in full, delta included.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	b, ok := h.loadBatch(ctx, w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, b)
}

// HandleReset discards the batch's review state and returns it to the
// upload stage ("start over" from review or done).
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	op, _ := auth.CurrentOperator(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	b, ok := h.loadEditableBatch(ctx, w, r)
	if !ok {
		return
	}

	b.Stage = models.StageUpload
	b.Delta = nil
	b.SelectedNew = nil
	b.SelectedUpdated = nil
	b.SelectedRemoved = nil
	b.SelectedTransferred = nil
	b.Decisions = nil
	b.UpdatedAt = time.Now().UTC()

	if err := h.Batches.Replace(ctx, b); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.Audit.BatchReset(ctx, op.ID, op.Name, b.BatchID)
	h.respondJSON(w, http.StatusOK, summarize(b))
}

// HandleDelete removes a batch entirely.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	op, _ := auth.CurrentOperator(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	b, ok := h.loadEditableBatch(ctx, w, r)
	if !ok {
		return
	}

	if err := h.Batches.Delete(ctx, b.BatchID); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.Audit.BatchDeleted(ctx, op.ID, op.Name, b.BatchID)
	w.WriteHeader(http.StatusNoContent)
}

// loadBatch fetches the batch named in the URL, writing the error
// response on failure.
func (h *Handler) loadBatch(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.ImportBatch, bool) {
	batchID := chi.URLParam(r, "batchID")
	if batchID == "" {
		h.respondError(w, http.StatusBadRequest, "missing batch id")
		return models.ImportBatch{}, false
	}
	b, err := h.Batches.GetByBatchID(ctx, batchID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.respondError(w, http.StatusNotFound, "batch not found")
		return models.ImportBatch{}, false
	}
	if err != nil {
		h.respondStoreError(w, err)
		return models.ImportBatch{}, false
	}
	return b, true
}

// loadEditableBatch additionally enforces that the current operator
// owns the batch.
func (h *Handler) loadEditableBatch(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.ImportBatch, bool) {
	b, ok := h.loadBatch(ctx, w, r)
	if !ok {
		return models.ImportBatch{}, false
	}
	if !importpolicy.CanEditBatch(r, b.Operator) {
		h.respondError(w, http.StatusForbidden, "batch belongs to another operator")
		return models.ImportBatch{}, false
	}
	return b, true
}
