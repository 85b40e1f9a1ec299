// internal/app/features/imports/review.go
package imports

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/baymark/rollcall/internal/app/system/auth"
	"github.com/baymark/rollcall/internal/app/system/delta"
	"github.com/baymark/rollcall/internal/app/system/htmlsanitize"
	"github.com/baymark/rollcall/internal/app/system/timeouts"
	"github.com/baymark/rollcall/internal/domain/models"
)

var validReasons = map[string]bool{
	models.ReasonTransferred: true,
	models.ReasonDeceased:    true,
	models.ReasonResigned:    true,
	models.ReasonExpelled:    true,
	models.ReasonLeave:       true,
	models.ReasonPromoted:    true,
	models.ReasonOther:       true,
}

// HandleProcess classifies the uploaded rows and moves the batch from
// upload to review. A tripped mass-removal guard is surfaced verbatim
// so operators can fix the source data.
func (h *Handler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	op, _ := auth.CurrentOperator(r)

	var req processRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	b, ok := h.loadEditableBatch(ctx, w, r)
	if !ok {
		return
	}
	if b.Stage != models.StageUpload {
		h.respondError(w, http.StatusConflict, "batch is not in the upload stage")
		return
	}

	active, err := h.Members.ListActive(ctx)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	result, err := delta.Classify(req.Rows, active, h.Guard)
	if err != nil {
		var guard *delta.MassRemovalError
		switch {
		case errors.As(err, &guard):
			h.Audit.MassRemovalBlocked(ctx, op.ID, op.Name, b.BatchID,
				guard.Removals, guard.ActiveInRegion)
			h.respondError(w, http.StatusUnprocessableEntity, guard.Error())
		case errors.Is(err, delta.ErrNoUsableRows):
			h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.respondStoreError(w, err)
		}
		return
	}

	b.Stage = models.StageReview
	b.Delta = result
	b.SelectedNew = []int64{}
	b.SelectedUpdated = []int64{}
	b.SelectedRemoved = []int64{}
	b.SelectedTransferred = []int64{}
	b.Decisions = map[string]models.RemovalDecision{}
	b.UpdatedAt = time.Now().UTC()

	if err := h.Batches.Replace(ctx, b); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.Audit.BatchProcessed(ctx, op.ID, op.Name, b.BatchID, result.DetectedRegion)
	h.respondJSON(w, http.StatusOK, b)
}

// HandleToggleSelection adds or removes one reference from a category's
// selection set.
func (h *Handler) HandleToggleSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	b, ok := h.loadReviewBatch(ctx, w, r)
	if !ok {
		return
	}

	available := categoryRefs(b.Delta, req.Category)
	if available == nil {
		h.respondError(w, http.StatusBadRequest, "unknown selection category")
		return
	}
	if !containsRef(available, req.Ref) {
		h.respondError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("reference %d is not in the %s category", req.Ref, req.Category))
		return
	}

	set := selectionSet(&b, req.Category)
	*set = toggleRef(*set, req.Ref, req.Selected)
	b.UpdatedAt = time.Now().UTC()

	if err := h.Batches.Replace(ctx, b); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, b)
}

// HandleSetAllSelections replaces a category's whole selection set with
// either every reference or none.
func (h *Handler) HandleSetAllSelections(w http.ResponseWriter, r *http.Request) {
	var req selectionAllRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	b, ok := h.loadReviewBatch(ctx, w, r)
	if !ok {
		return
	}

	available := categoryRefs(b.Delta, req.Category)
	if available == nil {
		h.respondError(w, http.StatusBadRequest, "unknown selection category")
		return
	}

	set := selectionSet(&b, req.Category)
	if req.Selected {
		*set = append([]int64(nil), available...)
	} else {
		*set = []int64{}
	}
	b.UpdatedAt = time.Now().UTC()

	if err := h.Batches.Replace(ctx, b); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, b)
}

// HandleDryRun flips simulation mode. Allowed in any stage but done.
func (h *Handler) HandleDryRun(w http.ResponseWriter, r *http.Request) {
	var req dryRunRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	b, ok := h.loadEditableBatch(ctx, w, r)
	if !ok {
		return
	}
	if b.Stage == models.StageDone {
		h.respondError(w, http.StatusConflict, "batch is already executed")
		return
	}

	b.DryRun = req.Enabled
	b.UpdatedAt = time.Now().UTC()

	if err := h.Batches.Replace(ctx, b); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, summarize(b))
}

// HandleDecision upserts the removal disposition for one reference.
func (h *Handler) HandleDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !validReasons[req.Reason] {
		h.respondError(w, http.StatusUnprocessableEntity, "unknown removal reason")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	b, ok := h.loadReviewBatch(ctx, w, r)
	if !ok {
		return
	}

	if !containsRef(categoryRefs(b.Delta, models.CategoryRemoved), req.Ref) {
		h.respondError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("reference %d is not a removal candidate", req.Ref))
		return
	}

	decision := req.RemovalDecision
	decision.Note = htmlsanitize.PlainText(decision.Note)
	decision.DecidedAt = time.Now().UTC()

	if b.Decisions == nil {
		b.Decisions = map[string]models.RemovalDecision{}
	}
	b.Decisions[refKey(decision.Ref)] = decision
	b.UpdatedAt = time.Now().UTC()

	if err := h.Batches.Replace(ctx, b); err != nil {
		h.respondStoreError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, b)
}

// loadReviewBatch loads an editable batch and enforces the review
// stage, where selection and decision edits are meaningful.
func (h *Handler) loadReviewBatch(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.ImportBatch, bool) {
	b, ok := h.loadEditableBatch(ctx, w, r)
	if !ok {
		return models.ImportBatch{}, false
	}
	if b.Stage != models.StageReview || b.Delta == nil {
		h.respondError(w, http.StatusConflict, "batch is not under review")
		return models.ImportBatch{}, false
	}
	return b, true
}
