// internal/app/features/imports/execute.go
package imports

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/baymark/rollcall/internal/app/policy/importpolicy"
	"github.com/baymark/rollcall/internal/app/system/auth"
	"github.com/baymark/rollcall/internal/app/system/reconcile"
	"github.com/baymark/rollcall/internal/app/system/timeouts"
	"github.com/baymark/rollcall/internal/domain/models"
)

// HandleExecute commits a reviewed batch (review → done). The
// transition is guarded: every selected removal needs a complete
// decision first. With the batch's dry-run flag set, the full pipeline
// runs without persistence and the response keeps the same shape.
func (h *Handler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	op, _ := auth.CurrentOperator(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Batch())
	defer cancel()

	if !importpolicy.CanExecuteBatch(ctx, r, h.Lookup) {
		h.respondError(w, http.StatusForbidden, "executing imports requires the roster admin capability")
		return
	}

	b, ok := h.loadReviewBatch(ctx, w, r)
	if !ok {
		return
	}

	if msg := executeBlocker(b); msg != "" {
		h.respondError(w, http.StatusConflict, msg)
		return
	}

	req, err := buildCommitRequest(b)
	if err != nil {
		h.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.Engine.Commit(ctx, reconcile.Operator{
		ID:    op.ID,
		Name:  op.Name,
		Roles: op.Roles,
	}, req)
	if err != nil {
		if errors.Is(err, reconcile.ErrNotAuthorized) {
			h.respondError(w, http.StatusForbidden, err.Error())
			return
		}
		h.respondStoreError(w, err)
		return
	}

	// Selected transfers detected by the classifier need no member
	// mutation: the record already carries its destination. They are
	// recorded for the trail.
	if !b.DryRun {
		for _, tr := range selectedTransfers(b) {
			h.Audit.MemberTransferred(ctx, op.ID, op.Name, b.BatchID,
				tr.Member.Ref, tr.DestRegionLabel, tr.DestDivisionLabel)
		}
	}

	b.Stage = models.StageDone
	b.UpdatedAt = time.Now().UTC()
	if err := h.Batches.Replace(ctx, b); err != nil {
		h.respondStoreError(w, err)
		return
	}

	h.Audit.BatchCommitted(ctx, op.ID, op.Name, b.BatchID, b.DryRun, map[string]string{
		"inserted":    strconv.Itoa(result.Inserted),
		"updated":     strconv.Itoa(result.Updated),
		"inactivated": strconv.Itoa(result.Inactivated),
		"transferred": strconv.Itoa(result.Transferred),
		"promoted":    strconv.Itoa(result.Promoted),
		"on_leave":    strconv.Itoa(result.OnLeave),
	})

	h.respondJSON(w, http.StatusOK, executeResponse{
		Batch:  summarize(b),
		Result: result,
	})
}

// executeBlocker reports why a batch may not leave review, or "" when
// it may.
func executeBlocker(b models.ImportBatch) string {
	for _, ref := range b.SelectedRemoved {
		decision, ok := b.Decisions[refKey(ref)]
		if !ok {
			return fmt.Sprintf("removal %d has no decision yet", ref)
		}
		if decision.Reason == models.ReasonTransferred && decision.LookupPending {
			return fmt.Sprintf("removal %d still has a destination lookup in progress", ref)
		}
		if decision.Reason == models.ReasonPromoted &&
			(decision.DestRankID == nil || decision.DestRegionID == nil) {
			return fmt.Sprintf("promotion %d is missing its destination rank or region", ref)
		}
	}
	return ""
}

// buildCommitRequest assembles the engine payload from the batch's
// delta and selection sets.
func buildCommitRequest(b models.ImportBatch) (reconcile.Request, error) {
	req := reconcile.Request{
		BatchID: b.BatchID,
		DryRun:  b.DryRun,
	}

	for _, row := range b.Delta.New {
		if containsRef(b.SelectedNew, row.Ref) {
			req.New = append(req.New, row)
		}
	}
	for _, ch := range b.Delta.Updated {
		if containsRef(b.SelectedUpdated, ch.Before.Ref) {
			req.Updated = append(req.Updated, ch)
		}
	}
	for _, m := range b.Delta.Removed {
		if !containsRef(b.SelectedRemoved, m.Ref) {
			continue
		}
		decision, ok := b.Decisions[refKey(m.Ref)]
		if !ok {
			return reconcile.Request{}, fmt.Errorf("removal %d has no decision", m.Ref)
		}
		req.Removals = append(req.Removals, reconcile.Removal{
			Member:   m,
			Decision: decision,
		})
	}
	return req, nil
}

func selectedTransfers(b models.ImportBatch) []models.MemberTransfer {
	var out []models.MemberTransfer
	for _, tr := range b.Delta.Transferred {
		if containsRef(b.SelectedTransferred, tr.Member.Ref) {
			out = append(out, tr)
		}
	}
	return out
}
