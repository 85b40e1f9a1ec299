// Package importpolicy provides authorization policies for the roster
// import workflow.
//
// Authorization rules:
//   - Any authenticated operator may open a batch, review its delta,
//     and edit selections and removal decisions
//   - Only operators holding the roster admin capability may execute a
//     batch (simulated or not); the commit engine re-checks this before
//     persisting
package importpolicy

import (
	"context"
	"net/http"

	"github.com/baymark/rollcall/internal/app/system/authz"
)

// CanReviewBatch reports whether the current operator may open and
// review import batches.
func CanReviewBatch(r *http.Request) bool {
	_, _, ok := authz.OperatorCtx(r)
	return ok
}

// CanEditBatch reports whether the current operator may mutate a
// batch's selections and decisions. Batches are single-operator: only
// the opener edits.
func CanEditBatch(r *http.Request, batchOperator string) bool {
	id, _, ok := authz.OperatorCtx(r)
	if !ok {
		return false
	}
	return batchOperator == "" || batchOperator == id
}

// CanExecuteBatch reports whether the current operator may commit a
// reviewed batch. Execution requires the admin capability.
func CanExecuteBatch(ctx context.Context, r *http.Request, lookup authz.RoleLookup) bool {
	return authz.IsAdmin(ctx, r, lookup)
}
