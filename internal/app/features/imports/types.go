// internal/app/features/imports/types.go
package imports

import (
	"time"

	"github.com/baymark/rollcall/internal/app/system/reconcile"
	"github.com/baymark/rollcall/internal/domain/models"
)

type createBatchRequest struct {
	HierarchyFile models.SourceFile `json:"hierarchy_file"`
	AttributeFile models.SourceFile `json:"attribute_file"`
}

type processRequest struct {
	// Rows are the merged, already-parsed roster records from the two
	// source files. Parsing happens upstream.
	Rows []models.RosterRow `json:"rows"`
}

type selectionRequest struct {
	Category string `json:"category"`
	Ref      int64  `json:"ref"`
	Selected bool   `json:"selected"`
}

type selectionAllRequest struct {
	Category string `json:"category"`
	Selected bool   `json:"selected"`
}

type dryRunRequest struct {
	Enabled bool `json:"enabled"`
}

type decisionRequest struct {
	models.RemovalDecision
}

// batchSummary is the listing shape: full deltas stay out of the list
// payload.
type batchSummary struct {
	BatchID  string    `json:"batch_id"`
	Stage    string    `json:"stage"`
	DryRun   bool      `json:"dry_run"`
	Operator string    `json:"operator"`
	Created  time.Time `json:"created_at"`
	Updated  time.Time `json:"updated_at"`

	NewCount         int `json:"new_count"`
	UpdatedCount     int `json:"updated_count"`
	RemovedCount     int `json:"removed_count"`
	TransferredCount int `json:"transferred_count"`
}

func summarize(b models.ImportBatch) batchSummary {
	s := batchSummary{
		BatchID:  b.BatchID,
		Stage:    b.Stage,
		DryRun:   b.DryRun,
		Operator: b.Operator,
		Created:  b.CreatedAt,
		Updated:  b.UpdatedAt,
	}
	if b.Delta != nil {
		s.NewCount = len(b.Delta.New)
		s.UpdatedCount = len(b.Delta.Updated)
		s.RemovedCount = len(b.Delta.Removed)
		s.TransferredCount = len(b.Delta.Transferred)
	}
	return s
}

type executeResponse struct {
	Batch  batchSummary     `json:"batch"`
	Result reconcile.Result `json:"result"`
}
