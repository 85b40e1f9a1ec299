// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"strconv"

	"github.com/baymark/rollcall/internal/app/store/audit"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Import controls logging for batch lifecycle events (created, processed,
	// committed, simulated, reset, deleted, mass removal blocked).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Import string
	// Member controls logging for member mutation events (inactivated,
	// promoted, transferred, on leave).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Member string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}

	if event.ActorID != "" {
		fields = append(fields, zap.String("actor_id", event.ActorID))
	}
	if event.MemberRef != nil {
		fields = append(fields, zap.Int64("member_ref", *event.MemberRef))
	}
	if event.BatchID != "" {
		fields = append(fields, zap.String("batch_id", event.BatchID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
// Logging destination is controlled by config: "all", "db", "log", or "off".
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryImport:
		setting = l.config.Import
	case audit.CategoryMember:
		setting = l.config.Member
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Batch Lifecycle Events ---

// BatchCreated logs the creation of an import batch.
func (l *Logger) BatchCreated(ctx context.Context, actorID, actorName, batchID string, rowCount int) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryImport,
		EventType: audit.EventBatchCreated,
		ActorID:   actorID,
		ActorName: actorName,
		BatchID:   batchID,
		Success:   true,
		Details:   map[string]string{"row_count": strconv.Itoa(rowCount)},
	})
}

// BatchProcessed logs a batch moving from upload to review.
func (l *Logger) BatchProcessed(ctx context.Context, actorID, actorName, batchID, region string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryImport,
		EventType: audit.EventBatchProcessed,
		ActorID:   actorID,
		ActorName: actorName,
		BatchID:   batchID,
		Success:   true,
		Details:   map[string]string{"detected_region": region},
	})
}

// BatchCommitted logs a successful commit of a reviewed batch.
// Simulated commits are recorded under their own event type so the trail
// distinguishes rehearsals from real mutations.
func (l *Logger) BatchCommitted(ctx context.Context, actorID, actorName, batchID string, dryRun bool, counts map[string]string) {
	eventType := audit.EventBatchCommitted
	if dryRun {
		eventType = audit.EventBatchSimulated
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryImport,
		EventType: eventType,
		ActorID:   actorID,
		ActorName: actorName,
		BatchID:   batchID,
		Success:   true,
		Details:   counts,
	})
}

// BatchReset logs a batch being returned to the upload stage.
func (l *Logger) BatchReset(ctx context.Context, actorID, actorName, batchID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryImport,
		EventType: audit.EventBatchReset,
		ActorID:   actorID,
		ActorName: actorName,
		BatchID:   batchID,
		Success:   true,
	})
}

// BatchDeleted logs the removal of an import batch.
func (l *Logger) BatchDeleted(ctx context.Context, actorID, actorName, batchID string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryImport,
		EventType: audit.EventBatchDeleted,
		ActorID:   actorID,
		ActorName: actorName,
		BatchID:   batchID,
		Success:   true,
	})
}

// MassRemovalBlocked logs a delta run rejected by the removal guard.
func (l *Logger) MassRemovalBlocked(ctx context.Context, actorID, actorName, batchID string, removals, activeInRegion int) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryImport,
		EventType:     audit.EventMassRemovalBlock,
		ActorID:       actorID,
		ActorName:     actorName,
		BatchID:       batchID,
		Success:       false,
		FailureReason: "removal rate over threshold",
		Details: map[string]string{
			"removals":         strconv.Itoa(removals),
			"active_in_region": strconv.Itoa(activeInRegion),
		},
	})
}

// --- Member Events ---

// MemberInactivated logs a member leaving the active roster.
func (l *Logger) MemberInactivated(ctx context.Context, actorID, actorName, batchID string, ref int64, reason, note string) {
	details := map[string]string{"reason": reason}
	if note != "" {
		details["note"] = note
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMember,
		EventType: audit.EventMemberInactivated,
		ActorID:   actorID,
		ActorName: actorName,
		BatchID:   batchID,
		MemberRef: &ref,
		Success:   true,
		Details:   details,
	})
}

// MemberPromoted logs a member promoted out of their division.
func (l *Logger) MemberPromoted(ctx context.Context, actorID, actorName, batchID string, ref int64, rank string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMember,
		EventType: audit.EventMemberPromoted,
		ActorID:   actorID,
		ActorName: actorName,
		BatchID:   batchID,
		MemberRef: &ref,
		Success:   true,
		Details:   map[string]string{"rank": rank},
	})
}

// MemberTransferred logs a member moved to another division or region.
func (l *Logger) MemberTransferred(ctx context.Context, actorID, actorName, batchID string, ref int64, destRegion, destDivision string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMember,
		EventType: audit.EventMemberTransferred,
		ActorID:   actorID,
		ActorName: actorName,
		BatchID:   batchID,
		MemberRef: &ref,
		Success:   true,
		Details: map[string]string{
			"dest_region":   destRegion,
			"dest_division": destDivision,
		},
	})
}

// MemberOnLeave logs a leave annotation. The member stays active.
func (l *Logger) MemberOnLeave(ctx context.Context, actorID, actorName, batchID string, ref int64, note string) {
	details := map[string]string{}
	if note != "" {
		details["note"] = note
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryMember,
		EventType: audit.EventMemberOnLeave,
		ActorID:   actorID,
		ActorName: actorName,
		BatchID:   batchID,
		MemberRef: &ref,
		Success:   true,
		Details:   details,
	})
}
