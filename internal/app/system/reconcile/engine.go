// internal/app/system/reconcile/engine.go

// Package reconcile applies a reviewed import batch to the member
// store. A commit is one synchronous pass over sequential steps with no
// cross-step rollback: a failure aborts the remaining steps and the
// caller reconciles manually from the returned step name.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	divisionstore "github.com/baymark/rollcall/internal/app/store/divisions"
	historystore "github.com/baymark/rollcall/internal/app/store/history"
	memberstore "github.com/baymark/rollcall/internal/app/store/members"
	"github.com/baymark/rollcall/internal/app/store/pendingdelta"
	rankstore "github.com/baymark/rollcall/internal/app/store/ranks"
	regionstore "github.com/baymark/rollcall/internal/app/store/regions"
	userstore "github.com/baymark/rollcall/internal/app/store/users"
	"github.com/baymark/rollcall/internal/app/system/auditlog"
	"github.com/baymark/rollcall/internal/app/system/authz"
	"github.com/baymark/rollcall/internal/app/system/dberr"
	"github.com/baymark/rollcall/internal/app/system/hierarchy"
	"github.com/baymark/rollcall/internal/app/system/roles"
	"github.com/baymark/rollcall/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ReturnWindow bounds the automatic resolution of a member who vanished
// from the leave list and reappeared as new. Outside it the return is
// surfaced as a fresh anomaly instead.
const ReturnWindow = 24 * time.Hour

// ErrNotAuthorized is returned before any persistence when the operator
// lacks the administrative capability.
var ErrNotAuthorized = errors.New("operator lacks the roster admin capability")

// Operator identifies who is committing. Roles are the fallback when no
// role-lookup service is wired.
type Operator struct {
	ID    string
	Name  string
	Roles []string
}

// Removal pairs a removal candidate with the operator's disposition.
type Removal struct {
	Member   models.Member
	Decision models.RemovalDecision
}

// Request carries one batch's confirmed changes.
type Request struct {
	BatchID  string
	DryRun   bool
	New      []models.RosterRow
	Updated  []models.MemberChange
	Removals []Removal
}

// Result reports what the commit did (or, in dry-run mode, would do).
type Result struct {
	Inserted    int `json:"inserted"`
	Updated     int `json:"updated"`
	Inactivated int `json:"inactivated"`
	Transferred int `json:"transferred"`
	Promoted    int `json:"promoted"`
	OnLeave     int `json:"on_leave"`

	// Records rejected individually without aborting the run.
	SkippedNoRank  int `json:"skipped_no_rank"`
	SkippedInvalid int `json:"skipped_invalid"`

	SnapshotID primitive.ObjectID    `json:"snapshot_id,omitempty"`
	SnapshotAt time.Time             `json:"snapshot_at"`
	Anomalies  []models.PendingDelta `json:"anomalies"` // bounded preview
	Summary    string                `json:"summary"`
	DryRun     bool                  `json:"dry_run"`
}

const anomalyPreviewLimit = 5

// Engine wires the stores a commit touches. Build one per process; the
// per-run state (hierarchy memoization) lives in the commit call.
type Engine struct {
	members   *memberstore.Store
	users     *userstore.Store
	history   *historystore.Store
	pending   *pendingdelta.Store
	ranks     *rankstore.Store
	divisions *divisionstore.Store
	regions   *regionstore.Store
	lookup    authz.RoleLookup // may be nil; falls back to embedded roles
	audit     *auditlog.Logger
	log       *zap.Logger
}

func NewEngine(
	members *memberstore.Store,
	users *userstore.Store,
	history *historystore.Store,
	pending *pendingdelta.Store,
	ranks *rankstore.Store,
	divisions *divisionstore.Store,
	regions *regionstore.Store,
	lookup authz.RoleLookup,
	auditLog *auditlog.Logger,
	log *zap.Logger,
) *Engine {
	return &Engine{
		members:   members,
		users:     users,
		history:   history,
		pending:   pending,
		ranks:     ranks,
		divisions: divisions,
		regions:   regions,
		lookup:    lookup,
		audit:     auditLog,
		log:       log,
	}
}

// Commit runs the full reconciliation sequence. With req.DryRun set,
// every computation runs but nothing is written; the result shape is
// identical except SnapshotID stays zero.
func (e *Engine) Commit(ctx context.Context, op Operator, req Request) (Result, error) {
	res := Result{DryRun: req.DryRun}

	if !e.authorized(ctx, op) {
		return res, ErrNotAuthorized
	}

	resolver, err := hierarchy.Load(ctx, e.divisions, e.regions, e.log)
	if err != nil {
		return res, dberr.Wrap("resolve_catalogs", err)
	}

	now := time.Now().UTC()

	newRows := dedupeByRef(req.New)

	anomalies, err := e.reconcileReturns(ctx, newRows, now, req.DryRun)
	if err != nil {
		return res, dberr.Wrap("auto_resolve_returns", err)
	}

	if err := e.upsertNew(ctx, &res, newRows, resolver, req.DryRun); err != nil {
		return res, dberr.Wrap("upsert_new", err)
	}

	fieldChanges, err := e.applyUpdates(ctx, &res, req.Updated, resolver, req.DryRun)
	if err != nil {
		return res, dberr.Wrap("apply_updates", err)
	}

	leaveAnomalies, err := e.applyRemovals(ctx, &res, op, req, now)
	if err != nil {
		return res, dberr.Wrap("apply_removals", err)
	}
	anomalies = append(anomalies, leaveAnomalies...)

	if err := e.deriveRoles(ctx, newRows, req.Updated, req.DryRun); err != nil {
		return res, dberr.Wrap("derive_roles", err)
	}

	snap, err := e.writeSnapshot(ctx, op, now, req.DryRun)
	if err != nil {
		return res, dberr.Wrap("write_snapshot", err)
	}
	res.SnapshotID = snap.ID
	res.SnapshotAt = snap.TakenAt

	if !req.DryRun && len(fieldChanges) > 0 {
		for i := range fieldChanges {
			fieldChanges[i].SnapshotID = snap.ID
		}
		if err := e.history.AddFieldChanges(ctx, fieldChanges); err != nil {
			return res, dberr.Wrap("write_field_changes", err)
		}
	}

	if !req.DryRun && len(anomalies) > 0 {
		if err := e.pending.Add(ctx, anomalies); err != nil {
			return res, dberr.Wrap("queue_pending_deltas", err)
		}
	}
	if len(anomalies) > anomalyPreviewLimit {
		res.Anomalies = anomalies[:anomalyPreviewLimit]
	} else {
		res.Anomalies = anomalies
	}

	res.Summary = fmt.Sprintf(
		"%d inserted, %d updated, %d inactivated, %d transferred, %d promoted, %d on leave (%d skipped without rank)",
		res.Inserted, res.Updated, res.Inactivated, res.Transferred, res.Promoted, res.OnLeave, res.SkippedNoRank)
	return res, nil
}

// authorized fails closed: a lookup error denies the commit.
func (e *Engine) authorized(ctx context.Context, op Operator) bool {
	if e.lookup != nil {
		ok, err := e.lookup.HasCapability(ctx, op.ID, authz.AdminCapability)
		if err != nil {
			e.log.Warn("role lookup failed, denying commit",
				zap.String("operator_id", op.ID), zap.Error(err))
			return false
		}
		return ok
	}
	// Same fallback the HTTP gate uses; the two must never accept
	// disjoint role sets.
	return authz.HasAdminRole(op.Roles)
}

// reconcileReturns resolves pending departure entries for members who
// came back within the window, and raises a new-active anomaly for the
// rest of the genuinely new references.
func (e *Engine) reconcileReturns(ctx context.Context, newRows []models.RosterRow, now time.Time, dryRun bool) ([]models.PendingDelta, error) {
	var anomalies []models.PendingDelta
	since := now.Add(-ReturnWindow)

	for _, row := range newRows {
		if row.RankLabel == "" {
			// The insert step skips these rows; an anomaly here would
			// announce an insertion that never happens.
			continue
		}
		pd, err := e.pending.FindRecentPending(ctx, row.Ref, models.DeltaLeftLeaveRoster, since)
		if err == nil {
			if !dryRun {
				if rerr := e.pending.Resolve(ctx, pd.ID, "auto:returned"); rerr != nil {
					return nil, rerr
				}
			}
			e.log.Info("auto-resolved returning member",
				zap.Int64("ref", row.Ref))
			continue
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		anomalies = append(anomalies, models.PendingDelta{
			Ref:           row.Ref,
			FullName:      row.FullName,
			DivisionLabel: row.DivisionLabel,
			Kind:          models.DeltaNewActive,
			Priority:      1,
			Status:        models.DeltaPending,
			CreatedAt:     now,
		})
	}
	return anomalies, nil
}

func (e *Engine) upsertNew(ctx context.Context, res *Result, rows []models.RosterRow, resolver *hierarchy.Resolver, dryRun bool) error {
	var entries []memberstore.Entry
	for _, row := range rows {
		if row.RankLabel == "" {
			res.SkippedNoRank++
			e.log.Warn("skipping new member without rank label",
				zap.Int64("ref", row.Ref), zap.String("name", row.FullName))
			continue
		}
		p := resolver.Resolve(row.RegionLabel, row.DivisionLabel)
		entries = append(entries, memberstore.Entry{
			Row:        row,
			DivisionID: p.DivisionID,
			RegionID:   p.RegionID,
		})
	}
	if len(entries) == 0 {
		return nil
	}
	if dryRun {
		// Mirror the upsert's insert-or-update split without writing:
		// a ref already present (an inactive row being re-imported)
		// takes the update path, not the insert path.
		for _, entry := range entries {
			_, err := e.members.GetByRef(ctx, entry.Row.Ref)
			switch {
			case err == nil:
				res.Updated++
			case errors.Is(err, mongo.ErrNoDocuments):
				res.Inserted++
			default:
				return err
			}
		}
		return nil
	}
	out, err := e.members.UpsertBatch(ctx, entries)
	if err != nil {
		return err
	}
	res.Inserted += out.Inserted
	res.Updated += out.Updated
	return nil
}

// applyUpdates replaces the comparable fields of each changed member
// and returns the field-level change log rows to attach to this run's
// snapshot.
func (e *Engine) applyUpdates(ctx context.Context, res *Result, updates []models.MemberChange, resolver *hierarchy.Resolver, dryRun bool) ([]models.FieldChange, error) {
	var fieldChanges []models.FieldChange
	now := time.Now().UTC()

	for _, ch := range updates {
		prior, err := e.members.GetByRef(ctx, ch.Before.Ref)
		if errors.Is(err, mongo.ErrNoDocuments) {
			res.SkippedInvalid++
			e.log.Warn("updated member no longer exists",
				zap.Int64("ref", ch.Before.Ref))
			continue
		}
		if err != nil {
			return nil, err
		}

		divisionID, regionID := prior.DivisionID, prior.RegionID
		if fieldChanged(ch.ChangedFields, models.FieldDivisionLabel) ||
			fieldChanged(ch.ChangedFields, models.FieldRegionLabel) {
			p := resolver.Resolve(ch.After.RegionLabel, ch.After.DivisionLabel)
			divisionID, regionID = p.DivisionID, p.RegionID
		}

		if !dryRun {
			if err := e.members.ApplyChange(ctx, prior.Ref, ch.After, divisionID, regionID); err != nil {
				return nil, err
			}
			if prior.Linked && regionMoved(prior.RegionID, regionID) {
				if err := e.propagateRegion(ctx, prior.Ref, regionID); err != nil {
					return nil, err
				}
			}
		}
		res.Updated++

		for _, field := range ch.ChangedFields {
			fieldChanges = append(fieldChanges, models.FieldChange{
				Ref:       prior.Ref,
				Field:     field,
				OldValue:  memberFieldValue(prior, field),
				NewValue:  rowFieldValue(ch.After, field),
				CreatedAt: now,
			})
		}
	}
	return fieldChanges, nil
}

func (e *Engine) propagateRegion(ctx context.Context, ref int64, regionID *primitive.ObjectID) error {
	if regionID == nil {
		return nil
	}
	u, err := e.users.GetByMemberRef(ctx, ref)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	return e.users.SetRegion(ctx, u.ID, *regionID)
}

// applyRemovals routes each disposition to its branch. Only the
// inactivate branch ever clears the active flag.
func (e *Engine) applyRemovals(ctx context.Context, res *Result, op Operator, req Request, now time.Time) ([]models.PendingDelta, error) {
	groups := PartitionRemovals(req.Removals)
	var anomalies []models.PendingDelta

	for _, r := range groups.Inactivate {
		if !req.DryRun {
			if err := e.members.Inactivate(ctx, r.Member.Ref, r.Decision.Reason, r.Decision.Note); err != nil {
				return nil, err
			}
			e.audit.MemberInactivated(ctx, op.ID, op.Name, req.BatchID, r.Member.Ref, r.Decision.Reason, r.Decision.Note)
		}
		res.Inactivated++
	}

	for _, r := range groups.Promote {
		if r.Decision.DestRankID == nil || r.Decision.DestRegionID == nil {
			res.SkippedInvalid++
			e.log.Warn("promotion missing destination, skipping",
				zap.Int64("ref", r.Member.Ref))
			continue
		}
		if !req.DryRun {
			rank, err := e.ranks.GetByID(ctx, *r.Decision.DestRankID)
			if err != nil {
				return nil, err
			}
			if err := e.members.Promote(ctx, r.Member.Ref, rank.Name, *r.Decision.DestRegionID); err != nil {
				return nil, err
			}
			e.audit.MemberPromoted(ctx, op.ID, op.Name, req.BatchID, r.Member.Ref, rank.Name)
		}
		res.Promoted++
	}

	for _, r := range groups.Leave {
		if !req.DryRun {
			e.audit.MemberOnLeave(ctx, op.ID, op.Name, req.BatchID, r.Member.Ref, r.Decision.Note)
		}
		anomalies = append(anomalies, models.PendingDelta{
			Ref:           r.Member.Ref,
			FullName:      r.Member.FullName,
			DivisionLabel: r.Member.DivisionLabel,
			Kind:          models.DeltaLeftLeaveRoster,
			Priority:      2,
			Status:        models.DeltaPending,
			CreatedAt:     now,
		})
		res.OnLeave++
	}

	for _, r := range groups.Transfer {
		destRegionLabel, destDivisionLabel := "", ""
		if !req.DryRun {
			if r.Decision.DestDivisionID != nil {
				div, err := e.divisions.GetByID(ctx, *r.Decision.DestDivisionID)
				if err != nil {
					return nil, err
				}
				destDivisionLabel = div.Name
			}
			if r.Decision.DestRegionID != nil {
				reg, err := e.regions.GetByID(ctx, *r.Decision.DestRegionID)
				if err != nil {
					return nil, err
				}
				destRegionLabel = reg.Name
			}
			if err := e.members.Transfer(ctx, r.Member.Ref, r.Decision.DestDivisionID, r.Decision.DestRegionID, destDivisionLabel, destRegionLabel); err != nil {
				return nil, err
			}
			e.audit.MemberTransferred(ctx, op.ID, op.Name, req.BatchID, r.Member.Ref, destRegionLabel, destDivisionLabel)
		}
		res.Transferred++
	}

	return anomalies, nil
}

// deriveRoles recomputes the derived role of every linked account
// touched by this run. Labels that match no rule leave the account's
// roles exactly as they were.
func (e *Engine) deriveRoles(ctx context.Context, newRows []models.RosterRow, updates []models.MemberChange, dryRun bool) error {
	if dryRun {
		return nil
	}

	apply := func(ref int64, rankLabel string) error {
		derived := roles.FromRankLabel(rankLabel)
		if derived == "" {
			return nil
		}
		u, err := e.users.GetByMemberRef(ctx, ref)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		if err != nil {
			return err
		}
		return e.users.ReplaceDerivedRoles(ctx, u.ID, derived)
	}

	for _, row := range newRows {
		if err := apply(row.Ref, row.RankLabel); err != nil {
			return err
		}
	}
	for _, ch := range updates {
		if err := apply(ch.Before.Ref, ch.After.RankLabel); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) writeSnapshot(ctx context.Context, op Operator, now time.Time, dryRun bool) (models.Snapshot, error) {
	divisions, total, err := e.members.ActiveCountsByDivision(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}
	snap := models.Snapshot{
		TakenAt:     now,
		TotalActive: total,
		Divisions:   divisions,
		BatchKind:   "roster_import",
		Operator:    op.Name,
	}
	if dryRun {
		return snap, nil
	}
	return e.history.AddSnapshot(ctx, snap)
}

// RemovalGroups are the four disjoint branches of removal handling.
type RemovalGroups struct {
	Inactivate []Removal
	Promote    []Removal
	Leave      []Removal
	Transfer   []Removal
}

// PartitionRemovals splits removals by motive. A transferred decision
// without a confirmed destination falls back to inactivation.
func PartitionRemovals(removals []Removal) RemovalGroups {
	var g RemovalGroups
	for _, r := range removals {
		switch r.Decision.Reason {
		case models.ReasonPromoted:
			g.Promote = append(g.Promote, r)
		case models.ReasonLeave:
			g.Leave = append(g.Leave, r)
		case models.ReasonTransferred:
			if r.Decision.LookupFound && (r.Decision.DestDivisionID != nil || r.Decision.DestRegionID != nil) {
				g.Transfer = append(g.Transfer, r)
			} else {
				g.Inactivate = append(g.Inactivate, r)
			}
		default:
			g.Inactivate = append(g.Inactivate, r)
		}
	}
	return g
}

// dedupeByRef keeps the last occurrence of every reference, preserving
// first-seen order.
func dedupeByRef(rows []models.RosterRow) []models.RosterRow {
	byRef := make(map[int64]models.RosterRow, len(rows))
	var order []int64
	for _, row := range rows {
		if row.Ref <= 0 {
			continue
		}
		if _, seen := byRef[row.Ref]; !seen {
			order = append(order, row.Ref)
		}
		byRef[row.Ref] = row
	}
	out := make([]models.RosterRow, 0, len(order))
	for _, ref := range order {
		out = append(out, byRef[ref])
	}
	return out
}

func fieldChanged(fields []string, name string) bool {
	for _, f := range fields {
		if f == name {
			return true
		}
	}
	return false
}

func regionMoved(before, after *primitive.ObjectID) bool {
	if before == nil || after == nil {
		return before != after && after != nil
	}
	return *before != *after
}

func memberFieldValue(m models.Member, field string) string {
	switch field {
	case models.FieldFullName:
		return m.FullName
	case models.FieldCommandLabel:
		return m.CommandLabel
	case models.FieldRegionLabel:
		return m.RegionLabel
	case models.FieldDivisionLabel:
		return m.DivisionLabel
	case models.FieldRankLabel:
		return m.RankLabel
	case models.FieldTraineeLabel:
		return m.TraineeLabel
	case models.FieldUniformed:
		return strconv.FormatBool(m.Uniformed)
	case models.FieldRadioEquipped:
		return strconv.FormatBool(m.RadioEquipped)
	case models.FieldFirstAider:
		return strconv.FormatBool(m.FirstAider)
	case models.FieldInstructor:
		return strconv.FormatBool(m.Instructor)
	case models.FieldJoinedOn:
		return dateValue(m.JoinedOn)
	}
	return ""
}

func rowFieldValue(row models.RosterRow, field string) string {
	switch field {
	case models.FieldFullName:
		return row.FullName
	case models.FieldCommandLabel:
		return row.CommandLabel
	case models.FieldRegionLabel:
		return row.RegionLabel
	case models.FieldDivisionLabel:
		return row.DivisionLabel
	case models.FieldRankLabel:
		return row.RankLabel
	case models.FieldTraineeLabel:
		return row.TraineeLabel
	case models.FieldUniformed:
		return strconv.FormatBool(row.Uniformed)
	case models.FieldRadioEquipped:
		return strconv.FormatBool(row.RadioEquipped)
	case models.FieldFirstAider:
		return strconv.FormatBool(row.FirstAider)
	case models.FieldInstructor:
		return strconv.FormatBool(row.Instructor)
	case models.FieldJoinedOn:
		return dateValue(row.JoinedOn)
	}
	return ""
}

func dateValue(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
