package clone

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/rangelog/rangelog/internal/audit"
	"github.com/rangelog/rangelog/internal/blobstore"
	"github.com/rangelog/rangelog/internal/conf"
	"github.com/rangelog/rangelog/internal/datastore"
	"github.com/rangelog/rangelog/internal/errors"
	"github.com/rangelog/rangelog/internal/observability/metrics"
)

// state tracks the orchestrator's position in one clone run.
type state int

const (
	stateIdle state = iota
	statePlanning
	stateDeleting
	stateCopying
	stateCommitting
	stateCommitted
	stateRolledBack
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case statePlanning:
		return "planning"
	case stateDeleting:
		return "deleting"
	case stateCopying:
		return "copying"
	case stateCommitting:
		return "committing"
	case stateCommitted:
		return "committed"
	case stateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Result reports a committed clone run. Partial results are never
// returned, a failed run yields a typed error and nothing else.
type Result struct {
	CopiedCounts    EntityCounts
	DeletedCounts   EntityCounts
	BlobBytesCopied int64
	CompletedAt     time.Time
	Duration        time.Duration
}

// Engine executes account clone/replace operations. It is the only
// component that decides commit or rollback: the planner, copier and
// duplicator all act under its direction inside one relational
// transaction per run.
type Engine struct {
	ds      datastore.Interface
	store   blobstore.Store
	sink    audit.Sink
	metrics *metrics.CloneMetrics
	locks   *lockRegistry
	debug   bool
}

// New assembles a clone engine over the given stores. sink and
// cloneMetrics may be nil, in which case auditing or metrics are skipped.
func New(settings *conf.Settings, ds datastore.Interface, store blobstore.Store, sink audit.Sink, cloneMetrics *metrics.CloneMetrics) *Engine {
	debug := settings != nil && settings.Clone.Debug
	if debug {
		SetLogLevel(slog.LevelDebug)
	}
	return &Engine{
		ds:      ds,
		store:   store,
		sink:    sink,
		metrics: cloneMetrics,
		locks:   newLockRegistry(),
		debug:   debug,
	}
}

// resolveAccounts validates the account pair for both Preview and Execute.
func (e *Engine) resolveAccounts(sourceID, targetID uint) (source, target *datastore.Account, err error) {
	if sourceID == targetID {
		return nil, nil, NewError(ErrSameAccount,
			fmt.Sprintf("source and target account must differ, both are %d", sourceID), nil)
	}
	source, err = e.ds.GetAccount(sourceID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil, NewError(ErrAccountNotFound, fmt.Sprintf("source account %d not found", sourceID), err)
		}
		return nil, nil, NewError(ErrDatabase, "loading source account", err)
	}
	target, err = e.ds.GetAccount(targetID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil, NewError(ErrAccountNotFound, fmt.Sprintf("target account %d not found", targetID), err)
		}
		return nil, nil, NewError(ErrDatabase, "loading target account", err)
	}
	return source, target, nil
}

// Preview reports what Execute would delete from the target and copy from
// the source. Guaranteed side-effect-free: all reads run in a transaction
// that is always rolled back, and the object store is never touched.
func (e *Engine) Preview(ctx context.Context, sourceID, targetID uint) (*PreviewResult, error) {
	start := time.Now()
	result, err := e.preview(ctx, sourceID, targetID)
	if e.metrics != nil {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
		}
		e.metrics.RecordOperation(metrics.OpPreview, status)
		e.metrics.RecordOperationDuration(metrics.OpPreview, time.Since(start).Seconds())
	}
	return result, err
}

func (e *Engine) preview(ctx context.Context, sourceID, targetID uint) (*PreviewResult, error) {
	source, target, err := e.resolveAccounts(sourceID, targetID)
	if err != nil {
		return nil, err
	}

	tx, err := e.ds.Begin(ctx)
	if err != nil {
		return nil, NewError(ErrDatabase, "opening preview transaction", err)
	}
	defer tx.Rollback()

	plan, err := buildDeletionPlan(tx, target.ID)
	if err != nil {
		return nil, err
	}
	toCopy, err := countOwnedRows(tx, source.ID)
	if err != nil {
		return nil, err
	}

	return &PreviewResult{
		SourceAccountID: source.ID,
		SourceUsername:  source.Username,
		TargetAccountID: target.ID,
		TargetUsername:  target.Username,
		ToDelete:        plan.Counts,
		ToCopy:          toCopy,
	}, nil
}

// Execute replaces the target account's data with a deep copy of the
// source account's graph. It either commits everything and returns full
// statistics, or rolls back the relational transaction, deletes the blobs
// written during the run and returns a typed error. One audit event is
// emitted per call regardless of outcome.
func (e *Engine) Execute(ctx context.Context, sourceID, targetID uint, requester string) (*Result, error) {
	start := time.Now()

	event := &audit.Event{
		Action:          "account_clone",
		Requester:       requester,
		SourceAccountID: sourceID,
		TargetAccountID: targetID,
	}

	result, err := e.run(ctx, sourceID, targetID, event)
	duration := time.Since(start)

	status := metrics.StatusCommitted
	switch {
	case err == nil:
		event.Outcome = audit.OutcomeCommitted
		event.CopiedRows = result.CopiedCounts.StringMap()
		event.DeletedRows = result.DeletedCounts.StringMap()
		event.BlobBytesCopied = result.BlobBytesCopied
		result.CompletedAt = time.Now().UTC()
		result.Duration = duration
	case IsSameAccount(err), IsAccountNotFound(err), IsOperationInProgress(err):
		event.Outcome = audit.OutcomeRejected
		event.Error = err.Error()
		status = metrics.StatusRejected
	default:
		event.Outcome = audit.OutcomeRolledBack
		event.Error = err.Error()
		status = metrics.StatusRolledBack
	}
	event.DurationMS = duration.Milliseconds()

	if e.sink != nil {
		// the audit record must land even when the run died to a
		// canceled context
		if auditErr := e.sink.Record(context.WithoutCancel(ctx), event); auditErr != nil {
			getLogger().Error("failed to record audit event",
				"requester", requester, "outcome", event.Outcome, "error", auditErr)
		}
	}
	if e.metrics != nil {
		e.metrics.RecordOperation(metrics.OpExecute, status)
		e.metrics.RecordOperationDuration(metrics.OpExecute, duration.Seconds())
	}
	return result, err
}

// run drives the state machine for one Execute invocation:
// Idle → Planning → Deleting → Copying → Committing → Committed, with any
// mid-run failure diverting to RolledBack.
func (e *Engine) run(ctx context.Context, sourceID, targetID uint, event *audit.Event) (*Result, error) {
	source, target, err := e.resolveAccounts(sourceID, targetID)
	if err != nil {
		return nil, err
	}
	event.SourceUsername = source.Username
	event.TargetUsername = target.Username

	// both accounts stay locked for the whole run, so the target cannot
	// be cloned into twice concurrently and the source cannot be replaced
	// while serving as a copy origin
	if err := e.locks.acquire(target.ID, source.ID); err != nil {
		return nil, err
	}
	defer e.locks.release(target.ID, source.ID)

	log := getLogger().With(
		"source_account", source.Username,
		"target_account", target.Username,
	)
	log.Info("clone started")

	st := stateIdle
	advance := func(next state) {
		log.Debug("state transition", "from", st.String(), "to", next.String())
		st = next
	}

	advance(statePlanning)
	if err := ctx.Err(); err != nil {
		return nil, NewError(ErrCanceled, "canceled before planning", err)
	}
	planTx, err := e.ds.Begin(ctx)
	if err != nil {
		return nil, NewError(ErrDatabase, "opening planning transaction", err)
	}
	plan, err := buildDeletionPlan(planTx, target.ID)
	planTx.Rollback()
	if err != nil {
		return nil, err
	}

	advance(stateDeleting)
	if err := ctx.Err(); err != nil {
		return nil, NewError(ErrCanceled, "canceled before deleting", err)
	}
	tx, err := e.ds.Begin(ctx)
	if err != nil {
		return nil, NewError(ErrDatabase, "opening clone transaction", err)
	}

	dup := newBlobDuplicator(e.store, target.ID, e.metrics)

	// fail aborts the transaction and deletes every blob written this
	// run, then hands the causing error back unchanged
	fail := func(cause error) error {
		advance(stateRolledBack)
		if rbErr := tx.Rollback().Error; rbErr != nil &&
			!errors.Is(rbErr, sql.ErrTxDone) && !errors.Is(rbErr, gorm.ErrInvalidTransaction) {
			log.Error("rollback failed", "error", rbErr)
		}
		e.compensate(ctx, dup, log)
		log.Error("clone rolled back", "error", cause)
		return cause
	}

	deleted, err := executeDeletions(ctx, tx, target.ID)
	if err != nil {
		return nil, fail(err)
	}

	advance(stateCopying)
	remap := newRemapTable()
	cp := newCopier(tx, remap, source.ID, target.ID, dup)
	for _, kind := range copyOrder {
		if err := ctx.Err(); err != nil {
			return nil, fail(NewError(ErrCanceled, fmt.Sprintf("canceled before copying %s", kind), err))
		}
		if err := cp.copyKind(ctx, kind); err != nil {
			return nil, fail(err)
		}
	}

	advance(stateCommitting)
	if err := ctx.Err(); err != nil {
		return nil, fail(NewError(ErrCanceled, "canceled before commit", err))
	}
	if err := tx.Commit().Error; err != nil {
		// a failed commit already ended the transaction, only the blob
		// compensation remains
		advance(stateRolledBack)
		e.compensate(ctx, dup, log)
		return nil, NewError(ErrDatabase, "committing clone transaction", err)
	}

	advance(stateCommitted)
	e.cleanupOldBlobs(ctx, plan.BlobKeys, log)

	if e.metrics != nil {
		for kind, n := range cp.counts {
			e.metrics.RecordRowsCopied(string(kind), int(n))
		}
		for kind, n := range deleted {
			e.metrics.RecordRowsDeleted(string(kind), int(n))
		}
	}
	log.Info("clone committed",
		"rows_copied", cp.counts.Total(),
		"rows_deleted", deleted.Total(),
		"blobs_copied", len(dup.keys()),
		"blob_bytes_copied", dup.bytesCopied,
		"remapped_ids", remap.size(),
	)

	return &Result{
		CopiedCounts:    cp.counts,
		DeletedCounts:   deleted,
		BlobBytesCopied: dup.bytesCopied,
	}, nil
}

// compensate deletes the blobs duplicated during a failed run. Failures
// here are warnings: the relational rollback already happened and the
// outcome does not change, the keys just stay behind as orphans.
func (e *Engine) compensate(ctx context.Context, dup *blobDuplicator, log *slog.Logger) {
	keys := dup.keys()
	if len(keys) == 0 {
		return
	}
	// compensation must still run when the failure was a cancellation
	ctx = context.WithoutCancel(ctx)

	var failed int
	for _, key := range keys {
		if _, err := e.store.Delete(ctx, key); err != nil {
			failed++
			log.Warn("failed to delete blob written by rolled back run", "object_key", key, "error", err)
			if e.metrics != nil {
				e.metrics.RecordCompensationDelete(metrics.StatusError)
			}
			continue
		}
		if e.metrics != nil {
			e.metrics.RecordCompensationDelete(metrics.StatusSuccess)
		}
	}
	if failed > 0 {
		log.Warn("compensation left orphaned blobs in the object store",
			"failed", failed, "total", len(keys))
		return
	}
	log.Info("compensation removed all blobs written this run", "count", len(keys))
}

// cleanupOldBlobs removes the replaced target's original blobs after a
// successful commit. Best-effort: the relational state is already durable,
// a failure here only leaves unreferenced objects behind.
func (e *Engine) cleanupOldBlobs(ctx context.Context, keys []string, log *slog.Logger) {
	if len(keys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	var failed int
	for _, key := range keys {
		if _, err := e.store.Delete(ctx, key); err != nil {
			failed++
			log.Warn("failed to delete replaced blob", "object_key", key, "error", err)
		}
	}
	if failed > 0 {
		log.Warn("replaced blobs left behind after commit", "failed", failed, "total", len(keys))
	}
}
