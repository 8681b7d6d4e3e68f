// Package audit records administrative actions to a durable log. Every
// account clone execution produces exactly one event, whether it commits,
// rolls back or is rejected before any work starts.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rangelog/rangelog/internal/errors"
	"github.com/rangelog/rangelog/internal/logging"
)

// Clone outcome values recorded in audit events.
const (
	OutcomeCommitted  = "committed"
	OutcomeRolledBack = "rolled_back"
	OutcomeRejected   = "rejected"
)

// Event is one recorded administrative action.
type Event struct {
	ID              string           `json:"id"`
	Timestamp       time.Time        `json:"timestamp"`
	Action          string           `json:"action"`
	Requester       string           `json:"requester"`
	SourceAccountID uint             `json:"source_account_id"`
	SourceUsername  string           `json:"source_username"`
	TargetAccountID uint             `json:"target_account_id"`
	TargetUsername  string           `json:"target_username"`
	Outcome         string           `json:"outcome"`
	Error           string           `json:"error,omitempty"`
	CopiedRows      map[string]int64 `json:"copied_rows,omitempty"`
	DeletedRows     map[string]int64 `json:"deleted_rows,omitempty"`
	BlobBytesCopied int64            `json:"blob_bytes_copied,omitempty"`
	DurationMS      int64            `json:"duration_ms"`
}

// Sink receives audit events. Implementations must be safe for concurrent
// use and should persist the event before returning.
type Sink interface {
	Record(ctx context.Context, event *Event) error
}

// stamp fills the generated fields so callers only describe the action.
func stamp(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
}

// FileSink appends events to a JSON log file with the shared rotation
// settings. The default sink in production.
type FileSink struct {
	log     *slog.Logger
	closeFn func() error
}

// NewFileSink opens or creates the audit log at path.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, errors.Newf("audit log path is required").
			Component("audit").
			Category(errors.CategoryConfiguration).
			Build()
	}
	log, closeFn, err := logging.NewFileLogger(path, "audit", slog.LevelInfo)
	if err != nil {
		return nil, errors.New(err).
			Component("audit").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return &FileSink{log: log, closeFn: closeFn}, nil
}

// Record writes the event as one structured log record.
func (s *FileSink) Record(ctx context.Context, event *Event) error {
	stamp(event)
	s.log.LogAttrs(ctx, slog.LevelInfo, "audit event",
		slog.String("event_id", event.ID),
		slog.Time("event_time", event.Timestamp),
		slog.String("action", event.Action),
		slog.String("requester", event.Requester),
		slog.Uint64("source_account_id", uint64(event.SourceAccountID)),
		slog.String("source_username", event.SourceUsername),
		slog.Uint64("target_account_id", uint64(event.TargetAccountID)),
		slog.String("target_username", event.TargetUsername),
		slog.String("outcome", event.Outcome),
		slog.String("error", event.Error),
		slog.Any("copied_rows", event.CopiedRows),
		slog.Any("deleted_rows", event.DeletedRows),
		slog.Int64("blob_bytes_copied", event.BlobBytesCopied),
		slog.Int64("duration_ms", event.DurationMS),
	)
	return nil
}

// Close releases the underlying log file.
func (s *FileSink) Close() error {
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}

// MemorySink accumulates events in memory for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink returns an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record stores a copy of the event.
func (s *MemorySink) Record(_ context.Context, event *Event) error {
	stamp(event)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

// Events returns the recorded events in order.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Len reports how many events have been recorded.
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
