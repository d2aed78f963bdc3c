// Package history archives reports of completed topology runs in a
// relational store. It records what a run produced after the fact; it
// is not registry persistence and restores nothing on startup.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store errors.
var (
	// ErrRunNotFound indicates no archived run has the requested id.
	ErrRunNotFound = errors.New("history: run not found")
)

// RunRecord is one archived topology run.
type RunRecord struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Topology  string    `gorm:"size:32;index" json:"topology"`
	Task      string    `gorm:"type:text" json:"task"`
	Outcome   string    `gorm:"size:32;index" json:"outcome"`
	Report    string    `gorm:"type:text" json:"report"`
	TraceJSON string    `gorm:"type:text" json:"trace_json,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName keeps the table name stable regardless of gorm naming
// strategy, matching the embedded migrations.
func (RunRecord) TableName() string { return "run_records" }

// Store persists run records through gorm.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a Store over db. The schema is expected to exist
// (see internal/migration).
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "history")),
	}
}

// Archive stores the report of one finished run. Trace may be any
// JSON-serializable trace structure; nil skips it. Returns the stored
// record with its generated id.
func (s *Store) Archive(ctx context.Context, topology, task, outcome, report string, trace any) (*RunRecord, error) {
	rec := &RunRecord{
		ID:       uuid.New().String(),
		Topology: topology,
		Task:     task,
		Outcome:  outcome,
		Report:   report,
	}
	if trace != nil {
		data, err := json.Marshal(trace)
		if err != nil {
			return nil, fmt.Errorf("history: encoding trace: %w", err)
		}
		rec.TraceJSON = string(data)
	}

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("history: archiving run: %w", err)
	}

	s.logger.Info("run archived",
		zap.String("id", rec.ID),
		zap.String("topology", topology),
		zap.String("outcome", outcome),
	)
	return rec, nil
}

// Get returns one archived run by id.
func (s *Store) Get(ctx context.Context, id string) (*RunRecord, error) {
	var rec RunRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("history: loading run: %w", err)
	}
	return &rec, nil
}

// Recent returns up to limit runs, newest first, optionally filtered
// by topology (empty matches all).
func (s *Store) Recent(ctx context.Context, topology string, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	q := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if topology != "" {
		q = q.Where("topology = ?", topology)
	}

	var recs []*RunRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("history: listing runs: %w", err)
	}
	return recs, nil
}

// Purge deletes archived runs older than cutoff and reports how many
// went.
func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&RunRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("history: purging runs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Count returns the number of archived runs.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&RunRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("history: counting runs: %w", err)
	}
	return n, nil
}
