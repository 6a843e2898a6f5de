// Package audit records coach outcomes for later review and keeps the
// best-effort gate counters. Persistence is optional: with no database
// configured only the in-memory counters are kept.
package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casecoach/backend/models"
)

// CoachRecord is one audited coach request outcome.
type CoachRecord struct {
	ID            uuid.UUID
	Query         string
	CaseIDs       []int
	Refused       bool
	RefusalReason string
	CitationCount int
	LatencyMs     int
	CreatedAt     time.Time
}

// Service writes audit records and updates counters. A nil db disables
// persistence; recording failures are logged and never fail the request.
type Service struct {
	db      *sql.DB
	metrics *Metrics
	logger  *zap.Logger
}

// NewService creates an audit service. db may be nil.
func NewService(db *sql.DB, metrics *Metrics, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		metrics: metrics,
		logger:  logger,
	}
}

// Metrics exposes the counter set.
func (s *Service) Metrics() *Metrics {
	return s.metrics
}

// RecordSearch counts a search request.
func (s *Service) RecordSearch() {
	s.metrics.RecordSearch()
}

// RecordCoach counts a coach outcome and, when a database is configured,
// persists the record best-effort.
func (s *Service) RecordCoach(ctx context.Context, rec CoachRecord) {
	s.metrics.RecordCoach(rec.Refused)
	if rec.RefusalReason == models.RefusalCrisis {
		s.metrics.RecordCrisis()
	}

	if s.db == nil {
		return
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO coach_audit_log (id, query, refused, refusal_reason, citation_count, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := s.db.ExecContext(ctx, query,
		rec.ID, RedactQuery(rec.Query), rec.Refused, nullString(rec.RefusalReason),
		rec.CitationCount, rec.LatencyMs, rec.CreatedAt,
	); err != nil {
		s.logger.Error("failed to persist coach audit record",
			zap.String("id", rec.ID.String()),
			zap.Error(err))
	}
}

// InitSchema creates the audit table when persistence is configured.
func (s *Service) InitSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	const ddl = `
		CREATE TABLE IF NOT EXISTS coach_audit_log (
			id UUID PRIMARY KEY,
			query TEXT NOT NULL,
			refused BOOLEAN NOT NULL,
			refusal_reason TEXT,
			citation_count INT NOT NULL DEFAULT 0,
			latency_ms INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL
		)`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
