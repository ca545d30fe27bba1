package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/drakeRAGE/movie-recommendation-app/internal/model"
)

// ErrNotFound is returned when a record doesn't exist in the database.
// Go uses sentinel errors (predefined error values) instead of exception types.
// Callers check with errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("record not found")

// CallRepository persists the audit trail of recommendation requests.
// Go interfaces are implicit: the handler tests satisfy it with an in-memory fake.
type CallRepository interface {
	Create(ctx context.Context, call *model.CompletionCall) error
	GetByRequestID(ctx context.Context, requestID string) (*model.CompletionCall, error)
	Count(ctx context.Context) (int64, error)
	CountByOutcome(ctx context.Context) (map[model.Outcome]int64, error)
	ListRecent(ctx context.Context, limit int) ([]model.CompletionCall, error)
}

// sqliteCallRepository is the SQLite implementation of CallRepository.
type sqliteCallRepository struct {
	db *sqlx.DB
}

// NewCallRepository creates a new SQLite-backed CallRepository.
func NewCallRepository(db *sqlx.DB) CallRepository {
	return &sqliteCallRepository{db: db}
}

func (r *sqliteCallRepository) Create(ctx context.Context, call *model.CompletionCall) error {
	// NamedExecContext uses the struct's `db:` tags to map fields to :named placeholders.
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO completion_calls (request_id, provider, model, outcome, movie_count, attempts, duration_ms)
		VALUES (:request_id, :provider, :model, :outcome, :movie_count, :attempts, :duration_ms)
	`, call)
	if err != nil {
		return fmt.Errorf("creating completion call record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	call.ID = id
	return nil
}

func (r *sqliteCallRepository) GetByRequestID(ctx context.Context, requestID string) (*model.CompletionCall, error) {
	var call model.CompletionCall
	err := r.db.GetContext(ctx, &call, "SELECT * FROM completion_calls WHERE request_id = ?", requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting completion call %s: %w", requestID, err)
	}
	return &call, nil
}

func (r *sqliteCallRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM completion_calls"); err != nil {
		return 0, fmt.Errorf("counting completion calls: %w", err)
	}
	return count, nil
}

// CountByOutcome returns one entry per outcome that has at least one record.
func (r *sqliteCallRepository) CountByOutcome(ctx context.Context) (map[model.Outcome]int64, error) {
	var rows []struct {
		Outcome model.Outcome `db:"outcome"`
		Count   int64         `db:"count"`
	}
	err := r.db.SelectContext(ctx, &rows,
		"SELECT outcome, COUNT(*) AS count FROM completion_calls GROUP BY outcome")
	if err != nil {
		return nil, fmt.Errorf("counting completion calls by outcome: %w", err)
	}

	counts := make(map[model.Outcome]int64, len(rows))
	for _, row := range rows {
		counts[row.Outcome] = row.Count
	}
	return counts, nil
}

func (r *sqliteCallRepository) ListRecent(ctx context.Context, limit int) ([]model.CompletionCall, error) {
	var calls []model.CompletionCall
	err := r.db.SelectContext(ctx, &calls,
		"SELECT * FROM completion_calls ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent completion calls: %w", err)
	}
	return calls, nil
}
