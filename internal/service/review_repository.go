package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-batch/internal/batch"
	"github.com/phrazzld/scry-batch/internal/domain"
	"github.com/phrazzld/scry-batch/internal/platform/postgres"
	"github.com/phrazzld/scry-batch/internal/store"
)

// ReviewRepository is what the import service needs from persistence. The
// batch engine never sees this interface; it only sees a processing
// function closed over it.
type ReviewRepository interface {
	// InsertReviews persists one batch of reviews and returns their IDs
	// aligned 1:1 with the input.
	InsertReviews(ctx context.Context, reviews []domain.Review) ([]uuid.UUID, error)
}

// TxReviewRepository runs each batch insert inside its own transaction.
// It honors the isolation level the engine forwards opaquely through the
// context: interpretation of that value belongs here, at the storage
// boundary, not in the engine.
type TxReviewRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTxReviewRepository creates a transaction-per-batch repository over db.
func NewTxReviewRepository(db *sql.DB, logger *slog.Logger) *TxReviewRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &TxReviewRepository{db: db, logger: logger}
}

// InsertReviews implements ReviewRepository.
func (r *TxReviewRepository) InsertReviews(
	ctx context.Context,
	reviews []domain.Review,
) ([]uuid.UUID, error) {
	var txOpts *sql.TxOptions
	if forwarded, ok := batch.IsolationLevelFromContext(ctx); ok {
		if level, ok := forwarded.(sql.IsolationLevel); ok {
			txOpts = &sql.TxOptions{Isolation: level}
		}
	}

	var ids []uuid.UUID
	err := store.RunInTransaction(ctx, r.db, txOpts, func(ctx context.Context, tx *sql.Tx) error {
		var insertErr error
		ids, insertErr = postgres.NewReviewStore(tx, r.logger).InsertReviews(ctx, reviews)
		return insertErr
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}
