package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-batch/internal/domain"
	"github.com/phrazzld/scry-batch/internal/store"
)

// insertColumns is the column list for review_imports inserts.
const insertColumns = "id, user_id, card_id, outcome, reviewed_at"

// ReviewStore persists imported review results. It works against either a
// database connection or a transaction via the store.DBTX abstraction.
type ReviewStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewReviewStore creates a ReviewStore backed by the given connection or
// transaction.
func NewReviewStore(db store.DBTX, logger *slog.Logger) *ReviewStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewStore{
		db:     db,
		logger: logger.With("component", "review_store"),
	}
}

// WithTx returns a ReviewStore bound to the provided transaction, allowing
// multiple operations to execute within one transaction managed by the
// caller.
func (s *ReviewStore) WithTx(tx *sql.Tx) *ReviewStore {
	return &ReviewStore{db: tx, logger: s.logger}
}

// InsertReviews inserts one batch of reviews with a single multi-row INSERT
// and returns the inserted IDs aligned 1:1 with the input. Errors are
// mapped to store sentinels via MapError.
func (s *ReviewStore) InsertReviews(
	ctx context.Context,
	reviews []domain.Review,
) ([]uuid.UUID, error) {
	if len(reviews) == 0 {
		return nil, nil
	}

	var (
		placeholders strings.Builder
		args         = make([]any, 0, len(reviews)*5)
	)
	for i, review := range reviews {
		if i > 0 {
			placeholders.WriteString(", ")
		}
		base := i * 5
		fmt.Fprintf(&placeholders, "($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5)
		args = append(args,
			review.ID,
			review.UserID,
			review.CardID,
			string(review.Outcome),
			review.ReviewedAt,
		)
	}

	query := fmt.Sprintf(
		"INSERT INTO review_imports (%s) VALUES %s",
		insertColumns,
		placeholders.String(),
	)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, MapError(err)
	}

	ids := make([]uuid.UUID, len(reviews))
	for i, review := range reviews {
		ids[i] = review.ID
	}

	s.logger.Debug("inserted review batch", "count", len(reviews))
	return ids, nil
}

// CountReviews returns the number of persisted review imports. Used by the
// ops surface and tests to sanity-check import runs.
func (s *ReviewStore) CountReviews(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM review_imports").Scan(&count)
	if err != nil {
		return 0, MapError(err)
	}
	return count, nil
}
