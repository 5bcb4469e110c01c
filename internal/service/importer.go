// Package service contains the use-cases built on top of the batch engine.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-batch/internal/batch"
	"github.com/phrazzld/scry-batch/internal/domain"
	"github.com/phrazzld/scry-batch/internal/events"
	"github.com/phrazzld/scry-batch/internal/platform/logger"
	"github.com/phrazzld/scry-batch/internal/platform/postgres"
	"github.com/phrazzld/scry-batch/internal/redact"
)

// ImportSettings tunes one import pipeline instance.
type ImportSettings struct {
	// PreserveOrder keeps inserted IDs in input order in the summary.
	PreserveOrder bool

	// DeadlockRetry grants the engine's one extra attempt when postgres
	// reports a deadlock or serialization failure.
	DeadlockRetry bool
}

// ImportSummary is the caller-facing outcome of one import run.
type ImportSummary struct {
	// JobID identifies this run in logs and events.
	JobID uuid.UUID

	// Result is the engine's aggregated outcome for the valid reviews.
	Result *batch.Result[domain.Review, uuid.UUID]

	// Skipped holds reviews that failed domain validation and never
	// entered the batching pipeline.
	Skipped []domain.Review
}

// batchCompletedPayload is the payload of EventBatchCompleted events.
type batchCompletedPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// importFinishedPayload is the payload of EventImportFinished events.
type importFinishedPayload struct {
	JobID          uuid.UUID `json:"job_id"`
	TotalProcessed int       `json:"total_processed"`
	TotalFailed    int       `json:"total_failed"`
	TotalSkipped   int       `json:"total_skipped"`
	Throughput     float64   `json:"throughput"`
	Halted         bool      `json:"halted"`
}

// ReviewImportService imports historical review results through the batch
// engine: each batch is inserted in its own transaction, deadlocks get one
// extra attempt, and lifecycle events are emitted as batches commit.
type ReviewImportService struct {
	repo     ReviewRepository
	engine   *batch.Engine[domain.Review, uuid.UUID]
	emitter  events.EventEmitter
	settings ImportSettings
	logger   *slog.Logger
}

// NewReviewImportService wires an import service. The emitter may be nil,
// in which case no events are published.
func NewReviewImportService(
	repo ReviewRepository,
	engine *batch.Engine[domain.Review, uuid.UUID],
	emitter events.EventEmitter,
	settings ImportSettings,
	log *slog.Logger,
) *ReviewImportService {
	if log == nil {
		log = slog.Default()
	}
	return &ReviewImportService{
		repo:     repo,
		engine:   engine,
		emitter:  emitter,
		settings: settings,
		logger:   log.With("component", "review_import_service"),
	}
}

// Import runs the given reviews through the engine. Reviews failing domain
// validation are skipped verbatim; everything else is batched, inserted
// transactionally, and accounted for in the summary. Partial success is a
// normal outcome: the error return is reserved for malformed calls.
func (s *ReviewImportService) Import(
	ctx context.Context,
	reviews []domain.Review,
) (*ImportSummary, error) {
	jobID := uuid.New()
	log := s.logger.With("job_id", jobID.String())
	ctx = logger.WithLogger(ctx, log)

	var valid, skipped []domain.Review
	for _, review := range reviews {
		if err := review.Validate(); err != nil {
			log.Warn("skipping invalid review",
				"review_id", review.ID,
				"error", err)
			skipped = append(skipped, review)
			continue
		}
		valid = append(valid, review)
	}

	log.Info("starting review import",
		"total", len(reviews),
		"valid", len(valid),
		"skipped", len(skipped))

	opts := batch.DefaultOptions()
	opts.PreserveOrder = s.settings.PreserveOrder
	opts.Progress = func(processed, total int) {
		log.Debug("import progress", "processed", processed, "total", total)
	}

	dbOpts := batch.DatabaseOptions{
		DeadlockRetry:  s.settings.DeadlockRetry,
		IsDeadlock:     postgres.IsDeadlock,
		IsolationLevel: sql.LevelReadCommitted,
		TxCallback: func(ctx context.Context) error {
			// Event delivery is best-effort; a broken handler must not
			// convert a committed batch into a failure.
			s.emit(ctx, events.EventBatchCompleted, batchCompletedPayload{JobID: jobID})
			return nil
		},
	}

	insert := func(ctx context.Context, chunk []domain.Review) ([]uuid.UUID, error) {
		return s.repo.InsertReviews(ctx, chunk)
	}

	result, err := s.engine.ProcessDatabase(ctx, valid, insert, opts, dbOpts)
	if err != nil {
		return nil, fmt.Errorf("import job %s: %w", jobID, err)
	}

	for _, failure := range result.Failed {
		log.Warn("review failed to import",
			"review_id", failure.Item.ID,
			"attempts", failure.Attempts,
			"error", redact.Error(failure.Err))
	}

	s.emit(ctx, events.EventImportFinished, importFinishedPayload{
		JobID:          jobID,
		TotalProcessed: result.TotalProcessed,
		TotalFailed:    result.TotalFailed,
		TotalSkipped:   len(skipped),
		Throughput:     result.Throughput,
		Halted:         result.Halted,
	})

	log.Info("review import finished",
		"processed", result.TotalProcessed,
		"failed", result.TotalFailed,
		"skipped", len(skipped),
		"duration", result.Duration,
		"throughput", result.Throughput)

	return &ImportSummary{JobID: jobID, Result: result, Skipped: skipped}, nil
}

// emit publishes an event if an emitter is configured, logging failures
// instead of propagating them.
func (s *ReviewImportService) emit(ctx context.Context, eventType string, payload any) {
	if s.emitter == nil {
		return
	}

	event, err := events.NewBatchEvent(eventType, payload)
	if err != nil {
		s.logger.Error("failed to build event", "event_type", eventType, "error", err)
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit event",
			"event_type", eventType,
			"event_id", event.ID,
			"error", err)
	}
}
