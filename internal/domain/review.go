// Package domain contains the core entities of the import pipeline.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Validation errors for review entities.
var (
	ErrReviewUserIDEmpty   = errors.New("review user ID cannot be empty")
	ErrReviewCardIDEmpty   = errors.New("review card ID cannot be empty")
	ErrReviewOutcomeBad    = errors.New("review outcome must be one of: again, hard, good, easy")
	ErrReviewTimestampZero = errors.New("review timestamp cannot be zero")
)

// ReviewOutcome is the result of one spaced-repetition review.
type ReviewOutcome string

// Valid review outcomes.
const (
	OutcomeAgain ReviewOutcome = "again"
	OutcomeHard  ReviewOutcome = "hard"
	OutcomeGood  ReviewOutcome = "good"
	OutcomeEasy  ReviewOutcome = "easy"
)

// Review is one historical review result being imported. The import
// pipeline treats reviews as opaque batch items; only the store layer
// interprets the fields.
type Review struct {
	ID         uuid.UUID     `json:"id"`
	UserID     uuid.UUID     `json:"user_id"`
	CardID     uuid.UUID     `json:"card_id"`
	Outcome    ReviewOutcome `json:"outcome"`
	ReviewedAt time.Time     `json:"reviewed_at"`
}

// NewReview creates a Review with a fresh ID.
func NewReview(userID, cardID uuid.UUID, outcome ReviewOutcome, reviewedAt time.Time) Review {
	return Review{
		ID:         uuid.New(),
		UserID:     userID,
		CardID:     cardID,
		Outcome:    outcome,
		ReviewedAt: reviewedAt,
	}
}

// Validate checks that the review is well-formed enough to persist.
func (r Review) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrReviewUserIDEmpty
	}
	if r.CardID == uuid.Nil {
		return ErrReviewCardIDEmpty
	}
	switch r.Outcome {
	case OutcomeAgain, OutcomeHard, OutcomeGood, OutcomeEasy:
	default:
		return ErrReviewOutcomeBad
	}
	if r.ReviewedAt.IsZero() {
		return ErrReviewTimestampZero
	}
	return nil
}
