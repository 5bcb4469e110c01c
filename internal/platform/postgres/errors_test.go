package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/scry-batch/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil passes through", nil, nil},
		{"no rows maps to not found", sql.ErrNoRows, store.ErrNotFound},
		{"unique violation maps to duplicate", &pgconn.PgError{Code: "23505"}, store.ErrDuplicate},
		{
			"foreign key violation maps to invalid entity",
			&pgconn.PgError{Code: "23503", ConstraintName: "fk_card"},
			store.ErrInvalidEntity,
		},
		{
			"not null violation maps to invalid entity",
			&pgconn.PgError{Code: "23502", ColumnName: "user_id"},
			store.ErrInvalidEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestMapErrorPreservesUnknownErrors(t *testing.T) {
	unknown := errors.New("connection refused")
	assert.Same(t, unknown, MapError(unknown))
}

func TestIsDeadlock(t *testing.T) {
	assert.True(t, IsDeadlock(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsDeadlock(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsDeadlock(fmt.Errorf("insert failed: %w", &pgconn.PgError{Code: "40P01"})),
		"classification must see through wrapping")

	assert.False(t, IsDeadlock(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsDeadlock(errors.New("deadlock detected")), "message text is not enough")
	assert.False(t, IsDeadlock(nil))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "40P01"}))
}
