package repositories

import (
	"context"
	"errors"

	"lessonshop/internal/models"
)

// ErrRecordNotFound is returned by point lookups when nothing matches.
var ErrRecordNotFound = errors.New("record not found")

// Tx is the set of operations available inside a transaction scope.
type Tx interface {
	// DecrementSpaces reduces a lesson's spaces by amount only if it currently
	// has at least amount left. It returns the number of lessons modified (0 or 1).
	DecrementSpaces(ctx context.Context, lessonID string, amount int) (int64, error)
	// InsertOrder persists the order and its details. An empty ID is assigned.
	InsertOrder(ctx context.Context, order *models.Order) error
}

// Store runs a function inside a single transaction. The transaction commits
// when fn returns nil and is rolled back otherwise; either way it is released
// before WithinTransaction returns. The error from fn is returned unchanged.
type Store interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
