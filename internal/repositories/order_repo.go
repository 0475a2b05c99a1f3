package repositories

import (
	"context"

	"lessonshop/internal/models"
)

// OrderRepository defines the read side of order data access.
// Orders are only ever written through a Tx.
type OrderRepository interface {
	GetAll(ctx context.Context) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
}
