package repositories

import (
	"context"
	"fmt"

	"lessonshop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMStore runs order placement inside a database transaction.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore creates a new GORMStore.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

// WithinTransaction implements Store. gorm commits when fn returns nil and
// rolls back on error or panic.
func (s *GORMStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &gormTx{db: db})
	})
}

type gormTx struct {
	db *gorm.DB
}

// DecrementSpaces is a single guarded UPDATE, so the check and the write
// cannot be separated by a concurrent order.
func (t *gormTx) DecrementSpaces(ctx context.Context, lessonID string, amount int) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("decrement amount must be positive, got %d", amount)
	}
	res := t.db.WithContext(ctx).Model(&models.Lesson{}).
		Where("id = ? AND spaces >= ?", lessonID, amount).
		UpdateColumn("spaces", gorm.Expr("spaces - ?", amount))
	if res.Error != nil {
		return 0, fmt.Errorf("failed to decrement spaces for lesson %s: %w", lessonID, res.Error)
	}
	return res.RowsAffected, nil
}

func (t *gormTx) InsertOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Details {
		order.Details[i].OrderID = order.ID
		order.Details[i].Position = i
	}
	if err := t.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}
