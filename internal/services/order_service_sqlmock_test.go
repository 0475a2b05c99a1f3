package services_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"lessonshop/internal/models"
	"lessonshop/internal/repositories"
	"lessonshop/internal/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockedPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func newPostgresOrderService(db *gorm.DB) *services.OrderService {
	return services.NewOrderService(
		repositories.NewGORMStore(db),
		repositories.NewGORMOrderRepository(db),
		services.OrderServiceOptions{},
	)
}

func TestOrderService_Postgres_BeginFails(t *testing.T) {
	db, mock := newMockedPostgres(t)
	svc := newPostgresOrderService(db)

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := svc.SubmitOrder(context.Background(), "Ada", "0770", []models.CartItem{{ID: uuid.NewString()}})
	assert.ErrorIs(t, err, services.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderService_Postgres_OutOfStockRollsBack(t *testing.T) {
	db, mock := newMockedPostgres(t)
	svc := newPostgresOrderService(db)
	first, second := uuid.NewString(), uuid.NewString()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "lessons" SET "spaces"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "lessons" SET "spaces"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.SubmitOrder(context.Background(), "Ada", "0770", []models.CartItem{
		{ID: first, Subject: "Math"},
		{ID: second, Subject: "Art"},
	})
	require.ErrorIs(t, err, services.ErrOutOfStock)
	var oos *services.OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, second, oos.LessonID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderService_Postgres_UpdateFails(t *testing.T) {
	db, mock := newMockedPostgres(t)
	svc := newPostgresOrderService(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "lessons" SET "spaces"`)).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	_, err := svc.SubmitOrder(context.Background(), "Ada", "0770", []models.CartItem{{ID: uuid.NewString()}})
	assert.ErrorIs(t, err, services.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
