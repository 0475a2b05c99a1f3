package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lessonshop/internal/metrics"
	"lessonshop/internal/models"
	"lessonshop/internal/repositories"
	"lessonshop/pkg/rabbitmq"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTxTimeout bounds an order placement transaction when none is configured.
const DefaultTxTimeout = 5 * time.Second

// OrderEventPublisher announces committed orders.
type OrderEventPublisher interface {
	PublishOrderPlaced(event rabbitmq.OrderPlacedEvent) error
}

// OrderRequest is a cart checkout as submitted by a client.
type OrderRequest struct {
	Name  string            `json:"name" validate:"required"`
	Phone string            `json:"phone" validate:"required"`
	Cart  []models.CartItem `json:"cart" validate:"required,min=1,dive"`
}

// OrderServiceOptions holds the optional collaborators of an OrderService.
type OrderServiceOptions struct {
	Publisher OrderEventPublisher // nil disables events
	Metrics   *metrics.OrderMetrics
	Logger    *logrus.Entry
	TxTimeout time.Duration
}

// OrderService handles checkout and order lookups.
type OrderService struct {
	store     repositories.Store
	orderRepo repositories.OrderRepository
	publisher OrderEventPublisher
	metrics   *metrics.OrderMetrics
	validate  *validator.Validate
	log       *logrus.Entry
	txTimeout time.Duration
	now       func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(store repositories.Store, orderRepo repositories.OrderRepository, opts OrderServiceOptions) *OrderService {
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = DefaultTxTimeout
	}
	return &OrderService{
		store:     store,
		orderRepo: orderRepo,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		validate:  newValidator(),
		log:       opts.Logger.WithField("component", "order_service"),
		txTimeout: opts.TxTimeout,
		now:       time.Now,
	}
}

// SubmitOrder records an order for the cart and reserves one seat per cart
// entry, all in one transaction. Either every seat is reserved and the order
// stored, or nothing changes.
func (s *OrderService) SubmitOrder(ctx context.Context, name, phone string, cart []models.CartItem) (string, error) {
	var items []models.CartItem
	if cart != nil {
		items = make([]models.CartItem, len(cart))
		for i, item := range cart {
			items[i] = models.CartItem{ID: normalizeID(item.ID), Subject: item.Subject}
		}
	}
	req := OrderRequest{Name: strings.TrimSpace(name), Phone: strings.TrimSpace(phone), Cart: items}
	if err := s.validate.Struct(req); err != nil {
		s.metrics.RecordRejected(metrics.ReasonInvalidInput)
		return "", validationError(err)
	}

	order := newOrder(req, s.now().UTC())

	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	started := time.Now()
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, tx repositories.Tx) error {
		for _, item := range req.Cart {
			matched, err := tx.DecrementSpaces(ctx, item.ID, 1)
			if err != nil {
				return err
			}
			if matched == 0 {
				return &OutOfStockError{LessonID: item.ID, Subject: item.Subject}
			}
		}
		return tx.InsertOrder(ctx, order)
	})
	s.metrics.RecordTxDuration(time.Since(started))

	log := s.log.WithFields(logrus.Fields{"order_id": order.ID, "items": len(req.Cart)})
	if err != nil {
		var oos *OutOfStockError
		if errors.As(err, &oos) {
			s.metrics.RecordRejected(metrics.ReasonOutOfStock)
			log.WithField("lesson_id", oos.LessonID).Info("order rejected: out of stock")
			return "", oos
		}
		s.metrics.RecordRejected(metrics.ReasonStoreUnavailable)
		log.WithError(err).Error("order transaction aborted")
		return "", unavailable(err)
	}

	s.metrics.RecordPlaced(order.TotalSpaces)
	log.Info("order placed")
	s.publishPlaced(order)
	return order.ID, nil
}

func newOrder(req OrderRequest, at time.Time) *models.Order {
	order := &models.Order{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Phone:       req.Phone,
		OrderedAt:   at,
		Details:     make([]models.OrderDetail, 0, len(req.Cart)),
		TotalSpaces: len(req.Cart),
	}
	for _, item := range req.Cart {
		order.Details = append(order.Details, models.OrderDetail{
			LessonID: item.ID,
			Subject:  item.Subject,
			Quantity: 1,
		})
	}
	return order
}

// publishPlaced is best-effort: the order is already committed.
func (s *OrderService) publishPlaced(order *models.Order) {
	if s.publisher == nil {
		return
	}
	lessonIDs := make([]string, 0, len(order.Details))
	for _, d := range order.Details {
		lessonIDs = append(lessonIDs, d.LessonID)
	}
	err := s.publisher.PublishOrderPlaced(rabbitmq.OrderPlacedEvent{
		OrderID:     order.ID,
		LessonIDs:   lessonIDs,
		TotalSpaces: order.TotalSpaces,
		PlacedAt:    order.OrderedAt,
	})
	if err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).Warn("failed to publish order event")
	}
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orderRepo.GetAll(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return orders, nil
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	id = normalizeID(id)
	if err := s.validate.Var(id, "required,uuid"); err != nil {
		return nil, invalidField("id", "must be a valid order id")
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return nil, unavailable(err)
	}
	return order, nil
}
