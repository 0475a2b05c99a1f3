package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"lessonshop/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of LessonRepository,
// OrderRepository and Store. Transactions hold the write lock for their whole
// duration and stage their changes until commit.
type MemoryStore struct {
	mu      sync.RWMutex
	lessons map[string]models.Lesson
	order   []string // lesson IDs in insertion order
	orders  map[string]models.Order
}

// NewMemoryStore creates a new, empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lessons: make(map[string]models.Lesson),
		orders:  make(map[string]models.Order),
	}
}

// GetAll returns all lessons in insertion order.
func (s *MemoryStore) GetAll(ctx context.Context) ([]models.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot(), nil
}

func (s *MemoryStore) snapshot() []models.Lesson {
	lessons := make([]models.Lesson, 0, len(s.order))
	for _, id := range s.order {
		lessons = append(lessons, s.lessons[id])
	}
	return lessons
}

// GetByID returns a lesson by its ID.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*models.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lesson, ok := s.lessons[id]
	if !ok {
		return nil, fmt.Errorf("lesson with ID %s: %w", id, ErrRecordNotFound)
	}
	return &lesson, nil
}

// Search filters and sorts lessons with the same semantics as the GORM repository.
func (s *MemoryStore) Search(ctx context.Context, query LessonQuery) ([]models.Lesson, error) {
	sortBy := query.SortBy
	if sortBy == "" {
		sortBy = SortBySubject
	}
	if !sortBy.Valid() {
		return nil, fmt.Errorf("unknown sort field %q", sortBy)
	}

	s.mu.RLock()
	all := s.snapshot()
	s.mu.RUnlock()

	text := models.FoldKey(strings.TrimSpace(query.Text))
	n, numeric := numericQuery(text)
	lessons := make([]models.Lesson, 0, len(all))
	for _, l := range all {
		if text == "" ||
			strings.Contains(l.SubjectKey, text) ||
			strings.Contains(l.LocationKey, text) ||
			(numeric && (l.Price == n || float64(l.Spaces) == n)) {
			lessons = append(lessons, l)
		}
	}

	sort.SliceStable(lessons, func(i, j int) bool {
		if query.Descending {
			return lessLesson(lessons[j], lessons[i], sortBy)
		}
		return lessLesson(lessons[i], lessons[j], sortBy)
	})
	return lessons, nil
}

func lessLesson(a, b models.Lesson, by SortField) bool {
	switch by {
	case SortByLocation:
		return a.LocationKey < b.LocationKey
	case SortByPrice:
		return a.Price < b.Price
	case SortBySpaces:
		return a.Spaces < b.Spaces
	default:
		return a.SubjectKey < b.SubjectKey
	}
}

// Create adds a new lesson.
func (s *MemoryStore) Create(ctx context.Context, lesson *models.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lesson.ID == "" {
		lesson.ID = uuid.New().String()
	}
	if _, exists := s.lessons[lesson.ID]; exists {
		return fmt.Errorf("failed to create lesson: duplicate ID %s", lesson.ID)
	}
	now := time.Now()
	lesson.CreatedAt, lesson.UpdatedAt = now, now
	lesson.Seq = int64(len(s.order) + 1)
	lesson.RefreshKeys()
	s.lessons[lesson.ID] = *lesson
	s.order = append(s.order, lesson.ID)
	return nil
}

// UpdateFields patches the set fields of a lesson.
func (s *MemoryStore) UpdateFields(ctx context.Context, id string, patch models.LessonPatch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lesson, ok := s.lessons[id]
	if !ok {
		return 0, nil
	}
	patch.Apply(&lesson)
	lesson.UpdatedAt = time.Now()
	s.lessons[id] = lesson
	return 1, nil
}

// Orders returns the store as an OrderRepository.
func (s *MemoryStore) Orders() OrderRepository {
	return memoryOrders{s}
}

type memoryOrders struct{ s *MemoryStore }

// GetAll returns all orders, newest first.
func (o memoryOrders) GetAll(ctx context.Context) ([]models.Order, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	orders := make([]models.Order, 0, len(o.s.orders))
	for _, order := range o.s.orders {
		orders = append(orders, copyOrder(order))
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].OrderedAt.Equal(orders[j].OrderedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].OrderedAt.After(orders[j].OrderedAt)
	})
	return orders, nil
}

// GetByID returns an order by its ID.
func (o memoryOrders) GetByID(ctx context.Context, id string) (*models.Order, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	order, ok := o.s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s: %w", id, ErrRecordNotFound)
	}
	order = copyOrder(order)
	return &order, nil
}

func copyOrder(order models.Order) models.Order {
	order.Details = append([]models.OrderDetail(nil), order.Details...)
	return order
}

// WithinTransaction implements Store.
func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	tx := &memoryTx{store: s, spaces: make(map[string]int)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	for id, spaces := range tx.spaces {
		lesson := s.lessons[id]
		lesson.Spaces = spaces
		s.lessons[id] = lesson
	}
	for _, order := range tx.orders {
		s.orders[order.ID] = order
	}
	return nil
}

// memoryTx stages changes; it is only used while the store's write lock is held.
type memoryTx struct {
	store  *MemoryStore
	spaces map[string]int
	orders []models.Order
}

func (t *memoryTx) DecrementSpaces(ctx context.Context, lessonID string, amount int) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("decrement amount must be positive, got %d", amount)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	current, staged := t.spaces[lessonID]
	if !staged {
		lesson, ok := t.store.lessons[lessonID]
		if !ok {
			return 0, nil
		}
		current = lesson.Spaces
	}
	if current < amount {
		return 0, nil
	}
	t.spaces[lessonID] = current - amount
	return 1, nil
}

func (t *memoryTx) InsertOrder(ctx context.Context, order *models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, exists := t.store.orders[order.ID]; exists {
		return fmt.Errorf("failed to insert order: duplicate ID %s", order.ID)
	}
	for i := range order.Details {
		order.Details[i].OrderID = order.ID
		order.Details[i].Position = i
	}
	t.orders = append(t.orders, copyOrder(*order))
	return nil
}
