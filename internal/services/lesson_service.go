package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lessonshop/internal/models"
	"lessonshop/internal/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// LessonSearch is a free-text lesson search as received from a client.
type LessonSearch struct {
	Query  string `json:"q" query:"q"`
	SortBy string `json:"sortBy" query:"sortBy" validate:"omitempty,oneof=subject location price spaces"`
	Order  string `json:"order" query:"order" validate:"omitempty,oneof=asc desc"`
}

// LessonService handles business logic related to lessons.
type LessonService struct {
	repo     repositories.LessonRepository
	validate *validator.Validate
	log      *logrus.Entry
}

// NewLessonService creates a new LessonService.
func NewLessonService(repo repositories.LessonRepository, logger *logrus.Entry) *LessonService {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LessonService{
		repo:     repo,
		validate: newValidator(),
		log:      logger.WithField("component", "lesson_service"),
	}
}

// ListLessons retrieves all lessons.
func (s *LessonService) ListLessons(ctx context.Context) ([]models.Lesson, error) {
	lessons, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return lessons, nil
}

// SearchLessons filters and sorts lessons. An empty query lists every lesson.
func (s *LessonService) SearchLessons(ctx context.Context, search LessonSearch) ([]models.Lesson, error) {
	search.SortBy = strings.ToLower(strings.TrimSpace(search.SortBy))
	search.Order = strings.ToLower(strings.TrimSpace(search.Order))
	if err := s.validate.Struct(search); err != nil {
		return nil, validationError(err)
	}

	lessons, err := s.repo.Search(ctx, repositories.LessonQuery{
		Text:       search.Query,
		SortBy:     repositories.SortField(search.SortBy),
		Descending: search.Order == "desc",
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return lessons, nil
}

// GetLesson retrieves a single lesson by its ID.
func (s *LessonService) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	id = normalizeID(id)
	if err := s.validate.Var(id, "required,uuid"); err != nil {
		return nil, invalidField("id", "must be a valid lesson id")
	}
	lesson, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, fmt.Errorf("lesson %s: %w", id, ErrNotFound)
		}
		return nil, unavailable(err)
	}
	return lesson, nil
}

// CreateLesson validates and stores a new lesson.
func (s *LessonService) CreateLesson(ctx context.Context, lesson *models.Lesson) error {
	if err := s.validate.Struct(lesson); err != nil {
		return validationError(err)
	}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return unavailable(err)
	}
	return nil
}

// UpdateLessonFields applies a partial update to a lesson and returns the
// number of matched lessons. The seat count may be set to any non-negative value.
func (s *LessonService) UpdateLessonFields(ctx context.Context, id string, patch models.LessonPatch) (int64, error) {
	id = normalizeID(id)
	if err := s.validate.Var(id, "required,uuid"); err != nil {
		return 0, invalidField("id", "must be a valid lesson id")
	}
	if patch.Empty() {
		return 0, invalidField("body", "must contain at least one of subject, location, price, spaces")
	}
	if err := s.validate.Struct(patch); err != nil {
		return 0, validationError(err)
	}

	matched, err := s.repo.UpdateFields(ctx, id, patch)
	if err != nil {
		return 0, unavailable(err)
	}
	if matched == 0 {
		return 0, fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	s.log.WithFields(logrus.Fields{"lesson_id": id, "fields": patch.Fields()}).Info("lesson updated")
	return matched, nil
}
