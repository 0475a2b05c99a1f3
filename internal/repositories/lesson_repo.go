package repositories

import (
	"context"
	"math"
	"strconv"
	"strings"

	"lessonshop/internal/models"
)

// SortField names a lesson attribute search results can be ordered by.
type SortField string

const (
	SortBySubject  SortField = "subject"
	SortByLocation SortField = "location"
	SortByPrice    SortField = "price"
	SortBySpaces   SortField = "spaces"
)

// LessonQuery describes a lesson search.
// Text matches subject or location case-insensitively; when it parses as a
// number it also matches price or spaces exactly.
type LessonQuery struct {
	Text       string
	SortBy     SortField
	Descending bool
}

// LessonRepository defines the interface for lesson data access.
type LessonRepository interface {
	GetAll(ctx context.Context) ([]models.Lesson, error)
	GetByID(ctx context.Context, id string) (*models.Lesson, error)
	Search(ctx context.Context, query LessonQuery) ([]models.Lesson, error)
	Create(ctx context.Context, lesson *models.Lesson) error
	// UpdateFields patches the given columns and returns the number of matched lessons.
	UpdateFields(ctx context.Context, id string, patch models.LessonPatch) (int64, error)
}

// Valid reports whether f is one of the known sort fields.
func (f SortField) Valid() bool {
	switch f {
	case SortBySubject, SortByLocation, SortByPrice, SortBySpaces:
		return true
	}
	return false
}

// numericQuery returns the query text as a number when it parses as one.
func numericQuery(text string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
