package repositories

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"lessonshop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMLessonRepository is a GORM implementation of LessonRepository.
type GORMLessonRepository struct {
	db *gorm.DB
}

// NewGORMLessonRepository creates a new instance of GORMLessonRepository.
func NewGORMLessonRepository(db *gorm.DB) *GORMLessonRepository {
	return &GORMLessonRepository{
		db: db,
	}
}

// naturalOrder keeps results in the order lessons were stored.
func naturalOrder(db *gorm.DB) *gorm.DB {
	return db.Order("seq").Order("id")
}

// sortColumns maps sort fields to the columns ordered on. Text fields sort by
// their folded keys so every store orders them the same way.
var sortColumns = map[SortField]string{
	SortBySubject:  "subject_key",
	SortByLocation: "location_key",
	SortByPrice:    "price",
	SortBySpaces:   "spaces",
}

// orderBy builds the ORDER BY term for a whitelisted sort field. Postgres
// compares text by locale collation; "C" makes it bytewise like sqlite.
func orderBy(db *gorm.DB, sortBy SortField, desc bool) string {
	term := sortColumns[sortBy]
	if term == "subject_key" || term == "location_key" {
		if db.Dialector.Name() == "postgres" {
			term += ` COLLATE "C"`
		}
	}
	if desc {
		term += " DESC"
	}
	return term
}

// GetAll retrieves all lessons from the database.
func (r *GORMLessonRepository) GetAll(ctx context.Context) ([]models.Lesson, error) {
	var lessons []models.Lesson
	if err := naturalOrder(r.db.WithContext(ctx)).Find(&lessons).Error; err != nil {
		return nil, fmt.Errorf("failed to get all lessons: %w", err)
	}
	return lessons, nil
}

// GetByID retrieves a single lesson by its ID from the database.
func (r *GORMLessonRepository) GetByID(ctx context.Context, id string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("lesson with ID %s: %w", id, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get lesson by ID %s: %w", id, err)
	}
	return &lesson, nil
}

// Search filters lessons by free text and orders them by the requested field.
func (r *GORMLessonRepository) Search(ctx context.Context, query LessonQuery) ([]models.Lesson, error) {
	sortBy := query.SortBy
	if sortBy == "" {
		sortBy = SortBySubject
	}
	if !sortBy.Valid() {
		return nil, fmt.Errorf("unknown sort field %q", sortBy)
	}

	db := r.db.WithContext(ctx).Model(&models.Lesson{})
	if text := strings.TrimSpace(query.Text); text != "" {
		pattern := "%" + escapeLike(models.FoldKey(text)) + "%"
		where := `subject_key LIKE ? ESCAPE '\' OR location_key LIKE ? ESCAPE '\'`
		args := []interface{}{pattern, pattern}
		if n, ok := numericQuery(text); ok {
			where += " OR price = ?"
			args = append(args, n)
			if n == math.Trunc(n) && math.Abs(n) <= math.MaxInt32 {
				where += " OR spaces = ?"
				args = append(args, int64(n))
			}
		}
		db = db.Where(where, args...)
	}

	var lessons []models.Lesson
	err := naturalOrder(db.Order(orderBy(r.db, sortBy, query.Descending))).Find(&lessons).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search lessons: %w", err)
	}
	return lessons, nil
}

// Create creates a new lesson in the database, appending it to the natural
// store order.
func (r *GORMLessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.New().String()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		last, err := lastSeq(tx)
		if err != nil {
			return err
		}
		lesson.Seq = last + 1
		return tx.Create(lesson).Error
	})
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	return nil
}

func lastSeq(db *gorm.DB) (int64, error) {
	var last int64
	if err := db.Model(&models.Lesson{}).Select("COALESCE(MAX(seq), 0)").Scan(&last).Error; err != nil {
		return 0, fmt.Errorf("failed to read lesson sequence: %w", err)
	}
	return last, nil
}

// UpdateFields patches the set columns of a lesson.
func (r *GORMLessonRepository) UpdateFields(ctx context.Context, id string, patch models.LessonPatch) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Lesson{}).Where("id = ?", id).Updates(patch.Columns())
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update lesson %s: %w", id, res.Error)
	}
	return res.RowsAffected, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
