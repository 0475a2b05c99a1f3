package repositories

import (
	"context"
	"fmt"
	"testing"

	"lessonshop/internal/database"
	"lessonshop/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newSQLiteDB opens an isolated in-memory sqlite database with the schema applied.
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open("sqlite", dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// seedLessons stores the lessons in order and returns them with their IDs.
func seedLessons(t *testing.T, repo LessonRepository, lessons ...models.Lesson) []models.Lesson {
	t.Helper()
	for i := range lessons {
		require.NoError(t, repo.Create(context.Background(), &lessons[i]))
	}
	return lessons
}

func sampleLessons() []models.Lesson {
	return []models.Lesson{
		{Subject: "Music", Location: "Hendon", Price: 90, Spaces: 5},
		{Subject: "Math", Location: "Colindale", Price: 100, Spaces: 5},
		{Subject: "English", Location: "Brent Cross", Price: 80, Spaces: 2},
		{Subject: "Art", Location: "Mathsville", Price: 2, Spaces: 3},
		{Subject: "Math", Location: "Golders Green", Price: 110, Spaces: 0},
	}
}

func subjects(lessons []models.Lesson) []string {
	out := make([]string, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, l.Subject)
	}
	return out
}

func locations(lessons []models.Lesson) []string {
	out := make([]string, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, l.Location)
	}
	return out
}
