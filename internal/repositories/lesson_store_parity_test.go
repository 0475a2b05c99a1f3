package repositories

import (
	"context"
	"testing"
	"time"

	"lessonshop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lessonStores returns every LessonRepository implementation, each empty.
func lessonStores(t *testing.T) map[string]LessonRepository {
	return map[string]LessonRepository{
		"sqlite": NewGORMLessonRepository(newSQLiteDB(t)),
		"memory": NewMemoryStore(),
	}
}

func TestLessonStores_SearchFoldsNonASCIICase(t *testing.T) {
	for name, repo := range lessonStores(t) {
		t.Run(name, func(t *testing.T) {
			seedLessons(t, repo,
				models.Lesson{Subject: "Ästhetik", Location: "Zürich", Price: 40, Spaces: 3},
				models.Lesson{Subject: "Math", Location: "Hendon", Price: 100, Spaces: 5},
			)
			ctx := context.Background()

			for _, q := range []string{"ästhetik", "Ästhetik", "ÄSTHETIK", "zürich", "ZÜR"} {
				found, err := repo.Search(ctx, LessonQuery{Text: q})
				require.NoError(t, err)
				assert.Equal(t, []string{"Ästhetik"}, subjects(found), "query %q", q)
			}
		})
	}
}

func TestLessonStores_SortIgnoresCase(t *testing.T) {
	for name, repo := range lessonStores(t) {
		t.Run(name, func(t *testing.T) {
			seedLessons(t, repo,
				models.Lesson{Subject: "biology", Location: "hendon", Price: 1, Spaces: 1},
				models.Lesson{Subject: "Chess", Location: "Barnet", Price: 1, Spaces: 1},
				models.Lesson{Subject: "Art", Location: "colindale", Price: 1, Spaces: 1},
				models.Lesson{Subject: "art", Location: "Acton", Price: 1, Spaces: 1},
			)
			ctx := context.Background()

			found, err := repo.Search(ctx, LessonQuery{})
			require.NoError(t, err)
			assert.Equal(t, []string{"Art", "art", "biology", "Chess"}, subjects(found))

			found, err = repo.Search(ctx, LessonQuery{SortBy: SortByLocation, Descending: true})
			require.NoError(t, err)
			assert.Equal(t, []string{"hendon", "colindale", "Barnet", "Acton"}, locations(found))
		})
	}
}

func TestLessonStores_NaturalOrderSurvivesEqualTimestamps(t *testing.T) {
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for name, repo := range lessonStores(t) {
		t.Run(name, func(t *testing.T) {
			lessons := make([]models.Lesson, 0, 8)
			for _, subject := range []string{"Math", "Math", "Math", "Math", "Math", "Math", "Math", "Math"} {
				lessons = append(lessons, models.Lesson{Subject: subject, Location: "Hendon", Price: 1, Spaces: 1, CreatedAt: at})
			}
			seeded := seedLessons(t, repo, lessons...)

			all, err := repo.GetAll(context.Background())
			require.NoError(t, err)
			require.Len(t, all, len(seeded))
			for i := range seeded {
				assert.Equal(t, seeded[i].ID, all[i].ID)
				assert.Equal(t, int64(i+1), all[i].Seq)
			}

			// equal sort keys fall back to the same order
			found, err := repo.Search(context.Background(), LessonQuery{Text: "math"})
			require.NoError(t, err)
			for i := range seeded {
				assert.Equal(t, seeded[i].ID, found[i].ID)
			}
		})
	}
}

func TestLessonStores_UpdateFieldsRefreshesKeys(t *testing.T) {
	for name, repo := range lessonStores(t) {
		t.Run(name, func(t *testing.T) {
			seeded := seedLessons(t, repo, models.Lesson{Subject: "Math", Location: "Hendon", Price: 1, Spaces: 1})
			ctx := context.Background()

			_, err := repo.UpdateFields(ctx, seeded[0].ID, models.LessonPatch{Subject: ptr("Ökonomie")})
			require.NoError(t, err)

			found, err := repo.Search(ctx, LessonQuery{Text: "ÖKONOMIE"})
			require.NoError(t, err)
			assert.Equal(t, []string{"Ökonomie"}, subjects(found))

			found, err = repo.Search(ctx, LessonQuery{Text: "math"})
			require.NoError(t, err)
			assert.Empty(t, found)
		})
	}
}
