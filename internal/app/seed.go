package app

import (
	"context"
	"fmt"

	"lessonshop/internal/models"
)

// DefaultLessons is the catalogue stored on first start.
func DefaultLessons() []models.Lesson {
	return []models.Lesson{
		{Subject: "Math", Location: "Hendon", Price: 100, Spaces: 5},
		{Subject: "Math", Location: "Colindale", Price: 80, Spaces: 5},
		{Subject: "English", Location: "Brent Cross", Price: 90, Spaces: 5},
		{Subject: "English", Location: "Golders Green", Price: 95, Spaces: 5},
		{Subject: "Music", Location: "Hendon", Price: 110, Spaces: 5},
		{Subject: "Art", Location: "Colindale", Price: 70, Spaces: 5},
		{Subject: "Science", Location: "Mill Hill", Price: 105, Spaces: 5},
		{Subject: "Drama", Location: "Finchley", Price: 75, Spaces: 5},
		{Subject: "Coding", Location: "Edgware", Price: 120, Spaces: 5},
		{Subject: "Chess", Location: "Barnet", Price: 60, Spaces: 5},
	}
}

// SeedLessons stores lessons when the catalogue is empty and returns how many
// were created.
func (a *App) SeedLessons(ctx context.Context, lessons []models.Lesson) (int, error) {
	existing, err := a.Lessons.ListLessons(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i := range lessons {
		if err := a.Lessons.CreateLesson(ctx, &lessons[i]); err != nil {
			return i, fmt.Errorf("failed to seed lesson %s: %w", lessons[i].Subject, err)
		}
	}
	a.log.WithField("count", len(lessons)).Info("lesson catalogue seeded")
	return len(lessons), nil
}
