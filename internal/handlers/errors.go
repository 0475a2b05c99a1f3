package handlers

import (
	"errors"

	"lessonshop/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Error codes returned in failure bodies.
const (
	CodeInvalidInput     = "invalid_input"
	CodeNotFound         = "not_found"
	CodeOutOfStock       = "out_of_stock"
	CodeStoreUnavailable = "store_unavailable"
)

// respondError writes the failure body for err. Internal causes are logged,
// never returned to the client.
func respondError(c *fiber.Ctx, log *logrus.Entry, err error) error {
	var (
		verr *services.ValidationError
		oos  *services.OutOfStockError
	)
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    CodeInvalidInput,
			"message": "Validation failed",
			"errors":  verr.Fields,
		})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":    CodeInvalidInput,
			"message": "Invalid request",
		})
	case errors.As(err, &oos):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"code":     CodeOutOfStock,
			"message":  "Not enough spaces left for " + lessonName(oos),
			"lessonId": oos.LessonID,
			"subject":  oos.Subject,
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"code":    CodeNotFound,
			"message": "Resource not found",
		})
	}

	log.WithError(err).WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).Error("request failed")
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"code":    CodeStoreUnavailable,
		"message": "The store is temporarily unavailable, please retry",
	})
}

func lessonName(oos *services.OutOfStockError) string {
	if oos.Subject != "" {
		return oos.Subject
	}
	return "lesson " + oos.LessonID
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"code":    CodeInvalidInput,
		"message": "Invalid request body",
		"errors":  fiber.Map{"body": "must be a valid JSON object"},
	})
}
