package handlers

import (
	"lessonshop/internal/models"
	"lessonshop/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// LessonHandler handles HTTP requests for lessons.
type LessonHandler struct {
	service *services.LessonService
	log     *logrus.Entry
}

// NewLessonHandler creates a new LessonHandler.
func NewLessonHandler(service *services.LessonService, logger *logrus.Entry) *LessonHandler {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &LessonHandler{
		service: service,
		log:     logger.WithField("component", "lesson_handler"),
	}
}

// RegisterRoutes registers the lesson routes with the Fiber app.
func (h *LessonHandler) RegisterRoutes(router fiber.Router) {
	lessonRoutes := router.Group("/lessons")
	lessonRoutes.Get("/", h.HandleGetLessons)
	lessonRoutes.Get("/search", h.HandleSearchLessons)
	lessonRoutes.Get("/:id", h.HandleGetLessonByID)
	lessonRoutes.Put("/:id", h.HandleUpdateLesson)
	lessonRoutes.Patch("/:id", h.HandleUpdateLesson)
}

// HandleGetLessons retrieves all lessons.
func (h *LessonHandler) HandleGetLessons(c *fiber.Ctx) error {
	lessons, err := h.service.ListLessons(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(lessons)
}

// HandleSearchLessons filters lessons by ?q= and orders them by ?sortBy= and ?order=.
func (h *LessonHandler) HandleSearchLessons(c *fiber.Ctx) error {
	var search services.LessonSearch
	if err := c.QueryParser(&search); err != nil {
		return respondError(c, h.log, services.ErrInvalidInput)
	}
	lessons, err := h.service.SearchLessons(c.UserContext(), search)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(lessons)
}

// HandleGetLessonByID retrieves a single lesson by its ID.
func (h *LessonHandler) HandleGetLessonByID(c *fiber.Ctx) error {
	lesson, err := h.service.GetLesson(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(lesson)
}

// HandleUpdateLesson sets the given attributes of a lesson.
func (h *LessonHandler) HandleUpdateLesson(c *fiber.Ctx) error {
	var patch models.LessonPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidBody(c)
	}

	matched, err := h.service.UpdateLessonFields(c.UserContext(), c.Params("id"), patch)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message": "Lesson updated",
		"matched": matched,
	})
}
