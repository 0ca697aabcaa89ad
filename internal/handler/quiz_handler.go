package handler

import (
	"yesteryear/internal/domain"
	"yesteryear/internal/dto"
	"yesteryear/internal/middleware"
	"yesteryear/internal/service"

	"github.com/gofiber/fiber/v2"
)

// QuizHandler handles weekly quiz requests.
type QuizHandler struct {
	service service.QuizService
}

// NewQuizHandler creates a new QuizHandler instance.
func NewQuizHandler(service service.QuizService) *QuizHandler {
	return &QuizHandler{service: service}
}

// GenerateWeeklyQuiz handles POST /api/quiz/weekly.
func (h *QuizHandler) GenerateWeeklyQuiz(c *fiber.Ctx) error {
	var req dto.WeeklyQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidArgumentError("invalid request body")
	}

	resp, err := h.service.GenerateWeeklyQuiz(c.UserContext(), middleware.CallerUID(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
