package handler

import (
	"yesteryear/internal/domain"
	"yesteryear/internal/dto"
	"yesteryear/internal/middleware"
	"yesteryear/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ChatHandler handles nostalgia chat requests.
type ChatHandler struct {
	service service.ChatService
}

// NewChatHandler creates a new ChatHandler instance.
func NewChatHandler(service service.ChatService) *ChatHandler {
	return &ChatHandler{service: service}
}

// Reply handles POST /api/chat.
func (h *ChatHandler) Reply(c *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidArgumentError("invalid request body")
	}

	resp, err := h.service.Reply(c.UserContext(), middleware.CallerUID(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
