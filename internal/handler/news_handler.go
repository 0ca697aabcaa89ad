package handler

import (
	"yesteryear/internal/domain"
	"yesteryear/internal/dto"
	"yesteryear/internal/middleware"
	"yesteryear/internal/service"

	"github.com/gofiber/fiber/v2"
)

// NewsHandler handles year-news package and article requests.
type NewsHandler struct {
	service service.NewsService
}

// NewNewsHandler creates a new NewsHandler instance.
func NewNewsHandler(service service.NewsService) *NewsHandler {
	return &NewsHandler{service: service}
}

// GeneratePackage handles POST /api/news/package.
func (h *NewsHandler) GeneratePackage(c *fiber.Ctx) error {
	var req dto.YearNewsPackageRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidArgumentError("invalid request body")
	}

	resp, err := h.service.GeneratePackage(c.UserContext(), middleware.CallerUID(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// GenerateArticle handles POST /api/news/article.
func (h *NewsHandler) GenerateArticle(c *fiber.Ctx) error {
	var req dto.ArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.NewInvalidArgumentError("invalid request body")
	}

	resp, err := h.service.GenerateArticle(c.UserContext(), middleware.CallerUID(c), &req)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
