package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"yesteryear/internal/domain"
	"yesteryear/internal/dto"
	"yesteryear/internal/handler"
	"yesteryear/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Manual Mocks ---

type MockQuizService struct {
	GenerateWeeklyQuizFunc func(ctx context.Context, uid string, req *dto.WeeklyQuizRequest) (*dto.WeeklyQuizResponse, error)
}

func (m *MockQuizService) GenerateWeeklyQuiz(ctx context.Context, uid string, req *dto.WeeklyQuizRequest) (*dto.WeeklyQuizResponse, error) {
	if m.GenerateWeeklyQuizFunc != nil {
		return m.GenerateWeeklyQuizFunc(ctx, uid, req)
	}
	panic("MockQuizService.GenerateWeeklyQuizFunc not implemented")
}

func newQuizTestApp(svc *MockQuizService, uid string) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
	if uid != "" {
		app.Use(func(c *fiber.Ctx) error {
			c.Locals(middleware.UserIDKey, uid)
			return c.Next()
		})
	}
	quizHandler := handler.NewQuizHandler(svc)
	app.Post("/api/quiz/weekly", quizHandler.GenerateWeeklyQuiz)
	return app
}

func TestQuizHandler_GenerateWeeklyQuiz(t *testing.T) {
	t.Run("success returns the quiz payload", func(t *testing.T) {
		var gotUID string
		var gotReq *dto.WeeklyQuizRequest
		svc := &MockQuizService{
			GenerateWeeklyQuizFunc: func(ctx context.Context, uid string, req *dto.WeeklyQuizRequest) (*dto.WeeklyQuizResponse, error) {
				gotUID = uid
				gotReq = req
				return &dto.WeeklyQuizResponse{
					Questions: domain.FallbackQuestions(1994, nil),
				}, nil
			},
		}
		app := newQuizTestApp(svc, "member-1")

		body, _ := json.Marshal(dto.WeeklyQuizRequest{GroupID: "g1", WeekID: "w1"})
		req := httptest.NewRequest("POST", "/api/quiz/weekly", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		assert.Equal(t, "member-1", gotUID)
		require.NotNil(t, gotReq)
		assert.Equal(t, "g1", gotReq.GroupID)
		assert.Equal(t, "w1", gotReq.WeekID)

		var payload dto.WeeklyQuizResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Len(t, payload.Questions, domain.QuizQuestionCount)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		svc := &MockQuizService{}
		app := newQuizTestApp(svc, "member-1")

		req := httptest.NewRequest("POST", "/api/quiz/weekly", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		var payload middleware.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
		assert.Equal(t, string(domain.CodeInvalidArgument), payload.Code)
	})

	t.Run("domain errors map to their statuses", func(t *testing.T) {
		tests := []struct {
			name       string
			serviceErr error
			wantStatus int
			wantCode   string
		}{
			{"unauthenticated", domain.NewUnauthenticatedError("Authentication required."), fiber.StatusUnauthorized, "UNAUTHENTICATED"},
			{"permission denied", domain.NewPermissionDeniedError("You are not a member of this group."), fiber.StatusForbidden, "PERMISSION_DENIED"},
			{"not found", domain.NewNotFoundError("Group not found."), fiber.StatusNotFound, "NOT_FOUND"},
			{"rate limited", domain.NewResourceExhaustedError("Rate limit exceeded. Please try again later."), fiber.StatusTooManyRequests, "RESOURCE_EXHAUSTED"},
			{"internal", domain.NewInternalError("failed to persist quiz definition", nil), fiber.StatusInternalServerError, "INTERNAL"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := &MockQuizService{
					GenerateWeeklyQuizFunc: func(ctx context.Context, uid string, req *dto.WeeklyQuizRequest) (*dto.WeeklyQuizResponse, error) {
						return nil, tt.serviceErr
					},
				}
				app := newQuizTestApp(svc, "member-1")

				body, _ := json.Marshal(dto.WeeklyQuizRequest{GroupID: "g1", WeekID: "w1"})
				req := httptest.NewRequest("POST", "/api/quiz/weekly", bytes.NewReader(body))
				req.Header.Set("Content-Type", "application/json")

				resp, err := app.Test(req)
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, resp.StatusCode)

				var payload middleware.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
				assert.Equal(t, tt.wantCode, payload.Code)
				assert.Equal(t, tt.wantStatus, payload.Status)
			})
		}
	})

	t.Run("missing uid reaches the service as empty string", func(t *testing.T) {
		svc := &MockQuizService{
			GenerateWeeklyQuizFunc: func(ctx context.Context, uid string, req *dto.WeeklyQuizRequest) (*dto.WeeklyQuizResponse, error) {
				assert.Equal(t, "", uid)
				return nil, domain.NewUnauthenticatedError("Authentication required.")
			},
		}
		app := newQuizTestApp(svc, "")

		body, _ := json.Marshal(dto.WeeklyQuizRequest{GroupID: "g1", WeekID: "w1"})
		req := httptest.NewRequest("POST", "/api/quiz/weekly", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}
