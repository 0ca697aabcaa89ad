package service

import (
	"context"
	"time"

	"yesteryear/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockGroupRepository ---
type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Group), args.Error(1)
}

func (m *MockGroupRepository) IsMember(ctx context.Context, groupID, uid string) (bool, error) {
	args := m.Called(ctx, groupID, uid)
	return args.Bool(0), args.Error(1)
}

// --- MockQuizRepository ---
type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) GetDefinition(ctx context.Context, groupID, weekID string) (*domain.QuizDefinition, error) {
	args := m.Called(ctx, groupID, weekID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuizDefinition), args.Error(1)
}

func (m *MockQuizRepository) SaveDefinition(ctx context.Context, def *domain.QuizDefinition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

// --- MockNewsRepository ---
type MockNewsRepository struct {
	mock.Mock
}

func (m *MockNewsRepository) GetPackage(ctx context.Context, year int) (*domain.YearNewsPackage, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.YearNewsPackage), args.Error(1)
}

func (m *MockNewsRepository) SavePackage(ctx context.Context, pkg *domain.YearNewsPackage) error {
	args := m.Called(ctx, pkg)
	return args.Error(0)
}

func (m *MockNewsRepository) PatchPackage(ctx context.Context, year int, hero []domain.NewsItem, byMonth map[string][]domain.NewsItem, updatedAt time.Time) error {
	args := m.Called(ctx, year, hero, byMonth, updatedAt)
	return args.Error(0)
}

func (m *MockNewsRepository) GetArticle(ctx context.Context, storyKey string) (*domain.Article, error) {
	args := m.Called(ctx, storyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Article), args.Error(1)
}

func (m *MockNewsRepository) SaveArticle(ctx context.Context, article *domain.Article) error {
	args := m.Called(ctx, article)
	return args.Error(0)
}

// --- MockRateLimiter ---
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) TryConsume(ctx context.Context, callerID, action string, maxRequests int, window time.Duration) error {
	args := m.Called(ctx, callerID, action, maxRequests, window)
	return args.Error(0)
}

// --- MockModelClient ---
type MockModelClient struct {
	mock.Mock
}

func (m *MockModelClient) RequestJSON(ctx context.Context, prompt string, maxTokens int) (map[string]any, error) {
	args := m.Called(ctx, prompt, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockModelClient) Chat(ctx context.Context, system string, history []domain.ChatTurn, message string, maxTokens int) (string, error) {
	args := m.Called(ctx, system, history, message, maxTokens)
	return args.String(0), args.Error(1)
}

func (m *MockModelClient) GenerateImage(ctx context.Context, prompt, storagePath string) string {
	args := m.Called(ctx, prompt, storagePath)
	return args.String(0)
}

// --- MockEncyclopediaClient ---
type MockEncyclopediaClient struct {
	mock.Mock
}

func (m *MockEncyclopediaClient) Summary(ctx context.Context, title string) (*domain.EncyclopediaSummary, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EncyclopediaSummary), args.Error(1)
}

func (m *MockEncyclopediaClient) SearchImage(ctx context.Context, query string) (string, error) {
	args := m.Called(ctx, query)
	return args.String(0), args.Error(1)
}
