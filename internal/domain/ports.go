package domain

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited is returned by RateLimiter when a window budget is spent.
var ErrRateLimited = errors.New("rate limit exceeded")

// GroupRepository reads group and membership documents.
type GroupRepository interface {
	GetGroup(ctx context.Context, groupID string) (*Group, error)
	IsMember(ctx context.Context, groupID, uid string) (bool, error)
}

// QuizRepository persists weekly quiz definitions. Saves are wholesale
// overwrites, never merges.
type QuizRepository interface {
	GetDefinition(ctx context.Context, groupID, weekID string) (*QuizDefinition, error)
	SaveDefinition(ctx context.Context, def *QuizDefinition) error
}

// NewsRepository persists year-news packages and their articles.
// PatchPackage is a partial merge touching only hero, byMonth, and
// updatedAt so concurrently added content is not clobbered.
type NewsRepository interface {
	GetPackage(ctx context.Context, year int) (*YearNewsPackage, error)
	SavePackage(ctx context.Context, pkg *YearNewsPackage) error
	PatchPackage(ctx context.Context, year int, hero []NewsItem, byMonth map[string][]NewsItem, updatedAt time.Time) error
	GetArticle(ctx context.Context, storyKey string) (*Article, error)
	SaveArticle(ctx context.Context, article *Article) error
}

// RateLimiter is a fixed-window counter keyed by (caller, action,
// window index). TryConsume returns ErrRateLimited once maxRequests calls
// have been admitted in the current window.
type RateLimiter interface {
	TryConsume(ctx context.Context, callerID, action string, maxRequests int, window time.Duration) error
}

// ChatTurn is one prior exchange passed as chat context.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelClient issues requests to the language-model API.
type ModelClient interface {
	// RequestJSON sends a JSON-mode prompt and returns the parsed object,
	// repairing near-JSON replies where possible.
	RequestJSON(ctx context.Context, prompt string, maxTokens int) (map[string]any, error)
	// Chat sends a plain completion with conversation history.
	Chat(ctx context.Context, system string, history []ChatTurn, message string, maxTokens int) (string, error)
	// GenerateImage is a one-shot image generation; any failure degrades to
	// an empty string rather than an error.
	GenerateImage(ctx context.Context, prompt, storagePath string) string
}

// ObjectStore writes blobs and exchanges them for long-lived signed read
// URLs.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// EncyclopediaSummary is a resolved summary lookup result.
type EncyclopediaSummary struct {
	ImageURL string
	PageURL  string
}

// EncyclopediaClient wraps the public read-only lookup APIs used for story
// images. Summary returns (nil, nil) when no usable page exists.
type EncyclopediaClient interface {
	Summary(ctx context.Context, title string) (*EncyclopediaSummary, error)
	SearchImage(ctx context.Context, query string) (string, error)
}
