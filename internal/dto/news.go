package dto

import "yesteryear/internal/domain"

// Generation status values returned by the news operations.
const (
	StatusAlreadyExists = "already_exists"
	StatusGenerated     = "generated"
)

// YearNewsPackageRequest asks for the package of a single year.
type YearNewsPackageRequest struct {
	Year int `json:"year"`
}

// YearNewsPackageResponse reports whether the package was reused or built.
type YearNewsPackageResponse struct {
	Status string `json:"status"`
	Year   int    `json:"year"`
}

// ArticleRequest asks for a full story behind one news card.
type ArticleRequest struct {
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Title      string `json:"title"`
	Subtitle   string `json:"subtitle"`
	ImageQuery string `json:"imageQuery"`
}

// ArticleResponse carries the stored or freshly generated article.
type ArticleResponse struct {
	Status   string          `json:"status"`
	Year     int             `json:"year"`
	StoryKey string          `json:"storyKey"`
	Article  *domain.Article `json:"article"`
}
