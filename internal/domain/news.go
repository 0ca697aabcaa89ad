package domain

import (
	"fmt"
	"time"

	"yesteryear/internal/util"
)

// Year-news shape constants. Every generated package reaches these exact
// counts regardless of model availability.
const (
	HeroItemCount     = 3
	MonthItemCount    = 5
	TickerItemCount   = 15
	MinNewsYear       = 1950
	MaxNewsYear       = 2010
	PackageFreshness  = 30 * 24 * time.Hour
	NewsSourceLabel   = "AI Historical Digest"
	FallbackImageURL  = "https://upload.wikimedia.org/wikipedia/commons/thumb/a/ac/No_image_available.svg/640px-No_image_available.svg.png"
	StatusComplete    = "complete"
	MinBodyParagraphs = 3
	BodyParagraphs    = 5
)

// NewsItem is one card in a year's news package. Its identity is the story
// key derived from (year, month, normalized title); the key is not stored.
type NewsItem struct {
	Title      string `json:"title" bson:"title"`
	Subtitle   string `json:"subtitle" bson:"subtitle"`
	ImageURL   string `json:"imageUrl" bson:"imageUrl"`
	ImageQuery string `json:"imageQuery" bson:"imageQuery"`
	Source     string `json:"source" bson:"source"`
	URL        string `json:"url" bson:"url"`
	Month      int    `json:"month" bson:"month"`
}

// YearNewsPackage is the per-year document holding hero cards, month
// buckets, and ticker headlines.
type YearNewsPackage struct {
	Year             int                   `json:"year" bson:"_id"`
	GenerationStatus string                `json:"generationStatus" bson:"generationStatus"`
	Hero             []NewsItem            `json:"hero" bson:"hero"`
	ByMonth          map[string][]NewsItem `json:"byMonth" bson:"byMonth"`
	Ticker           []string              `json:"ticker" bson:"ticker"`
	UpdatedAt        time.Time             `json:"updatedAt" bson:"updatedAt"`
}

// Fresh reports whether the package is complete and recent enough to reuse.
func (p *YearNewsPackage) Fresh(now time.Time) bool {
	return p.GenerationStatus == StatusComplete && now.Sub(p.UpdatedAt) < PackageFreshness
}

// Article is the immutable per-story document keyed by story key.
type Article struct {
	StoryKey       string    `json:"storyKey" bson:"_id"`
	Year           int       `json:"year" bson:"year"`
	Month          int       `json:"month" bson:"month"`
	Title          string    `json:"title" bson:"title"`
	Subtitle       string    `json:"subtitle" bson:"subtitle"`
	ImageURL       string    `json:"imageUrl" bson:"imageUrl"`
	Source         string    `json:"source" bson:"source"`
	ReferenceURL   string    `json:"referenceUrl" bson:"referenceUrl"`
	BodyParagraphs []string  `json:"bodyParagraphs" bson:"bodyParagraphs"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updatedAt"`
}

// ValidateNewsYear checks the supported year range for year-news content.
func ValidateNewsYear(year int) error {
	if year < MinNewsYear || year > MaxNewsYear {
		return NewInvalidArgumentError(fmt.Sprintf("year must be an integer between %d and %d.", MinNewsYear, MaxNewsYear))
	}
	return nil
}

// DefaultNewsItem builds the deterministic placeholder used to pad hero and
// month buckets when the model under-delivers.
func DefaultNewsItem(year, month, index int, hero bool) NewsItem {
	monthLabel := "Jan"
	if month >= 1 && month <= 12 {
		monthLabel = util.MonthNames[month-1]
	}
	var title, subtitle string
	if hero {
		title = fmt.Sprintf("UK spotlight in %d (%d/%d)", year, index, HeroItemCount)
		subtitle = fmt.Sprintf("Major UK talking points from %d, curated for your nostalgia timeline.", year)
	} else {
		title = fmt.Sprintf("%s %d UK spotlight (%d/%d)", monthLabel, year, index, MonthItemCount)
		subtitle = fmt.Sprintf("A key UK moment from %s %d, selected for the year timeline.", monthLabel, year)
	}
	return NewsItem{
		Title:      title,
		Subtitle:   subtitle,
		ImageQuery: title,
		Source:     NewsSourceLabel,
		URL:        util.WikiSearchURL(fmt.Sprintf("%s %d UK", title, year)),
		Month:      month,
	}
}

// DefaultTickerHeadlines is the fallback ticker list for a year.
func DefaultTickerHeadlines(year int) []string {
	return []string{
		fmt.Sprintf("UK headlines shaping %d", year),
		fmt.Sprintf("Showbiz buzz across %d", year),
		fmt.Sprintf("Sport moments fans remember from %d", year),
		fmt.Sprintf("Politics and public debate in %d", year),
		fmt.Sprintf("Cultural shifts that defined %d", year),
		fmt.Sprintf("Charts, screens, and stories from %d", year),
		fmt.Sprintf("Memorable UK events from %d", year),
		fmt.Sprintf("Year-in-review: standout moments in %d", year),
		fmt.Sprintf("What people talked about in %d", year),
		fmt.Sprintf("From Westminster to Wembley in %d", year),
		fmt.Sprintf("Global stories seen through a UK lens in %d", year),
		fmt.Sprintf("Flashback briefings from %d", year),
		fmt.Sprintf("Broadcast highlights from %d", year),
		fmt.Sprintf("Headline recap for %d", year),
		fmt.Sprintf("Nostalgia feed: UK yearbook %d", year),
	}
}

// ReconcileResult carries the patched package content produced by
// ReconcileArticle. The write-back is a partial merge performed only when
// Changed is true.
type ReconcileResult struct {
	Hero    []NewsItem
	ByMonth map[string][]NewsItem
	Changed bool
}

// ReconcileArticle merges a generated article back into its year package:
// every hero or month item whose derived story key matches the article's
// gets its image, reference URL, and source patched. All other fields are
// left untouched.
func ReconcileArticle(pkg *YearNewsPackage, article *Article) ReconcileResult {
	result := ReconcileResult{
		Hero:    make([]NewsItem, 0, len(pkg.Hero)),
		ByMonth: make(map[string][]NewsItem, len(pkg.ByMonth)),
	}
	targetKey := util.StoryKey(article.Year, article.Month, article.Title)

	patch := func(item NewsItem) NewsItem {
		title := util.NormalizeText(item.Title)
		if title == "" {
			return item
		}
		month := util.ClampMonth(item.Month, article.Month)
		if util.StoryKey(article.Year, month, title) != targetKey {
			return item
		}
		if util.NormalizeText(item.ImageURL) != article.ImageURL {
			item.ImageURL = article.ImageURL
			result.Changed = true
		}
		if util.NormalizeText(item.URL) != article.ReferenceURL {
			item.URL = article.ReferenceURL
			result.Changed = true
		}
		if util.NormalizeText(item.Source) != article.Source {
			item.Source = article.Source
			result.Changed = true
		}
		return item
	}

	for _, item := range pkg.Hero {
		result.Hero = append(result.Hero, patch(item))
	}
	for monthKey, items := range pkg.ByMonth {
		patched := make([]NewsItem, 0, len(items))
		for _, item := range items {
			patched = append(patched, patch(item))
		}
		result.ByMonth[monthKey] = patched
	}
	return result
}
