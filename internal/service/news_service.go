package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"yesteryear/internal/domain"
	"yesteryear/internal/dto"
	"yesteryear/internal/logger"
	"yesteryear/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	packageLimitAction = "year_news_generation_daily"
	packageLimitMax    = 40
	articleLimitAction = "year_news_article_daily"
	articleLimitMax    = 100
	newsLimitWindow    = 24 * time.Hour

	heroTickerMaxTokens = 1600
	monthChunkMaxTokens = 2600
	articleMaxTokens    = 2200
)

// NewsService generates year-news packages and per-story articles.
type NewsService interface {
	GeneratePackage(ctx context.Context, uid string, req *dto.YearNewsPackageRequest) (*dto.YearNewsPackageResponse, error)
	GenerateArticle(ctx context.Context, uid string, req *dto.ArticleRequest) (*dto.ArticleResponse, error)
}

type newsService struct {
	news     domain.NewsRepository
	model    domain.ModelClient
	limiter  domain.RateLimiter
	resolver *ImageResolver
	sfGroup  singleflight.Group
	now      func() time.Time
}

// NewNewsService creates a new news service.
func NewNewsService(news domain.NewsRepository, model domain.ModelClient, limiter domain.RateLimiter, resolver *ImageResolver) NewsService {
	return &newsService{
		news:     news,
		model:    model,
		limiter:  limiter,
		resolver: resolver,
		now:      time.Now,
	}
}

// GeneratePackage reuses a complete package younger than 30 days and
// otherwise rebuilds the whole year: hero+ticker in one model call, the
// twelve months in three 4-month chunks. Every category is padded to its
// exact target count, so generation succeeds even with the model down.
func (s *newsService) GeneratePackage(ctx context.Context, uid string, req *dto.YearNewsPackageRequest) (*dto.YearNewsPackageResponse, error) {
	if uid == "" {
		return nil, domain.NewUnauthenticatedError("Authentication required.")
	}
	if err := s.limiter.TryConsume(ctx, uid, packageLimitAction, packageLimitMax, newsLimitWindow); err != nil {
		return nil, err
	}
	if err := domain.ValidateNewsYear(req.Year); err != nil {
		return nil, err
	}

	existing, err := s.news.GetPackage(ctx, req.Year)
	if err != nil {
		return nil, domain.NewInternalError("failed to load year news package", err)
	}
	if existing != nil && existing.Fresh(s.now()) {
		return &dto.YearNewsPackageResponse{Status: dto.StatusAlreadyExists, Year: req.Year}, nil
	}

	// Concurrent in-process requests for the same year share one build.
	// The build runs on a context detached from the first caller, so one
	// caller hanging up cannot fail every waiter sharing the flight.
	_, err, _ = s.sfGroup.Do(fmt.Sprintf("year-news-%d", req.Year), func() (any, error) {
		buildCtx := context.WithoutCancel(ctx)
		pkg := s.buildPackage(buildCtx, req.Year)
		if err := s.news.SavePackage(buildCtx, pkg); err != nil {
			return nil, domain.NewInternalError("failed to persist year news package", err)
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.YearNewsPackageResponse{Status: dto.StatusGenerated, Year: req.Year}, nil
}

func (s *newsService) buildPackage(ctx context.Context, year int) *domain.YearNewsPackage {
	hero, ticker := s.buildHeroAndTicker(ctx, year)

	byMonth := make(map[string][]domain.NewsItem, 12)
	for _, chunk := range [][2]int{{1, 4}, {5, 8}, {9, 12}} {
		for monthKey, items := range s.buildMonthsChunk(ctx, year, chunk[0], chunk[1]) {
			byMonth[monthKey] = items
		}
	}

	return &domain.YearNewsPackage{
		Year:             year,
		GenerationStatus: domain.StatusComplete,
		Hero:             hero,
		ByMonth:          byMonth,
		Ticker:           ticker,
		UpdatedAt:        s.now(),
	}
}

func (s *newsService) buildHeroAndTicker(ctx context.Context, year int) ([]domain.NewsItem, []string) {
	prompt := strings.Join([]string{
		fmt.Sprintf("Create UK-first nostalgic headlines for year %d.", year),
		"Focus on UK news, showbiz, sport, and major global events that mattered in the UK conversation.",
		"Return strict JSON with fields hero and ticker.",
		fmt.Sprintf("hero must be an array of exactly %d items.", domain.HeroItemCount),
		"Each hero item: { title, subtitle, imageQuery, month }",
		fmt.Sprintf("ticker must be an array of %d concise headlines (max 80 chars each).", domain.TickerItemCount),
		"No markdown. No extra keys.",
	}, "\n")

	parsed, err := s.model.RequestJSON(ctx, prompt, heroTickerMaxTokens)
	if err != nil {
		logger.Get().Warn("hero and ticker generation failed, padding with defaults",
			zap.Int("year", year),
			zap.Error(err),
		)
		parsed = map[string]any{}
	}

	hero := normalizeNewsItems(parsed["hero"], 1)
	if len(hero) > domain.HeroItemCount {
		hero = hero[:domain.HeroItemCount]
	}
	for i := range hero {
		storyKey := util.StoryKey(year, hero[i].Month, hero[i].Title)
		imagePrompt := strings.Join([]string{
			fmt.Sprintf("Cinematic realistic documentary-style scene set in %d.", year),
			fmt.Sprintf("Primary subject: %s.", hero[i].Title),
			fmt.Sprintf("Context: %s.", hero[i].Subtitle),
			"Natural lighting, dramatic composition, period-appropriate details.",
			"No text, no logos, no watermarks.",
		}, " ")
		storagePath := fmt.Sprintf("year-news/%d/hero/%s.png", year, storyKey)
		hero[i].ImageURL = s.model.GenerateImage(ctx, imagePrompt, storagePath)
		if url := util.WikiSearchURL(fmt.Sprintf("%s %d UK", hero[i].Title, year)); url != "" {
			hero[i].URL = url
		}
	}
	for len(hero) < domain.HeroItemCount {
		index := len(hero) + 1
		hero = append(hero, domain.DefaultNewsItem(year, index, index, true))
	}

	ticker := normalizeTicker(parsed["ticker"])
	if len(ticker) < domain.TickerItemCount {
		for _, headline := range domain.DefaultTickerHeadlines(year) {
			if len(ticker) >= domain.TickerItemCount {
				break
			}
			if !containsString(ticker, headline) {
				ticker = append(ticker, headline)
			}
		}
	}

	return hero, ticker
}

func (s *newsService) buildMonthsChunk(ctx context.Context, year, startMonth, endMonth int) map[string][]domain.NewsItem {
	labels := strings.Join(util.MonthNames[startMonth-1:endMonth], ", ")
	prompt := strings.Join([]string{
		fmt.Sprintf("Create UK-first nostalgic news cards for year %d.", year),
		fmt.Sprintf("Generate months %s.", labels),
		"Return strict JSON with one key byMonth.",
		"byMonth is an object keyed by month short names (Jan..Dec).",
		fmt.Sprintf("Each month must have exactly %d items.", domain.MonthItemCount),
		"Each item must be: { title, subtitle, imageQuery, month }",
		"subtitle must be factual one sentence, max 170 chars.",
		"No markdown and no extra keys.",
	}, "\n")

	var byMonthRaw map[string]any
	parsed, err := s.model.RequestJSON(ctx, prompt, monthChunkMaxTokens)
	if err != nil {
		logger.Get().Warn("month chunk generation failed, padding with defaults",
			zap.Int("year", year),
			zap.Int("startMonth", startMonth),
			zap.Int("endMonth", endMonth),
			zap.Error(err),
		)
	} else if raw, ok := parsed["byMonth"].(map[string]any); ok {
		byMonthRaw = raw
	}

	output := make(map[string][]domain.NewsItem, endMonth-startMonth+1)
	for month := startMonth; month <= endMonth; month++ {
		monthKey := util.MonthNames[month-1]
		monthRaw := byMonthRaw[monthKey]
		if monthRaw == nil {
			monthRaw = byMonthRaw[fmt.Sprintf("%d", month)]
		}
		items := normalizeNewsItems(monthRaw, month)
		if len(items) > domain.MonthItemCount {
			items = items[:domain.MonthItemCount]
		}
		for len(items) < domain.MonthItemCount {
			items = append(items, domain.DefaultNewsItem(year, month, len(items)+1, false))
		}
		output[monthKey] = items
	}
	return output
}

// GenerateArticle writes the full story behind a news card. Identical
// (year, month, title) requests return the stored article without any
// model traffic. A model reply below 3 usable paragraphs fails outright:
// there is no synthetic substitute for article prose.
func (s *newsService) GenerateArticle(ctx context.Context, uid string, req *dto.ArticleRequest) (*dto.ArticleResponse, error) {
	if uid == "" {
		return nil, domain.NewUnauthenticatedError("Authentication required.")
	}
	if err := s.limiter.TryConsume(ctx, uid, articleLimitAction, articleLimitMax, newsLimitWindow); err != nil {
		return nil, err
	}
	if err := domain.ValidateNewsYear(req.Year); err != nil {
		return nil, err
	}

	month := util.ClampMonth(req.Month, 1)
	title := util.NormalizeText(req.Title)
	subtitle := util.ClampSubtitle(req.Subtitle)
	imageQuery := util.NormalizeText(req.ImageQuery)
	if imageQuery == "" {
		imageQuery = title
	}
	if title == "" || subtitle == "" {
		return nil, domain.NewInvalidArgumentError("title and subtitle are required.")
	}

	storyKey := util.StoryKey(req.Year, month, title)
	existing, err := s.news.GetArticle(ctx, storyKey)
	if err != nil {
		return nil, domain.NewInternalError("failed to load article", err)
	}
	if existing != nil {
		return &dto.ArticleResponse{
			Status:   dto.StatusAlreadyExists,
			Year:     req.Year,
			StoryKey: storyKey,
			Article:  existing,
		}, nil
	}

	article, err := s.generateArticle(ctx, req.Year, month, title, subtitle, imageQuery)
	if err != nil {
		logger.Get().Error("article generation failed",
			zap.Int("year", req.Year),
			zap.String("storyKey", storyKey),
			zap.Error(err),
		)
		return nil, domain.NewInternalError("Story generation failed. Please retry.", err)
	}

	if err := s.news.SaveArticle(ctx, article); err != nil {
		return nil, domain.NewInternalError("failed to persist article", err)
	}

	s.reconcilePackage(ctx, article)

	return &dto.ArticleResponse{
		Status:   dto.StatusGenerated,
		Year:     req.Year,
		StoryKey: article.StoryKey,
		Article:  article,
	}, nil
}

func (s *newsService) generateArticle(ctx context.Context, year, month int, title, subtitle, imageQuery string) (*domain.Article, error) {
	prompt := strings.Join([]string{
		fmt.Sprintf("Write a UK-first nostalgic feature article for the year %d.", year),
		fmt.Sprintf("Headline: %s", title),
		fmt.Sprintf("Deck: %s", subtitle),
		"Return strict JSON with fields:",
		"title, subtitle, imageQuery, bodyParagraphs",
		fmt.Sprintf("bodyParagraphs must be an array of exactly %d paragraphs.", domain.BodyParagraphs),
		"Each paragraph should be 2-4 sentences, vivid but factual in tone.",
		"No markdown, no bullet points, no extra keys.",
	}, "\n")

	parsed, err := s.model.RequestJSON(ctx, prompt, articleMaxTokens)
	if err != nil {
		return nil, err
	}

	paragraphs := normalizeParagraphs(parsed["bodyParagraphs"])
	if len(paragraphs) < domain.MinBodyParagraphs {
		return nil, fmt.Errorf("article body incomplete: %d paragraphs", len(paragraphs))
	}

	resolvedTitle := util.NormalizeText(stringValue(parsed["title"]))
	if resolvedTitle == "" {
		resolvedTitle = title
	}
	resolvedSubtitle := util.ClampSubtitle(stringValue(parsed["subtitle"]))
	if resolvedSubtitle == "" {
		resolvedSubtitle = subtitle
	}
	resolvedQuery := util.NormalizeText(stringValue(parsed["imageQuery"]))
	if resolvedQuery == "" {
		resolvedQuery = imageQuery
	}

	image := s.resolver.Resolve(ctx, ImageRequest{
		Title:      resolvedTitle,
		ImageQuery: resolvedQuery,
		Year:       year,
	})
	referenceURL := image.PageURL
	if referenceURL == "" {
		referenceURL = util.WikiSearchURL(fmt.Sprintf("%s %d UK", resolvedTitle, year))
	}

	return &domain.Article{
		StoryKey:       util.StoryKey(year, month, resolvedTitle),
		Year:           year,
		Month:          month,
		Title:          resolvedTitle,
		Subtitle:       resolvedSubtitle,
		ImageURL:       image.ImageURL,
		Source:         domain.NewsSourceLabel,
		ReferenceURL:   referenceURL,
		BodyParagraphs: paragraphs,
		UpdatedAt:      s.now(),
	}, nil
}

// reconcilePackage back-patches the article's resolved image and reference
// into every matching item of the year package. Best-effort: a failure
// here never fails the article operation.
func (s *newsService) reconcilePackage(ctx context.Context, article *domain.Article) {
	pkg, err := s.news.GetPackage(ctx, article.Year)
	if err != nil {
		logger.Get().Warn("failed to load package for reconciliation",
			zap.Int("year", article.Year),
			zap.Error(err),
		)
		return
	}
	if pkg == nil {
		return
	}

	result := domain.ReconcileArticle(pkg, article)
	if !result.Changed {
		return
	}
	if err := s.news.PatchPackage(ctx, article.Year, result.Hero, result.ByMonth, s.now()); err != nil {
		logger.Get().Warn("failed to patch package after reconciliation",
			zap.Int("year", article.Year),
			zap.String("storyKey", article.StoryKey),
			zap.Error(err),
		)
	}
}

// normalizeNewsItems coerces the model's untyped item list; entries missing
// a title or subtitle are dropped.
func normalizeNewsItems(raw any, monthFallback int) []domain.NewsItem {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		month := util.ClampMonth(intValue(entry["month"], 0), monthFallback)
		title := util.NormalizeText(stringValue(entry["title"]))
		subtitle := util.ClampSubtitle(stringValue(entry["subtitle"]))
		if title == "" || subtitle == "" {
			continue
		}
		imageQuery := util.NormalizeText(stringValue(entry["imageQuery"]))
		if imageQuery == "" {
			imageQuery = title
		}
		out = append(out, domain.NewsItem{
			Title:      title,
			Subtitle:   subtitle,
			ImageQuery: imageQuery,
			Source:     domain.NewsSourceLabel,
			URL:        util.WikiSearchURL(fmt.Sprintf("%s %d UK", title, month)),
			Month:      month,
		})
	}
	return out
}

func normalizeTicker(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		headline := util.NormalizeText(stringValue(item))
		if headline == "" {
			continue
		}
		out = append(out, headline)
		if len(out) >= domain.TickerItemCount {
			break
		}
	}
	return out
}

func normalizeParagraphs(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, domain.BodyParagraphs)
	for _, item := range items {
		paragraph := util.NormalizeText(stringValue(item))
		if paragraph == "" {
			continue
		}
		out = append(out, paragraph)
		if len(out) >= domain.BodyParagraphs {
			break
		}
	}
	return out
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
