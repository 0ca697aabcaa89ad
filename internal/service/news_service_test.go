package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"yesteryear/internal/domain"
	"yesteryear/internal/dto"
	"yesteryear/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newNewsFixture() (*MockNewsRepository, *MockModelClient, *MockRateLimiter, *MockEncyclopediaClient, NewsService) {
	news := new(MockNewsRepository)
	model := new(MockModelClient)
	limiter := new(MockRateLimiter)
	wiki := new(MockEncyclopediaClient)
	svc := NewNewsService(news, model, limiter, NewImageResolver(wiki, model))
	svc.(*newsService).now = func() time.Time {
		return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	}
	return news, model, limiter, wiki, svc
}

func allowAll(limiter *MockRateLimiter) {
	limiter.On("TryConsume", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func TestNewsService_GeneratePackage_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("missing uid", func(t *testing.T) {
		_, _, _, _, svc := newNewsFixture()
		_, err := svc.GeneratePackage(ctx, "", &dto.YearNewsPackageRequest{Year: 1985})
		assertDomainCode(t, err, domain.CodeUnauthenticated)
	})

	t.Run("rate limited", func(t *testing.T) {
		_, _, limiter, _, svc := newNewsFixture()
		limiter.On("TryConsume", mock.Anything, "user-1", "year_news_generation_daily", 40, 24*time.Hour).
			Return(domain.NewResourceExhaustedError("Rate limit exceeded. Please try again later."))

		_, err := svc.GeneratePackage(ctx, "user-1", &dto.YearNewsPackageRequest{Year: 1985})
		assertDomainCode(t, err, domain.CodeResourceExhausted)
	})

	t.Run("year out of range", func(t *testing.T) {
		_, _, limiter, _, svc := newNewsFixture()
		allowAll(limiter)
		_, err := svc.GeneratePackage(ctx, "user-1", &dto.YearNewsPackageRequest{Year: 1925})
		assertDomainCode(t, err, domain.CodeInvalidArgument)
	})
}

func TestNewsService_GeneratePackage_FreshPackageReused(t *testing.T) {
	ctx := context.Background()
	news, model, limiter, _, svc := newNewsFixture()
	allowAll(limiter)

	news.On("GetPackage", mock.Anything, 1985).Return(&domain.YearNewsPackage{
		Year:             1985,
		GenerationStatus: domain.StatusComplete,
		UpdatedAt:        time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	}, nil)

	resp, err := svc.GeneratePackage(ctx, "user-1", &dto.YearNewsPackageRequest{Year: 1985})
	require.NoError(t, err)
	assert.Equal(t, dto.StatusAlreadyExists, resp.Status)
	assert.Equal(t, 1985, resp.Year)

	model.AssertNotCalled(t, "RequestJSON", mock.Anything, mock.Anything, mock.Anything)
	news.AssertNotCalled(t, "SavePackage", mock.Anything, mock.Anything)
}

func TestNewsService_GeneratePackage_PadsToExactCounts(t *testing.T) {
	ctx := context.Background()
	news, model, limiter, _, svc := newNewsFixture()
	allowAll(limiter)

	news.On("GetPackage", mock.Anything, 1985).Return(nil, nil)

	// Hero call returns only two usable items and a short ticker; the
	// three month-chunk calls fail outright.
	heroReply := map[string]any{
		"hero": []any{
			map[string]any{"title": "Live Aid at Wembley", "subtitle": "A global concert broadcast", "month": float64(7)},
			map[string]any{"title": "Miners strike ends", "subtitle": "A year-long dispute closes", "month": float64(3)},
			map[string]any{"title": "No subtitle so dropped"},
		},
		"ticker": []any{"Live Aid rocks Wembley", "EastEnders debuts"},
	}
	model.On("RequestJSON", mock.Anything, mock.Anything, 1600).Return(heroReply, nil).Once()
	model.On("RequestJSON", mock.Anything, mock.Anything, 2600).
		Return(nil, errors.New("model unavailable")).Times(3)
	model.On("GenerateImage", mock.Anything, mock.Anything, mock.Anything).Return("").Times(2)

	var saved *domain.YearNewsPackage
	news.On("SavePackage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.YearNewsPackage) }).
		Return(nil)

	resp, err := svc.GeneratePackage(ctx, "user-1", &dto.YearNewsPackageRequest{Year: 1985})
	require.NoError(t, err)
	assert.Equal(t, dto.StatusGenerated, resp.Status)

	require.NotNil(t, saved)
	assert.Equal(t, domain.StatusComplete, saved.GenerationStatus)
	assert.Len(t, saved.Hero, domain.HeroItemCount)
	assert.Equal(t, "Live Aid at Wembley", saved.Hero[0].Title)
	assert.Equal(t, "UK spotlight in 1985 (3/3)", saved.Hero[2].Title)

	assert.Len(t, saved.Ticker, domain.TickerItemCount)
	assert.Equal(t, "Live Aid rocks Wembley", saved.Ticker[0])

	require.Len(t, saved.ByMonth, 12)
	for _, monthKey := range util.MonthNames {
		items := saved.ByMonth[monthKey]
		require.Len(t, items, domain.MonthItemCount, "month %s", monthKey)
		for _, item := range items {
			assert.NotEmpty(t, item.Title)
			assert.NotEmpty(t, item.Subtitle)
		}
	}
}

func TestNewsService_GeneratePackage_BuildSurvivesCallerCancellation(t *testing.T) {
	news, model, limiter, _, svc := newNewsFixture()
	allowAll(limiter)

	news.On("GetPackage", mock.Anything, 1985).Return(nil, nil)

	var buildCtxs []context.Context
	model.On("RequestJSON", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { buildCtxs = append(buildCtxs, args.Get(0).(context.Context)) }).
		Return(nil, errors.New("model unavailable")).Times(4)
	news.On("SavePackage", mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := svc.GeneratePackage(ctx, "user-1", &dto.YearNewsPackageRequest{Year: 1985})
	require.NoError(t, err)
	assert.Equal(t, dto.StatusGenerated, resp.Status)

	require.NotEmpty(t, buildCtxs)
	for _, buildCtx := range buildCtxs {
		assert.NoError(t, buildCtx.Err())
	}
}

func TestNewsService_GenerateArticle_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("missing uid", func(t *testing.T) {
		_, _, _, _, svc := newNewsFixture()
		_, err := svc.GenerateArticle(ctx, "", &dto.ArticleRequest{Year: 1985})
		assertDomainCode(t, err, domain.CodeUnauthenticated)
	})

	t.Run("missing title", func(t *testing.T) {
		_, _, limiter, _, svc := newNewsFixture()
		allowAll(limiter)
		_, err := svc.GenerateArticle(ctx, "user-1", &dto.ArticleRequest{
			Year: 1985, Month: 7, Subtitle: "A global concert broadcast",
		})
		assertDomainCode(t, err, domain.CodeInvalidArgument)
	})
}

func TestNewsService_GenerateArticle_ExistingReturnedWithoutModelCalls(t *testing.T) {
	ctx := context.Background()
	news, model, limiter, _, svc := newNewsFixture()
	allowAll(limiter)

	storyKey := util.StoryKey(1985, 7, "Live Aid at Wembley")
	existing := &domain.Article{StoryKey: storyKey, Year: 1985, Month: 7, Title: "Live Aid at Wembley"}
	news.On("GetArticle", mock.Anything, storyKey).Return(existing, nil)

	resp, err := svc.GenerateArticle(ctx, "user-1", &dto.ArticleRequest{
		Year: 1985, Month: 7, Title: "live aid AT wembley", Subtitle: "A global concert broadcast",
	})
	require.NoError(t, err)
	assert.Equal(t, dto.StatusAlreadyExists, resp.Status)
	assert.Equal(t, storyKey, resp.StoryKey)
	assert.Same(t, existing, resp.Article)

	model.AssertNotCalled(t, "RequestJSON", mock.Anything, mock.Anything, mock.Anything)
	news.AssertNotCalled(t, "SaveArticle", mock.Anything, mock.Anything)
}

func TestNewsService_GenerateArticle_GeneratesAndReconciles(t *testing.T) {
	ctx := context.Background()
	news, model, limiter, wiki, svc := newNewsFixture()
	allowAll(limiter)

	storyKey := util.StoryKey(1985, 7, "Live Aid at Wembley")
	news.On("GetArticle", mock.Anything, storyKey).Return(nil, nil)

	model.On("RequestJSON", mock.Anything, mock.Anything, 2200).Return(map[string]any{
		"title":    "Live Aid at Wembley",
		"subtitle": "The day pop united for Ethiopia",
		"bodyParagraphs": []any{
			"Paragraph one.", "Paragraph two.", "Paragraph three.",
			"Paragraph four.", "Paragraph five.",
		},
	}, nil)
	wiki.On("Summary", mock.Anything, mock.Anything).Return(&domain.EncyclopediaSummary{
		ImageURL: "https://img/live-aid.jpg",
		PageURL:  "https://en.wikipedia.org/wiki/Live_Aid",
	}, nil)

	var saved *domain.Article
	news.On("SaveArticle", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.Article) }).
		Return(nil)

	pkg := &domain.YearNewsPackage{
		Year:             1985,
		GenerationStatus: domain.StatusComplete,
		Hero: []domain.NewsItem{
			{Title: "Live Aid at Wembley", Month: 7, ImageURL: "", URL: "", Source: ""},
		},
		ByMonth: map[string][]domain.NewsItem{},
	}
	news.On("GetPackage", mock.Anything, 1985).Return(pkg, nil)
	news.On("PatchPackage", mock.Anything, 1985, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	resp, err := svc.GenerateArticle(ctx, "user-1", &dto.ArticleRequest{
		Year: 1985, Month: 7, Title: "Live Aid at Wembley", Subtitle: "A global concert broadcast",
	})
	require.NoError(t, err)
	assert.Equal(t, dto.StatusGenerated, resp.Status)

	require.NotNil(t, saved)
	assert.Equal(t, storyKey, saved.StoryKey)
	assert.Len(t, saved.BodyParagraphs, domain.BodyParagraphs)
	assert.Equal(t, "https://img/live-aid.jpg", saved.ImageURL)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Live_Aid", saved.ReferenceURL)
	assert.Equal(t, domain.NewsSourceLabel, saved.Source)

	news.AssertCalled(t, "PatchPackage", mock.Anything, 1985, mock.Anything, mock.Anything, mock.Anything)
}

func TestNewsService_GenerateArticle_TooFewParagraphsFails(t *testing.T) {
	ctx := context.Background()
	news, model, limiter, _, svc := newNewsFixture()
	allowAll(limiter)

	storyKey := util.StoryKey(1985, 7, "Live Aid at Wembley")
	news.On("GetArticle", mock.Anything, storyKey).Return(nil, nil)
	model.On("RequestJSON", mock.Anything, mock.Anything, 2200).Return(map[string]any{
		"bodyParagraphs": []any{"Only one.", "And two."},
	}, nil)

	_, err := svc.GenerateArticle(ctx, "user-1", &dto.ArticleRequest{
		Year: 1985, Month: 7, Title: "Live Aid at Wembley", Subtitle: "A global concert broadcast",
	})
	assertDomainCode(t, err, domain.CodeInternal)
	news.AssertNotCalled(t, "SaveArticle", mock.Anything, mock.Anything)
}

func TestNewsService_GenerateArticle_ReconcileFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	news, model, limiter, wiki, svc := newNewsFixture()
	allowAll(limiter)

	storyKey := util.StoryKey(1985, 7, "Live Aid at Wembley")
	news.On("GetArticle", mock.Anything, storyKey).Return(nil, nil)
	model.On("RequestJSON", mock.Anything, mock.Anything, 2200).Return(map[string]any{
		"bodyParagraphs": []any{"One.", "Two.", "Three."},
	}, nil)
	wiki.On("Summary", mock.Anything, mock.Anything).Return(nil, nil)
	wiki.On("SearchImage", mock.Anything, mock.Anything).Return("", nil)
	model.On("GenerateImage", mock.Anything, mock.Anything, mock.Anything).Return("")
	news.On("SaveArticle", mock.Anything, mock.Anything).Return(nil)
	news.On("GetPackage", mock.Anything, 1985).Return(nil, errors.New("mongo down"))

	resp, err := svc.GenerateArticle(ctx, "user-1", &dto.ArticleRequest{
		Year: 1985, Month: 7, Title: "Live Aid at Wembley", Subtitle: "A global concert broadcast",
	})
	require.NoError(t, err)
	assert.Equal(t, dto.StatusGenerated, resp.Status)
	assert.Equal(t, domain.FallbackImageURL, resp.Article.ImageURL)
}
