package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"yesteryear/internal/domain"
	"yesteryear/internal/dto"
	"yesteryear/internal/logger"
	"yesteryear/internal/util"

	"go.uber.org/zap"
)

const (
	quizGenerationRounds = 5
	quizFirstRoundCount  = 35
	quizLaterRoundCount  = 20
	quizPromptMaxTokens  = 4200
	quizModelLabel       = "gpt-4o-mini-or-fallback"
	quizRegenLimitAction = "quiz_generation_daily"
	quizRegenLimitMax    = 25
	quizRegenLimitWindow = 24 * time.Hour
	defaultQuizYear      = 1990
	quizAvoidListMax     = 20
)

// QuizService generates and serves weekly quiz definitions.
type QuizService interface {
	GenerateWeeklyQuiz(ctx context.Context, uid string, req *dto.WeeklyQuizRequest) (*dto.WeeklyQuizResponse, error)
}

type quizService struct {
	groups  domain.GroupRepository
	quizzes domain.QuizRepository
	model   domain.ModelClient
	limiter domain.RateLimiter
	now     func() time.Time
}

// NewQuizService creates a new quiz service.
func NewQuizService(groups domain.GroupRepository, quizzes domain.QuizRepository, model domain.ModelClient, limiter domain.RateLimiter) QuizService {
	return &quizService{
		groups:  groups,
		quizzes: quizzes,
		model:   model,
		limiter: limiter,
		now:     time.Now,
	}
}

// GenerateWeeklyQuiz returns the cached quiz when it is still valid for the
// group's year and difficulty, and otherwise regenerates it wholesale:
// model rounds first, deterministic fallback afterwards, always landing on
// exactly 20 year-locked questions.
func (s *quizService) GenerateWeeklyQuiz(ctx context.Context, uid string, req *dto.WeeklyQuizRequest) (*dto.WeeklyQuizResponse, error) {
	if uid == "" {
		return nil, domain.NewUnauthenticatedError("Authentication required.")
	}
	if req.GroupID == "" || req.WeekID == "" {
		return nil, domain.NewInvalidArgumentError("groupId and weekId are required.")
	}

	member, err := s.groups.IsMember(ctx, req.GroupID, uid)
	if err != nil {
		return nil, domain.NewInternalError("failed to check group membership", err)
	}
	if !member {
		return nil, domain.NewPermissionDeniedError("You are not a member of this group.")
	}

	group, err := s.groups.GetGroup(ctx, req.GroupID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load group", err)
	}
	if group == nil {
		return nil, domain.NewNotFoundError("Group not found.")
	}

	year := req.Year
	if year == 0 {
		year = defaultQuizYear
	}
	if group.CurrentYear != 0 {
		year = group.CurrentYear
	}
	if year < 1900 || year > 2100 {
		return nil, domain.NewInvalidArgumentError("year must be a valid integer year.")
	}

	difficulty := domain.NormalizeDifficulty(group.QuizDifficulty)
	seed := util.HashSeed(fmt.Sprintf("%s:%s:%d:%s", req.GroupID, req.WeekID, year, difficulty))

	existing, err := s.quizzes.GetDefinition(ctx, req.GroupID, req.WeekID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load quiz definition", err)
	}

	var existingStrict []domain.QuizQuestion
	if existing != nil {
		existingStrict = domain.FilterQuestionsToYear(existing.Questions, year)
	}

	fresh := existing != nil &&
		len(existingStrict) == domain.QuizQuestionCount &&
		existing.Year == year &&
		existing.SourceSummary != nil &&
		domain.NormalizeDifficulty(existing.Difficulty) == difficulty

	if fresh && !req.ForceRegenerate {
		logger.Get().Info("returning cached weekly quiz",
			zap.String("groupId", req.GroupID),
			zap.String("weekId", req.WeekID),
			zap.Int("year", year),
		)
		return &dto.WeeklyQuizResponse{Questions: existingStrict}, nil
	}

	if req.ForceRegenerate {
		if group.Admin() == "" || group.Admin() != uid {
			return nil, domain.NewPermissionDeniedError("Only admins can regenerate quiz content.")
		}
		if err := s.limiter.TryConsume(ctx, uid, quizRegenLimitAction, quizRegenLimitMax, quizRegenLimitWindow); err != nil {
			return nil, err
		}
	}

	var avoidTexts []string
	if existing != nil {
		for _, q := range existing.Questions {
			avoidTexts = append(avoidTexts, q.Question)
		}
	}

	questions := s.generateFromModel(ctx, year, difficulty, seed, avoidTexts)
	modelCount := len(questions)

	if len(questions) < domain.QuizQuestionCount {
		accepted := make([]string, 0, len(questions))
		for _, q := range questions {
			accepted = append(accepted, q.Question)
		}
		for _, fallback := range domain.FallbackQuestions(year, accepted) {
			if containsQuestion(questions, fallback.Question) {
				continue
			}
			questions = append(questions, fallback)
			if len(questions) >= domain.QuizQuestionCount {
				break
			}
		}
	}
	for pad := 1; len(questions) < domain.QuizQuestionCount; pad++ {
		filler := domain.SyntheticFillerQuestion(year, pad)
		if !containsQuestion(questions, filler.Question) {
			questions = append(questions, filler)
		}
	}
	questions = questions[:domain.QuizQuestionCount]
	fallbackCount := domain.QuizQuestionCount - modelCount

	def := &domain.QuizDefinition{
		GroupID:    req.GroupID,
		WeekID:     req.WeekID,
		Year:       year,
		Difficulty: difficulty,
		Seed:       seed,
		Questions:  questions,
		SourceSummary: &domain.SourceSummary{
			ModelCount:    modelCount,
			FallbackCount: fallbackCount,
		},
		GeneratedBy: uid,
		Model:       quizModelLabel,
		CreatedAt:   s.now(),
	}
	if err := s.quizzes.SaveDefinition(ctx, def); err != nil {
		return nil, domain.NewInternalError("failed to persist quiz definition", err)
	}

	logger.Get().Info("weekly quiz regenerated",
		zap.String("groupId", req.GroupID),
		zap.String("weekId", req.WeekID),
		zap.Int("year", year),
		zap.Int("modelCount", modelCount),
		zap.Int("fallbackCount", fallbackCount),
	)
	return &dto.WeeklyQuizResponse{Questions: questions}, nil
}

// generateFromModel runs up to 5 rounds against the model, accumulating
// unique year-locked questions and stopping early at 20. A round that
// exhausts the model's retry budget abandons model generation entirely;
// the fallback path fills the quiz.
func (s *quizService) generateFromModel(ctx context.Context, year int, difficulty, seed string, avoidTexts []string) []domain.QuizQuestion {
	unique := make([]domain.QuizQuestion, 0, domain.QuizQuestionCount)
	seen := make(map[string]bool)

	for round := 0; round < quizGenerationRounds && len(unique) < domain.QuizQuestionCount; round++ {
		requestCount := quizLaterRoundCount
		if round == 0 {
			requestCount = quizFirstRoundCount
		}
		instructionSeed := seed
		if round > 0 {
			instructionSeed = fmt.Sprintf("%s_retry_%d", seed, round)
		}

		prompt := buildQuizPrompt(year, difficulty, instructionSeed, avoidTexts, round, requestCount, s.now())
		parsed, err := s.model.RequestJSON(ctx, prompt, quizPromptMaxTokens)
		if err != nil {
			logger.Get().Warn("quiz model generation failed, falling back",
				zap.Int("round", round),
				zap.Int("year", year),
				zap.Error(err),
			)
			return nil
		}

		maxCount := requestCount
		if maxCount < 40 {
			maxCount = 40
		}
		batch := normalizeGeneratedQuestions(parsed["questions"], maxCount)
		filtered := domain.FilterQuestionsToYear(batch, year)
		logger.Get().Info("quiz generation round",
			zap.Int("round", round),
			zap.Int("requested", requestCount),
			zap.Int("raw", len(batch)),
			zap.Int("yearLocked", len(filtered)),
			zap.Int("uniqueBefore", len(unique)),
		)

		for _, q := range filtered {
			key := util.QuestionKey(q.Question)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			q.Source = domain.SourceModel
			unique = append(unique, q)
			if len(unique) >= domain.QuizQuestionCount {
				break
			}
		}
	}
	return unique
}

func containsQuestion(questions []domain.QuizQuestion, text string) bool {
	key := util.QuestionKey(text)
	for _, q := range questions {
		if util.QuestionKey(q.Question) == key {
			return true
		}
	}
	return false
}

// normalizeGeneratedQuestions coerces the model's untyped questions array,
// accepting the legacy q/choices/explain aliases the mobile client once
// produced.
func normalizeGeneratedQuestions(raw any, maxCount int) []domain.QuizQuestion {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	if len(items) > maxCount {
		items = items[:maxCount]
	}

	questions := make([]domain.QuizQuestion, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		question := strings.TrimSpace(stringValue(entry["question"]))
		if question == "" {
			question = strings.TrimSpace(stringValue(entry["q"]))
		}
		options := stringSlice(entry["options"])
		if len(options) == 0 {
			options = stringSlice(entry["choices"])
		}
		if len(options) > 4 {
			options = options[:4]
		}
		explanation := strings.TrimSpace(stringValue(entry["explanation"]))
		if explanation == "" {
			explanation = strings.TrimSpace(stringValue(entry["explain"]))
		}
		q := domain.QuizQuestion{
			Year:        intValue(entry["year"], -1),
			Question:    question,
			Options:     options,
			AnswerIndex: intValue(entry["answerIndex"], -1),
			Explanation: explanation,
		}
		if q.Question == "" || len(q.Options) != 4 || q.AnswerIndex < 0 || q.AnswerIndex > 3 {
			continue
		}
		questions = append(questions, q)
	}
	return questions
}

func buildQuizPrompt(year int, difficulty, seed string, avoidTexts []string, retryLevel, questionCount int, now time.Time) string {
	avoid := make([]string, 0, quizAvoidListMax)
	for _, text := range avoidTexts {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			continue
		}
		avoid = append(avoid, trimmed)
		if len(avoid) >= quizAvoidListMax {
			break
		}
	}
	nonce := fmt.Sprintf("%s_%d_%d", seed, now.UnixMilli(), rand.Intn(1000000))

	lines := []string{
		fmt.Sprintf("Generate exactly %d nostalgia quiz questions.", questionCount),
		fmt.Sprintf("Focus year: %d. ONLY use this exact year.", year),
		"NO OTHER YEARS are allowed anywhere.",
		fmt.Sprintf("Difficulty hint: %s.", difficulty),
		fmt.Sprintf("Generation nonce: %s.", nonce),
		fmt.Sprintf("Deterministic seed for this group/week/year: %s.", seed),
		"Difficulty guidelines:",
		"easy: basic pop culture and major events, very recognizable questions.",
		"medium: balanced mix of pop culture, tech, sports, and world events.",
		"hard: deeper or less obvious facts, niche events, second-tier hits, tech details.",
		"Each question must have year, question, options[4], answerIndex (0-3), explanation.",
		"Do not repeat any question text within this quiz.",
		fmt.Sprintf("Question.year MUST be %d for every item.", year),
		fmt.Sprintf("No option may contain any 4-digit year other than %d.", year),
	}
	if retryLevel > 0 {
		lines = append(lines,
			fmt.Sprintf("RETRY %d: NO OTHER YEARS. If uncertain, rewrite the question to stay in %d.", retryLevel, year),
			"If any question cannot be guaranteed for the exact year, replace it before returning.",
		)
	}
	if len(avoid) > 0 {
		lines = append(lines, "Do not reuse or closely paraphrase any of these prior questions:")
		for idx, text := range avoid {
			lines = append(lines, fmt.Sprintf("%d. %s", idx+1, text))
		}
	}
	lines = append(lines,
		"Return ONLY JSON in this exact shape:",
		fmt.Sprintf(`{"questions":[{"year":%d,"question":"...","options":["a","b","c","d"],"answerIndex":0,"explanation":"..."}]}`, year),
	)
	return strings.Join(lines, "\n")
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprintf("%v", item))
	}
	return out
}

func intValue(v any, fallback int) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return fallback
	}
}
