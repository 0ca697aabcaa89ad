package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"yesteryear/internal/util"
)

// Provenance tags where a generated question came from.
const (
	SourceModel    = "ai"
	SourceFallback = "fallback"
)

// QuizQuestionCount is the exact number of questions in every stored quiz.
const QuizQuestionCount = 20

// Difficulty levels accepted for a group's quiz setting.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// QuizQuestion is a single multiple-choice question locked to a year.
type QuizQuestion struct {
	Year        int      `json:"year" bson:"year"`
	Question    string   `json:"question" bson:"question"`
	Options     []string `json:"options" bson:"options"`
	AnswerIndex int      `json:"answerIndex" bson:"answerIndex"`
	Explanation string   `json:"explanation" bson:"explanation"`
	Source      string   `json:"source" bson:"source"`
}

// SourceSummary records how many questions came from the model vs fallback.
type SourceSummary struct {
	ModelCount    int `json:"aiCount" bson:"aiCount"`
	FallbackCount int `json:"fallbackCount" bson:"fallbackCount"`
}

// QuizDefinition is the wholesale-overwritten quiz document for a
// (group, week) pair.
type QuizDefinition struct {
	ID            string         `json:"-" bson:"_id"`
	GroupID       string         `json:"groupId" bson:"groupId"`
	WeekID        string         `json:"weekId" bson:"weekId"`
	Year          int            `json:"year" bson:"year"`
	Difficulty    string         `json:"difficulty" bson:"difficulty"`
	Seed          string         `json:"seed" bson:"seed"`
	Questions     []QuizQuestion `json:"questions" bson:"questions"`
	SourceSummary *SourceSummary `json:"sourceSummary,omitempty" bson:"sourceSummary,omitempty"`
	GeneratedBy   string         `json:"generatedBy" bson:"generatedBy"`
	Model         string         `json:"model" bson:"model"`
	CreatedAt     time.Time      `json:"createdAt" bson:"createdAt"`
}

// NormalizeDifficulty coerces arbitrary input to a supported level.
func NormalizeDifficulty(raw string) string {
	switch raw {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return raw
	default:
		return DifficultyMedium
	}
}

var yearTokenRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// HasOtherYearInOptions reports whether any option mentions a 4-digit year
// other than the target year. Best-effort, checked post-hoc.
func HasOtherYearInOptions(options []string, year int) bool {
	for _, option := range options {
		for _, match := range yearTokenRe.FindAllString(option, -1) {
			if value, err := strconv.Atoi(match); err == nil && value != year {
				return true
			}
		}
	}
	return false
}

// FilterQuestionsToYear keeps only well-formed questions strictly tied to
// the target year: matching year field, exactly 4 options, valid answer
// index, non-empty text, and no foreign year token in any option.
func FilterQuestionsToYear(questions []QuizQuestion, year int) []QuizQuestion {
	filtered := make([]QuizQuestion, 0, len(questions))
	for _, q := range questions {
		if q.Year != year {
			continue
		}
		if len(q.Options) != 4 {
			continue
		}
		if q.AnswerIndex < 0 || q.AnswerIndex > 3 {
			continue
		}
		if util.NormalizeText(q.Question) == "" {
			continue
		}
		if HasOtherYearInOptions(q.Options, year) {
			continue
		}
		filtered = append(filtered, q)
	}
	return filtered
}

// DedupeQuestions removes questions whose normalized text repeats, keeping
// first occurrences in order. Idempotent.
func DedupeQuestions(questions []QuizQuestion) []QuizQuestion {
	seen := make(map[string]bool, len(questions))
	out := make([]QuizQuestion, 0, len(questions))
	for _, q := range questions {
		key := util.QuestionKey(q.Question)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

var fallbackPrompts = []string{
	"Which headline music release in %d had the biggest cultural impact?",
	"Which live performance from %d is most associated with that year's sound?",
	"Which soundtrack moment in %d became widely recognizable?",
	"Which radio trend best matches mainstream listening in %d?",
	"Which debut act most defined new talent in %d?",
	"Which collaboration style was most visible in %d?",
	"Which award-show music moment is most linked to %d?",
	"Which chart pattern best describes hit songs in %d?",
	"Which album production style stood out in %d?",
	"Which genre crossover became common in %d?",
	"Which tour format gained traction in %d?",
	"Which music video direction was most typical in %d?",
	"Which festival talking point was tied to %d?",
	"Which breakthrough single pattern best fits %d?",
	"Which vocal trend best reflects top songs in %d?",
	"Which instrumentation choice was common in %d?",
	"Which TV-and-music crossover felt most emblematic of %d?",
	"Which pop-culture music headline best matches %d?",
	"Which dance-floor trend was strongest in %d?",
	"Which songwriting theme appeared most often in %d?",
	"Which chart-climbing strategy was typical in %d?",
	"Which live-band arrangement was most associated with %d?",
	"Which remix trend best fits the sound of %d?",
	"Which artist rollout style became common in %d?",
}

var fallbackOptionPool = []string{
	"A breakthrough mainstream hit from %d",
	"A crossover success associated with %d",
	"A live-performance moment discussed in %d",
	"A chart-dominating release from %d",
	"A radio staple heavily played in %d",
	"A soundtrack-driven song surge in %d",
	"A genre-blending anthem tied to %d",
	"A festival favorite strongly linked to %d",
}

// FallbackQuestions builds up to 20 deterministic year-parameterized
// questions, excluding any whose text already appears in avoidQuestions.
// The answer index rotates as (year + bank index) mod 4 so correct answers
// spread evenly across positions.
func FallbackQuestions(year int, avoidQuestions []string) []QuizQuestion {
	avoid := make(map[string]bool, len(avoidQuestions))
	for _, q := range avoidQuestions {
		if key := util.QuestionKey(q); key != "" {
			avoid[key] = true
		}
	}

	bank := make([]QuizQuestion, 0, len(fallbackPrompts))
	for index, prompt := range fallbackPrompts {
		options := []string{
			fmt.Sprintf(fallbackOptionPool[(index+0)%len(fallbackOptionPool)], year),
			fmt.Sprintf(fallbackOptionPool[(index+2)%len(fallbackOptionPool)], year),
			fmt.Sprintf(fallbackOptionPool[(index+4)%len(fallbackOptionPool)], year),
			fmt.Sprintf(fallbackOptionPool[(index+6)%len(fallbackOptionPool)], year),
		}
		bank = append(bank, QuizQuestion{
			Year:        year,
			Question:    fmt.Sprintf(prompt, year),
			Options:     options,
			AnswerIndex: (year + index) % 4,
			Explanation: fmt.Sprintf("Fallback year-locked question for %d.", year),
			Source:      SourceFallback,
		})
	}

	filtered := make([]QuizQuestion, 0, len(bank))
	for _, q := range bank {
		if !avoid[util.QuestionKey(q.Question)] {
			filtered = append(filtered, q)
		}
	}
	pool := filtered
	if len(filtered) < QuizQuestionCount {
		pool = bank
	}
	if len(pool) > QuizQuestionCount {
		pool = pool[:QuizQuestionCount]
	}
	return pool
}

// SyntheticFillerQuestion builds the last-resort filler used when both the
// model and the fallback bank leave the quiz short.
func SyntheticFillerQuestion(year, pad int) QuizQuestion {
	return QuizQuestion{
		Year:     year,
		Question: fmt.Sprintf("Year %d music memory check #%d", year, pad),
		Options: []string{
			fmt.Sprintf("Notable release in %d", year),
			fmt.Sprintf("Popular radio trend in %d", year),
			fmt.Sprintf("Major live performance in %d", year),
			fmt.Sprintf("Breakout artist moment in %d", year),
		},
		AnswerIndex: 0,
		Explanation: fmt.Sprintf("Fallback filler for strict year %d.", year),
		Source:      SourceFallback,
	}
}
