package dto

import "yesteryear/internal/domain"

// WeeklyQuizRequest is the request body for generating a weekly quiz.
type WeeklyQuizRequest struct {
	GroupID         string `json:"groupId"`
	WeekID          string `json:"weekId"`
	Year            int    `json:"year"`
	ForceRegenerate bool   `json:"forceRegenerate"`
}

// WeeklyQuizResponse carries the exactly-20-question quiz.
type WeeklyQuizResponse struct {
	Questions []domain.QuizQuestion `json:"questions"`
}
