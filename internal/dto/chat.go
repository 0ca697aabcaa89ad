package dto

import "yesteryear/internal/domain"

// ChatContext carries the year focus and up to the last 8 turns.
type ChatContext struct {
	Year    int               `json:"year"`
	History []domain.ChatTurn `json:"history"`
}

// ChatRequest is the request body for a nostalgia chat reply.
type ChatRequest struct {
	GroupID string      `json:"groupId"`
	Message string      `json:"message"`
	Context ChatContext `json:"context"`
}

// ChatResponse carries the assistant reply, clamped to 1500 characters.
type ChatResponse struct {
	Reply string `json:"reply"`
}
