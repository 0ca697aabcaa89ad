package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"yesteryear/internal/domain"
	"yesteryear/internal/dto"
	"yesteryear/internal/logger"

	"go.uber.org/zap"
)

const (
	chatLimitAction = "chat_minute"
	chatLimitMax    = 20
	chatLimitWindow = time.Minute
	chatMessageMax  = 800
	chatReplyMax    = 1500
	chatMaxTokens   = 300
	defaultChatYear = 1990
)

// ChatService produces nostalgia chat replies for group members.
type ChatService interface {
	Reply(ctx context.Context, uid string, req *dto.ChatRequest) (*dto.ChatResponse, error)
}

type chatService struct {
	groups  domain.GroupRepository
	model   domain.ModelClient
	limiter domain.RateLimiter
}

// NewChatService creates a new chat service.
func NewChatService(groups domain.GroupRepository, model domain.ModelClient, limiter domain.RateLimiter) ChatService {
	return &chatService{groups: groups, model: model, limiter: limiter}
}

// Reply validates the caller, enforces the per-minute budget, and asks the
// model for a year-anchored reply clamped to 1500 characters.
func (s *chatService) Reply(ctx context.Context, uid string, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	if uid == "" {
		return nil, domain.NewUnauthenticatedError("Authentication required.")
	}
	message := strings.TrimSpace(req.Message)
	if req.GroupID == "" || message == "" {
		return nil, domain.NewInvalidArgumentError("groupId and message are required.")
	}
	if utf8.RuneCountInString(message) > chatMessageMax {
		return nil, domain.NewInvalidArgumentError("Message too long.")
	}

	member, err := s.groups.IsMember(ctx, req.GroupID, uid)
	if err != nil {
		return nil, domain.NewInternalError("failed to check group membership", err)
	}
	if !member {
		return nil, domain.NewPermissionDeniedError("You are not a member of this group.")
	}

	if err := s.limiter.TryConsume(ctx, uid, chatLimitAction, chatLimitMax, chatLimitWindow); err != nil {
		return nil, err
	}

	year := req.Context.Year
	if year == 0 {
		year = defaultChatYear
	}
	system := fmt.Sprintf("You are a nostalgic assistant for year %d. Keep answers concise, friendly, and practical.", year)

	reply, err := s.model.Chat(ctx, system, req.Context.History, message, chatMaxTokens)
	if err != nil {
		logger.Get().Error("chat completion failed",
			zap.String("groupId", req.GroupID),
			zap.Error(err),
		)
		return nil, domain.NewInternalError("AI service unavailable.", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, domain.NewInternalError("AI returned an empty response.", nil)
	}
	if runes := []rune(reply); len(runes) > chatReplyMax {
		reply = string(runes[:chatReplyMax])
	}
	return &dto.ChatResponse{Reply: reply}, nil
}
