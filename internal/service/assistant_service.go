package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/repository"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service/integration"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	WelcomeMessage     = "Hi! I can help you with your Relief Fund application. Ask me about required documents or deadlines."
	OfflineReply       = "I'm currently offline (API Key missing). Please contact support."
	ConnectionTrouble  = "I'm having trouble connecting to the server right now. Please try again later."
	EmptyReplyFallback = "I didn't quite catch that. Could you rephrase?"
)

const defaultAssistantTimeout = 10 * time.Second

type AssistantService interface {
	// Ask records the question and the reply. Generation failures become
	// fixed fallback replies and never surface as errors.
	Ask(ctx context.Context, identity models.Identity, req *models.AskRequest) (*models.AskResponse, error)
	Conversation(ctx context.Context, identity models.Identity, id string) (*models.Conversation, error)
}

type assistantService struct {
	generator     integration.TextGenerator
	conversations repository.ConversationRepository
	timeout       time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

func NewAssistantService(generator integration.TextGenerator, conversations repository.ConversationRepository, timeout time.Duration, logger zerolog.Logger) AssistantService {
	if timeout <= 0 {
		timeout = defaultAssistantTimeout
	}
	return &assistantService{
		generator:     generator,
		conversations: conversations,
		timeout:       timeout,
		logger:        logger,
		now:           utcNow,
	}
}

func (s *assistantService) message(role models.ChatRole, text string) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: s.now(),
	}
}

func (s *assistantService) Ask(ctx context.Context, identity models.Identity, req *models.AskRequest) (*models.AskResponse, error) {
	if err := authenticated(identity); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, models.ErrEmptyMessage
	}

	convID := req.ConversationID
	if convID == "" {
		conv := &models.Conversation{
			ID:        uuid.NewString(),
			OwnerID:   identity.UserID,
			Messages:  []models.ChatMessage{s.message(models.ChatRoleAssistant, WelcomeMessage)},
			CreatedAt: s.now(),
		}
		if err := s.conversations.Create(ctx, conv); err != nil {
			return nil, err
		}
		convID = conv.ID
	} else if _, err := s.ownedConversation(ctx, identity, convID); err != nil {
		return nil, err
	}

	question := s.message(models.ChatRoleUser, text)
	reply := s.message(models.ChatRoleAssistant, s.generate(ctx, convID, text))

	// question and reply land together so concurrent asks never interleave
	if err := s.conversations.Append(ctx, convID, question, reply); err != nil {
		return nil, err
	}

	return &models.AskResponse{
		ConversationID: convID,
		Question:       question,
		Reply:          reply,
	}, nil
}

func (s *assistantService) generate(ctx context.Context, convID, text string) string {
	if s.generator == nil {
		return OfflineReply
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.generator.Send(ctx, convID, text)
	switch {
	case errors.Is(err, integration.ErrMissingAPIKey):
		return OfflineReply
	case err != nil:
		s.logger.Error().Err(err).Msg("Assistant request failed")
		return ConnectionTrouble
	case strings.TrimSpace(out) == "":
		return EmptyReplyFallback
	default:
		return out
	}
}

func (s *assistantService) Conversation(ctx context.Context, identity models.Identity, id string) (*models.Conversation, error) {
	if err := authenticated(identity); err != nil {
		return nil, err
	}
	return s.ownedConversation(ctx, identity, id)
}

// ownedConversation hides conversations of other users behind not found.
func (s *assistantService) ownedConversation(ctx context.Context, identity models.Identity, id string) (*models.Conversation, error) {
	conv, err := s.conversations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.OwnerID != identity.UserID {
		return nil, models.ErrConversationNotFound
	}
	return conv, nil
}
