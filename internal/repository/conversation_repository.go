package repository

import (
	"context"
	"sync"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/rs/zerolog"
)

// ConversationRepository keeps chat transcripts for the process lifetime.
type ConversationRepository interface {
	Create(ctx context.Context, conv *models.Conversation) error
	Append(ctx context.Context, id string, msgs ...models.ChatMessage) error
	Get(ctx context.Context, id string) (*models.Conversation, error)
}

type memoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	logger        zerolog.Logger
}

func NewMemoryConversationRepository(logger zerolog.Logger) ConversationRepository {
	return &memoryConversationRepository{
		conversations: make(map[string]*models.Conversation),
		logger:        logger,
	}
}

func (r *memoryConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *conv
	c.Messages = append([]models.ChatMessage(nil), conv.Messages...)
	r.conversations[conv.ID] = &c
	return nil
}

func (r *memoryConversationRepository) Append(ctx context.Context, id string, msgs ...models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok {
		return models.ErrConversationNotFound
	}
	c.Messages = append(c.Messages, msgs...)
	return nil
}

func (r *memoryConversationRepository) Get(ctx context.Context, id string) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conversations[id]
	if !ok {
		return nil, models.ErrConversationNotFound
	}
	out := *c
	out.Messages = append([]models.ChatMessage(nil), c.Messages...)
	return &out, nil
}
