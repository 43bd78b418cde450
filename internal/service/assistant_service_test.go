package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/repository"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service/integration"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	integration.TextGenerator

	reply    string
	err      error
	block    bool
	calls    int
	sessions []string
}

func (g *fakeGenerator) Send(ctx context.Context, sessionID, text string) (string, error) {
	g.calls++
	g.sessions = append(g.sessions, sessionID)
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.reply, g.err
}

func newAssistant(gen integration.TextGenerator, timeout time.Duration) AssistantService {
	logger := zerolog.Nop()
	return NewAssistantService(gen, repository.NewMemoryConversationRepository(logger), timeout, logger)
}

func TestAssistantService_AskStartsConversation(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{reply: "You need your ID, transcript and fee statement."}
	svc := newAssistant(gen, time.Second)

	resp, err := svc.Ask(ctx, student, &models.AskRequest{Text: "  What documents do I need?  "})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, "What documents do I need?", resp.Question.Text)
	assert.Equal(t, gen.reply, resp.Reply.Text)

	_, err = svc.Ask(ctx, student, &models.AskRequest{ConversationID: resp.ConversationID, Text: "Thanks"})
	require.NoError(t, err)

	conv, err := svc.Conversation(ctx, student, resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 5)

	roles := make([]models.ChatRole, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []models.ChatRole{
		models.ChatRoleAssistant, models.ChatRoleUser, models.ChatRoleAssistant, models.ChatRoleUser, models.ChatRoleAssistant,
	}, roles)
	assert.Equal(t, WelcomeMessage, conv.Messages[0].Text)
	assert.Equal(t, "Thanks", conv.Messages[3].Text)
}

func TestAssistantService_DegradedReplies(t *testing.T) {
	tests := []struct {
		name string
		gen  integration.TextGenerator
		want string
	}{
		{"missing key", &fakeGenerator{err: integration.ErrMissingAPIKey}, OfflineReply},
		{"no generator", nil, OfflineReply},
		{"transport error", &fakeGenerator{err: errors.New("dial tcp: connection refused")}, ConnectionTrouble},
		{"timeout", &fakeGenerator{block: true}, ConnectionTrouble},
		{"empty reply", &fakeGenerator{reply: "   "}, EmptyReplyFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newAssistant(tt.gen, 20*time.Millisecond)

			resp, err := svc.Ask(context.Background(), student, &models.AskRequest{Text: "hello"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Reply.Text)
			assert.Equal(t, models.ChatRoleAssistant, resp.Reply.Role)
		})
	}
}

func TestAssistantService_InputErrors(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{reply: "ok"}
	svc := newAssistant(gen, time.Second)

	_, err := svc.Ask(ctx, student, &models.AskRequest{Text: "   "})
	require.ErrorIs(t, err, models.ErrEmptyMessage)
	assert.Zero(t, gen.calls)

	_, err = svc.Ask(ctx, models.Identity{}, &models.AskRequest{Text: "hi"})
	require.ErrorIs(t, err, models.ErrUnauthenticated)

	_, err = svc.Ask(ctx, student, &models.AskRequest{ConversationID: "missing", Text: "hi"})
	require.ErrorIs(t, err, models.ErrNotFound)

	resp, err := svc.Ask(ctx, student, &models.AskRequest{Text: "hi"})
	require.NoError(t, err)

	_, err = svc.Conversation(ctx, other, resp.ConversationID)
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.Ask(ctx, other, &models.AskRequest{ConversationID: resp.ConversationID, Text: "hi"})
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestAssistantService_ConversationsUseSeparateSessions(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{reply: "ok"}
	svc := newAssistant(gen, time.Second)

	first, err := svc.Ask(ctx, student, &models.AskRequest{Text: "my account number is 12345678, am I approved?"})
	require.NoError(t, err)
	second, err := svc.Ask(ctx, other, &models.AskRequest{Text: "hello"})
	require.NoError(t, err)
	_, err = svc.Ask(ctx, student, &models.AskRequest{ConversationID: first.ConversationID, Text: "thanks"})
	require.NoError(t, err)

	require.Len(t, gen.sessions, 3)
	assert.Equal(t, first.ConversationID, gen.sessions[0])
	assert.Equal(t, second.ConversationID, gen.sessions[1])
	assert.NotEqual(t, gen.sessions[0], gen.sessions[1])
	assert.Equal(t, first.ConversationID, gen.sessions[2])
}
