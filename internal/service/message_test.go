package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-ai/tutoring-platform/internal/llm"
	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
)

// collectSink records stream events in order.
type collectSink struct {
	userMsg *model.Message
	tokens  []string
}

func (s *collectSink) UserMessage(msg *model.Message) error {
	s.userMsg = msg
	return nil
}

func (s *collectSink) Token(token string, index int) error {
	s.tokens = append(s.tokens, token)
	return nil
}

func messageFixture(t *testing.T, client llm.Client) (*MessageService, *fakeConversations, *fakeMessages, *fakeEvents) {
	t.Helper()
	conversations := newFakeConversations()
	messages := &fakeMessages{}
	events := &fakeEvents{}
	users := newFakeUsers(&model.User{ID: "u1", Name: "Ada", Role: model.RoleStudent})
	profiles := newFakeProfiles()

	require.NoError(t, conversations.Create(context.Background(), &model.Conversation{
		ID:     "c1",
		UserID: "u1",
		Title:  "Fractions",
	}))

	svc := NewMessageService(conversations, messages, users, profiles, llm.NewRegistry(client), events, logger.NewNop())
	return svc, conversations, messages, events
}

func TestSendStoresBothMessages(t *testing.T) {
	client := &fakeLLM{name: "anthropic", content: "A fraction is part of a whole."}
	svc, conversations, messages, events := messageFixture(t, client)
	ctx := context.Background()

	resp, err := svc.Send(ctx, "u1", "c1", &model.SendMessageRequest{Content: "What is a fraction?"})
	require.NoError(t, err)

	assert.Equal(t, model.MessageRoleUser, resp.UserMessage.Role)
	assert.Equal(t, "What is a fraction?", resp.UserMessage.Content)
	require.NotNil(t, resp.AssistantMessage)
	assert.Equal(t, model.MessageRoleAssistant, resp.AssistantMessage.Role)
	assert.Equal(t, "A fraction is part of a whole.", resp.AssistantMessage.Content)
	require.NotNil(t, resp.AssistantMessage.TokensOut)
	assert.Equal(t, 20, *resp.AssistantMessage.TokensOut)

	stored, err := messages.List(ctx, "c1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	conv, err := conversations.GetAny(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, conv.MessageCount)

	assert.Len(t, events.messages, 2, "both messages fan out")
}

func TestSendStreamDeliversTokensInOrder(t *testing.T) {
	client := &fakeLLM{name: "anthropic", tokens: []string{"The answe", "r is 42."}}
	svc, _, _, _ := messageFixture(t, client)

	sink := &collectSink{}
	resp, err := svc.SendStream(context.Background(), "u1", "c1", &model.SendMessageRequest{Content: "?"}, sink)
	require.NoError(t, err)

	require.NotNil(t, sink.userMsg, "user message confirmed before tokens")
	assert.Equal(t, []string{"The answe", "r is 42."}, sink.tokens)
	require.NotNil(t, resp.AssistantMessage)
	assert.Equal(t, "The answer is 42.", resp.AssistantMessage.Content)
}

func TestSendStreamPersistsPartialOnFailure(t *testing.T) {
	client := &fakeLLM{
		name:      "anthropic",
		tokens:    []string{"partial ", "content"},
		streamErr: errors.New("upstream reset"),
	}
	svc, _, messages, events := messageFixture(t, client)
	ctx := context.Background()

	sink := &collectSink{}
	resp, err := svc.SendStream(ctx, "u1", "c1", &model.SendMessageRequest{Content: "?"}, sink)
	require.Error(t, err)

	// The tokens that made it out are preserved in a stored assistant
	// message with an error stop reason.
	require.NotNil(t, resp.AssistantMessage)
	assert.Equal(t, "partial content", resp.AssistantMessage.Content)
	require.NotNil(t, resp.AssistantMessage.StopReason)
	assert.Equal(t, "error", *resp.AssistantMessage.StopReason)

	stored, err := messages.List(ctx, "c1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// An error event was published for monitors.
	require.NotEmpty(t, events.events)
	assert.Equal(t, model.EventTypeError, events.events[0].Type)
}

func TestSendReplaysNewestHistoryWindow(t *testing.T) {
	client := &fakeLLM{name: "anthropic", content: "reply"}
	svc, _, messages, _ := messageFixture(t, client)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		require.NoError(t, messages.Create(ctx, &model.Message{
			ID:             fmt.Sprintf("m-%02d", i),
			ConversationID: "c1",
			Role:           model.MessageRoleUser,
			Content:        fmt.Sprintf("turn-%02d", i),
		}))
	}

	_, err := svc.Send(ctx, "u1", "c1", &model.SendMessageRequest{Content: "latest question"})
	require.NoError(t, err)

	require.NotNil(t, client.lastReq)
	sent := client.lastReq.Messages
	require.Len(t, sent, historyWindow+1)

	// The newest turns stay in context; the oldest fall out.
	assert.Equal(t, "turn-10", sent[0].Content)
	assert.Equal(t, "turn-49", sent[len(sent)-2].Content)
	assert.Equal(t, "latest question", sent[len(sent)-1].Content)
}

func TestSendRejectsForeignConversation(t *testing.T) {
	client := &fakeLLM{name: "anthropic", content: "x"}
	svc, conversations, _, _ := messageFixture(t, client)
	ctx := context.Background()

	require.NoError(t, conversations.Create(ctx, &model.Conversation{ID: "c2", UserID: "someone-else"}))

	_, err := svc.Send(ctx, "u1", "c2", &model.SendMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFlagPublishesEvent(t *testing.T) {
	client := &fakeLLM{name: "anthropic", content: "reply"}
	svc, _, messages, events := messageFixture(t, client)
	ctx := context.Background()

	resp, err := svc.Send(ctx, "u1", "c1", &model.SendMessageRequest{Content: "hello"})
	require.NoError(t, err)

	err = svc.Flag(ctx, "u1", "c1", resp.AssistantMessage.ID, true)
	require.NoError(t, err)

	stored, err := messages.GetByID(ctx, resp.AssistantMessage.ID)
	require.NoError(t, err)
	assert.True(t, stored.Flagged)

	require.Len(t, events.events, 1)
	assert.Equal(t, model.EventTypeFlagged, events.events[0].Type)

	// Unflagging does not publish another event.
	require.NoError(t, svc.Flag(ctx, "u1", "c1", resp.AssistantMessage.ID, false))
	assert.Len(t, events.events, 1)
}

func TestFlagRejectsCrossConversationMessage(t *testing.T) {
	client := &fakeLLM{name: "anthropic", content: "reply"}
	svc, conversations, _, _ := messageFixture(t, client)
	ctx := context.Background()

	require.NoError(t, conversations.Create(ctx, &model.Conversation{ID: "c2", UserID: "u1"}))
	resp, err := svc.Send(ctx, "u1", "c1", &model.SendMessageRequest{Content: "hello"})
	require.NoError(t, err)

	// Right user, wrong conversation for this message ID.
	err = svc.Flag(ctx, "u1", "c2", resp.UserMessage.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListVerifiesOwnership(t *testing.T) {
	client := &fakeLLM{name: "anthropic", content: "x"}
	svc, _, _, _ := messageFixture(t, client)
	ctx := context.Background()

	_, err := svc.List(ctx, "intruder", "c1", 10, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	resp, err := svc.List(ctx, "u1", "c1", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, resp.Messages)
	assert.False(t, resp.HasMore)
}

func TestListPagination(t *testing.T) {
	client := &fakeLLM{name: "anthropic", content: "x"}
	svc, _, messages, _ := messageFixture(t, client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, messages.Create(ctx, &model.Message{
			ID:             time.Now().Format("150405.000000000") + string(rune('a'+i)),
			ConversationID: "c1",
			Role:           model.MessageRoleUser,
			Content:        "m",
		}))
	}

	resp, err := svc.List(ctx, "u1", "c1", 3, 0)
	require.NoError(t, err)
	assert.Len(t, resp.Messages, 3)
	assert.True(t, resp.HasMore)

	resp, err = svc.List(ctx, "u1", "c1", 3, 3)
	require.NoError(t, err)
	assert.Len(t, resp.Messages, 2)
	assert.False(t, resp.HasMore)
}
