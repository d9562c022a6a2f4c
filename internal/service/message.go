package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-ai/tutoring-platform/internal/llm"
	"github.com/brightpath-ai/tutoring-platform/internal/model"
	"github.com/brightpath-ai/tutoring-platform/internal/store"
	"github.com/brightpath-ai/tutoring-platform/pkg/logger"
	"github.com/brightpath-ai/tutoring-platform/pkg/metrics"
)

const (
	maxMessagePageSize = 200
	// historyWindow bounds how many prior messages are replayed to the
	// model on each turn.
	historyWindow = 40

	defaultMaxTokens   = 2048
	defaultTemperature = 0.7
)

// StreamSink receives streaming events as they happen. Handlers
// implement it to translate events into SSE frames.
type StreamSink interface {
	// UserMessage is called once the user message is persisted, before
	// any tokens arrive.
	UserMessage(msg *model.Message) error
	// Token is called for each generated text fragment.
	Token(token string, index int) error
}

// MessageService handles sending messages and generating tutor replies.
type MessageService struct {
	conversations ConversationStore
	messages      MessageStore
	users         UserStore
	profiles      ProfileStore
	registry      *llm.Registry
	events        EventPublisher
	log           *logger.Logger
}

// NewMessageService creates a message service.
func NewMessageService(
	conversations ConversationStore,
	messages MessageStore,
	users UserStore,
	profiles ProfileStore,
	registry *llm.Registry,
	events EventPublisher,
	log *logger.Logger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		profiles:      profiles,
		registry:      registry,
		events:        events,
		log:           log,
	}
}

// List returns a page of a conversation's messages in creation order.
func (s *MessageService) List(ctx context.Context, userID, conversationID string, limit, offset int) (*model.ListMessagesResponse, error) {
	if _, err := s.conversations.GetOwned(ctx, userID, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if limit <= 0 || limit > maxMessagePageSize {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	// Fetch one extra row to learn whether another page exists.
	msgs, err := s.messages.List(ctx, conversationID, limit+1, offset)
	if err != nil {
		return nil, err
	}
	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[:limit]
	}
	return &model.ListMessagesResponse{Messages: msgs, HasMore: hasMore}, nil
}

// Send stores the user message, generates a complete (non-streaming)
// tutor reply and stores that too.
func (s *MessageService) Send(ctx context.Context, userID, conversationID string, req *model.SendMessageRequest) (*model.SendMessageResponse, error) {
	prep, err := s.prepare(ctx, userID, conversationID, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := prep.client.Complete(ctx, prep.request)
	if err != nil {
		metrics.RecordLLMStream(prep.request.Model, "error", time.Since(start).Seconds(), 0, 0)
		s.publishEvent(ctx, conversationID, userID, model.EventTypeError, err.Error())
		return &model.SendMessageResponse{UserMessage: prep.userMessage}, err
	}

	assistant, err := s.storeAssistant(ctx, conversationID, resp, start)
	if err != nil {
		return &model.SendMessageResponse{UserMessage: prep.userMessage}, err
	}
	metrics.RecordLLMStream(resp.Model, "ok", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	return &model.SendMessageResponse{
		UserMessage:      prep.userMessage,
		AssistantMessage: assistant,
	}, nil
}

// SendStream stores the user message and streams the tutor reply
// through the sink. If the upstream stream fails partway, whatever
// content arrived is persisted before the error is returned, so the
// partial reply is not lost.
func (s *MessageService) SendStream(ctx context.Context, userID, conversationID string, req *model.SendMessageRequest, sink StreamSink) (*model.SendMessageResponse, error) {
	prep, err := s.prepare(ctx, userID, conversationID, req)
	if err != nil {
		return nil, err
	}
	if err := sink.UserMessage(prep.userMessage); err != nil {
		return &model.SendMessageResponse{UserMessage: prep.userMessage}, err
	}

	start := time.Now()
	resp, streamErr := prep.client.CompleteStream(ctx, prep.request, sink.Token)

	if streamErr != nil {
		metrics.RecordLLMStream(prep.request.Model, "error", time.Since(start).Seconds(), 0, 0)
		s.publishEvent(ctx, conversationID, userID, model.EventTypeError, streamErr.Error())

		var se *llm.StreamError
		if errors.As(streamErr, &se) && se.Partial != "" {
			partial := &llm.CompletionResponse{
				Content:    se.Partial,
				Model:      prep.request.Model,
				StopReason: "error",
				LatencyMs:  time.Since(start).Milliseconds(),
			}
			assistant, storeErr := s.storeAssistant(ctx, conversationID, partial, start)
			if storeErr != nil {
				s.log.Error("failed to persist partial reply",
					zap.String("conversation_id", conversationID),
					zap.Error(storeErr))
				return &model.SendMessageResponse{UserMessage: prep.userMessage}, streamErr
			}
			return &model.SendMessageResponse{
				UserMessage:      prep.userMessage,
				AssistantMessage: assistant,
			}, streamErr
		}
		return &model.SendMessageResponse{UserMessage: prep.userMessage}, streamErr
	}

	assistant, err := s.storeAssistant(ctx, conversationID, resp, start)
	if err != nil {
		return &model.SendMessageResponse{UserMessage: prep.userMessage}, err
	}
	metrics.RecordLLMStream(resp.Model, "ok", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)

	return &model.SendMessageResponse{
		UserMessage:      prep.userMessage,
		AssistantMessage: assistant,
	}, nil
}

// Flag marks or unmarks one of the caller's messages for teacher review.
func (s *MessageService) Flag(ctx context.Context, userID, conversationID, messageID string, flagged bool) error {
	if _, err := s.conversations.GetOwned(ctx, userID, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if msg.ConversationID != conversationID {
		return ErrNotFound
	}
	if err := s.messages.SetFlagged(ctx, messageID, flagged); err != nil {
		return err
	}
	if flagged {
		s.publishEvent(ctx, conversationID, userID, model.EventTypeFlagged, messageID)
	}
	return nil
}

// ListFlagged returns flagged messages across a teacher's students.
func (s *MessageService) ListFlagged(ctx context.Context, teacherID string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > maxMessagePageSize {
		limit = 50
	}
	return s.messages.ListFlaggedForTeacher(ctx, teacherID, limit)
}

// preparedSend carries everything needed to call the model after the
// user message has been persisted.
type preparedSend struct {
	userMessage *model.Message
	client      llm.Client
	request     *llm.CompletionRequest
}

func (s *MessageService) prepare(ctx context.Context, userID, conversationID string, req *model.SendMessageRequest) (*preparedSend, error) {
	if _, err := s.conversations.GetOwned(ctx, userID, conversationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Replay only the newest window; old turns fall out of context first.
	history, err := s.messages.ListRecent(ctx, conversationID, historyWindow)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	userMsg := &model.Message{
		ID:             id.String(),
		ConversationID: conversationID,
		Role:           model.MessageRoleUser,
		Content:        req.Content,
		CreatedAt:      now,
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.MessageRoleUser)).Inc()
	if err := s.conversations.Touch(ctx, conversationID, now); err != nil {
		s.log.Warn("failed to touch conversation",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}
	s.publishMessage(ctx, userID, userMsg)

	// The profile is optional context; its absence is not an error.
	profile, err := s.profiles.GetByStudent(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Warn("failed to load student profile",
			zap.String("user_id", userID),
			zap.Error(err))
	}

	modelName := req.Model
	if modelName == "" {
		modelName = user.Model
	}
	client := s.registry.ForModel(modelName)
	if client == nil {
		return nil, errors.New("no LLM provider configured")
	}

	chat := make([]llm.ChatMessage, 0, len(history)+1)
	for _, m := range history {
		if m.Role == model.MessageRoleSystem {
			continue
		}
		chat = append(chat, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	chat = append(chat, llm.ChatMessage{Role: string(model.MessageRoleUser), Content: req.Content})

	return &preparedSend{
		userMessage: userMsg,
		client:      client,
		request: &llm.CompletionRequest{
			Model:       modelName,
			System:      llm.BuildSystemPrompt(user.Name, profile),
			Messages:    chat,
			MaxTokens:   defaultMaxTokens,
			Temperature: defaultTemperature,
		},
	}, nil
}

func (s *MessageService) storeAssistant(ctx context.Context, conversationID string, resp *llm.CompletionResponse, start time.Time) (*model.Message, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	started := start.UTC()
	msg := &model.Message{
		ID:             id.String(),
		ConversationID: conversationID,
		Role:           model.MessageRoleAssistant,
		Content:        resp.Content,
		CreatedAt:      now,
		StreamStarted:  &started,
		StreamEnded:    &now,
	}
	if resp.Model != "" {
		msg.Model = &resp.Model
	}
	if resp.TokensIn > 0 {
		msg.TokensIn = &resp.TokensIn
	}
	if resp.TokensOut > 0 {
		msg.TokensOut = &resp.TokensOut
	}
	if resp.StopReason != "" {
		msg.StopReason = &resp.StopReason
	}
	latency := resp.LatencyMs
	if latency == 0 {
		latency = time.Since(start).Milliseconds()
	}
	msg.LatencyMs = &latency

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues(string(model.MessageRoleAssistant)).Inc()
	if err := s.conversations.Touch(ctx, conversationID, now); err != nil {
		s.log.Warn("failed to touch conversation",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}

	// Fan the stored reply out to monitors. The conversation owner is the
	// subject's user segment.
	if conv, err := s.conversations.GetAny(ctx, conversationID); err == nil {
		s.publishMessage(ctx, conv.UserID, msg)
	}
	return msg, nil
}

// publishMessage fans a message out over JetStream. Publish failures are
// logged and counted but never fail the request; Postgres is the source
// of truth.
func (s *MessageService) publishMessage(ctx context.Context, userID string, msg *model.Message) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishMessage(ctx, userID, msg); err != nil {
		metrics.EventPublishFailures.WithLabelValues("message").Inc()
		s.log.Warn("failed to publish message event",
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}
}

func (s *MessageService) publishEvent(ctx context.Context, conversationID, userID string, eventType model.EventType, reason string) {
	if s.events == nil {
		return
	}
	id, err := uuid.NewV7()
	if err != nil {
		return
	}
	event := &model.TutorEvent{
		ID:             id.String(),
		ConversationID: conversationID,
		UserID:         userID,
		Type:           eventType,
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.events.PublishEvent(ctx, event); err != nil {
		metrics.EventPublishFailures.WithLabelValues("event").Inc()
		s.log.Warn("failed to publish tutor event",
			zap.String("conversation_id", conversationID),
			zap.String("type", string(eventType)),
			zap.Error(err))
	}
}
