package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/brightpath-ai/tutoring-platform/internal/model"
)

const (
	// StreamName is the name of the tutoring events stream.
	StreamName = "TUTORING"

	// SubjectPrefix is the prefix for all tutoring subjects.
	SubjectPrefix = "tutor"
)

// Publisher fans conversation messages and events out over JetStream.
// Postgres is the source of truth; these publishes feed monitors and other
// instances, so a failed publish is reported but never fails the request.
type Publisher struct {
	client *Client
}

// NewPublisher creates an event publisher.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the tutoring stream exists with proper configuration.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Tutoring conversation messages and events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MessageSubject returns the subject for a message.
func MessageSubject(userID, conversationID string, role model.MessageRole) string {
	return fmt.Sprintf("%s.%s.%s.msg.%s", SubjectPrefix, userID, conversationID, role)
}

// EventSubject returns the subject for an event.
func EventSubject(userID, conversationID string, eventType model.EventType) string {
	return fmt.Sprintf("%s.%s.%s.event.%s", SubjectPrefix, userID, conversationID, eventType)
}

// ConversationFilter returns the filter subject for one conversation.
func ConversationFilter(userID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s.>", SubjectPrefix, userID, conversationID)
}

// PublishMessage publishes a stored message.
func (p *Publisher) PublishMessage(ctx context.Context, userID string, msg *model.Message) error {
	subject := MessageSubject(userID, msg.ConversationID, msg.Role)

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// PublishEvent publishes a conversation event.
func (p *Publisher) PublishEvent(ctx context.Context, event *model.TutorEvent) error {
	subject := EventSubject(event.UserID, event.ConversationID, event.Type)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
