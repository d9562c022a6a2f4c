package model

import (
	"time"
)

// EventType represents the type of a tutoring event.
type EventType string

const (
	EventTypeError   EventType = "error"
	EventTypeCancel  EventType = "cancel"
	EventTypeFlagged EventType = "flagged"
)

// TutorEvent represents an out-of-band event in a conversation, published
// for monitors (teacher dashboards, other instances).
type TutorEvent struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	UserID         string         `json:"user_id"`
	Type           EventType      `json:"type"`
	Reason         string         `json:"reason"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
