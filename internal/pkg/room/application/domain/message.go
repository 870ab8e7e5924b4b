package room

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MessageKind distinguishes user text from generated presence notices.
type MessageKind string

const (
	MessageKindText   MessageKind = "text"
	MessageKindSystem MessageKind = "system"
)

const MaxMessageLength = 2000

// ChatMessage is an append-only entry of a room's chat stream.
type ChatMessage struct {
	ID        string      `db:"id" json:"id,omitempty"`
	RoomID    string      `db:"room_id" json:"roomId"`
	UserID    string      `db:"user_id" json:"userId"`
	Body      string      `db:"body" json:"body"`
	Kind      MessageKind `db:"kind" json:"kind"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// NewChatMessage validates and normalizes a user text message.
func NewChatMessage(roomID, userID, body string, now time.Time) (*ChatMessage, error) {
	if roomID == "" || userID == "" {
		return nil, ErrInvalidCommand
	}
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(trimmed) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	return &ChatMessage{
		RoomID:    roomID,
		UserID:    userID,
		Body:      trimmed,
		Kind:      MessageKindText,
		CreatedAt: now.UTC(),
	}, nil
}

// NewSystemMessage builds a presence notice such as "alice joined the room".
func NewSystemMessage(roomID, userID, body string, now time.Time) ChatMessage {
	return ChatMessage{
		RoomID:    roomID,
		UserID:    userID,
		Body:      body,
		Kind:      MessageKindSystem,
		CreatedAt: now.UTC(),
	}
}
