package usecase

import (
	"context"
	"time"

	room "go-jukebox/internal/pkg/room/application/domain"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"

	"github.com/rs/zerolog/log"
)

type SendChatMessageInput struct {
	Session room.ParticipantSession
	RoomID  string
	Body    string
}

type SendChatMessageOutput struct {
	Message   room.ChatMessage
	Persisted bool
}

// SendChatMessageUseCase validates, persists and relays a chat message. If the
// write fails the message is still relayed, without an id.
type SendChatMessageUseCase struct {
	Messages repository.MessageRepository
	Engine   RoomEngine
	Now      func() time.Time
}

func NewSendChatMessageUseCase(messages repository.MessageRepository, eng RoomEngine) *SendChatMessageUseCase {
	return &SendChatMessageUseCase{Messages: messages, Engine: eng, Now: time.Now}
}

func (uc *SendChatMessageUseCase) Execute(ctx context.Context, in SendChatMessageInput) (*SendChatMessageOutput, error) {
	if in.Session.RoomID == "" || in.RoomID != in.Session.RoomID {
		return nil, room.ErrNotJoined
	}
	msg, err := room.NewChatMessage(in.RoomID, in.Session.UserID, in.Body, uc.Now())
	if err != nil {
		return nil, err
	}

	out := &SendChatMessageOutput{}
	id, err := uc.Messages.SaveMessage(ctx, *msg)
	if err != nil {
		// PersistenceError: degrade to broadcast-only
		log.Warn().Str("module", "room.usecase").Str("room", in.RoomID).Str("user", in.Session.UserID).
			Err(err).Msg("chat message not persisted")
	} else {
		msg.ID = id
		out.Persisted = true
	}

	if err := uc.Engine.Chat(ctx, in.Session, *msg); err != nil {
		return nil, err
	}
	out.Message = *msg
	return out, nil
}
