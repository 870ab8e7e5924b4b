package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	room "go-jukebox/internal/pkg/room/application/domain"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"

	"github.com/rs/zerolog/log"
)

type JoinRoomInput struct {
	RoomID       string
	UserID       string
	ConnectionID string
}

// JoinRoomUseCase derives the caller's authority from the room record, loads
// the chat backlog and hands the session to the engine for the join sync.
type JoinRoomUseCase struct {
	Rooms    repository.RoomRepository
	Messages repository.MessageRepository
	Engine   RoomEngine
	Backlog  int
	Now      func() time.Time
}

func NewJoinRoomUseCase(rooms repository.RoomRepository, messages repository.MessageRepository, eng RoomEngine, backlog int) *JoinRoomUseCase {
	return &JoinRoomUseCase{Rooms: rooms, Messages: messages, Engine: eng, Backlog: backlog, Now: time.Now}
}

func (uc *JoinRoomUseCase) Execute(ctx context.Context, in JoinRoomInput) (room.ParticipantSession, error) {
	if in.RoomID == "" || in.UserID == "" || in.ConnectionID == "" {
		return room.ParticipantSession{}, fmt.Errorf("roomId is required: %w", room.ErrInvalidCommand)
	}

	r, err := uc.Rooms.LookupRoom(ctx, in.RoomID)
	if errors.Is(err, repository.ErrNotFound) {
		return room.ParticipantSession{}, room.ErrRoomNotFound
	}
	if err != nil {
		return room.ParticipantSession{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	session := room.NewSession(in.ConnectionID, in.UserID, r, uc.Now())

	// a missing backlog does not block the join
	backlog := []room.ChatMessage{}
	if uc.Backlog > 0 {
		msgs, err := uc.Messages.ListMessages(ctx, in.RoomID, time.Time{}, uc.Backlog)
		if err != nil {
			log.Warn().Str("module", "room.usecase").Str("room", in.RoomID).Err(err).Msg("chat backlog unavailable")
		} else if msgs != nil {
			backlog = msgs
		}
	}

	if err := uc.Engine.Join(ctx, session, backlog); err != nil {
		return room.ParticipantSession{}, err
	}
	return session, nil
}
