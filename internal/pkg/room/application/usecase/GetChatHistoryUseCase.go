package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	room "go-jukebox/internal/pkg/room/application/domain"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type GetChatHistoryInput struct {
	RoomID string
	Before time.Time
	Limit  int
}

type GetChatHistoryUseCase struct {
	Rooms    repository.RoomRepository
	Messages repository.MessageRepository
}

func NewGetChatHistoryUseCase(rooms repository.RoomRepository, messages repository.MessageRepository) *GetChatHistoryUseCase {
	return &GetChatHistoryUseCase{Rooms: rooms, Messages: messages}
}

// Execute returns a page of messages, oldest first.
func (uc *GetChatHistoryUseCase) Execute(ctx context.Context, in GetChatHistoryInput) ([]room.ChatMessage, error) {
	if in.RoomID == "" {
		return nil, fmt.Errorf("roomId is required: %w", room.ErrInvalidCommand)
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	if _, err := uc.Rooms.LookupRoom(ctx, in.RoomID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, room.ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	msgs, err := uc.Messages.ListMessages(ctx, in.RoomID, in.Before, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if msgs == nil {
		msgs = []room.ChatMessage{}
	}
	return msgs, nil
}
