package usecase

import (
	"context"

	room "go-jukebox/internal/pkg/room/application/domain"
	"go-jukebox/internal/pkg/room/application/engine"
)

// RoomEngine is the part of the synchronization engine the use cases drive.
type RoomEngine interface {
	Join(ctx context.Context, s room.ParticipantSession, backlog []room.ChatMessage) error
	Chat(ctx context.Context, s room.ParticipantSession, msg room.ChatMessage) error
	State(ctx context.Context, roomID string) (engine.StateView, error)
}

var _ RoomEngine = (*engine.Engine)(nil)
