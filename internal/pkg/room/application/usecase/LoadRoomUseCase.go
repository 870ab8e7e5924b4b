package usecase

import (
	"context"
	"errors"
	"fmt"

	room "go-jukebox/internal/pkg/room/application/domain"
	"go-jukebox/internal/pkg/room/application/engine"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"
)

// LoadRoomUseCase reads a room record and its queue. It is the engine's Loader.
type LoadRoomUseCase struct {
	Rooms repository.RoomRepository
	Queue repository.QueueRepository
}

func NewLoadRoomUseCase(rooms repository.RoomRepository, queue repository.QueueRepository) *LoadRoomUseCase {
	return &LoadRoomUseCase{Rooms: rooms, Queue: queue}
}

var _ engine.Loader = (*LoadRoomUseCase)(nil)

func (uc *LoadRoomUseCase) LoadRoom(ctx context.Context, roomID string) (room.Room, []room.QueueEntry, error) {
	r, err := uc.Rooms.GetRoom(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return room.Room{}, nil, room.ErrRoomNotFound
	}
	if err != nil {
		return room.Room{}, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	entries, err := uc.Queue.ListQueue(ctx, roomID)
	if err != nil {
		return room.Room{}, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return r, entries, nil
}
