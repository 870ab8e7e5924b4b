package usecase

import (
	"context"
	"errors"
	"fmt"

	room "go-jukebox/internal/pkg/room/application/domain"
	"go-jukebox/internal/pkg/room/application/engine"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"
)

// GetRoomStateUseCase returns the live state of an active room, or the last
// durable snapshot when nobody is listening.
type GetRoomStateUseCase struct {
	Rooms  repository.RoomRepository
	Engine RoomEngine
}

func NewGetRoomStateUseCase(rooms repository.RoomRepository, eng RoomEngine) *GetRoomStateUseCase {
	return &GetRoomStateUseCase{Rooms: rooms, Engine: eng}
}

func (uc *GetRoomStateUseCase) Execute(ctx context.Context, roomID string) (engine.StateView, error) {
	if roomID == "" {
		return engine.StateView{}, fmt.Errorf("roomId is required: %w", room.ErrInvalidCommand)
	}
	view, err := uc.Engine.State(ctx, roomID)
	if err == nil {
		return view, nil
	}
	if !errors.Is(err, room.ErrRoomNotActive) {
		return engine.StateView{}, err
	}

	r, err := uc.Rooms.GetRoom(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return engine.StateView{}, room.ErrRoomNotFound
	}
	if err != nil {
		return engine.StateView{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	snap := r.Snapshot
	snap.RoomID = r.ID
	return engine.SnapshotView(snap), nil
}
