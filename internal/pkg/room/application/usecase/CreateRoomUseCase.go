package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	room "go-jukebox/internal/pkg/room/application/domain"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"

	"github.com/google/uuid"
)

const maxRoomNameLength = 120

type CreateRoomInput struct {
	Name   string
	HostID string
}

// CreateRoomUseCase creates a room record; the caller becomes its host.
type CreateRoomUseCase struct {
	Rooms repository.RoomRepository
	Now   func() time.Time
}

func NewCreateRoomUseCase(rooms repository.RoomRepository) *CreateRoomUseCase {
	return &CreateRoomUseCase{Rooms: rooms, Now: time.Now}
}

func (uc *CreateRoomUseCase) Execute(ctx context.Context, in CreateRoomInput) (*room.Room, error) {
	if in.HostID == "" {
		return nil, fmt.Errorf("hostId is required: %w", room.ErrInvalidCommand)
	}
	name := strings.TrimSpace(in.Name)
	if len([]rune(name)) > maxRoomNameLength {
		return nil, fmt.Errorf("name is too long: %w", room.ErrInvalidCommand)
	}

	now := uc.Now().UTC()
	id := uuid.NewString()
	r := room.Room{
		ID:        id,
		Name:      name,
		HostID:    in.HostID,
		CreatedAt: now,
		Snapshot: room.Snapshot{
			RoomID:       id,
			MasterVolume: room.DefaultVolume,
			UpdatedAt:    now,
		},
	}
	if err := uc.Rooms.CreateRoom(ctx, r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &r, nil
}
