package persist

import (
	"context"
	"errors"

	room "go-jukebox/internal/pkg/room/application/domain"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"
)

// RepositorySink writes straight to the repositories.
type RepositorySink struct {
	Rooms    repository.RoomRepository
	Queue    repository.QueueRepository
	Messages repository.MessageRepository
}

func NewRepositorySink(rooms repository.RoomRepository, queue repository.QueueRepository, messages repository.MessageRepository) *RepositorySink {
	return &RepositorySink{Rooms: rooms, Queue: queue, Messages: messages}
}

var _ Sink = (*RepositorySink)(nil)

// SaveSnapshot ignores rooms deleted out from under the engine; retrying cannot help.
func (s *RepositorySink) SaveSnapshot(ctx context.Context, snap room.Snapshot) error {
	err := s.Rooms.SaveSnapshot(ctx, snap)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func (s *RepositorySink) AddQueueEntry(ctx context.Context, e room.QueueEntry) error {
	return s.Queue.AddEntry(ctx, e)
}

func (s *RepositorySink) RemoveQueueEntry(ctx context.Context, r room.QueueRemoval) error {
	return s.Queue.RemoveEntry(ctx, r)
}

func (s *RepositorySink) SaveMessage(ctx context.Context, m room.ChatMessage) error {
	_, err := s.Messages.SaveMessage(ctx, m)
	return err
}
