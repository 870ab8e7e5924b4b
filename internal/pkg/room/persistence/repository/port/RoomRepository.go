package repository

import (
	"context"
	"errors"
	"time"

	room "go-jukebox/internal/pkg/room/application/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("repository: not found")

// RoomRepository persists room records and their playback snapshot.
type RoomRepository interface {
	CreateRoom(ctx context.Context, r room.Room) error
	// GetRoom returns the full record with its current snapshot.
	GetRoom(ctx context.Context, roomID string) (room.Room, error)
	// LookupRoom returns only the immutable fields (id, name, host, creation
	// time); the snapshot is left zero. Implementations may serve it from a cache.
	LookupRoom(ctx context.Context, roomID string) (room.Room, error)
	// SaveSnapshot overwrites the stored snapshot unless the stored one is newer.
	SaveSnapshot(ctx context.Context, s room.Snapshot) error
}

// QueueRepository persists queue entries. Primary key is (room_id, track_id).
// Adds and removals of one track are last-timestamp-wins, a removal winning a
// tie, so they may be applied in any order.
type QueueRepository interface {
	ListQueue(ctx context.Context, roomID string) ([]room.QueueEntry, error)
	AddEntry(ctx context.Context, e room.QueueEntry) error
	RemoveEntry(ctx context.Context, r room.QueueRemoval) error
}

// MessageRepository persists the append-only chat stream.
type MessageRepository interface {
	SaveMessage(ctx context.Context, m room.ChatMessage) (string, error)
	// ListMessages returns up to limit messages created before `before` (zero means now),
	// oldest first.
	ListMessages(ctx context.Context, roomID string, before time.Time, limit int) ([]room.ChatMessage, error)
}
