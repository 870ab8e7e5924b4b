package engine

import (
	"context"

	room "go-jukebox/internal/pkg/room/application/domain"
)

// Gateway is the transport the engine delivers through. Implementations must
// not block: a slow connection is dropped rather than stalling a room.
type Gateway interface {
	// Bind attaches a connection to a room's broadcast set.
	Bind(roomID, connID string)
	// Unbind detaches a connection from a room's broadcast set.
	Unbind(roomID, connID string)
	Unicast(connID string, ev Event)
	// Broadcast delivers ev to every connection bound to roomID except excludeConnID.
	Broadcast(roomID string, ev Event, excludeConnID string)
}

// Persister is the asynchronous best-effort durable side channel.
// Every method returns immediately.
type Persister interface {
	SaveSnapshot(s room.Snapshot)
	AddQueueEntry(e room.QueueEntry)
	RemoveQueueEntry(r room.QueueRemoval)
	SaveMessage(m room.ChatMessage)
	// Pending returns a snapshot that was accepted but not yet written.
	Pending(roomID string) (room.Snapshot, bool)
}

// Loader reads the durable room record and queue on lazy initialization.
type Loader interface {
	LoadRoom(ctx context.Context, roomID string) (room.Room, []room.QueueEntry, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, roomID string) (room.Room, []room.QueueEntry, error)

func (f LoaderFunc) LoadRoom(ctx context.Context, roomID string) (room.Room, []room.QueueEntry, error) {
	return f(ctx, roomID)
}
