package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	cache "go-jukebox/internal/infrastructure/cache/port"
	room "go-jukebox/internal/pkg/room/application/domain"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"

	"github.com/rs/zerolog/log"
)

const roomKeyPrefix = "jukebox:room:"

// CachedRoomRepository is a read-through cache in front of a RoomRepository.
// Every join looks the room up to derive host authority; the cache keeps that
// lookup off the database. Only the immutable fields are cached, so snapshot
// reads and writes always go to the inner repository and nothing needs
// invalidating. Cache failures fall through to the inner repository.
type CachedRoomRepository struct {
	inner repository.RoomRepository
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedRoomRepository(inner repository.RoomRepository, c cache.Cache, ttl time.Duration) *CachedRoomRepository {
	return &CachedRoomRepository{inner: inner, cache: c, ttl: ttl}
}

// Ensure interface compliance
var _ repository.RoomRepository = (*CachedRoomRepository)(nil)

// cachedRoom is the cached form of a room record; it has no snapshot.
type cachedRoom struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	HostID    string    `json:"hostId"`
	CreatedAt time.Time `json:"createdAt"`
}

func roomKey(id string) string { return roomKeyPrefix + id }

func (r *CachedRoomRepository) CreateRoom(ctx context.Context, rm room.Room) error {
	if err := r.inner.CreateRoom(ctx, rm); err != nil {
		return err
	}
	r.store(ctx, rm)
	return nil
}

func (r *CachedRoomRepository) GetRoom(ctx context.Context, roomID string) (room.Room, error) {
	return r.inner.GetRoom(ctx, roomID)
}

func (r *CachedRoomRepository) LookupRoom(ctx context.Context, roomID string) (room.Room, error) {
	raw, err := r.cache.Get(ctx, roomKey(roomID))
	switch {
	case err == nil:
		var c cachedRoom
		if jsonErr := json.Unmarshal([]byte(raw), &c); jsonErr == nil && c.ID == roomID {
			return room.Room{ID: c.ID, Name: c.Name, HostID: c.HostID, CreatedAt: c.CreatedAt}, nil
		}
		_, _ = r.cache.Del(ctx, roomKey(roomID))
	case !errors.Is(err, cache.ErrMiss):
		log.Warn().Str("module", "room.cache").Str("room", roomID).Err(err).Msg("cache get failed")
	}

	rm, err := r.inner.LookupRoom(ctx, roomID)
	if err != nil {
		return room.Room{}, err
	}
	r.store(ctx, rm)
	return rm, nil
}

func (r *CachedRoomRepository) SaveSnapshot(ctx context.Context, s room.Snapshot) error {
	return r.inner.SaveSnapshot(ctx, s)
}

func (r *CachedRoomRepository) store(ctx context.Context, rm room.Room) {
	raw, err := json.Marshal(cachedRoom{ID: rm.ID, Name: rm.Name, HostID: rm.HostID, CreatedAt: rm.CreatedAt})
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, roomKey(rm.ID), string(raw), r.ttl); err != nil {
		log.Warn().Str("module", "room.cache").Str("room", rm.ID).Err(err).Msg("cache set failed")
	}
}
