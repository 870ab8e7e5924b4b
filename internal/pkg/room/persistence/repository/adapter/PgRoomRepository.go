package adapter

import (
	"context"
	"errors"

	room "go-jukebox/internal/pkg/room/application/domain"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRoomRepository struct {
	pool *pgxpool.Pool
}

func NewPgRoomRepository(pool *pgxpool.Pool) *PgRoomRepository {
	return &PgRoomRepository{pool: pool}
}

var _ repository.RoomRepository = (*PgRoomRepository)(nil)

func (r *PgRoomRepository) CreateRoom(ctx context.Context, rm room.Room) error {
	if r == nil || r.pool == nil {
		return errors.New("PgRoomRepository: nil pool")
	}
	s := rm.Snapshot
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jukebox.rooms (
			id, name, host_id, current_track_id, current_position, is_playing, master_volume, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rm.ID, rm.Name, rm.HostID, s.CurrentTrackID, s.CurrentPosition, s.IsPlaying, s.MasterVolume, rm.CreatedAt, s.UpdatedAt)
	return err
}

func (r *PgRoomRepository) GetRoom(ctx context.Context, roomID string) (room.Room, error) {
	if r == nil || r.pool == nil {
		return room.Room{}, errors.New("PgRoomRepository: nil pool")
	}
	var rm room.Room
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, host_id, created_at,
		       current_track_id, current_position, is_playing, master_volume, updated_at
		FROM jukebox.rooms
		WHERE id = $1
	`, roomID).Scan(
		&rm.ID, &rm.Name, &rm.HostID, &rm.CreatedAt,
		&rm.Snapshot.CurrentTrackID, &rm.Snapshot.CurrentPosition, &rm.Snapshot.IsPlaying,
		&rm.Snapshot.MasterVolume, &rm.Snapshot.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return room.Room{}, repository.ErrNotFound
	}
	if err != nil {
		return room.Room{}, err
	}
	rm.Snapshot.RoomID = rm.ID
	return rm, nil
}

func (r *PgRoomRepository) LookupRoom(ctx context.Context, roomID string) (room.Room, error) {
	if r == nil || r.pool == nil {
		return room.Room{}, errors.New("PgRoomRepository: nil pool")
	}
	var rm room.Room
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, host_id, created_at
		FROM jukebox.rooms
		WHERE id = $1
	`, roomID).Scan(&rm.ID, &rm.Name, &rm.HostID, &rm.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return room.Room{}, repository.ErrNotFound
	}
	if err != nil {
		return room.Room{}, err
	}
	return rm, nil
}

// SaveSnapshot is a conditional overwrite: a write older than the stored
// snapshot is ignored, so retried writes arriving late cannot roll state back.
func (r *PgRoomRepository) SaveSnapshot(ctx context.Context, s room.Snapshot) error {
	if r == nil || r.pool == nil {
		return errors.New("PgRoomRepository: nil pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE jukebox.rooms
		SET current_track_id = $2,
		    current_position = $3,
		    is_playing = $4,
		    master_volume = $5,
		    updated_at = $6
		WHERE id = $1 AND updated_at <= $6
	`, s.RoomID, s.CurrentTrackID, s.CurrentPosition, s.IsPlaying, s.MasterVolume, s.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jukebox.rooms WHERE id = $1)`, s.RoomID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
	}
	return nil
}
