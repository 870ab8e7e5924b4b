package adapter

import (
	"context"
	"errors"

	room "go-jukebox/internal/pkg/room/application/domain"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PgQueueRepository struct {
	pool *pgxpool.Pool
}

func NewPgQueueRepository(pool *pgxpool.Pool) *PgQueueRepository {
	return &PgQueueRepository{pool: pool}
}

var _ repository.QueueRepository = (*PgQueueRepository)(nil)

func (r *PgQueueRepository) ListQueue(ctx context.Context, roomID string) ([]room.QueueEntry, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgQueueRepository: nil pool")
	}
	rows, err := r.pool.Query(ctx, `
		SELECT room_id, track_id, position, added_by, added_at
		FROM jukebox.room_queue
		WHERE room_id = $1 AND NOT removed
		ORDER BY position ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []room.QueueEntry
	for rows.Next() {
		var e room.QueueEntry
		if err := rows.Scan(&e.RoomID, &e.TrackID, &e.Position, &e.AddedBy, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

// AddEntry is idempotent on (room_id, track_id) and loses against any write
// of the same track stamped at or after e.AddedAt.
func (r *PgQueueRepository) AddEntry(ctx context.Context, e room.QueueEntry) error {
	if r == nil || r.pool == nil {
		return errors.New("PgQueueRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jukebox.room_queue (room_id, track_id, position, added_by, added_at, changed_at, removed)
		VALUES ($1, $2, $3, $4, $5, $5, false)
		ON CONFLICT (room_id, track_id) DO UPDATE
		SET position = EXCLUDED.position,
		    added_by = EXCLUDED.added_by,
		    added_at = EXCLUDED.added_at,
		    changed_at = EXCLUDED.changed_at,
		    removed = false
		WHERE jukebox.room_queue.changed_at < EXCLUDED.changed_at
	`, e.RoomID, e.TrackID, e.Position, e.AddedBy, e.AddedAt)
	return err
}

// RemoveEntry leaves a tombstone, so an add delivered after it but stamped
// before it stays removed.
func (r *PgQueueRepository) RemoveEntry(ctx context.Context, rm room.QueueRemoval) error {
	if r == nil || r.pool == nil {
		return errors.New("PgQueueRepository: nil pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jukebox.room_queue (room_id, track_id, position, added_by, added_at, changed_at, removed)
		VALUES ($1, $2, 0, '', $3, $3, true)
		ON CONFLICT (room_id, track_id) DO UPDATE
		SET changed_at = EXCLUDED.changed_at,
		    removed = true
		WHERE jukebox.room_queue.changed_at <= EXCLUDED.changed_at
	`, rm.RoomID, rm.TrackID, rm.RemovedAt)
	return err
}
