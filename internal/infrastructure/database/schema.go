package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS jukebox`,
	`CREATE TABLE IF NOT EXISTS jukebox.rooms (
		id               text PRIMARY KEY,
		name             text NOT NULL DEFAULT '',
		host_id          text NOT NULL,
		current_track_id text NULL,
		current_position double precision NOT NULL DEFAULT 0,
		is_playing       boolean NOT NULL DEFAULT false,
		master_volume    integer NOT NULL DEFAULT 100 CHECK (master_volume BETWEEN 0 AND 100),
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS jukebox.room_queue (
		room_id  text NOT NULL REFERENCES jukebox.rooms (id) ON DELETE CASCADE,
		track_id text NOT NULL,
		position integer NOT NULL,
		added_by text NOT NULL,
		added_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (room_id, track_id)
	)`,
	// removed rows are tombstones ordering late adds against earlier removals
	`ALTER TABLE jukebox.room_queue ADD COLUMN IF NOT EXISTS changed_at timestamptz NOT NULL DEFAULT now()`,
	`ALTER TABLE jukebox.room_queue ADD COLUMN IF NOT EXISTS removed boolean NOT NULL DEFAULT false`,
	`CREATE INDEX IF NOT EXISTS room_queue_position_idx ON jukebox.room_queue (room_id, position)`,
	`CREATE TABLE IF NOT EXISTS jukebox.room_messages (
		id         bigserial PRIMARY KEY,
		room_id    text NOT NULL REFERENCES jukebox.rooms (id) ON DELETE CASCADE,
		user_id    text NOT NULL,
		body       text NOT NULL,
		kind       text NOT NULL DEFAULT 'text',
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS room_messages_room_created_idx ON jukebox.room_messages (room_id, created_at DESC)`,
}

// EnsureSchema creates the tables the room repositories use. Safe to run on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensure schema: %w", err)
		}
	}
	return nil
}
