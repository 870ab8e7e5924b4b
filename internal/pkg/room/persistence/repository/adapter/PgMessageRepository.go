package adapter

import (
	"context"
	"errors"
	"time"

	room "go-jukebox/internal/pkg/room/application/domain"
	repository "go-jukebox/internal/pkg/room/persistence/repository/port"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultMessageLimit = 50

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

var _ repository.MessageRepository = (*PgMessageRepository)(nil)

func (r *PgMessageRepository) SaveMessage(ctx context.Context, m room.ChatMessage) (string, error) {
	if r == nil || r.pool == nil {
		return "", errors.New("PgMessageRepository: nil pool")
	}
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO jukebox.room_messages (room_id, user_id, body, kind, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text
	`, m.RoomID, m.UserID, m.Body, string(m.Kind), m.CreatedAt).Scan(&id)
	return id, err
}

func (r *PgMessageRepository) ListMessages(ctx context.Context, roomID string, before time.Time, limit int) ([]room.ChatMessage, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New("PgMessageRepository: nil pool")
	}
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if before.IsZero() {
		before = time.Now()
	}
	// newest page first, reversed below
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, room_id, user_id, body, kind, created_at
		FROM jukebox.room_messages
		WHERE room_id = $1 AND created_at < $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, roomID, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]room.ChatMessage, 0, limit)
	for rows.Next() {
		var (
			m    room.ChatMessage
			kind string
		)
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Body, &kind, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Kind = room.MessageKind(kind)
		msgs = append(msgs, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
