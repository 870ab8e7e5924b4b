package task

import (
	"context"
	"encoding/json"
	"fmt"

	qport "go-jukebox/internal/infrastructure/queue/port"
	room "go-jukebox/internal/pkg/room/application/domain"
	"go-jukebox/internal/pkg/room/application/persist"

	"github.com/hibiken/asynq"
)

// Queue task names for the durable side channel.
const (
	SnapshotTaskType    = "room:persist_snapshot"
	QueueAddTaskType    = "room:persist_queue_add"
	QueueRemoveTaskType = "room:persist_queue_remove"
	MessageTaskType     = "room:persist_message"

	PersistQueue = "persist"
)

// Sink hands every write to the background queue; a worker performs it with
// the queue's own retry policy. Enqueue failures are returned so the
// persister can retry them. Payloads are the JSON encoding of the domain
// record.
//
// Workers run tasks concurrently and retries reorder them, so queue writes
// carry their timestamps and the repository applies them last-write-wins.
type Sink struct {
	client   qport.Client
	maxRetry int
}

func NewSink(client qport.Client, maxRetry int) *Sink {
	return &Sink{client: client, maxRetry: maxRetry}
}

var _ persist.Sink = (*Sink)(nil)

func (s *Sink) SaveSnapshot(ctx context.Context, snap room.Snapshot) error {
	return s.enqueue(ctx, SnapshotTaskType, snap)
}

func (s *Sink) AddQueueEntry(ctx context.Context, e room.QueueEntry) error {
	return s.enqueue(ctx, QueueAddTaskType, e)
}

func (s *Sink) RemoveQueueEntry(ctx context.Context, r room.QueueRemoval) error {
	return s.enqueue(ctx, QueueRemoveTaskType, r)
}

func (s *Sink) SaveMessage(ctx context.Context, m room.ChatMessage) error {
	return s.enqueue(ctx, MessageTaskType, m)
}

func (s *Sink) enqueue(ctx context.Context, taskType string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("task: encode %s: %w", taskType, err)
	}
	_, err = s.client.Enqueue(ctx, qport.Task{Type: taskType, Payload: payload}, qport.EnqueueOption{
		Queue:    PersistQueue,
		MaxRetry: s.maxRetry,
	})
	return err
}

// RegisterPersistTasks binds the persistence task handlers to srv. Each
// handler writes through target, normally a persist.RepositorySink.
func RegisterPersistTasks(srv qport.Server, target persist.Sink) {
	srv.Register(SnapshotTaskType, func(ctx context.Context, t qport.Task) error {
		var snap room.Snapshot
		if err := decode(t, &snap); err != nil {
			return err
		}
		return target.SaveSnapshot(ctx, snap)
	})
	srv.Register(QueueAddTaskType, func(ctx context.Context, t qport.Task) error {
		var e room.QueueEntry
		if err := decode(t, &e); err != nil {
			return err
		}
		return target.AddQueueEntry(ctx, e)
	})
	srv.Register(QueueRemoveTaskType, func(ctx context.Context, t qport.Task) error {
		var r room.QueueRemoval
		if err := decode(t, &r); err != nil {
			return err
		}
		return target.RemoveQueueEntry(ctx, r)
	})
	srv.Register(MessageTaskType, func(ctx context.Context, t qport.Task) error {
		var m room.ChatMessage
		if err := decode(t, &m); err != nil {
			return err
		}
		return target.SaveMessage(ctx, m)
	})
}

// malformed payloads are never retried
func decode(t qport.Task, v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("task: decode %s: %v: %w", t.Type, err, asynq.SkipRetry)
	}
	return nil
}
