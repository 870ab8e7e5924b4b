package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	room "go-jukebox/internal/pkg/room/application/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu        sync.Mutex
	snapshots []room.Snapshot
	ops       []string
	snapCalls int
	snapFails int // failures before success, -1 for always

	gate    chan struct{}
	entered chan struct{}
}

func newSink() *fakeSink {
	return &fakeSink{entered: make(chan struct{}, 1)}
}

func (s *fakeSink) wait(ctx context.Context) error {
	select {
	case s.entered <- struct{}{}:
	default:
	}
	if s.gate == nil {
		return nil
	}
	select {
	case <-s.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *fakeSink) SaveSnapshot(ctx context.Context, snap room.Snapshot) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapCalls++
	if s.snapFails < 0 || s.snapCalls <= s.snapFails {
		return errors.New("db down")
	}
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *fakeSink) record(ctx context.Context, v string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, v)
	return nil
}

func (s *fakeSink) AddQueueEntry(ctx context.Context, e room.QueueEntry) error {
	return s.record(ctx, "add:"+e.TrackID)
}

func (s *fakeSink) RemoveQueueEntry(ctx context.Context, r room.QueueRemoval) error {
	return s.record(ctx, "remove:"+r.TrackID)
}

func (s *fakeSink) SaveMessage(ctx context.Context, m room.ChatMessage) error {
	return s.record(ctx, "message:"+m.Body)
}

func (s *fakeSink) recorded() ([]room.Snapshot, []string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]room.Snapshot(nil), s.snapshots...), append([]string(nil), s.ops...), s.snapCalls
}

func snapAt(pos float64) room.Snapshot {
	return room.Snapshot{RoomID: "r1", CurrentPosition: pos, MasterVolume: 50}
}

func fastOptions() Options {
	return Options{Buffer: 16, MaxAttempts: 3, Backoff: time.Millisecond, Timeout: time.Second}
}

func TestSnapshotsCoalescePerRoom(t *testing.T) {
	sink := newSink()
	sink.gate = make(chan struct{})
	p := New(sink, fastOptions())

	p.SaveSnapshot(snapAt(1))
	<-sink.entered
	p.SaveSnapshot(snapAt(2))
	p.SaveSnapshot(snapAt(3))

	pending, ok := p.Pending("r1")
	require.True(t, ok)
	assert.Equal(t, 3.0, pending.CurrentPosition)

	close(sink.gate)
	require.Eventually(t, func() bool {
		snaps, _, _ := sink.recorded()
		return len(snaps) == 2
	}, time.Second, time.Millisecond)

	snaps, _, _ := sink.recorded()
	assert.Equal(t, 1.0, snaps[0].CurrentPosition)
	assert.Equal(t, 3.0, snaps[1].CurrentPosition, "intermediate snapshot is skipped")

	require.Eventually(t, func() bool {
		_, ok := p.Pending("r1")
		return !ok
	}, time.Second, time.Millisecond)
	require.NoError(t, p.Close(context.Background()))
}

func TestSnapshotRetriesWithBackoff(t *testing.T) {
	sink := newSink()
	sink.snapFails = 2
	p := New(sink, fastOptions())

	p.SaveSnapshot(snapAt(7))
	require.Eventually(t, func() bool {
		snaps, _, _ := sink.recorded()
		return len(snaps) == 1
	}, time.Second, time.Millisecond)

	_, _, calls := sink.recorded()
	assert.Equal(t, 3, calls)
	require.NoError(t, p.Close(context.Background()))
}

func TestFailedSnapshotStaysPending(t *testing.T) {
	sink := newSink()
	sink.snapFails = -1
	opts := fastOptions()
	opts.MaxAttempts = 2
	p := New(sink, opts)

	p.SaveSnapshot(snapAt(9))
	require.Eventually(t, func() bool {
		_, _, calls := sink.recorded()
		return calls == 2
	}, time.Second, time.Millisecond)

	pending, ok := p.Pending("r1")
	require.True(t, ok)
	assert.Equal(t, 9.0, pending.CurrentPosition)

	// the next mutation flushes it again
	p.SaveSnapshot(snapAt(10))
	require.Eventually(t, func() bool {
		_, _, calls := sink.recorded()
		return calls == 4
	}, time.Second, time.Millisecond)
	pending, ok = p.Pending("r1")
	require.True(t, ok)
	assert.Equal(t, 10.0, pending.CurrentPosition)

	require.NoError(t, p.Close(context.Background()))
}

func TestWritesKeepFIFOOrder(t *testing.T) {
	sink := newSink()
	p := New(sink, fastOptions())

	p.AddQueueEntry(room.QueueEntry{RoomID: "r1", TrackID: "T1"})
	p.RemoveQueueEntry(room.QueueRemoval{RoomID: "r1", TrackID: "T1"})
	p.SaveMessage(room.ChatMessage{RoomID: "r1", Body: "hello"})
	p.AddQueueEntry(room.QueueEntry{RoomID: "r1", TrackID: "T1"})

	require.NoError(t, p.Close(context.Background()))
	_, ops, _ := sink.recorded()
	assert.Equal(t, []string{"add:T1", "remove:T1", "message:hello", "add:T1"}, ops)
}

func TestFullBufferDrops(t *testing.T) {
	sink := newSink()
	sink.gate = make(chan struct{})
	opts := fastOptions()
	opts.Buffer = 1
	p := New(sink, opts)

	p.AddQueueEntry(room.QueueEntry{RoomID: "r1", TrackID: "A"})
	<-sink.entered
	p.AddQueueEntry(room.QueueEntry{RoomID: "r1", TrackID: "B"})
	p.AddQueueEntry(room.QueueEntry{RoomID: "r1", TrackID: "C"})

	close(sink.gate)
	require.NoError(t, p.Close(context.Background()))
	_, ops, _ := sink.recorded()
	assert.Equal(t, []string{"add:A", "add:B"}, ops)
}

func TestCloseDrainsAndRejectsLateWrites(t *testing.T) {
	sink := newSink()
	p := New(sink, fastOptions())

	p.SaveSnapshot(snapAt(4))
	p.SaveMessage(room.ChatMessage{RoomID: "r1", Body: "bye"})
	require.NoError(t, p.Close(context.Background()))

	p.SaveSnapshot(snapAt(5))
	p.SaveMessage(room.ChatMessage{RoomID: "r1", Body: "late"})

	snaps, ops, _ := sink.recorded()
	require.Len(t, snaps, 1)
	assert.Equal(t, 4.0, snaps[0].CurrentPosition)
	assert.Equal(t, []string{"message:bye"}, ops)
	require.NoError(t, p.Close(context.Background()), "close is idempotent")
}

func TestCloseHonoursDeadline(t *testing.T) {
	sink := newSink()
	sink.gate = make(chan struct{})
	p := New(sink, fastOptions())

	p.SaveMessage(room.ChatMessage{RoomID: "r1", Body: "stuck"})
	<-sink.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
