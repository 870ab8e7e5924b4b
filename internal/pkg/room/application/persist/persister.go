// Package persist is the asynchronous, best-effort durable side channel of the
// engine. Callers never wait on it: snapshots are coalesced per room (last write
// wins) and queue and chat writes go through a bounded FIFO. A single worker
// applies both with retry and exponential backoff.
package persist

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-jukebox/internal/infrastructure/metrics"
	room "go-jukebox/internal/pkg/room/application/domain"

	"github.com/rs/zerolog/log"
)

// Sink performs the actual durable writes.
type Sink interface {
	SaveSnapshot(ctx context.Context, s room.Snapshot) error
	AddQueueEntry(ctx context.Context, e room.QueueEntry) error
	RemoveQueueEntry(ctx context.Context, r room.QueueRemoval) error
	SaveMessage(ctx context.Context, m room.ChatMessage) error
}

type Options struct {
	Buffer      int           // FIFO capacity for queue and chat writes
	MaxAttempts int           // per write, including the first
	Backoff     time.Duration // first retry delay, doubled per attempt
	Timeout     time.Duration // per attempt
}

func (o *Options) defaults() {
	if o.Buffer <= 0 {
		o.Buffer = 256
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 200 * time.Millisecond
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
}

type op struct {
	kind string
	run  func(ctx context.Context) error
}

type Persister struct {
	sink Sink
	opts Options

	mu       sync.Mutex
	dirty    map[string]room.Snapshot
	inflight map[string]room.Snapshot
	closed   bool

	signal  chan struct{}
	ops     chan op
	closing chan struct{}
	done    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func New(sink Sink, opts Options) *Persister {
	opts.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	p := &Persister{
		sink:     sink,
		opts:     opts,
		dirty:    make(map[string]room.Snapshot),
		inflight: make(map[string]room.Snapshot),
		signal:   make(chan struct{}, 1),
		ops:      make(chan op, opts.Buffer),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	go p.loop()
	return p
}

// SaveSnapshot replaces the room's pending snapshot and wakes the worker.
func (p *Persister) SaveSnapshot(s room.Snapshot) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.drop("snapshot", s.RoomID)
		return
	}
	p.dirty[s.RoomID] = s
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *Persister) AddQueueEntry(e room.QueueEntry) {
	p.enqueue(e.RoomID, op{kind: "queue_add", run: func(ctx context.Context) error {
		return p.sink.AddQueueEntry(ctx, e)
	}})
}

func (p *Persister) RemoveQueueEntry(r room.QueueRemoval) {
	p.enqueue(r.RoomID, op{kind: "queue_remove", run: func(ctx context.Context) error {
		return p.sink.RemoveQueueEntry(ctx, r)
	}})
}

func (p *Persister) SaveMessage(m room.ChatMessage) {
	p.enqueue(m.RoomID, op{kind: "message", run: func(ctx context.Context) error {
		return p.sink.SaveMessage(ctx, m)
	}})
}

// Pending returns the newest snapshot of roomID that has not been written yet.
func (p *Persister) Pending(roomID string) (room.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.dirty[roomID]; ok {
		return s, true
	}
	s, ok := p.inflight[roomID]
	return s, ok
}

// Close stops accepting writes and drains what was already accepted. When ctx
// expires first, in-progress writes are cancelled and ctx.Err() is returned.
func (p *Persister) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	close(p.closing)

	select {
	case <-p.done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-p.done
		return ctx.Err()
	}
}

func (p *Persister) enqueue(roomID string, o op) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.drop(o.kind, roomID)
		return
	}
	select {
	case p.ops <- o:
	default:
		p.drop(o.kind, roomID)
	}
}

func (p *Persister) drop(kind, roomID string) {
	metrics.PersistDropped.Inc()
	log.Warn().Str("module", "room.persist").Str("room", roomID).Str("kind", kind).Msg("write dropped")
}

func (p *Persister) loop() {
	defer close(p.done)
	for {
		select {
		case <-p.signal:
			p.flushSnapshots()
		case o := <-p.ops:
			p.apply(o)
		case <-p.closing:
			p.drain()
			return
		}
	}
}

func (p *Persister) drain() {
	for {
		select {
		case o := <-p.ops:
			p.apply(o)
		default:
			p.flushSnapshots()
			return
		}
	}
}

func (p *Persister) flushSnapshots() {
	p.mu.Lock()
	batch := p.dirty
	p.dirty = make(map[string]room.Snapshot, len(batch))
	for id, s := range batch {
		p.inflight[id] = s
	}
	p.mu.Unlock()

	for id, s := range batch {
		snap := s
		err := p.retry("snapshot", id, func(ctx context.Context) error {
			return p.sink.SaveSnapshot(ctx, snap)
		})

		p.mu.Lock()
		delete(p.inflight, id)
		if _, newer := p.dirty[id]; err != nil && !newer {
			// kept for the next flush
			p.dirty[id] = snap
		}
		p.mu.Unlock()
	}
}

func (p *Persister) apply(o op) {
	_ = p.retry(o.kind, "", o.run)
}

func (p *Persister) retry(kind, roomID string, fn func(ctx context.Context) error) error {
	delay := p.opts.Backoff
	var err error
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(p.ctx, p.opts.Timeout)
		err = fn(ctx)
		cancel()
		if err == nil {
			metrics.PersistJobsTotal.WithLabelValues(kind, "ok").Inc()
			return nil
		}
		if errors.Is(err, context.Canceled) && p.ctx.Err() != nil {
			break
		}
		if attempt == p.opts.MaxAttempts {
			break
		}
		log.Debug().Str("module", "room.persist").Str("kind", kind).Str("room", roomID).
			Int("attempt", attempt).Err(err).Msg("write failed, retrying")
		select {
		case <-time.After(delay):
		case <-p.ctx.Done():
		}
		delay *= 2
	}
	metrics.PersistJobsTotal.WithLabelValues(kind, "failed").Inc()
	log.Warn().Str("module", "room.persist").Str("kind", kind).Str("room", roomID).Err(err).Msg("write failed")
	return err
}
