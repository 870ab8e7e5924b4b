// Package engine is the room Synchronization Engine. Each active room is owned
// by one actor goroutine; every join, leave and command for that room runs on
// it, in the order the calls reach the engine. State is never shared between
// actors, so no lock is held while a room mutates.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-jukebox/internal/infrastructure/metrics"
	room "go-jukebox/internal/pkg/room/application/domain"

	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("engine: closed")

const defaultLoadTimeout = 5 * time.Second

type Option func(*Engine)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithEvictGrace keeps an empty room in memory for d before evicting it.
func WithEvictGrace(d time.Duration) Option {
	return func(e *Engine) { e.evictGrace = d }
}

func WithLoadTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.loadTimeout = d
		}
	}
}

type Engine struct {
	gw     Gateway
	store  Persister
	loader Loader

	now         func() time.Time
	evictGrace  time.Duration
	loadTimeout time.Duration

	mu     sync.Mutex
	rooms  map[string]*actor
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(gw Gateway, store Persister, loader Loader, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		gw:          gw,
		store:       store,
		loader:      loader,
		now:         time.Now,
		loadTimeout: defaultLoadTimeout,
		rooms:       make(map[string]*actor),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Join registers session in its room, lazily loading the room on first join,
// and performs the join sync: state, chat backlog, roster and queue unicast to
// the joiner followed by a presence broadcast to the other members.
func (e *Engine) Join(ctx context.Context, s room.ParticipantSession, backlog []room.ChatMessage) error {
	if s.RoomID == "" || s.ConnectionID == "" {
		return room.ErrInvalidCommand
	}
	return e.do(ctx, s.RoomID, true, func(a *actor) error {
		return a.join(s, backlog)
	})
}

// Leave removes session from its room. Leaving an evicted room is a no-op.
func (e *Engine) Leave(ctx context.Context, s room.ParticipantSession) error {
	err := e.do(ctx, s.RoomID, false, func(a *actor) error {
		a.leave(s.ConnectionID)
		return nil
	})
	if errors.Is(err, room.ErrRoomNotActive) {
		return nil
	}
	return err
}

// Dispatch applies a playback, queue or sync command issued by session.
// Commands against a room with no active listeners return ErrRoomNotActive
// and change nothing.
func (e *Engine) Dispatch(ctx context.Context, s room.ParticipantSession, cmd room.Command) error {
	if !cmd.Type.Known() {
		return room.ErrInvalidCommand
	}
	return e.do(ctx, cmd.RoomID, false, func(a *actor) error {
		return a.handle(s, cmd)
	})
}

// Chat relays an already persisted chat message from session to its room,
// tagged with the host flag recorded at join.
func (e *Engine) Chat(ctx context.Context, s room.ParticipantSession, msg room.ChatMessage) error {
	return e.do(ctx, s.RoomID, false, func(a *actor) error {
		return a.chat(s.ConnectionID, msg)
	})
}

// State returns the drift-corrected state of an active room.
func (e *Engine) State(ctx context.Context, roomID string) (StateView, error) {
	var view StateView
	err := e.do(ctx, roomID, false, func(a *actor) error {
		view = newSyncView(a.state, a.version, e.now())
		return nil
	})
	return view, err
}

func (e *Engine) Active(roomID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.rooms[roomID]
	return ok
}

func (e *Engine) ActiveRooms() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rooms)
}

// Close stops every room actor and waits for them to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}

// do runs fn on the room's actor and waits for its result. A room evicted
// between lookup and hand-off is recreated when create is set.
func (e *Engine) do(ctx context.Context, roomID string, create bool, fn func(*actor) error) error {
	if roomID == "" {
		return room.ErrInvalidCommand
	}
	for {
		a, err := e.lookup(roomID, create)
		if err != nil {
			return err
		}

		res := make(chan error, 1)
		req := func() { res <- a.guard(fn) }

		select {
		case a.inbox <- req:
			return <-res
		case <-a.done:
			if create {
				continue
			}
			return room.ErrRoomNotActive
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) lookup(roomID string, create bool) (*actor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if a, ok := e.rooms[roomID]; ok {
		return a, nil
	}
	if !create {
		return nil, room.ErrRoomNotActive
	}

	a := newActor(e, roomID)
	e.rooms[roomID] = a
	e.wg.Add(1)
	go a.run()

	metrics.ActiveRooms.Inc()
	log.Debug().Str("module", "room.engine").Str("room", roomID).Msg("room activated")
	return a, nil
}

// evict removes a from the registry. Called from a's own goroutine.
func (e *Engine) evict(a *actor) {
	e.mu.Lock()
	if cur, ok := e.rooms[a.id]; ok && cur == a {
		delete(e.rooms, a.id)
	}
	close(a.done)
	e.mu.Unlock()

	metrics.ActiveRooms.Dec()
	log.Debug().Str("module", "room.engine").Str("room", a.id).Msg("room evicted")
}
