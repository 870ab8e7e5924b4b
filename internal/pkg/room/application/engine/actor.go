package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go-jukebox/internal/infrastructure/metrics"
	room "go-jukebox/internal/pkg/room/application/domain"

	"github.com/rs/zerolog/log"
)

// actor owns the playback state, queue and member set of one room.
// Only its run goroutine touches these fields.
type actor struct {
	id string
	e  *Engine

	inbox chan func() // unbuffered: a hand-off succeeds only while run is receiving
	done  chan struct{}

	loadErr error
	state   room.RoomPlaybackState
	queue   *room.Queue
	members map[string]room.ParticipantSession
	version uint64

	queueClock time.Time // last timestamp handed to a queue write
}

func newActor(e *Engine, roomID string) *actor {
	return &actor{
		id:      roomID,
		e:       e,
		inbox:   make(chan func()),
		done:    make(chan struct{}),
		members: make(map[string]room.ParticipantSession),
	}
}

func (a *actor) run() {
	defer a.e.wg.Done()

	a.load()

	var (
		timer *time.Timer
		idle  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case req := <-a.inbox:
			req()
		case <-idle:
			idle, timer = nil, nil
			if len(a.members) == 0 {
				a.e.evict(a)
				return
			}
			continue
		case <-a.e.ctx.Done():
			a.e.evict(a)
			return
		}

		if len(a.members) > 0 {
			if timer != nil {
				timer.Stop()
				idle, timer = nil, nil
			}
			continue
		}
		if a.loadErr != nil || a.e.evictGrace <= 0 {
			a.e.evict(a)
			return
		}
		if timer == nil {
			timer = time.NewTimer(a.e.evictGrace)
			idle = timer.C
		}
	}
}

// load hydrates the room from its durable record. A snapshot still waiting in
// the persister is newer than the record and wins. Either way the timeline is
// anchored at the snapshot's own timestamp.
func (a *actor) load() {
	ctx, cancel := context.WithTimeout(a.e.ctx, a.e.loadTimeout)
	defer cancel()

	now := a.e.now()
	r, entries, err := a.e.loader.LoadRoom(ctx, a.id)
	if err != nil {
		a.loadErr = err
		log.Warn().Str("module", "room.engine").Str("room", a.id).Err(err).Msg("load room failed")
		return
	}

	snap := r.Snapshot
	snap.RoomID = a.id
	if pending, ok := a.e.store.Pending(a.id); ok {
		snap = pending
	}
	a.state = room.RestorePlaybackState(snap, now)
	a.queue = room.NewQueue(a.id, entries)
	for _, e := range entries {
		if e.AddedAt.After(a.queueClock) {
			a.queueClock = e.AddedAt
		}
	}

	log.Info().Str("module", "room.engine").Str("room", a.id).
		Str("status", string(a.state.Status())).Int("queue", a.queue.Len()).Msg("room loaded")
}

func (a *actor) guard(fn func(*actor) error) (err error) {
	if a.loadErr != nil {
		return a.loadErr
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "room.engine").Str("room", a.id).Interface("panic", r).Msg("room handler panicked")
			err = fmt.Errorf("engine: room %s: %v", a.id, r)
		}
	}()
	return fn(a)
}

func (a *actor) join(s room.ParticipantSession, backlog []room.ChatMessage) error {
	if s.RoomID != a.id {
		return room.ErrInvalidCommand
	}
	_, rejoin := a.members[s.ConnectionID]
	a.members[s.ConnectionID] = s
	a.e.gw.Bind(a.id, s.ConnectionID)

	now := a.e.now()
	if backlog == nil {
		backlog = []room.ChatMessage{}
	}
	a.unicast(s.ConnectionID, EventStateUpdate, newSyncView(a.state, a.version, now))
	a.unicast(s.ConnectionID, EventChatHistory, ChatHistory{Messages: backlog})
	a.unicast(s.ConnectionID, EventParticipantsList, a.participants())
	a.unicast(s.ConnectionID, EventQueueList, QueueList{Entries: a.queue.Entries()})

	if rejoin {
		return nil
	}

	log.Info().Str("module", "room.engine").Str("room", a.id).Str("user", s.UserID).
		Str("conn", s.ConnectionID).Bool("host", s.IsHost).Msg("member joined")

	a.broadcast(EventUserJoined, PresenceNotice{
		UserID:       s.UserID,
		ConnectionID: s.ConnectionID,
		IsHost:       s.IsHost,
		Participants: len(a.members),
	}, s.ConnectionID)
	a.notice(s, fmt.Sprintf("%s joined the room", s.UserID), now, s.ConnectionID)
	return nil
}

func (a *actor) leave(connID string) {
	s, ok := a.members[connID]
	if !ok {
		return
	}
	delete(a.members, connID)
	a.e.gw.Unbind(a.id, connID)

	log.Info().Str("module", "room.engine").Str("room", a.id).Str("user", s.UserID).
		Str("conn", connID).Int("remaining", len(a.members)).Msg("member left")

	msg := room.NewSystemMessage(a.id, s.UserID, fmt.Sprintf("%s left the room", s.UserID), a.e.now())
	a.e.store.SaveMessage(msg)
	if len(a.members) == 0 {
		return
	}
	a.broadcast(EventUserLeft, PresenceNotice{
		UserID:       s.UserID,
		ConnectionID: s.ConnectionID,
		IsHost:       s.IsHost,
		Participants: len(a.members),
	}, "")
	a.broadcast(EventChatMessage, ChatPayload{ChatMessage: msg, IsHost: s.IsHost}, "")
}

func (a *actor) chat(connID string, msg room.ChatMessage) error {
	member, ok := a.members[connID]
	if !ok || msg.RoomID != a.id {
		return room.ErrNotJoined
	}
	a.broadcast(EventChatMessage, ChatPayload{ChatMessage: msg, IsHost: member.IsHost}, "")
	return nil
}

// notice persists and relays a synthetic system chat message.
func (a *actor) notice(s room.ParticipantSession, body string, now time.Time, exclude string) {
	msg := room.NewSystemMessage(a.id, s.UserID, body, now)
	a.e.store.SaveMessage(msg)
	a.broadcast(EventChatMessage, ChatPayload{ChatMessage: msg, IsHost: s.IsHost}, exclude)
}

func (a *actor) participants() ParticipantsList {
	out := make([]Participant, 0, len(a.members))
	for _, s := range a.members {
		out = append(out, participantOf(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ConnectionID < out[j].ConnectionID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return ParticipantsList{Participants: out}
}

// queueStamp returns a timestamp strictly after every earlier queue write of
// the room, at the microsecond precision postgres keeps.
func (a *actor) queueStamp(now time.Time) time.Time {
	t := now.Truncate(time.Microsecond)
	if !t.After(a.queueClock) {
		t = a.queueClock.Truncate(time.Microsecond).Add(time.Microsecond)
	}
	a.queueClock = t
	return t
}

// commit publishes a state mutation: bump the version, hand a snapshot to the
// persister and broadcast the stored state verbatim.
func (a *actor) commit() {
	a.version++
	a.e.store.SaveSnapshot(a.state.Snapshot())
	a.broadcast(EventStateUpdate, newStateView(a.state, a.version), "")
}

func (a *actor) unicast(connID, typ string, data any) {
	a.e.gw.Unicast(connID, Event{Type: typ, RoomID: a.id, Data: data})
}

func (a *actor) broadcast(typ string, data any, exclude string) {
	a.e.gw.Broadcast(a.id, Event{Type: typ, RoomID: a.id, Data: data}, exclude)
	metrics.BroadcastsTotal.WithLabelValues(typ).Inc()
}
