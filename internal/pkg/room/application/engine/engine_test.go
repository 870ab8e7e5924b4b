package engine

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

// ---- fakes ----

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeGateway struct {
	mu         sync.Mutex
	bound      map[string]map[string]bool
	received   map[string][]Event
	broadcasts []Event
}

func newGateway() *fakeGateway {
	return &fakeGateway{
		bound:    make(map[string]map[string]bool),
		received: make(map[string][]Event),
	}
}

func (g *fakeGateway) Bind(roomID, connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.bound[roomID] == nil {
		g.bound[roomID] = make(map[string]bool)
	}
	g.bound[roomID][connID] = true
}

func (g *fakeGateway) Unbind(roomID, connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.bound[roomID], connID)
}

func (g *fakeGateway) Unicast(connID string, ev Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.received[connID] = append(g.received[connID], ev)
}

func (g *fakeGateway) Broadcast(roomID string, ev Event, exclude string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.broadcasts = append(g.broadcasts, ev)
	for connID := range g.bound[roomID] {
		if connID == exclude {
			continue
		}
		g.received[connID] = append(g.received[connID], ev)
	}
}

func (g *fakeGateway) events(connID string) []Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Event, len(g.received[connID]))
	copy(out, g.received[connID])
	return out
}

func (g *fakeGateway) reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.received = make(map[string][]Event)
	g.broadcasts = nil
}

func (g *fakeGateway) broadcastsOf(typ string) []Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []Event
	for _, ev := range g.broadcasts {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type fakePersister struct {
	mu        sync.Mutex
	snapshots []room.Snapshot
	added     []room.QueueEntry
	removed   []string
	removals  []room.QueueRemoval
	messages  []room.ChatMessage
	pending   bool
}

func (p *fakePersister) SaveSnapshot(s room.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, s)
}

func (p *fakePersister) AddQueueEntry(e room.QueueEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added = append(p.added, e)
}

func (p *fakePersister) RemoveQueueEntry(r room.QueueRemoval) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, r.TrackID)
	p.removals = append(p.removals, r)
}

func (p *fakePersister) SaveMessage(m room.ChatMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, m)
}

func (p *fakePersister) Pending(roomID string) (room.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pending {
		return room.Snapshot{}, false
	}
	for i := len(p.snapshots) - 1; i >= 0; i-- {
		if p.snapshots[i].RoomID == roomID {
			return p.snapshots[i], true
		}
	}
	return room.Snapshot{}, false
}

func (p *fakePersister) snapshotCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

type fakeLoader struct {
	mu     sync.Mutex
	rooms  map[string]room.Room
	queues map[string][]room.QueueEntry
	calls  int
}

func (l *fakeLoader) LoadRoom(_ context.Context, roomID string) (room.Room, []room.QueueEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	r, ok := l.rooms[roomID]
	if !ok {
		return room.Room{}, nil, room.ErrRoomNotFound
	}
	return r, l.queues[roomID], nil
}

// ---- harness ----

type harness struct {
	t      *testing.T
	clock  *fakeClock
	gw     *fakeGateway
	store  *fakePersister
	loader *fakeLoader
	eng    *Engine
}

func newHarness(t *testing.T, tracks []string, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		clock: newClock(),
		gw:    newGateway(),
		store: &fakePersister{},
		loader: &fakeLoader{
			rooms:  map[string]room.Room{"r1": {ID: "r1", HostID: "host", Snapshot: room.Snapshot{MasterVolume: 80}}},
			queues: map[string][]room.QueueEntry{},
		},
	}
	for i, id := range tracks {
		h.loader.queues["r1"] = append(h.loader.queues["r1"], room.QueueEntry{
			RoomID: "r1", TrackID: id, Position: i + 1, AddedBy: "host",
		})
	}
	opts = append([]Option{WithClock(h.clock.Now)}, opts...)
	h.eng = New(h.gw, h.store, h.loader, opts...)
	t.Cleanup(h.eng.Close)
	return h
}

func (h *harness) join(connID, userID string) room.ParticipantSession {
	h.t.Helper()
	s := room.NewSession(connID, userID, room.Room{ID: "r1", HostID: "host"}, h.clock.Now())
	require.NoError(h.t, h.eng.Join(context.Background(), s, nil))
	return s
}

func (h *harness) dispatch(s room.ParticipantSession, cmd room.Command) error {
	cmd.RoomID = "r1"
	return h.eng.Dispatch(context.Background(), s, cmd)
}

func (h *harness) state() StateView {
	h.t.Helper()
	v, err := h.eng.State(context.Background(), "r1")
	require.NoError(h.t, err)
	return v
}

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }
func boolp(v bool) *bool     { return &v }

func lastOfType(events []Event, typ string) (Event, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == typ {
			return events[i], true
		}
	}
	return Event{}, false
}

func types(events []Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func track(v StateView) string {
	if v.CurrentTrackID == nil {
		return ""
	}
	return *v.CurrentTrackID
}

// ---- tests ----

func TestChangeTrackAndNextWrapAround(t *testing.T) {
	h := newHarness(t, []string{"T1", "T2", "T3"})
	host := h.join("c1", "host")

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandChangeTrack, TrackID: "T2"}))
	v := h.state()
	assert.Equal(t, "T2", track(v))
	assert.Equal(t, 0.0, v.CurrentPosition)
	assert.True(t, v.IsPlaying)

	h.clock.Advance(30 * time.Second)
	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandNextTrack}))
	v = h.state()
	assert.Equal(t, "T3", track(v))
	assert.Equal(t, 0.0, v.CurrentPosition)
	assert.True(t, v.IsPlaying)

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandNextTrack}))
	assert.Equal(t, "T1", track(h.state()))

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandPreviousTrack}))
	assert.Equal(t, "T3", track(h.state()))
}

func TestPausedSyncIsNotExtrapolated(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	host := h.join("c1", "host")
	guest := h.join("c2", "guest")

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandPlay, TrackID: "T1", Position: f64(10)}))
	h.clock.Advance(30 * time.Second)
	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandPause, Position: f64(42.5)}))

	h.clock.Advance(3 * time.Second)
	h.gw.reset()
	require.NoError(t, h.dispatch(guest, room.Command{Type: room.CommandRequestSync}))

	events := h.gw.events("c2")
	require.Len(t, events, 1)
	v := events[0].Data.(StateView)
	require.NotNil(t, v.EffectivePosition)
	assert.Equal(t, 42.5, *v.EffectivePosition)
	assert.False(t, v.IsPlaying)
	assert.Empty(t, h.gw.events("c1"), "sync is unicast only")
}

func TestNonHostMutationIsPrivateAndChangesNothing(t *testing.T) {
	h := newHarness(t, []string{"T1", "T2"})
	host := h.join("c1", "host")
	guest := h.join("c2", "guest")
	other := h.join("c3", "other")
	_ = host

	before := h.state()
	snapshots := h.store.snapshotCount()
	h.gw.reset()

	mutations := []room.Command{
		{Type: room.CommandPlay, TrackID: "T1", Position: f64(3)},
		{Type: room.CommandPause, Position: f64(1)},
		{Type: room.CommandResume},
		{Type: room.CommandSeek, Position: f64(5)},
		{Type: room.CommandChangeTrack, TrackID: "T2"},
		{Type: room.CommandVolumeChange, Volume: intp(10)},
		{Type: room.CommandNextTrack},
		{Type: room.CommandPreviousTrack},
	}
	for _, cmd := range mutations {
		err := h.dispatch(guest, cmd)
		assert.ErrorIs(t, err, room.ErrNotHost, string(cmd.Type))
	}

	assert.Empty(t, h.gw.broadcastsOf(EventStateUpdate))
	assert.Empty(t, h.gw.events("c1"))
	assert.Empty(t, h.gw.events(other.ConnectionID))
	assert.Equal(t, snapshots, h.store.snapshotCount())

	after := h.state()
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, track(before), track(after))
	assert.Equal(t, before.MasterVolume, after.MasterVolume)
}

func TestForgedHostFlagIsIgnored(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	h.join("c1", "host")
	guest := h.join("c2", "guest")

	guest.IsHost = true
	err := h.dispatch(guest, room.Command{Type: room.CommandPlay, TrackID: "T1"})
	assert.ErrorIs(t, err, room.ErrNotHost)
}

func TestLateJoinerCatchesUp(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	host := h.join("c1", "host")

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandPlay, TrackID: "T1", Position: f64(10)}))
	h.clock.Advance(5*time.Second + 250*time.Millisecond)

	h.join("c2", "late")
	events := h.gw.events("c2")
	require.NotEmpty(t, events)
	require.Equal(t, EventStateUpdate, events[0].Type)
	joinView := events[0].Data.(StateView)

	require.NotNil(t, joinView.EffectivePosition)
	extrapolated := joinView.CurrentPosition + float64(*joinView.ServerTime-joinView.LastUpdateTimestamp)/1000
	observed := h.state()
	assert.InDelta(t, *observed.EffectivePosition, extrapolated, 1.0)
	assert.InDelta(t, 15.25, *joinView.EffectivePosition, 1e-6)
}

func TestChangeTrackTwiceResetsPositionEachTime(t *testing.T) {
	h := newHarness(t, []string{"T1", "T2"})
	host := h.join("c1", "host")

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandChangeTrack, TrackID: "T1"}))
	h.clock.Advance(12 * time.Second)
	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandChangeTrack, TrackID: "T1"}))

	updates := h.gw.broadcastsOf(EventStateUpdate)
	require.Len(t, updates, 2)
	first, second := updates[0].Data.(StateView), updates[1].Data.(StateView)
	assert.Equal(t, 0.0, first.CurrentPosition)
	assert.Equal(t, 0.0, second.CurrentPosition)
	assert.Greater(t, second.Version, first.Version)
	assert.Greater(t, second.LastUpdateTimestamp, first.LastUpdateTimestamp)
}

func TestChangeTrackWithoutAutoplayPauses(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	host := h.join("c1", "host")

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandChangeTrack, TrackID: "T1", Autoplay: boolp(false)}))
	v := h.state()
	assert.Equal(t, room.StatusPaused, v.Status)
	assert.Equal(t, "T1", track(v))
}

func TestEmptyQueueGoesIdle(t *testing.T) {
	h := newHarness(t, nil)
	host := h.join("c1", "host")

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandChangeTrack, TrackID: "T9"}))
	v := h.state()
	assert.Equal(t, room.StatusIdle, v.Status)
	assert.Nil(t, v.CurrentTrackID)

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandNextTrack}))
	assert.Equal(t, room.StatusIdle, h.state().Status)
	assert.Len(t, h.gw.broadcastsOf(EventStateUpdate), 2)
}

func TestPlaybackTransitions(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	host := h.join("c1", "host")

	assert.ErrorIs(t, h.dispatch(host, room.Command{Type: room.CommandResume}), room.ErrNoTrack)
	assert.ErrorIs(t, h.dispatch(host, room.Command{Type: room.CommandSeek, Position: f64(3)}), room.ErrNoTrack)
	assert.ErrorIs(t, h.dispatch(host, room.Command{Type: room.CommandPlay}), room.ErrNoTrack)

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandPlay, TrackID: "T1"}))
	h.clock.Advance(4 * time.Second)

	// pause without a reported time freezes the extrapolated position
	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandPause}))
	v := h.state()
	assert.Equal(t, room.StatusPaused, v.Status)
	assert.InDelta(t, 4.0, v.CurrentPosition, 1e-9)

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandSeek, Position: f64(60)}))
	v = h.state()
	assert.Equal(t, room.StatusPaused, v.Status, "seek keeps the play state")
	assert.Equal(t, 60.0, v.CurrentPosition)

	assert.ErrorIs(t, h.dispatch(host, room.Command{Type: room.CommandSeek, Position: f64(-1)}), room.ErrInvalidPosition)
	assert.ErrorIs(t, h.dispatch(host, room.Command{Type: room.CommandSeek}), room.ErrInvalidPosition)

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandResume}))
	h.clock.Advance(2 * time.Second)
	v = h.state()
	assert.Equal(t, room.StatusPlaying, v.Status)
	assert.InDelta(t, 62.0, *v.EffectivePosition, 1e-9)

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandResume, Position: f64(5)}))
	assert.Equal(t, 5.0, h.state().CurrentPosition)
}

func TestVolumeChange(t *testing.T) {
	h := newHarness(t, nil)
	host := h.join("c1", "host")

	assert.Equal(t, 80, h.state().MasterVolume)
	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandVolumeChange, Volume: intp(35)}))
	assert.Equal(t, 35, h.state().MasterVolume)

	assert.ErrorIs(t, h.dispatch(host, room.Command{Type: room.CommandVolumeChange, Volume: intp(101)}), room.ErrInvalidVolume)
	assert.ErrorIs(t, h.dispatch(host, room.Command{Type: room.CommandVolumeChange}), room.ErrInvalidVolume)
}

func TestQueueCommands(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	host := h.join("c1", "host")
	guest := h.join("c2", "guest")
	other := h.join("c3", "other")

	require.NoError(t, h.dispatch(guest, room.Command{Type: room.CommandAddTrack, TrackID: "G1"}))
	added := h.gw.broadcastsOf(EventTrackAdded)
	require.Len(t, added, 1)
	assert.Equal(t, 2, added[0].Data.(TrackAdded).Entry.Position)
	assert.Equal(t, "guest", added[0].Data.(TrackAdded).Entry.AddedBy)

	err := h.dispatch(other, room.Command{Type: room.CommandAddTrack, TrackID: "G1"})
	assert.ErrorIs(t, err, room.ErrDuplicateTrack)
	assert.Len(t, h.gw.broadcastsOf(EventTrackAdded), 1)

	assert.ErrorIs(t, h.dispatch(other, room.Command{Type: room.CommandRemoveTrack, TrackID: "G1"}), room.ErrForbidden)
	assert.ErrorIs(t, h.dispatch(other, room.Command{Type: room.CommandRemoveTrack, TrackID: "nope"}), room.ErrTrackNotQueued)
	require.NoError(t, h.dispatch(guest, room.Command{Type: room.CommandRemoveTrack, TrackID: "G1"}))
	assert.ErrorIs(t, h.dispatch(guest, room.Command{Type: room.CommandRemoveTrack, TrackID: "T1"}), room.ErrForbidden)

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandChangeTrack, TrackID: "T1"}))
	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandRemoveTrack, TrackID: "T1"}))

	v := h.state()
	assert.Equal(t, room.StatusIdle, v.Status, "emptying the queue stops playback")
	assert.Equal(t, []string{"G1", "T1"}, h.store.removed)
	assert.Len(t, h.store.added, 1)
}

func TestJoinSequence(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	h.join("c1", "host")

	backlog := []room.ChatMessage{{RoomID: "r1", UserID: "host", Body: "hi", Kind: room.MessageKindText}}
	s := room.NewSession("c2", "guest", room.Room{ID: "r1", HostID: "host"}, h.clock.Now())
	require.NoError(t, h.eng.Join(context.Background(), s, backlog))

	assert.Equal(t, []string{
		EventStateUpdate,
		EventChatHistory,
		EventParticipantsList,
		EventQueueList,
	}, types(h.gw.events("c2")))

	roster := h.gw.events("c2")[2].Data.(ParticipantsList)
	require.Len(t, roster.Participants, 2)
	assert.Equal(t, "host", roster.Participants[0].UserID)
	assert.True(t, roster.Participants[0].IsHost)

	hist := h.gw.events("c2")[1].Data.(ChatHistory)
	assert.Equal(t, backlog, hist.Messages)

	hostEvents := h.gw.events("c1")
	joined, ok := lastOfType(hostEvents, EventUserJoined)
	require.True(t, ok)
	assert.Equal(t, "guest", joined.Data.(PresenceNotice).UserID)
	notice, ok := lastOfType(hostEvents, EventChatMessage)
	require.True(t, ok)
	assert.Equal(t, room.MessageKindSystem, notice.Data.(ChatPayload).Kind)

	require.NoError(t, h.eng.Leave(context.Background(), s))
	left, ok := lastOfType(h.gw.events("c1"), EventUserLeft)
	require.True(t, ok)
	assert.Equal(t, 1, left.Data.(PresenceNotice).Participants)
	assert.Len(t, h.store.messages, 3, "host joined, guest joined, guest left")
}

func TestEvictionWhenEmptyAndRehydrateFromPending(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	h.store.pending = true
	host := h.join("c1", "host")

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandPlay, TrackID: "T1", Position: f64(20)}))
	require.NoError(t, h.eng.Leave(context.Background(), host))

	require.Eventually(t, func() bool { return !h.eng.Active("r1") }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, h.dispatch(host, room.Command{Type: room.CommandPause}), room.ErrRoomNotActive)

	h.clock.Advance(2 * time.Second)
	h.join("c9", "host")
	v := h.state()
	assert.Equal(t, "T1", track(v))
	assert.True(t, v.IsPlaying)
	assert.InDelta(t, 22.0, *v.EffectivePosition, 1e-9)
	assert.Equal(t, 2, h.loader.calls)
}

func TestRehydrateFromFlushedSnapshotKeepsTimeline(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	host := h.join("c1", "host")

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandPlay, TrackID: "T1", Position: f64(20)}))
	require.NoError(t, h.eng.Leave(context.Background(), host))
	require.Eventually(t, func() bool { return !h.eng.Active("r1") }, time.Second, 5*time.Millisecond)

	// the write landed: the record carries the snapshot, nothing is pending
	h.store.mu.Lock()
	last := h.store.snapshots[len(h.store.snapshots)-1]
	h.store.mu.Unlock()
	h.loader.mu.Lock()
	r := h.loader.rooms["r1"]
	r.Snapshot = last
	h.loader.rooms["r1"] = r
	h.loader.mu.Unlock()

	h.clock.Advance(2 * time.Second)
	h.join("c9", "host")
	v := h.state()
	assert.True(t, v.IsPlaying)
	assert.InDelta(t, 22.0, *v.EffectivePosition, 1e-9)
}

func TestEvictGraceKeepsRoomForReconnect(t *testing.T) {
	h := newHarness(t, []string{"T1"}, WithEvictGrace(80*time.Millisecond))
	host := h.join("c1", "host")
	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandChangeTrack, TrackID: "T1"}))
	require.NoError(t, h.eng.Leave(context.Background(), host))

	assert.True(t, h.eng.Active("r1"))
	again := h.join("c2", "host")
	assert.Equal(t, "T1", track(h.state()))
	assert.Equal(t, 1, h.loader.calls)

	require.NoError(t, h.eng.Leave(context.Background(), again))
	require.Eventually(t, func() bool { return !h.eng.Active("r1") }, time.Second, 5*time.Millisecond)
}

func TestJoinUnknownRoom(t *testing.T) {
	h := newHarness(t, nil)
	s := room.NewSession("c1", "host", room.Room{ID: "missing"}, h.clock.Now())

	err := h.eng.Join(context.Background(), s, nil)
	assert.True(t, errors.Is(err, room.ErrRoomNotFound))
	require.Eventually(t, func() bool { return !h.eng.Active("missing") }, time.Second, 5*time.Millisecond)
}

func TestDispatchRequiresMembership(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	h.join("c1", "host")

	stranger := room.ParticipantSession{ConnectionID: "cX", UserID: "host", RoomID: "r1", IsHost: true}
	assert.ErrorIs(t, h.dispatch(stranger, room.Command{Type: room.CommandPlay, TrackID: "T1"}), room.ErrNotJoined)
	assert.ErrorIs(t, h.dispatch(stranger, room.Command{Type: "room:dance"}), room.ErrInvalidCommand)
}

func TestStateOfInactiveRoom(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.eng.State(context.Background(), "r1")
	assert.ErrorIs(t, err, room.ErrRoomNotActive)
}

func TestChatCarriesRecordedHostFlag(t *testing.T) {
	h := newHarness(t, nil)
	host := h.join("c1", "host")
	guest := h.join("c2", "guest")
	h.gw.reset()

	msg := room.ChatMessage{ID: "1", RoomID: "r1", UserID: "host", Body: "welcome", Kind: room.MessageKindText}
	require.NoError(t, h.eng.Chat(context.Background(), host, msg))
	got, ok := lastOfType(h.gw.events("c2"), EventChatMessage)
	require.True(t, ok)
	assert.True(t, got.Data.(ChatPayload).IsHost)
	_, ok = lastOfType(h.gw.events("c1"), EventChatMessage)
	assert.True(t, ok, "sender receives its own message")

	guest.IsHost = true
	msg.UserID = "guest"
	require.NoError(t, h.eng.Chat(context.Background(), guest, msg))
	got, _ = lastOfType(h.gw.events("c1"), EventChatMessage)
	assert.False(t, got.Data.(ChatPayload).IsHost)

	stranger := room.ParticipantSession{ConnectionID: "cX", RoomID: "r1"}
	assert.ErrorIs(t, h.eng.Chat(context.Background(), stranger, msg), room.ErrNotJoined)
}

func TestLastLeaveIsRecorded(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	host := h.join("c1", "host")
	require.NoError(t, h.eng.Leave(context.Background(), host))

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	require.Len(t, h.store.messages, 2)
	last := h.store.messages[1]
	assert.Equal(t, room.MessageKindSystem, last.Kind)
	assert.Equal(t, "host left the room", last.Body)
}

func TestRemovingLastTrackWhilePausedKeepsTrack(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	host := h.join("c1", "host")

	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandChangeTrack, TrackID: "T1", Autoplay: boolp(false)}))
	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandRemoveTrack, TrackID: "T1"}))

	v := h.state()
	assert.Equal(t, room.StatusPaused, v.Status)
	assert.Equal(t, "T1", track(v))
}

func TestQueueWritesAreStampedInOrder(t *testing.T) {
	h := newHarness(t, []string{"T1"})
	host := h.join("c1", "host")

	// the clock does not move between commands
	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandAddTrack, TrackID: "T2"}))
	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandRemoveTrack, TrackID: "T2"}))
	require.NoError(t, h.dispatch(host, room.Command{Type: room.CommandAddTrack, TrackID: "T2"}))

	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	require.Len(t, h.store.added, 2)
	require.Len(t, h.store.removals, 1)
	removedAt := h.store.removals[0].RemovedAt
	assert.True(t, h.store.added[0].AddedAt.Before(removedAt))
	assert.True(t, removedAt.Before(h.store.added[1].AddedAt))
}
