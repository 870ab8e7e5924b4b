package room

import (
	"sort"
	"time"
)

// QueueEntry is one track in a room's queue.
// Primary key: (RoomID, TrackID)
type QueueEntry struct {
	RoomID   string    `db:"room_id" json:"roomId"`
	TrackID  string    `db:"track_id" json:"trackId"`
	Position int       `db:"position" json:"position"`
	AddedBy  string    `db:"added_by" json:"addedBy"`
	AddedAt  time.Time `db:"added_at" json:"addedAt"`
}

// QueueRemoval records that a track left a room's queue. Writes for the same
// track are ordered by their timestamps (AddedAt for an add, RemovedAt for a
// removal) so they converge however late they are delivered.
type QueueRemoval struct {
	RoomID    string    `json:"roomId"`
	TrackID   string    `json:"trackId"`
	RemovedAt time.Time `json:"removedAt"`
}

// Queue is the ordered, deduplicated track list of one room.
// Positions are strictly increasing and never renumbered; gaps are allowed.
// Not safe for concurrent use; the owning engine actor serializes access.
type Queue struct {
	roomID  string
	entries []QueueEntry
}

// NewQueue builds a queue from persisted entries. Later duplicates of a track are dropped.
func NewQueue(roomID string, entries []QueueEntry) *Queue {
	q := &Queue{roomID: roomID}
	sorted := make([]QueueEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	seen := make(map[string]struct{}, len(sorted))
	for _, e := range sorted {
		if _, dup := seen[e.TrackID]; dup {
			continue
		}
		seen[e.TrackID] = struct{}{}
		e.RoomID = roomID
		q.entries = append(q.entries, e)
	}
	return q
}

func (q *Queue) Len() int { return len(q.entries) }

// Entries returns a copy ordered by position.
func (q *Queue) Entries() []QueueEntry {
	out := make([]QueueEntry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) Entry(trackID string) (QueueEntry, bool) {
	if i := q.indexOf(trackID); i >= 0 {
		return q.entries[i], true
	}
	return QueueEntry{}, false
}

// Add appends trackID at max(position)+1.
func (q *Queue) Add(trackID, userID string, now time.Time) (QueueEntry, error) {
	if trackID == "" {
		return QueueEntry{}, ErrInvalidCommand
	}
	if q.indexOf(trackID) >= 0 {
		return QueueEntry{}, ErrDuplicateTrack
	}
	pos := 1
	if n := len(q.entries); n > 0 {
		pos = q.entries[n-1].Position + 1
	}
	e := QueueEntry{
		RoomID:   q.roomID,
		TrackID:  trackID,
		Position: pos,
		AddedBy:  userID,
		AddedAt:  now,
	}
	q.entries = append(q.entries, e)
	return e, nil
}

func (q *Queue) Remove(trackID string) (QueueEntry, error) {
	i := q.indexOf(trackID)
	if i < 0 {
		return QueueEntry{}, ErrTrackNotQueued
	}
	e := q.entries[i]
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
	return e, nil
}

// ResolveNext returns the track after current, wrapping to the first.
// A current track that is not queued resolves to the first entry.
func (q *Queue) ResolveNext(current *string) (string, bool) {
	return q.resolve(current, 1)
}

// ResolvePrevious returns the track before current, wrapping to the last.
func (q *Queue) ResolvePrevious(current *string) (string, bool) {
	return q.resolve(current, -1)
}

func (q *Queue) resolve(current *string, step int) (string, bool) {
	n := len(q.entries)
	if n == 0 {
		return "", false
	}
	i := -1
	if current != nil {
		i = q.indexOf(*current)
	}
	next := ((i+step)%n + n) % n
	return q.entries[next].TrackID, true
}

func (q *Queue) indexOf(trackID string) int {
	for i, e := range q.entries {
		if e.TrackID == trackID {
			return i
		}
	}
	return -1
}
