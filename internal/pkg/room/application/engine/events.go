package engine

import (
	"time"

	room "go-jukebox/internal/pkg/room/application/domain"
)

// Outbound event names.
const (
	EventStateUpdate      = "room:state-update"
	EventChatMessage      = "room:chat-message"
	EventChatHistory      = "room:chat-history"
	EventUserJoined       = "room:user-joined"
	EventUserLeft         = "room:user-left"
	EventParticipantsList = "room:participants-list"
	EventQueueList        = "room:queue-list"
	EventTrackAdded       = "room:track-added"
	EventTrackRemoved     = "room:track-removed"
	EventError            = "error"
)

// Event is one outbound message. Data is JSON encoded by the gateway.
type Event struct {
	Type   string
	RoomID string
	Data   any
}

// StateView is the wire form of a RoomPlaybackState.
// EffectivePosition and ServerTime are only set on sync unicasts; broadcasts
// carry the stored position verbatim.
type StateView struct {
	RoomID              string      `json:"roomId"`
	CurrentTrackID      *string     `json:"currentTrackId"`
	CurrentPosition     float64     `json:"currentPosition"`
	IsPlaying           bool        `json:"isPlaying"`
	MasterVolume        int         `json:"masterVolume"`
	Status              room.Status `json:"status"`
	LastUpdateTimestamp int64       `json:"lastUpdateTimestamp"` // unix millis
	Version             uint64      `json:"version"`
	EffectivePosition   *float64    `json:"effectivePosition,omitempty"`
	ServerTime          *int64      `json:"serverTime,omitempty"` // unix millis
	Active              bool        `json:"active"`
}

func newStateView(st room.RoomPlaybackState, version uint64) StateView {
	return StateView{
		RoomID:              st.RoomID,
		CurrentTrackID:      st.CurrentTrackID,
		CurrentPosition:     st.CurrentPositionSeconds,
		IsPlaying:           st.IsPlaying,
		MasterVolume:        st.MasterVolume,
		Status:              st.Status(),
		LastUpdateTimestamp: st.LastUpdateTimestamp.UnixMilli(),
		Version:             version,
		Active:              true,
	}
}

func newSyncView(st room.RoomPlaybackState, version uint64, now time.Time) StateView {
	v := newStateView(st, version)
	pos := st.EffectivePosition(now)
	ts := now.UnixMilli()
	v.EffectivePosition = &pos
	v.ServerTime = &ts
	return v
}

// SnapshotView renders a durable snapshot for a room with no active listeners.
func SnapshotView(s room.Snapshot) StateView {
	st := room.NewPlaybackState(s, s.UpdatedAt)
	v := newStateView(st, 0)
	v.Active = false
	return v
}

type Participant struct {
	UserID       string    `json:"userId"`
	ConnectionID string    `json:"connectionId"`
	IsHost       bool      `json:"isHost"`
	JoinedAt     time.Time `json:"joinedAt"`
}

type ParticipantsList struct {
	Participants []Participant `json:"participants"`
}

type PresenceNotice struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
	IsHost       bool   `json:"isHost"`
	Participants int    `json:"participants"`
}

// ChatPayload is a chat message as relayed to a room, with the sender's host flag.
type ChatPayload struct {
	room.ChatMessage
	IsHost bool `json:"isHost"`
}

type ChatHistory struct {
	Messages []room.ChatMessage `json:"messages"`
}

type QueueList struct {
	Entries []room.QueueEntry `json:"entries"`
}

type TrackAdded struct {
	Entry room.QueueEntry `json:"entry"`
}

type TrackRemoved struct {
	TrackID   string `json:"trackId"`
	RemovedBy string `json:"removedBy"`
}

func participantOf(s room.ParticipantSession) Participant {
	return Participant{
		UserID:       s.UserID,
		ConnectionID: s.ConnectionID,
		IsHost:       s.IsHost,
		JoinedAt:     s.JoinedAt,
	}
}
