package room

import "time"

// ParticipantSession is the ephemeral binding of one live connection to a room.
// It is never persisted; IsHost is re-derived from the room record on every join.
type ParticipantSession struct {
	ConnectionID string    `json:"connectionId"`
	UserID       string    `json:"userId"`
	RoomID       string    `json:"roomId"`
	IsHost       bool      `json:"isHost"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// NewSession derives host authority by comparing userID with the room's host.
func NewSession(connectionID, userID string, r Room, now time.Time) ParticipantSession {
	return ParticipantSession{
		ConnectionID: connectionID,
		UserID:       userID,
		RoomID:       r.ID,
		IsHost:       r.HostID != "" && r.HostID == userID,
		JoinedAt:     now,
	}
}
