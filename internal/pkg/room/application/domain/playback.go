package room

import "time"

// Status is the derived state of a room's playback state machine.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)

const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = 100
)

// Room is the durable room record. Host authority is derived from HostID on every join.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	HostID    string    `db:"host_id" json:"hostId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	Snapshot  Snapshot  `json:"snapshot"`
}

// Snapshot is the best-effort durable copy of a room's playback state.
type Snapshot struct {
	RoomID          string    `db:"id" json:"roomId"`
	CurrentTrackID  *string   `db:"current_track_id" json:"currentTrackId"`
	CurrentPosition float64   `db:"current_position" json:"currentPosition"`
	IsPlaying       bool      `db:"is_playing" json:"isPlaying"`
	MasterVolume    int       `db:"master_volume" json:"masterVolume"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// RoomPlaybackState is the authoritative in-memory playback record of an active room.
// It is only mutated by the room's engine actor.
type RoomPlaybackState struct {
	RoomID                 string
	CurrentTrackID         *string
	CurrentPositionSeconds float64
	IsPlaying              bool
	MasterVolume           int
	LastUpdateTimestamp    time.Time
}

// RestorePlaybackState rehydrates an evicted or restarted room. A playing
// snapshot keeps extrapolating from the moment it was taken, whether it came
// from the persister or from the database. A snapshot without a usable
// timestamp restarts its timeline at now.
func RestorePlaybackState(s Snapshot, now time.Time) RoomPlaybackState {
	anchor := s.UpdatedAt
	if anchor.IsZero() || anchor.After(now) {
		anchor = now
	}
	return NewPlaybackState(s, anchor)
}

// NewPlaybackState builds a state from a snapshot with its timeline anchored at
// anchor.
func NewPlaybackState(s Snapshot, anchor time.Time) RoomPlaybackState {
	st := RoomPlaybackState{
		RoomID:                 s.RoomID,
		CurrentTrackID:         s.CurrentTrackID,
		CurrentPositionSeconds: s.CurrentPosition,
		IsPlaying:              s.IsPlaying,
		MasterVolume:           s.MasterVolume,
		LastUpdateTimestamp:    anchor,
	}
	if st.CurrentTrackID == nil {
		st.IsPlaying = false
		st.CurrentPositionSeconds = 0
	}
	if st.MasterVolume < MinVolume || st.MasterVolume > MaxVolume {
		st.MasterVolume = DefaultVolume
	}
	if st.CurrentPositionSeconds < 0 {
		st.CurrentPositionSeconds = 0
	}
	return st
}

func (s RoomPlaybackState) Status() Status {
	switch {
	case s.CurrentTrackID == nil:
		return StatusIdle
	case s.IsPlaying:
		return StatusPlaying
	default:
		return StatusPaused
	}
}

// EffectivePosition extrapolates the position at now. A paused or idle room
// returns the stored position verbatim.
func (s RoomPlaybackState) EffectivePosition(now time.Time) float64 {
	if !s.IsPlaying {
		return s.CurrentPositionSeconds
	}
	elapsed := now.Sub(s.LastUpdateTimestamp).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return s.CurrentPositionSeconds + elapsed
}

func (s RoomPlaybackState) Snapshot() Snapshot {
	return Snapshot{
		RoomID:          s.RoomID,
		CurrentTrackID:  s.CurrentTrackID,
		CurrentPosition: s.CurrentPositionSeconds,
		IsPlaying:       s.IsPlaying,
		MasterVolume:    s.MasterVolume,
		UpdatedAt:       s.LastUpdateTimestamp,
	}
}

// Transitions. Each one stamps LastUpdateTimestamp.

// Play selects trackID (when non-empty) and starts playback at position.
func (s *RoomPlaybackState) Play(trackID string, position float64, now time.Time) {
	if trackID != "" {
		s.CurrentTrackID = &trackID
	}
	s.CurrentPositionSeconds = position
	s.IsPlaying = true
	s.LastUpdateTimestamp = now
}

func (s *RoomPlaybackState) Pause(position float64, now time.Time) {
	s.CurrentPositionSeconds = position
	s.IsPlaying = false
	s.LastUpdateTimestamp = now
}

func (s *RoomPlaybackState) Seek(position float64, now time.Time) {
	s.CurrentPositionSeconds = position
	s.LastUpdateTimestamp = now
}

// ChangeTrack swaps the current track and resets the position to zero.
func (s *RoomPlaybackState) ChangeTrack(trackID string, autoplay bool, now time.Time) {
	s.CurrentTrackID = &trackID
	s.CurrentPositionSeconds = 0
	s.IsPlaying = autoplay
	s.LastUpdateTimestamp = now
}

func (s *RoomPlaybackState) SetVolume(volume int, now time.Time) {
	s.MasterVolume = volume
	s.LastUpdateTimestamp = now
}

// Stop clears the track and returns the room to Idle.
func (s *RoomPlaybackState) Stop(now time.Time) {
	s.CurrentTrackID = nil
	s.CurrentPositionSeconds = 0
	s.IsPlaying = false
	s.LastUpdateTimestamp = now
}

func ValidVolume(v int) bool {
	return v >= MinVolume && v <= MaxVolume
}
