package room

import "errors"

// Domain-level errors for room behaviors
var (
	// authorization
	ErrNotHost   = errors.New("room: only the host can do that")
	ErrForbidden = errors.New("room: only the host or the user who added the track can remove it")

	// not found
	ErrRoomNotFound   = errors.New("room: room does not exist")
	ErrTrackNotQueued = errors.New("room: track is not in the queue")
	ErrNoTrack        = errors.New("room: no track selected")

	// validation
	ErrInvalidCommand  = errors.New("room: invalid command")
	ErrInvalidVolume   = errors.New("room: volume must be between 0 and 100")
	ErrInvalidPosition = errors.New("room: position is required and must not be negative")
	ErrDuplicateTrack  = errors.New("room: track is already in the queue")
	ErrEmptyMessage    = errors.New("room: empty message")
	ErrMessageTooLong  = errors.New("room: message is too long")

	// lifecycle
	ErrRoomNotActive = errors.New("room: room has no active listeners")
	ErrNotJoined     = errors.New("room: connection has not joined this room")
)
