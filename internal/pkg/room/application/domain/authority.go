package room

// Authorize decides whether session may issue cmd. addedBy is the user that
// queued the track targeted by a remove command and is ignored otherwise.
// It has no side effects.
func Authorize(cmd Command, session ParticipantSession, addedBy string) error {
	if session.RoomID == "" || cmd.RoomID != session.RoomID {
		return ErrNotJoined
	}
	if cmd.Type.HostOnly() && !session.IsHost {
		return ErrNotHost
	}
	if cmd.Type == CommandRemoveTrack && !session.IsHost && addedBy != session.UserID {
		return ErrForbidden
	}
	return nil
}
