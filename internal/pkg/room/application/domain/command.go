package room

// CommandType is the wire name of an inbound room event.
type CommandType string

const (
	CommandJoin          CommandType = "room:join"
	CommandLeave         CommandType = "room:leave"
	CommandPlay          CommandType = "room:play"
	CommandPause         CommandType = "room:pause"
	CommandResume        CommandType = "room:resume"
	CommandSeek          CommandType = "room:seek"
	CommandChangeTrack   CommandType = "room:change-track"
	CommandVolumeChange  CommandType = "room:volume-change"
	CommandNextTrack     CommandType = "room:next-track"
	CommandPreviousTrack CommandType = "room:previous-track"
	CommandAddTrack      CommandType = "room:add-track"
	CommandRemoveTrack   CommandType = "room:remove-track"
	CommandChatMessage   CommandType = "room:chat-message"
	CommandRequestSync   CommandType = "room:request-sync"
)

var hostOnly = map[CommandType]struct{}{
	CommandPlay:          {},
	CommandPause:         {},
	CommandResume:        {},
	CommandSeek:          {},
	CommandChangeTrack:   {},
	CommandVolumeChange:  {},
	CommandNextTrack:     {},
	CommandPreviousTrack: {},
}

var known = map[CommandType]struct{}{
	CommandJoin:          {},
	CommandLeave:         {},
	CommandPlay:          {},
	CommandPause:         {},
	CommandResume:        {},
	CommandSeek:          {},
	CommandChangeTrack:   {},
	CommandVolumeChange:  {},
	CommandNextTrack:     {},
	CommandPreviousTrack: {},
	CommandAddTrack:      {},
	CommandRemoveTrack:   {},
	CommandChatMessage:   {},
	CommandRequestSync:   {},
}

func (t CommandType) Known() bool {
	_, ok := known[t]
	return ok
}

// HostOnly reports whether only the room host may issue t.
func (t CommandType) HostOnly() bool {
	_, ok := hostOnly[t]
	return ok
}

// Command is a validated inbound request against a room's playback state or queue.
// Position carries currentTime for play/pause/seek and position for resume.
type Command struct {
	Type     CommandType
	RoomID   string
	TrackID  string
	Position *float64
	Volume   *int
	Autoplay *bool
}
