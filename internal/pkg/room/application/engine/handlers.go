package engine

import (
	"time"

	room "go-jukebox/internal/pkg/room/application/domain"

	"github.com/rs/zerolog/log"
)

// handle runs the authority gate and then the command's transition.
// The session used for authorization is the one recorded at join time, so a
// caller cannot claim host rights it was not granted.
func (a *actor) handle(s room.ParticipantSession, cmd room.Command) error {
	member, ok := a.members[s.ConnectionID]
	if !ok {
		return room.ErrNotJoined
	}

	var addedBy string
	if cmd.Type == room.CommandRemoveTrack {
		entry, ok := a.queue.Entry(cmd.TrackID)
		if !ok {
			return room.ErrTrackNotQueued
		}
		addedBy = entry.AddedBy
	}
	if err := room.Authorize(cmd, member, addedBy); err != nil {
		log.Debug().Str("module", "room.engine").Str("room", a.id).Str("user", member.UserID).
			Str("command", string(cmd.Type)).Err(err).Msg("command denied")
		return err
	}

	now := a.e.now()
	switch cmd.Type {
	case room.CommandPlay:
		return a.play(cmd, now)
	case room.CommandPause:
		return a.pause(cmd, now)
	case room.CommandResume:
		return a.resume(cmd, now)
	case room.CommandSeek:
		return a.seek(cmd, now)
	case room.CommandChangeTrack:
		return a.changeTrack(cmd, now)
	case room.CommandVolumeChange:
		return a.volume(cmd, now)
	case room.CommandNextTrack:
		return a.skip(a.queue.ResolveNext, now)
	case room.CommandPreviousTrack:
		return a.skip(a.queue.ResolvePrevious, now)
	case room.CommandAddTrack:
		return a.addTrack(member, cmd, now)
	case room.CommandRemoveTrack:
		return a.removeTrack(member, cmd, now)
	case room.CommandRequestSync:
		a.unicast(member.ConnectionID, EventStateUpdate, newSyncView(a.state, a.version, now))
		return nil
	default:
		return room.ErrInvalidCommand
	}
}

// position resolves the optional client-reported position, falling back to
// the drift-corrected one.
func (a *actor) position(p *float64, now time.Time) (float64, error) {
	if p == nil {
		return a.state.EffectivePosition(now), nil
	}
	if *p < 0 {
		return 0, room.ErrInvalidPosition
	}
	return *p, nil
}

func (a *actor) play(cmd room.Command, now time.Time) error {
	cur := a.state.CurrentTrackID
	if cmd.TrackID == "" && cur == nil {
		return room.ErrNoTrack
	}

	var pos float64
	switch {
	case cmd.Position != nil:
		p, err := a.position(cmd.Position, now)
		if err != nil {
			return err
		}
		pos = p
	case cmd.TrackID != "" && (cur == nil || *cur != cmd.TrackID):
		pos = 0
	default:
		pos = a.state.EffectivePosition(now)
	}

	a.state.Play(cmd.TrackID, pos, now)
	a.commit()
	return nil
}

func (a *actor) pause(cmd room.Command, now time.Time) error {
	if a.state.CurrentTrackID == nil {
		return room.ErrNoTrack
	}
	pos, err := a.position(cmd.Position, now)
	if err != nil {
		return err
	}
	a.state.Pause(pos, now)
	a.commit()
	return nil
}

func (a *actor) resume(cmd room.Command, now time.Time) error {
	if a.state.CurrentTrackID == nil {
		return room.ErrNoTrack
	}
	pos, err := a.position(cmd.Position, now)
	if err != nil {
		return err
	}
	a.state.Play("", pos, now)
	a.commit()
	return nil
}

func (a *actor) seek(cmd room.Command, now time.Time) error {
	if a.state.CurrentTrackID == nil {
		return room.ErrNoTrack
	}
	if cmd.Position == nil || *cmd.Position < 0 {
		return room.ErrInvalidPosition
	}
	a.state.Seek(*cmd.Position, now)
	a.commit()
	return nil
}

// changeTrack always resets the position, so repeating it is not cumulative.
// The track need not be queued, but an empty queue sends the room back to Idle.
func (a *actor) changeTrack(cmd room.Command, now time.Time) error {
	if cmd.TrackID == "" {
		return room.ErrInvalidCommand
	}
	if a.queue.Len() == 0 {
		a.state.Stop(now)
		a.commit()
		return nil
	}
	autoplay := true
	if cmd.Autoplay != nil {
		autoplay = *cmd.Autoplay
	}
	a.state.ChangeTrack(cmd.TrackID, autoplay, now)
	a.commit()
	return nil
}

func (a *actor) volume(cmd room.Command, now time.Time) error {
	if cmd.Volume == nil || !room.ValidVolume(*cmd.Volume) {
		return room.ErrInvalidVolume
	}
	a.state.SetVolume(*cmd.Volume, now)
	a.commit()
	return nil
}

func (a *actor) skip(resolve func(*string) (string, bool), now time.Time) error {
	next, ok := resolve(a.state.CurrentTrackID)
	if !ok {
		a.state.Stop(now)
	} else {
		a.state.ChangeTrack(next, true, now)
	}
	a.commit()
	return nil
}

func (a *actor) addTrack(member room.ParticipantSession, cmd room.Command, now time.Time) error {
	entry, err := a.queue.Add(cmd.TrackID, member.UserID, a.queueStamp(now))
	if err != nil {
		return err
	}
	a.e.store.AddQueueEntry(entry)
	a.broadcast(EventTrackAdded, TrackAdded{Entry: entry}, "")
	return nil
}

func (a *actor) removeTrack(member room.ParticipantSession, cmd room.Command, now time.Time) error {
	entry, err := a.queue.Remove(cmd.TrackID)
	if err != nil {
		return err
	}
	a.e.store.RemoveQueueEntry(room.QueueRemoval{
		RoomID:    a.id,
		TrackID:   entry.TrackID,
		RemovedAt: a.queueStamp(now),
	})
	a.broadcast(EventTrackRemoved, TrackRemoved{TrackID: entry.TrackID, RemovedBy: member.UserID}, "")

	if a.queue.Len() == 0 && a.state.IsPlaying {
		a.state.Stop(now)
		a.commit()
	}
	return nil
}
