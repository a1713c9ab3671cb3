package orch

import (
	"context"

	"github.com/convoyhq/hub/internal/app"
	"github.com/convoyhq/hub/internal/core"
	"github.com/convoyhq/hub/internal/domain"
)

// JoinVoice seats the session in a group's voice room, muted. One call
// per user: a seat held in another voice room is released first, and
// that room hears participant-left before the new room hears
// participant-joined.
func (o *Orchestrator) JoinVoice(ctx context.Context, sess *core.Session, gid domain.GroupID) Outcome {
	if out := o.authorize(ctx, sess, gid, "join_group_voice_chat"); out != OK {
		return out
	}

	roomID := domain.VoiceRoom(gid)
	evicted, p, fresh := o.Presence.EnterVoice(roomID, sess.User, sess.ID)

	if evicted != nil {
		if frame, ok := app.Encode(app.ParticipantEvent{Type: app.EventParticipantLeft, Room: evicted.Room, User: sess.User}); ok {
			o.Rooms.Broadcast(evicted.Room, evicted.Session, frame)
		}
		remaining, _ := o.Rooms.Leave(evicted.Room, evicted.Session)
		o.Registry.RemoveRoom(evicted.Session, evicted.Room)
		if remaining == 0 {
			o.announceVoiceEnded(evicted.Room)
		}
	}

	room := o.Rooms.Join(roomID, domain.RoomTypeVoice, sess)
	o.Registry.AddRoom(sess.ID, roomID)

	if fresh {
		if frame, ok := app.Encode(app.ParticipantEvent{Type: app.EventParticipantJoined, Room: roomID, User: sess.User, Muted: p.Muted}); ok {
			o.Rooms.Broadcast(roomID, sess.ID, frame)
		}
	}
	o.ackRoomState(sess, room)
	return OK
}

// LeaveVoice releases the session's seat. Leaving while absent is a
// no-op. The last participant out ends the group's call.
func (o *Orchestrator) LeaveVoice(sess *core.Session, gid domain.GroupID) {
	roomID := domain.VoiceRoom(gid)
	p, ok := o.Presence.ExitVoice(roomID, sess.User)
	if ok {
		if frame, encOK := app.Encode(app.ParticipantEvent{Type: app.EventParticipantLeft, Room: roomID, User: sess.User}); encOK {
			o.Rooms.Broadcast(roomID, sess.ID, frame)
		}
	}

	leaveSID := sess.ID
	if ok {
		leaveSID = core.SessionID(p.Session)
	}
	remaining, wasMember := o.Rooms.Leave(roomID, leaveSID)
	o.Registry.RemoveRoom(leaveSID, roomID)
	if wasMember && remaining == 0 {
		o.announceVoiceEnded(roomID)
	}
}

// SetMuted toggles the session's mute flag. Toggles racing a leave or
// disconnect land on an absent seat and are silently ignored.
func (o *Orchestrator) SetMuted(sess *core.Session, gid domain.GroupID, muted bool) {
	roomID := domain.VoiceRoom(gid)
	if !o.Presence.SetMuted(roomID, sess.User, muted) {
		return
	}
	eventType := app.EventParticipantMuted
	if !muted {
		eventType = app.EventParticipantUnmuted
	}
	if frame, ok := app.Encode(app.ParticipantEvent{Type: eventType, Room: roomID, User: sess.User, Muted: muted}); ok {
		o.Rooms.Broadcast(roomID, sess.ID, frame)
	}
}
