package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/convoyhq/hub/internal/app"
	"github.com/convoyhq/hub/internal/core"
	"github.com/convoyhq/hub/internal/domain"
)

// JoinUserRoom joins the session's private push channel.
func (o *Orchestrator) JoinUserRoom(sess *core.Session) {
	o.joinAndAck(sess, domain.UserRoom(sess.User), domain.RoomTypeUser)
}

// JoinFriendsRoom subscribes the session to a friend's location
// broadcasts. Friendship itself is the data service's concern; the hub
// only wires the subscription.
func (o *Orchestrator) JoinFriendsRoom(sess *core.Session, friend domain.UserID) {
	if domain.ValidateUserID(friend) != nil {
		return
	}
	o.joinAndAck(sess, domain.FriendsRoom(friend), domain.RoomTypeFriends)
}

// JoinGroupRoom authorizes against the directory service before any
// state changes. A denied or failed lookup rejects the join and tells
// the client; it is never silently granted.
func (o *Orchestrator) JoinGroupRoom(ctx context.Context, sess *core.Session, gid domain.GroupID) Outcome {
	if out := o.authorize(ctx, sess, gid, "join_group_room"); out != OK {
		return out
	}
	o.joinAndAck(sess, domain.GroupRoom(gid), domain.RoomTypeGroup)
	return OK
}

func (o *Orchestrator) authorize(ctx context.Context, sess *core.Session, gid domain.GroupID, command string) Outcome {
	if o.JoinLimiter != nil && !o.JoinLimiter.Allow(sess.User) {
		log.Warn().Str("module", "orch").Str("user", string(sess.User)).Msg("join rate limited")
		o.sendError(sess, command, "too many join attempts")
		return Unauthorized
	}
	ctx, cancel := context.WithTimeout(ctx, o.AuthTimeout)
	defer cancel()

	allowed, err := o.Auth.IsGroupMember(ctx, string(sess.User), string(gid))
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("user", string(sess.User)).Str("group", string(gid)).Msg("membership lookup failed")
		o.sendError(sess, command, "authorization unavailable")
		return LookupFailed
	}
	if !allowed {
		log.Info().Str("module", "orch").Str("user", string(sess.User)).Str("group", string(gid)).Msg("join rejected")
		o.sendError(sess, command, "not a group member")
		return Unauthorized
	}
	return OK
}

func (o *Orchestrator) joinAndAck(sess *core.Session, roomID domain.RoomID, typ domain.RoomType) {
	room := o.Rooms.Join(roomID, typ, sess)
	o.Registry.AddRoom(sess.ID, roomID)
	o.ackRoomState(sess, room)
}

// ackRoomState is an explicit ack-to-self direct send, the one case a
// sender hears back about its own operation.
func (o *Orchestrator) ackRoomState(sess *core.Session, room *core.Room) {
	ev := app.RoomStateEvent{
		Type:    app.EventRoomState,
		Room:    room.ID,
		Members: room.MembersSnapshot(),
		Count:   room.MemberCount(),
	}
	if room.Type == domain.RoomTypeVoice {
		ev.Participants = o.Presence.ParticipantsOf(room.ID)
	}
	if frame, ok := app.Encode(ev); ok {
		if err := sess.Send(frame); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("sid", string(sess.ID)).Msg("room state ack failed")
		}
	}
}

func (o *Orchestrator) sendError(sess *core.Session, command, msg string) {
	if frame, ok := app.Encode(app.ErrorEvent{Type: app.EventError, Command: command, Error: msg}); ok {
		_ = sess.Send(frame)
	}
}
