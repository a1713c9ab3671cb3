// Package orch coordinates the hub's session lifecycle: it registers
// connections, dispatches room and call operations into the app layer,
// and cascades cleanup when a connection drops.
package orch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/convoyhq/hub/internal/app"
	"github.com/convoyhq/hub/internal/core"
	"github.com/convoyhq/hub/internal/directory"
	"github.com/convoyhq/hub/internal/domain"
	"github.com/convoyhq/hub/internal/ice"
)

// Outcome classifies join attempts so adapters can tell expected
// rejections apart from lookup failures.
type Outcome int

const (
	OK Outcome = iota
	Unauthorized
	LookupFailed
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomDirectory
	Presence *app.PresenceTracker
	Relay    *app.Relay
	Location *app.LocationFanout
	Auth     directory.Authorizer
	ICE      ice.Provider

	// AuthTimeout bounds the external membership lookup on group and
	// voice joins. On timeout the join is rejected, never granted.
	AuthTimeout time.Duration

	// JoinLimiter shields the directory service from join spam.
	JoinLimiter *app.JoinRateLimiter
}

func New(auth directory.Authorizer, iceProvider ice.Provider, authTimeout time.Duration) *Orchestrator {
	o := &Orchestrator{
		Registry:    app.NewRegistry(),
		Presence:    app.NewPresenceTracker(),
		Rooms:       app.NewRoomDirectory(),
		Auth:        auth,
		ICE:         iceProvider,
		AuthTimeout: authTimeout,
		JoinLimiter: app.NewJoinRateLimiter(10, 10*time.Second),
	}
	o.Relay = app.NewRelay(o.Registry)
	o.Location = app.NewLocationFanout(o.Rooms)
	o.Rooms.SetDropHandling(app.SimplePolicy{}, func(slow *core.Session) {
		o.Registry.Cancel(slow.ID)
	})
	return o
}

type turnConfigEvent struct {
	Type       string             `json:"type"`
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

// OnConnect registers a freshly authenticated connection and pushes the
// one-shot ICE server configuration to it. The identity must have been
// established upstream; an empty one refuses the connection.
func (o *Orchestrator) OnConnect(conn core.SignalConnection, user domain.UserID, cancel context.CancelFunc) (*core.Session, error) {
	if err := domain.ValidateUserID(user); err != nil {
		return nil, err
	}
	sess := core.NewSession(core.SessionID(uuid.NewString()), user, conn)
	if err := o.Registry.Register(sess, cancel); err != nil {
		return nil, err
	}
	if frame, ok := app.Encode(turnConfigEvent{Type: app.EventTurnConfig, ICEServers: o.ICE.Servers()}); ok {
		if err := sess.Send(frame); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("sid", string(sess.ID)).Msg("turn-config push failed")
		}
	}
	return sess, nil
}

// OnDisconnect removes the session from the registry and from every
// room it was a member of, emitting departures to remaining members.
// Idempotent. Disconnection is the only cancellation signal; no
// participant survives it observably.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	sess, rooms, ok := o.Registry.Unregister(sid)
	if !ok {
		return
	}

	seatRoom, _, seated := o.Presence.ExitSession(sid)

	for _, roomID := range rooms {
		room, exists := o.Rooms.Get(roomID)
		if !exists {
			continue
		}
		typ := room.Type
		remaining, wasMember := o.Rooms.Leave(roomID, sid)
		if !wasMember {
			continue
		}
		if remaining > 0 {
			o.emitDeparture(roomID, typ, sess, seated && roomID == seatRoom)
		} else if typ == domain.RoomTypeVoice {
			o.announceVoiceEnded(roomID)
		}
	}

	if !o.Registry.AnyLiveSessionOf(sess.User) {
		// Best-effort UX freshness: the user's car looks parked once
		// their last device is gone.
		o.Location.Parked(sess.User)
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("user", string(sess.User)).Msg("session cleaned up")
}

func (o *Orchestrator) emitDeparture(roomID domain.RoomID, typ domain.RoomType, sess *core.Session, hadSeat bool) {
	if typ == domain.RoomTypeVoice {
		// Only the seat holder's departure is announced; a spare
		// device leaving a voice room carries no presence change.
		if !hadSeat {
			return
		}
		if frame, ok := app.Encode(app.ParticipantEvent{Type: app.EventParticipantLeft, Room: roomID, User: sess.User}); ok {
			o.Rooms.Broadcast(roomID, sess.ID, frame)
		}
		return
	}
	if frame, ok := app.Encode(app.MemberLeftEvent{Type: app.EventMemberLeft, Room: roomID, User: sess.User}); ok {
		o.Rooms.Broadcast(roomID, sess.ID, frame)
	}
}

// announceVoiceEnded tells the group's text room its call is over.
func (o *Orchestrator) announceVoiceEnded(voiceRoom domain.RoomID) {
	gid, ok := domain.GroupOfVoiceRoom(voiceRoom)
	if !ok {
		return
	}
	if frame, ok := app.Encode(app.VoiceChatEndedEvent{Type: app.EventVoiceChatEnded, Group: gid}); ok {
		o.Rooms.Broadcast(domain.GroupRoom(gid), "", frame)
	}
	log.Info().Str("module", "orch").Str("group", string(gid)).Msg("voice chat ended")
}

// RelaySignal forwards a call-setup payload to the target's devices.
// An offline target is an expected no-op, not an error.
func (o *Orchestrator) RelaySignal(sess *core.Session, kind domain.SignalKind, gid domain.GroupID, target domain.UserID, payload json.RawMessage) {
	o.Relay.Send(kind, sess.User, gid, target, payload)
}

// StartTracking subscribes the session to its own friends room and
// announces the car live.
func (o *Orchestrator) StartTracking(sess *core.Session, car domain.CarID) {
	room := o.Location.StartTracking(sess, car)
	o.Registry.AddRoom(sess.ID, room)
}

// StopTracking announces the car parked; friends stay subscribed.
func (o *Orchestrator) StopTracking(sess *core.Session, car domain.CarID) {
	o.Location.StopTracking(sess, car)
}

// PublishLocation fans a sample out to the sender's friends room. The
// sender identity always comes from the session, not the payload.
func (o *Orchestrator) PublishLocation(sess *core.Session, update domain.LocationUpdate) {
	update.User = sess.User
	o.Location.Publish(sess, update)
}
