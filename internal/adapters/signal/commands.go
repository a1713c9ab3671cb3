package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/convoyhq/hub/internal/core"
	"github.com/convoyhq/hub/internal/domain"
)

// Inbound command vocabulary.
const (
	CmdJoinUserRoom     = "join_user_room"
	CmdJoinFriendsRoom  = "join_friends_room"
	CmdJoinGroupRoom    = "join_group_room"
	CmdJoinVoice        = "join_group_voice_chat"
	CmdLeaveVoice       = "leave_group_voice_chat"
	CmdMute             = "mute"
	CmdUnmute           = "unmute"
	CmdStartTracking    = "start_location_tracking"
	CmdStopTracking     = "stop_location_tracking"
	CmdLocationUpdate   = "location_update"
	CmdWebRTCOffer      = "webrtc_offer"
	CmdWebRTCAnswer     = "webrtc_answer"
	CmdWebRTCCandidate  = "webrtc_ice_candidate"
	CmdWebRTCEndCall    = "webrtc_end_call"
)

type commandHandler func(ctx context.Context, ctl *Controller, sess *core.Session, data []byte)

// commandTable is the single dispatch point for every inbound command.
var commandTable = map[string]commandHandler{
	CmdJoinUserRoom:    handleJoinUserRoom,
	CmdJoinFriendsRoom: handleJoinFriendsRoom,
	CmdJoinGroupRoom:   handleJoinGroupRoom,
	CmdJoinVoice:       handleJoinVoice,
	CmdLeaveVoice:      handleLeaveVoice,
	CmdMute:            handleMute,
	CmdUnmute:          handleUnmute,
	CmdStartTracking:   handleStartTracking,
	CmdStopTracking:    handleStopTracking,
	CmdLocationUpdate:  handleLocationUpdate,
	CmdWebRTCOffer:     relayHandler(domain.SignalOffer),
	CmdWebRTCAnswer:    relayHandler(domain.SignalAnswer),
	CmdWebRTCCandidate: relayHandler(domain.SignalICECandidate),
	CmdWebRTCEndCall:   relayHandler(domain.SignalEndCall),
}

// dispatch routes one inbound frame. Malformed commands are logged and
// ignored; nothing here may take the connection down.
func (ctl *Controller) dispatch(ctx context.Context, sess *core.Session, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID)).Msg("bad json")
		return
	}
	handler, ok := commandTable[env.Type]
	if !ok {
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown command")
		return
	}
	handler(ctx, ctl, sess, data)
}

func handleJoinUserRoom(_ context.Context, ctl *Controller, sess *core.Session, data []byte) {
	var p struct {
		User domain.UserID `json:"userId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.User == "" {
		logMalformed(sess, CmdJoinUserRoom, err)
		return
	}
	// The private push channel is always the caller's own.
	if p.User != sess.User {
		log.Warn().Str("module", "signal").Str("sid", string(sess.ID)).Str("claimed", string(p.User)).Msg("user room identity mismatch")
		return
	}
	ctl.Orch.JoinUserRoom(sess)
}

func handleJoinFriendsRoom(_ context.Context, ctl *Controller, sess *core.Session, data []byte) {
	var p struct {
		User domain.UserID `json:"userId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.User == "" {
		logMalformed(sess, CmdJoinFriendsRoom, err)
		return
	}
	ctl.Orch.JoinFriendsRoom(sess, p.User)
}

func handleJoinGroupRoom(ctx context.Context, ctl *Controller, sess *core.Session, data []byte) {
	var p struct {
		Group domain.GroupID `json:"groupId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Group == "" {
		logMalformed(sess, CmdJoinGroupRoom, err)
		return
	}
	ctl.Orch.JoinGroupRoom(ctx, sess, p.Group)
}

func handleJoinVoice(ctx context.Context, ctl *Controller, sess *core.Session, data []byte) {
	var p struct {
		Group domain.GroupID `json:"groupId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Group == "" {
		logMalformed(sess, CmdJoinVoice, err)
		return
	}
	ctl.Orch.JoinVoice(ctx, sess, p.Group)
}

func handleLeaveVoice(_ context.Context, ctl *Controller, sess *core.Session, data []byte) {
	var p struct {
		Group domain.GroupID `json:"groupId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Group == "" {
		logMalformed(sess, CmdLeaveVoice, err)
		return
	}
	ctl.Orch.LeaveVoice(sess, p.Group)
}

func handleMute(ctx context.Context, ctl *Controller, sess *core.Session, data []byte) {
	setMuted(ctl, sess, data, CmdMute, true)
}

func handleUnmute(ctx context.Context, ctl *Controller, sess *core.Session, data []byte) {
	setMuted(ctl, sess, data, CmdUnmute, false)
}

func setMuted(ctl *Controller, sess *core.Session, data []byte, cmd string, muted bool) {
	var p struct {
		Group domain.GroupID `json:"groupId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Group == "" {
		logMalformed(sess, cmd, err)
		return
	}
	ctl.Orch.SetMuted(sess, p.Group, muted)
}

func handleStartTracking(_ context.Context, ctl *Controller, sess *core.Session, data []byte) {
	var p struct {
		Car domain.CarID `json:"carId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		logMalformed(sess, CmdStartTracking, err)
		return
	}
	ctl.Orch.StartTracking(sess, p.Car)
}

func handleStopTracking(_ context.Context, ctl *Controller, sess *core.Session, data []byte) {
	var p struct {
		Car domain.CarID `json:"carId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		logMalformed(sess, CmdStopTracking, err)
		return
	}
	ctl.Orch.StopTracking(sess, p.Car)
}

func handleLocationUpdate(_ context.Context, ctl *Controller, sess *core.Session, data []byte) {
	var p struct {
		Car                domain.CarID `json:"carId"`
		Lat                *float64     `json:"lat"`
		Lon                *float64     `json:"lon"`
		Accuracy           *float64     `json:"accuracy"`
		Speed              *float64     `json:"speed"`
		Heading            *float64     `json:"heading"`
		Altitude           *float64     `json:"altitude"`
		BluetoothConnected bool         `json:"bluetoothConnected"`
		Timestamp          int64        `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.Lat == nil || p.Lon == nil {
		logMalformed(sess, CmdLocationUpdate, err)
		return
	}
	ctl.Orch.PublishLocation(sess, domain.LocationUpdate{
		User:               sess.User,
		Car:                p.Car,
		Latitude:           *p.Lat,
		Longitude:          *p.Lon,
		Accuracy:           p.Accuracy,
		Speed:              p.Speed,
		Heading:            p.Heading,
		Altitude:           p.Altitude,
		BluetoothConnected: p.BluetoothConnected,
		Timestamp:          p.Timestamp,
		Live:               true,
	})
}

func relayHandler(kind domain.SignalKind) commandHandler {
	return func(_ context.Context, ctl *Controller, sess *core.Session, data []byte) {
		var p struct {
			Target  domain.UserID   `json:"targetUserId"`
			Group   domain.GroupID  `json:"groupId"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &p); err != nil || p.Target == "" {
			logMalformed(sess, string(kind), err)
			return
		}
		ctl.Orch.RelaySignal(sess, kind, p.Group, p.Target, p.Payload)
	}
}

func logMalformed(sess *core.Session, cmd string, err error) {
	log.Warn().Err(err).Str("module", "signal").Str("sid", string(sess.ID)).Str("command", cmd).Msg("malformed command ignored")
}
