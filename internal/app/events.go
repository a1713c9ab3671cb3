package app

import (
	"encoding/json"

	"github.com/convoyhq/hub/internal/core"
	"github.com/convoyhq/hub/internal/domain"
	"github.com/rs/zerolog/log"
)

// Outbound envelope types. Naming mirrors the mobile protocol: presence
// events are kebab-case, location events snake_case.
const (
	EventParticipantJoined  = "participant-joined"
	EventParticipantLeft    = "participant-left"
	EventParticipantMuted   = "participant-muted"
	EventParticipantUnmuted = "participant-unmuted"
	EventMemberLeft         = "member-left"
	EventVoiceChatEnded     = "voice_chat_ended"
	EventFriendWentLive     = "friend_went_live"
	EventFriendParked       = "friend_parked"
	EventFriendLocation     = "friend_location_update"
	EventTurnConfig         = "turn-config"
	EventRoomState          = "room_state"
	EventError              = "error"
)

type ParticipantEvent struct {
	Type  string        `json:"type"`
	Room  domain.RoomID `json:"room"`
	User  domain.UserID `json:"userId"`
	Muted bool          `json:"muted"`
}

type MemberLeftEvent struct {
	Type string        `json:"type"`
	Room domain.RoomID `json:"room"`
	User domain.UserID `json:"userId"`
}

type VoiceChatEndedEvent struct {
	Type  string         `json:"type"`
	Group domain.GroupID `json:"groupId"`
}

type FriendLivenessEvent struct {
	Type string        `json:"type"`
	User domain.UserID `json:"userId"`
	Car  domain.CarID  `json:"carId,omitempty"`
}

type FriendLocationEvent struct {
	Type string `json:"type"`
	domain.LocationUpdate
}

type SignalEvent struct {
	Type    string          `json:"type"`
	From    domain.UserID   `json:"fromUserId"`
	Group   domain.GroupID  `json:"groupId,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

type RoomStateEvent struct {
	Type         string               `json:"type"`
	Room         domain.RoomID        `json:"room"`
	Members      []core.MemberInfo    `json:"members"`
	Participants []domain.Participant `json:"participants,omitempty"`
	Count        int                  `json:"count"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Error   string `json:"error"`
}

// Encode marshals an event envelope; a marshal failure is a programming
// error, logged and reported as not-ok rather than crashing the hub.
func Encode(v any) (core.Frame, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.events").Msg("encode event")
		return nil, false
	}
	return core.Frame(b), true
}
