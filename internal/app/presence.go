package app

import (
	"sync"
	"time"

	"github.com/convoyhq/hub/internal/core"
	"github.com/convoyhq/hub/internal/domain"
	"github.com/convoyhq/hub/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Evicted names the voice seat a user gave up by joining another call.
type Evicted struct {
	Room    domain.RoomID
	Session core.SessionID
}

// PresenceTracker owns voice-room participant metadata. Participants
// follow absent -> joined(muted) <-> joined(unmuted) -> absent; mutations
// on an absent participant are silent no-ops to tolerate out-of-order
// delivery. A user holds at most one voice seat across all rooms.
type PresenceTracker struct {
	mu     sync.Mutex
	byRoom map[domain.RoomID]map[domain.UserID]*domain.Participant
	roomOf map[domain.UserID]domain.RoomID
}

func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{
		byRoom: make(map[domain.RoomID]map[domain.UserID]*domain.Participant),
		roomOf: make(map[domain.UserID]domain.RoomID),
	}
}

// EnterVoice seats a user in a voice room, muted. If the user held a
// seat in another room, that seat is released first and reported so the
// caller can emit the departure before the arrival. Re-entering the same
// room rebinds the seat to the newer session (fresh=false).
func (t *PresenceTracker) EnterVoice(room domain.RoomID, user domain.UserID, sid core.SessionID) (evicted *Evicted, p *domain.Participant, fresh bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.roomOf[user]; ok {
		if prev == room {
			p = t.byRoom[room][user]
			p.Session = string(sid)
			return nil, p, false
		}
		if p := t.removeLocked(prev, user); p != nil {
			evicted = &Evicted{Room: prev, Session: core.SessionID(p.Session)}
		}
	}

	p = domain.NewParticipant(user, string(sid), time.Now())
	seats, ok := t.byRoom[room]
	if !ok {
		seats = make(map[domain.UserID]*domain.Participant)
		t.byRoom[room] = seats
	}
	seats[user] = p
	t.roomOf[user] = room
	metrics.VoiceParticipants.Inc()
	log.Info().Str("module", "app.presence").Str("room", string(room)).Str("user", string(user)).Msg("participant joined")
	return evicted, p, true
}

// ExitVoice releases a user's seat. Exiting an absent seat is a no-op.
func (t *PresenceTracker) ExitVoice(room domain.RoomID, user domain.UserID) (*domain.Participant, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.removeLocked(room, user)
	if p == nil {
		return nil, false
	}
	log.Info().Str("module", "app.presence").Str("room", string(room)).Str("user", string(user)).Msg("participant left")
	return p, true
}

// ExitSession releases the seat bound to a disconnecting session, if any.
func (t *PresenceTracker) ExitSession(sid core.SessionID) (domain.RoomID, *domain.Participant, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for room, seats := range t.byRoom {
		for user, p := range seats {
			if p.Session == string(sid) {
				t.removeLocked(room, user)
				return room, p, true
			}
		}
	}
	return "", nil, false
}

// SetMuted flips a participant's mute flag. Stale toggles (absent
// participant) and same-value toggles report changed=false.
func (t *PresenceTracker) SetMuted(room domain.RoomID, user domain.UserID, muted bool) (changed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seats, ok := t.byRoom[room]
	if !ok {
		return false
	}
	p, ok := seats[user]
	if !ok || p.Muted == muted {
		return false
	}
	p.Muted = muted
	log.Info().Str("module", "app.presence").Str("room", string(room)).Str("user", string(user)).Bool("muted", muted).Msg("participant mute changed")
	return true
}

func (t *PresenceTracker) ParticipantsOf(room domain.RoomID) []domain.Participant {
	t.mu.Lock()
	defer t.mu.Unlock()
	seats, ok := t.byRoom[room]
	if !ok {
		return nil
	}
	out := make([]domain.Participant, 0, len(seats))
	for _, p := range seats {
		out = append(out, *p)
	}
	return out
}

func (t *PresenceTracker) RoomOf(user domain.UserID) (domain.RoomID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	room, ok := t.roomOf[user]
	return room, ok
}

func (t *PresenceTracker) removeLocked(room domain.RoomID, user domain.UserID) *domain.Participant {
	seats, ok := t.byRoom[room]
	if !ok {
		return nil
	}
	p, ok := seats[user]
	if !ok {
		return nil
	}
	delete(seats, user)
	if len(seats) == 0 {
		delete(t.byRoom, room)
	}
	delete(t.roomOf, user)
	metrics.VoiceParticipants.Dec()
	return p
}
