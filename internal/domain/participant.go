package domain

import "time"

// Participant is a user's seat in a voice room. One per (room, user);
// a user holds at most one voice seat across all rooms.
type Participant struct {
	User     UserID    `json:"userId"`
	Session  string    `json:"-"`
	Muted    bool      `json:"muted"`
	JoinedAt time.Time `json:"joinedAt"`
}

// NewParticipant starts muted; clients unmute explicitly.
func NewParticipant(user UserID, session string, now time.Time) *Participant {
	return &Participant{User: user, Session: session, Muted: true, JoinedAt: now}
}
