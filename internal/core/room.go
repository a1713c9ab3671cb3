package core

import (
	"sync"

	"github.com/convoyhq/hub/internal/domain"
	"github.com/rs/zerolog/log"
)

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped []*Session
}

// MemberInfo is a read-only view for snapshots (no transport fields).
type MemberInfo struct {
	User    domain.UserID `json:"userId"`
	Session SessionID     `json:"-"`
}

// Room is a threadsafe membership set keyed by session id, with a
// user-id index so broadcasts can address every device of a member.
// It never closes adapter-owned resources.
type Room struct {
	ID   domain.RoomID
	Type domain.RoomType

	mu     sync.RWMutex
	bySID  map[SessionID]*Session
	byUser map[domain.UserID]map[SessionID]struct{}
}

func NewRoom(id domain.RoomID, typ domain.RoomType) *Room {
	return &Room{
		ID:     id,
		Type:   typ,
		bySID:  make(map[SessionID]*Session),
		byUser: make(map[domain.UserID]map[SessionID]struct{}),
	}
}

func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySID)
}

// AddMember is idempotent; re-adding a session only re-confirms membership.
func (r *Room) AddMember(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySID[sess.ID]; ok {
		return
	}
	r.bySID[sess.ID] = sess
	sids, ok := r.byUser[sess.User]
	if !ok {
		sids = make(map[SessionID]struct{})
		r.byUser[sess.User] = sids
	}
	sids[sess.ID] = struct{}{}
	log.Debug().Str("module", "core.room").Str("room", string(r.ID)).Str("sid", string(sess.ID)).Str("user", string(sess.User)).Msg("member added")
}

// RemoveMember reports whether the session was a member.
func (r *Room) RemoveMember(sid SessionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.bySID[sid]
	if !ok {
		return false
	}
	delete(r.bySID, sid)
	if sids, ok := r.byUser[sess.User]; ok {
		delete(sids, sid)
		if len(sids) == 0 {
			delete(r.byUser, sess.User)
		}
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.ID)).Str("sid", string(sid)).Msg("member removed")
	return true
}

func (r *Room) HasSession(sid SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.bySID[sid]
	return ok
}

// SessionsOfUser returns the member sessions owned by one user.
func (r *Room) SessionsOfUser(user domain.UserID) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sids, ok := r.byUser[user]
	if !ok {
		return nil
	}
	out := make([]*Session, 0, len(sids))
	for sid := range sids {
		out = append(out, r.bySID[sid])
	}
	return out
}

// Broadcast fans out to the membership snapshot at send time, never
// delivering back to the excluded (sending) session.
func (r *Room) Broadcast(exclude SessionID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for sid, m := range r.bySID {
		if sid == exclude {
			continue
		}
		if err := m.Send(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.ID)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *Room) MembersSnapshot() []MemberInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberInfo, 0, len(r.bySID))
	for sid, sess := range r.bySID {
		out = append(out, MemberInfo{User: sess.User, Session: sid})
	}
	return out
}
