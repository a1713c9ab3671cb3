package app

import (
	"context"
	"errors"
	"sync"

	"github.com/convoyhq/hub/internal/core"
	"github.com/convoyhq/hub/internal/domain"
	"github.com/convoyhq/hub/internal/metrics"
	"github.com/rs/zerolog/log"
)

var ErrNoIdentity = errors.New("no identity bound to connection")

type sessionEntry struct {
	Session *core.Session
	Rooms   map[domain.RoomID]struct{}
	Cancel  context.CancelFunc
}

// Registry tracks live sessions and the identity bound to each.
// Lookups that find nothing mean "target offline", never an error.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	byUser   map[domain.UserID]map[core.SessionID]*core.Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		byUser:   make(map[domain.UserID]map[core.SessionID]*core.Session),
	}
}

// Register rejects sessions with no established identity.
func (r *Registry) Register(sess *core.Session, cancel context.CancelFunc) error {
	if sess.User == "" {
		return ErrNoIdentity
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = &sessionEntry{
		Session: sess,
		Rooms:   make(map[domain.RoomID]struct{}),
		Cancel:  cancel,
	}
	owned, ok := r.byUser[sess.User]
	if !ok {
		owned = make(map[core.SessionID]*core.Session)
		r.byUser[sess.User] = owned
	}
	owned[sess.ID] = sess
	metrics.Connections.Inc()
	log.Info().Str("module", "app.registry").Str("sid", string(sess.ID)).Str("user", string(sess.User)).Msg("registered session")
	return nil
}

// Unregister is idempotent. It returns the session together with the
// rooms it was a member of, so the caller can cascade cleanup.
func (r *Registry) Unregister(sid core.SessionID) (*core.Session, []domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, nil, false
	}
	delete(r.sessions, sid)
	if owned, ok := r.byUser[e.Session.User]; ok {
		delete(owned, sid)
		if len(owned) == 0 {
			delete(r.byUser, e.Session.User)
		}
	}
	rooms := make([]domain.RoomID, 0, len(e.Rooms))
	for id := range e.Rooms {
		rooms = append(rooms, id)
	}
	metrics.Connections.Dec()
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unregistered session")
	return e.Session, rooms, true
}

func (r *Registry) Get(sid core.SessionID) (*core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// SessionsOf returns every live session of a user, one per device.
func (r *Registry) SessionsOf(user domain.UserID) []*core.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owned, ok := r.byUser[user]
	if !ok {
		return nil
	}
	out := make([]*core.Session, 0, len(owned))
	for _, s := range owned {
		out = append(out, s)
	}
	return out
}

func (r *Registry) AnyLiveSessionOf(user domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[user]) > 0
}

// AddRoom records room membership for disconnect-time cascade.
func (r *Registry) AddRoom(sid core.SessionID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		e.Rooms[room] = struct{}{}
	}
}

func (r *Registry) RemoveRoom(sid core.SessionID, room domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		delete(e.Rooms, room)
	}
}

func (r *Registry) RoomsOf(sid core.SessionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	out := make([]domain.RoomID, 0, len(e.Rooms))
	for id := range e.Rooms {
		out = append(out, id)
	}
	return out
}

// Cancel tears down a session's connection worker (e.g. on kick).
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
