package app

import (
	"sync"

	"github.com/convoyhq/hub/internal/core"
	"github.com/convoyhq/hub/internal/domain"
	"github.com/rs/zerolog/log"
)

// LocationFanout broadcasts a user's liveness and location samples to
// the user's own friends room. Friends must already be joined to
// friends_of_<user> to receive anything. Updates pass through untouched:
// no dedup, no throttling, no staleness checks.
type LocationFanout struct {
	rooms *RoomDirectory

	mu   sync.Mutex
	live map[domain.UserID]domain.CarID
}

func NewLocationFanout(rooms *RoomDirectory) *LocationFanout {
	return &LocationFanout{rooms: rooms, live: make(map[domain.UserID]domain.CarID)}
}

// StartTracking joins the user to their own friends room and announces
// them live to already-subscribed friends.
func (l *LocationFanout) StartTracking(sess *core.Session, car domain.CarID) domain.RoomID {
	room := domain.FriendsRoom(sess.User)
	l.rooms.Join(room, domain.RoomTypeFriends, sess)

	l.mu.Lock()
	l.live[sess.User] = car
	l.mu.Unlock()

	if frame, ok := Encode(FriendLivenessEvent{Type: EventFriendWentLive, User: sess.User, Car: car}); ok {
		l.rooms.Broadcast(room, sess.ID, frame)
	}
	log.Info().Str("module", "app.location").Str("user", string(sess.User)).Str("car", string(car)).Msg("tracking started")
	return room
}

// StopTracking announces the car parked. Friends stay subscribed; only
// the liveness flag changes on later events.
func (l *LocationFanout) StopTracking(sess *core.Session, car domain.CarID) {
	l.mu.Lock()
	delete(l.live, sess.User)
	l.mu.Unlock()

	room := domain.FriendsRoom(sess.User)
	if frame, ok := Encode(FriendLivenessEvent{Type: EventFriendParked, User: sess.User, Car: car}); ok {
		l.rooms.Broadcast(room, sess.ID, frame)
	}
	log.Info().Str("module", "app.location").Str("user", string(sess.User)).Str("car", string(car)).Msg("tracking stopped")
}

// Publish fans a location sample out to the sender's friends room.
func (l *LocationFanout) Publish(sess *core.Session, update domain.LocationUpdate) {
	frame, ok := Encode(FriendLocationEvent{Type: EventFriendLocation, LocationUpdate: update})
	if !ok {
		return
	}
	l.rooms.Broadcast(domain.FriendsRoom(sess.User), sess.ID, frame)
}

// Tracking reports whether the user currently shares live location,
// and with which car.
func (l *LocationFanout) Tracking(user domain.UserID) (domain.CarID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	car, ok := l.live[user]
	return car, ok
}

// Parked clears the live flag without a session at hand (used by the
// lifecycle manager when a tracking user's last session drops) and
// best-effort notifies the friends room.
func (l *LocationFanout) Parked(user domain.UserID) {
	l.mu.Lock()
	car, ok := l.live[user]
	if ok {
		delete(l.live, user)
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	if frame, encOK := Encode(FriendLivenessEvent{Type: EventFriendParked, User: user, Car: car}); encOK {
		l.rooms.Broadcast(domain.FriendsRoom(user), "", frame)
	}
}
