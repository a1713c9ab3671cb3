package app

import (
	"testing"

	"github.com/convoyhq/hub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartTrackingAnnouncesLive(t *testing.T) {
	d := NewRoomDirectory()
	l := NewLocationFanout(d)

	friend, friendConn := newSession("s-friend", "bob")
	d.Join(domain.FriendsRoom("alice"), domain.RoomTypeFriends, friend)

	owner, ownerConn := newSession("s-owner", "alice")
	room := l.StartTracking(owner, "car-1")

	assert.Equal(t, domain.FriendsRoom("alice"), room)
	assert.Equal(t, []string{"friend_went_live"}, friendConn.eventTypes(t))
	// Self-excluded: the tracker never hears its own announcement.
	assert.Zero(t, ownerConn.count())

	car, live := l.Tracking("alice")
	assert.True(t, live)
	assert.Equal(t, domain.CarID("car-1"), car)
}

func TestPublishPassThrough(t *testing.T) {
	d := NewRoomDirectory()
	l := NewLocationFanout(d)

	friend, friendConn := newSession("s-friend", "bob")
	d.Join(domain.FriendsRoom("alice"), domain.RoomTypeFriends, friend)
	owner, _ := newSession("s-owner", "alice")
	l.StartTracking(owner, "car-1")

	update := domain.LocationUpdate{User: "alice", Car: "car-1", Latitude: 52.5, Longitude: 13.4, Live: true}
	// Identical updates are forwarded twice, no dedup.
	l.Publish(owner, update)
	l.Publish(owner, update)

	types := friendConn.eventTypes(t)
	require.Len(t, types, 3)
	assert.Equal(t, []string{"friend_went_live", "friend_location_update", "friend_location_update"}, types)

	var ev FriendLocationEvent
	friendConn.last(t, &ev)
	assert.Equal(t, 52.5, ev.Latitude)
	assert.Equal(t, 13.4, ev.Longitude)
	assert.True(t, ev.Live)
}

func TestStopTrackingKeepsSubscribers(t *testing.T) {
	d := NewRoomDirectory()
	l := NewLocationFanout(d)

	friend, friendConn := newSession("s-friend", "bob")
	d.Join(domain.FriendsRoom("alice"), domain.RoomTypeFriends, friend)
	owner, _ := newSession("s-owner", "alice")
	l.StartTracking(owner, "car-1")

	l.StopTracking(owner, "car-1")

	types := friendConn.eventTypes(t)
	assert.Equal(t, []string{"friend_went_live", "friend_parked"}, types)
	// Friends stay joined for the next trip.
	assert.Len(t, d.MembersOf(domain.FriendsRoom("alice")), 2)

	_, live := l.Tracking("alice")
	assert.False(t, live)
}

func TestParkedBestEffort(t *testing.T) {
	d := NewRoomDirectory()
	l := NewLocationFanout(d)

	friend, friendConn := newSession("s-friend", "bob")
	d.Join(domain.FriendsRoom("alice"), domain.RoomTypeFriends, friend)
	owner, _ := newSession("s-owner", "alice")
	l.StartTracking(owner, "car-1")

	l.Parked("alice")
	assert.Contains(t, friendConn.eventTypes(t), "friend_parked")

	// Not tracking: nothing emitted.
	before := friendConn.count()
	l.Parked("alice")
	assert.Equal(t, before, friendConn.count())
}
