package orch

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoyhq/hub/internal/app"
	"github.com/convoyhq/hub/internal/core"
	"github.com/convoyhq/hub/internal/directory"
	"github.com/convoyhq/hub/internal/domain"
	"github.com/convoyhq/hub/internal/ice"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {}

func (c *fakeConn) eventTypes(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var env struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env.Type)
	}
	return out
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) lastInto(t *testing.T, v any) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.frames)
	require.NoError(t, json.Unmarshal(c.frames[len(c.frames)-1], v))
}

func newTestOrch(auth directory.Authorizer) *Orchestrator {
	o := New(auth, ice.NewStaticProvider(nil), 50*time.Millisecond)
	o.JoinLimiter = nil
	return o
}

func connect(t *testing.T, o *Orchestrator, user domain.UserID) (*core.Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	sess, err := o.OnConnect(conn, user, func() {})
	require.NoError(t, err)
	return sess, conn
}

func TestConnectPushesTurnConfig(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	_, conn := connect(t, o, "alice")

	assert.Equal(t, []string{app.EventTurnConfig}, conn.eventTypes(t))
}

func TestConnectRefusesEmptyIdentity(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	conn := &fakeConn{}

	_, err := o.OnConnect(conn, "", func() {})

	assert.Error(t, err)
	// Refused immediately, no events sent.
	assert.Zero(t, conn.count())
}

func TestJoinGroupRoomAuthorized(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{Members: map[string][]string{"g1": {"alice"}}})
	sess, conn := connect(t, o, "alice")

	out := o.JoinGroupRoom(context.Background(), sess, "g1")

	assert.Equal(t, OK, out)
	assert.Len(t, o.Rooms.MembersOf(domain.GroupRoom("g1")), 1)
	assert.Equal(t, []string{app.EventTurnConfig, app.EventRoomState}, conn.eventTypes(t))
}

func TestJoinGroupRoomUnauthorized(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{})
	sess, conn := connect(t, o, "alice")

	out := o.JoinGroupRoom(context.Background(), sess, "g1")

	assert.Equal(t, Unauthorized, out)
	// No state mutated, client told explicitly.
	assert.Empty(t, o.Rooms.MembersOf(domain.GroupRoom("g1")))
	assert.Equal(t, []string{app.EventTurnConfig, app.EventError}, conn.eventTypes(t))
}

type hangingAuthorizer struct{}

func (hangingAuthorizer) IsGroupMember(ctx context.Context, _, _ string) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
}

func TestJoinGroupRoomLookupTimeoutRejects(t *testing.T) {
	o := newTestOrch(hangingAuthorizer{})
	sess, conn := connect(t, o, "alice")

	out := o.JoinGroupRoom(context.Background(), sess, "g1")

	assert.Equal(t, LookupFailed, out)
	assert.Empty(t, o.Rooms.MembersOf(domain.GroupRoom("g1")))
	assert.Contains(t, conn.eventTypes(t), app.EventError)
}

func TestJoinRateLimited(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	o.JoinLimiter = app.NewJoinRateLimiter(1, time.Minute)
	sess, conn := connect(t, o, "alice")

	assert.Equal(t, OK, o.JoinGroupRoom(context.Background(), sess, "g1"))
	assert.Equal(t, Unauthorized, o.JoinGroupRoom(context.Background(), sess, "g2"))
	assert.Contains(t, conn.eventTypes(t), app.EventError)
}

func TestVoiceJoinDefaultsMutedAndAnnounces(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	a, _ := connect(t, o, "alice")
	b, bConn := connect(t, o, "bob")

	require.Equal(t, OK, o.JoinVoice(context.Background(), b, "g5"))
	require.Equal(t, OK, o.JoinVoice(context.Background(), a, "g5"))

	// Bob hears Alice arrive; Alice does not hear herself.
	assert.Equal(t, []string{app.EventTurnConfig, app.EventRoomState, app.EventParticipantJoined}, bConn.eventTypes(t))

	parts := o.Presence.ParticipantsOf(domain.VoiceRoom("g5"))
	require.Len(t, parts, 2)
	for _, p := range parts {
		assert.True(t, p.Muted)
	}
}

func TestVoiceSwitchLeavesOldRoomFirst(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	a, _ := connect(t, o, "alice")
	watcher5, w5Conn := connect(t, o, "walter")
	watcher7, w7Conn := connect(t, o, "wendy")

	require.Equal(t, OK, o.JoinVoice(context.Background(), watcher5, "g5"))
	require.Equal(t, OK, o.JoinVoice(context.Background(), watcher7, "g7"))
	require.Equal(t, OK, o.JoinVoice(context.Background(), a, "g5"))
	require.Equal(t, OK, o.JoinVoice(context.Background(), a, "g7"))

	// Old room hears the departure, new room the arrival.
	assert.Equal(t, app.EventParticipantLeft, lastEvent(t, w5Conn))
	assert.Equal(t, app.EventParticipantJoined, lastEvent(t, w7Conn))

	room, ok := o.Presence.RoomOf("alice")
	require.True(t, ok)
	assert.Equal(t, domain.VoiceRoom("g7"), room)
	for _, m := range o.Rooms.MembersOf(domain.VoiceRoom("g5")) {
		assert.NotEqual(t, domain.UserID("alice"), m.User)
	}
}

func TestVoiceSwitchDestroysEmptiedRoom(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	a, _ := connect(t, o, "alice")
	groupWatcher, gConn := connect(t, o, "walter")
	require.Equal(t, OK, o.JoinGroupRoom(context.Background(), groupWatcher, "g5"))

	require.Equal(t, OK, o.JoinVoice(context.Background(), a, "g5"))
	require.Equal(t, OK, o.JoinVoice(context.Background(), a, "g7"))

	// voice_5 emptied: destroyed, and group_5 hears the call end.
	_, exists := o.Rooms.Get(domain.VoiceRoom("g5"))
	assert.False(t, exists)
	assert.Contains(t, gConn.eventTypes(t), app.EventVoiceChatEnded)
	assert.Len(t, o.Presence.ParticipantsOf(domain.VoiceRoom("g7")), 1)
}

func TestLeaveVoiceLastParticipantEndsCall(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	a, _ := connect(t, o, "alice")
	groupWatcher, gConn := connect(t, o, "walter")
	require.Equal(t, OK, o.JoinGroupRoom(context.Background(), groupWatcher, "g5"))
	require.Equal(t, OK, o.JoinVoice(context.Background(), a, "g5"))

	o.LeaveVoice(a, "g5")

	_, exists := o.Rooms.Get(domain.VoiceRoom("g5"))
	assert.False(t, exists)
	assert.Contains(t, gConn.eventTypes(t), app.EventVoiceChatEnded)
	assert.Empty(t, o.Presence.ParticipantsOf(domain.VoiceRoom("g5")))

	// Stale leave: success/no-op.
	o.LeaveVoice(a, "g5")
}

func TestMuteToggleBroadcasts(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	a, _ := connect(t, o, "alice")
	b, bConn := connect(t, o, "bob")
	require.Equal(t, OK, o.JoinVoice(context.Background(), b, "g5"))
	require.Equal(t, OK, o.JoinVoice(context.Background(), a, "g5"))

	o.SetMuted(a, "g5", false)
	assert.Equal(t, app.EventParticipantUnmuted, lastEvent(t, bConn))

	// Same value again: state no-op, no redundant event.
	before := bConn.count()
	o.SetMuted(a, "g5", false)
	assert.Equal(t, before, bConn.count())

	o.SetMuted(a, "g5", true)
	assert.Equal(t, app.EventParticipantMuted, lastEvent(t, bConn))
}

func TestMuteAfterDisconnectIsNoOp(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	a, _ := connect(t, o, "alice")
	b, bConn := connect(t, o, "bob")
	require.Equal(t, OK, o.JoinVoice(context.Background(), b, "g5"))
	require.Equal(t, OK, o.JoinVoice(context.Background(), a, "g5"))
	o.OnDisconnect(a.ID)

	before := bConn.count()
	o.SetMuted(a, "g5", false)
	assert.Equal(t, before, bConn.count())
}

func TestDisconnectCascades(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	a, _ := connect(t, o, "alice")
	b, bConn := connect(t, o, "bob")
	require.Equal(t, OK, o.JoinVoice(context.Background(), b, "g5"))
	require.Equal(t, OK, o.JoinVoice(context.Background(), a, "g5"))
	o.SetMuted(a, "g5", false)

	o.OnDisconnect(a.ID)

	types := bConn.eventTypes(t)
	assert.Equal(t, app.EventParticipantLeft, types[len(types)-1])
	parts := o.Presence.ParticipantsOf(domain.VoiceRoom("g5"))
	require.Len(t, parts, 1)
	assert.Equal(t, domain.UserID("bob"), parts[0].User)

	// Idempotent.
	o.OnDisconnect(a.ID)
}

func TestDisconnectLastSessionParksCar(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	friend, friendConn := connect(t, o, "bob")
	o.JoinFriendsRoom(friend, "alice")

	phone, _ := connect(t, o, "alice")
	tablet, _ := connect(t, o, "alice")
	o.StartTracking(phone, "car-1")

	o.OnDisconnect(phone.ID)
	// Another device is still live: no parked signal.
	assert.NotContains(t, friendConn.eventTypes(t), app.EventFriendParked)

	o.Location.StartTracking(tablet, "car-1")
	o.OnDisconnect(tablet.ID)
	assert.Contains(t, friendConn.eventTypes(t), app.EventFriendParked)
}

func TestDisconnectEmitsMemberLeftToGroupRooms(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	a, _ := connect(t, o, "alice")
	b, bConn := connect(t, o, "bob")
	require.Equal(t, OK, o.JoinGroupRoom(context.Background(), a, "g1"))
	require.Equal(t, OK, o.JoinGroupRoom(context.Background(), b, "g1"))

	o.OnDisconnect(a.ID)

	assert.Equal(t, app.EventMemberLeft, lastEvent(t, bConn))
	assert.Len(t, o.Rooms.MembersOf(domain.GroupRoom("g1")), 1)
}

func TestPublishLocationPinsSenderIdentity(t *testing.T) {
	o := newTestOrch(directory.StaticAuthorizer{AllowAll: true})
	friend, friendConn := connect(t, o, "bob")
	o.JoinFriendsRoom(friend, "alice")
	owner, _ := connect(t, o, "alice")
	o.StartTracking(owner, "car-1")

	o.PublishLocation(owner, domain.LocationUpdate{User: "mallory", Latitude: 1, Longitude: 2, Live: true})

	var ev app.FriendLocationEvent
	friendConn.lastInto(t, &ev)
	assert.Equal(t, domain.UserID("alice"), ev.User)
}

func lastEvent(t *testing.T, c *fakeConn) string {
	t.Helper()
	types := c.eventTypes(t)
	require.NotEmpty(t, types)
	return types[len(types)-1]
}
