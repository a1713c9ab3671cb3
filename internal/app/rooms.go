package app

import (
	"sync"

	"github.com/convoyhq/hub/internal/core"
	"github.com/convoyhq/hub/internal/domain"
	"github.com/convoyhq/hub/internal/metrics"
	"github.com/rs/zerolog/log"
)

type RoomInfo struct {
	ID          domain.RoomID   `json:"id"`
	Type        domain.RoomType `json:"type"`
	MemberCount int             `json:"memberCount"`
}

// RoomDirectory owns the set of live rooms. Rooms are created lazily on
// first join and garbage-collected the instant their member set empties.
// Join/leave on one room id are serialized through the directory lock;
// broadcasts serialize against membership changes on the room's own lock,
// so a broadcast always observes a membership set that actually existed.
type RoomDirectory struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*core.Room

	policy Policy
	onDrop func(*core.Session)
}

func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{rooms: make(map[domain.RoomID]*core.Room)}
}

// SetDropHandling wires the backpressure policy to a kick callback.
func (d *RoomDirectory) SetDropHandling(policy Policy, onDrop func(*core.Session)) {
	d.policy = policy
	d.onDrop = onDrop
}

// Join adds a session to a room, creating the room if needed. Idempotent.
func (d *RoomDirectory) Join(id domain.RoomID, typ domain.RoomType, sess *core.Session) *core.Room {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[id]
	if !ok {
		room = core.NewRoom(id, typ)
		d.rooms[id] = room
		metrics.Rooms.Inc()
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("type", string(typ)).Msg("room created")
	}
	room.AddMember(sess)
	return room
}

// Leave removes a session from a room. A leave by a non-member is a
// no-op. Returns the remaining member count and whether the session was
// actually a member; a room left empty is destroyed synchronously.
func (d *RoomDirectory) Leave(id domain.RoomID, sid core.SessionID) (remaining int, wasMember bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[id]
	if !ok {
		return 0, false
	}
	wasMember = room.RemoveMember(sid)
	remaining = room.MemberCount()
	if remaining == 0 {
		delete(d.rooms, id)
		metrics.Rooms.Dec()
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room destroyed")
	}
	return remaining, wasMember
}

func (d *RoomDirectory) Get(id domain.RoomID) (*core.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	room, ok := d.rooms[id]
	return room, ok
}

func (d *RoomDirectory) MembersOf(id domain.RoomID) []core.MemberInfo {
	d.mu.RLock()
	room, ok := d.rooms[id]
	d.mu.RUnlock()
	if !ok {
		return nil
	}
	return room.MembersSnapshot()
}

// Broadcast fans an encoded event out to a room, self-excluded. Slow
// consumers are handed to the configured policy.
func (d *RoomDirectory) Broadcast(id domain.RoomID, exclude core.SessionID, frame core.Frame) core.PublishResult {
	d.mu.RLock()
	room, ok := d.rooms[id]
	d.mu.RUnlock()
	if !ok {
		return core.PublishResult{}
	}
	res := room.Broadcast(exclude, frame)
	metrics.FramesSent.Add(float64(res.SentTo))
	metrics.FramesDropped.Add(float64(len(res.Dropped)))
	if d.policy == nil || d.onDrop == nil {
		return res
	}
	for _, slow := range res.Dropped {
		switch d.policy.OnBackPressure(room, slow) {
		case KickMember:
			d.onDrop(slow)
		case MarkSlow, DropFrame, NoAction:
		}
	}
	return res
}

func (d *RoomDirectory) List() []RoomInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]RoomInfo, 0, len(d.rooms))
	for id, r := range d.rooms {
		out = append(out, RoomInfo{ID: id, Type: r.Type, MemberCount: r.MemberCount()})
	}
	return out
}
