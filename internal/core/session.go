package core

import (
	"errors"
	"time"

	"github.com/convoyhq/hub/internal/domain"
)

// Frame is a raw outbound payload (encoded JSON envelope).
type Frame []byte

type SessionID string

var ErrBackpressure = errors.New("backpressure")

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Session binds one live connection to the identity it authenticated as.
// A user may own several concurrent sessions (multiple devices).
type Session struct {
	ID        SessionID
	User      domain.UserID
	CreatedAt time.Time
	conn      SignalConnection
}

func NewSession(id SessionID, user domain.UserID, conn SignalConnection) *Session {
	return &Session{ID: id, User: user, CreatedAt: time.Now(), conn: conn}
}

func (s *Session) Signal() SignalConnection { return s.conn }

// Send is a direct, best-effort delivery to this session.
func (s *Session) Send(f Frame) error {
	return s.conn.TrySend(f)
}
