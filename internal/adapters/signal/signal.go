// Package signal carries the hub's persistent client connections: it
// upgrades authenticated HTTP requests to WebSocket, pumps frames both
// ways and dispatches inbound commands into the orchestrator.
//
// The hub has no heartbeat of its own on presence: a session that stops
// sending stays joined until this transport's ping/pong liveness check
// tears the connection down. Unclean disconnects therefore leave stale
// presence for up to one ping period.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/convoyhq/hub/internal/app/orch"
	"github.com/convoyhq/hub/internal/core"
	"github.com/convoyhq/hub/internal/domain"
)

type Config struct {
	ReadLimit  int64
	PingPeriod time.Duration
	SendBuffer int
}

type Controller struct {
	Orch *orch.Orchestrator
	Cfg  Config
}

func NewController(o *orch.Orchestrator, cfg Config) *Controller {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 32
	}
	return &Controller{Orch: o, Cfg: cfg}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the request and runs the session until disconnect.
// The identity must already be on the gin context; without one the
// connection is refused before the upgrade, no events sent.
func (ctl *Controller) Handle(ctx context.Context, c *gin.Context) {
	user := domain.UserID(c.GetString("user_id"))
	if user == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	sess, err := ctl.Orch.OnConnect(conn, user, cancel)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("connection refused")
		cancel()
		conn.Close()
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sess.ID)).Str("user", string(user)).Msg("new WS connection")

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sess, conn)
}
