package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/convoyhq/hub/internal/adapters/signal"
	"github.com/convoyhq/hub/internal/app/orch"
	"github.com/convoyhq/hub/internal/config"
	"github.com/convoyhq/hub/internal/metrics"
)

const sessionUserKey = "uid"

// IdentityMiddleware lifts the user identity established by the
// upstream auth layer onto the gin context. Token validation itself is
// external: the trusted front proxy forwards the verified id in
// X-User-ID, which is then pinned to the cookie session.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		store := sessions.Default(c)
		uid, _ := store.Get(sessionUserKey).(string)
		if hdr := c.GetHeader("X-User-ID"); hdr != "" && hdr != uid {
			uid = hdr
			store.Set(sessionUserKey, uid)
			if err := store.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set("user_id", uid)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("ConvoySessions", store))
	r.Use(IdentityMiddleware())

	ctl := signal.NewController(o, signal.Config{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.SendBuffer,
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	api.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("user", c.GetString("user_id")).Msg("ws endpoint hit")
		ctl.Handle(ctx, c)
	})

	// Ops introspection: which rooms exist and how full they are.
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms.List()})
	})

	return r
}
