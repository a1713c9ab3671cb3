package app

import (
	"encoding/json"

	"github.com/convoyhq/hub/internal/domain"
	"github.com/convoyhq/hub/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Relay forwards call-setup payloads point-to-point by target identity.
// Delivery is best-effort, at-most-once: an offline target means the
// payload is dropped, never queued. Per-sender order is preserved by the
// single-writer send queue of each connection.
type Relay struct {
	registry *Registry
}

func NewRelay(registry *Registry) *Relay {
	return &Relay{registry: registry}
}

// Send delivers a payload to every live session of the target user,
// tagged with the sender. Returns the number of sessions reached.
func (r *Relay) Send(kind domain.SignalKind, from domain.UserID, group domain.GroupID, target domain.UserID, payload json.RawMessage) int {
	eventType := kind.EventType()
	if eventType == "" {
		log.Warn().Str("module", "app.relay").Str("kind", string(kind)).Msg("unknown signal kind")
		return 0
	}

	sessions := r.registry.SessionsOf(target)
	if len(sessions) == 0 {
		// Target offline: expected absence, not an error.
		log.Debug().Str("module", "app.relay").Str("from", string(from)).Str("target", string(target)).Str("kind", string(kind)).Msg("target offline, dropped")
		return 0
	}

	frame, ok := Encode(SignalEvent{
		Type:    eventType,
		From:    from,
		Group:   group,
		Payload: payload,
	})
	if !ok {
		return 0
	}

	delivered := 0
	for _, sess := range sessions {
		if err := sess.Send(frame); err != nil {
			metrics.FramesDropped.Inc()
			log.Warn().Err(err).Str("module", "app.relay").Str("sid", string(sess.ID)).Msg("direct send failed")
			continue
		}
		delivered++
	}
	metrics.SignalsRelayed.Add(float64(delivered))
	log.Debug().Str("module", "app.relay").Str("from", string(from)).Str("target", string(target)).Str("kind", string(kind)).Int("delivered", delivered).Msg("relayed")
	return delivered
}
