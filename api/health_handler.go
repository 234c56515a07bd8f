package api

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type healthHandler struct {
	responder Responder
	db        pinger
}

func newHealthHandler(db pinger) healthHandler {
	logger := log.With().Str("handlerName", "healthHandler").Logger()
	return healthHandler{responder: NewResponder(logger), db: db}
}

type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// health reports 503 when the database does not answer within two seconds.
func (h healthHandler) health(startupTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		uptime := time.Since(startupTime).Truncate(time.Second).String()
		if err := h.db.Ping(ctx); err != nil {
			h.responder.logger.Warn().Err(err).Msg("health check failed")
			h.responder.WriteJSONStatus(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Uptime: uptime})
			return
		}
		h.responder.WriteJSON(w, HealthResponse{Status: "ok", Uptime: uptime})
	}
}
