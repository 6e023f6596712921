// Package controllers holds the thin HTTP layer. Each controller decodes the
// request, calls one service method, and writes the shared envelope.
package controllers

import (
	"context"
	"net/http"

	"github.com/mgardella/storefront-backend/api/responses"
	pkgerrors "github.com/mgardella/storefront-backend/pkg/errors"
	"github.com/mgardella/storefront-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthController serves liveness and readiness probes.
type HealthController struct {
	db    pinger
	redis pinger
	logg  *logger.Logger
}

// NewHealthController wires the probe dependencies.
func NewHealthController(db, redis pinger, logg *logger.Logger) *HealthController {
	return &HealthController{db: db, redis: redis, logg: logg}
}

// Live reports process liveness.
func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]string{"status": "ok"})
}

// Ready reports readiness of the backing stores.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if c.db != nil {
		if err := c.db.Ping(ctx); err != nil {
			responses.WriteError(ctx, w, c.logg, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
			return
		}
	}
	if c.redis != nil {
		if err := c.redis.Ping(ctx); err != nil {
			responses.WriteError(ctx, w, c.logg, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
			return
		}
	}
	responses.WriteSuccess(w, map[string]string{"status": "ready"})
}
