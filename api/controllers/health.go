package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/tobimartins/servicehub-backend/api/responses"
	"github.com/tobimartins/servicehub-backend/pkg/config"
	pkgerrors "github.com/tobimartins/servicehub-backend/pkg/errors"
	"github.com/tobimartins/servicehub-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ServiceHub-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, db Pinger, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		w.Header().Set("X-ServiceHub-Env", cfg.App.Env)

		checks := map[string]Pinger{
			"database": db,
			"redis":    cache,
		}
		for name, dep := range checks {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
