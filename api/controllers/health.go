package controllers

import (
	"net/http"

	"github.com/omoshop/shop-backend/api/responses"
	"github.com/omoshop/shop-backend/pkg/config"
	"github.com/omoshop/shop-backend/pkg/db"
	pkgerrors "github.com/omoshop/shop-backend/pkg/errors"
	"github.com/omoshop/shop-backend/pkg/logger"
	"github.com/omoshop/shop-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-OmoShop-Env", cfg.App.Env)
		responses.WriteSuccess(w, "", map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when both the database and Redis answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-OmoShop-Env", cfg.App.Env)

		checks := map[string]string{}

		if dbP == nil {
			checks["database"] = "missing"
		} else if err := dbP.Ping(r.Context()); err != nil {
			checks["database"] = "down"
		} else {
			checks["database"] = "up"
		}

		if redisP == nil {
			checks["redis"] = "missing"
		} else if err := redisP.Ping(r.Context()); err != nil {
			checks["redis"] = "down"
		} else {
			checks["redis"] = "up"
		}

		for _, status := range checks {
			if status != "up" {
				err := pkgerrors.New(pkgerrors.CodeDependency, "service not ready").WithDetails(checks)
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		responses.WriteSuccess(w, "", map[string]any{"status": "ready", "checks": checks})
	}
}
