package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/tradepost-app/tradepost-backend/api/responses"
	"github.com/tradepost-app/tradepost-backend/pkg/config"
)

// Pinger is any dependency the readiness probe can check.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tradepost-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each named dependency with a short deadline; any failure
// flips the report to 503 so the load balancer drains the instance.
func HealthReady(cfg *config.Config, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tradepost-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		report := map[string]string{"status": "ready"}
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				report[name] = err.Error()
				healthy = false
				continue
			}
			report[name] = "ok"
		}

		if !healthy {
			report["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, report)
			return
		}
		responses.WriteSuccess(w, report)
	}
}
