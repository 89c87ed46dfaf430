package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// Check is an extra dependency probed by the health endpoint, e.g. the KV store.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler pings the database and every extra check. Any failure turns
// the response into 503.
func HealthHandler(pool *pgxpool.Pool, checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]interface{}{"status": "healthy"}

		err := pool.Ping(ctx)
		stats := GetPoolStats(pool)
		if err != nil {
			stats.Healthy = false
			status = http.StatusServiceUnavailable
			body["error"] = err.Error()
		}
		body["pool"] = stats

		deps := runChecks(ctx, checks)
		for _, v := range deps {
			if v != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}
		if status != http.StatusOK {
			body["status"] = "unhealthy"
		}
		return c.JSON(status, body)
	}
}

func runChecks(ctx context.Context, checks []Check) map[string]string {
	out := make(map[string]string, len(checks))
	for _, ch := range checks {
		if err := ch.Ping(ctx); err != nil {
			out[ch.Name] = err.Error()
			continue
		}
		out[ch.Name] = "ok"
	}
	return out
}
