package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Readiness is the payload of the readiness probe: whether the
// database behind the ledger answers, how fast, and how saturated the
// pool is.
type Readiness struct {
	Status       string `json:"status"`
	PingMillis   int64  `json:"ping_ms"`
	Conns        int32  `json:"conns"`
	IdleConns    int32  `json:"idle_conns"`
	MaxConns     int32  `json:"max_conns"`
	AcquireWaits int64  `json:"acquire_waits"`
	Error        string `json:"error,omitempty"`
}

// HealthHandler serves the readiness probe. A failed ping answers 503
// so the instance is pulled from rotation before commands start
// failing against a dead database.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		start := time.Now()
		err := pool.Ping(ctx)
		stat := pool.Stat()

		r := Readiness{
			Status:       "ready",
			PingMillis:   time.Since(start).Milliseconds(),
			Conns:        stat.TotalConns(),
			IdleConns:    stat.IdleConns(),
			MaxConns:     stat.MaxConns(),
			AcquireWaits: stat.EmptyAcquireCount(),
		}
		if err != nil {
			r.Status = "unavailable"
			r.Error = err.Error()
			return c.JSON(http.StatusServiceUnavailable, r)
		}
		return c.JSON(http.StatusOK, r)
	}
}
