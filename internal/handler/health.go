package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health returns a liveness/readiness handler. Liveness is implicit in
// answering at all; readiness additionally pings the database with a short
// timeout so load balancers stop routing to an instance that lost MySQL.
func Health(db *sql.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{
				"status": "degraded",
				"error":  "database unreachable",
			})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}
