package health

import (
	"context"
	"net/http"
	"time"

	"badgerelay/internal/database"
	"badgerelay/internal/response"

	"go.uber.org/zap"
)

// HealthController serves liveness and readiness probes.
type HealthController struct {
	db     *database.Manager
	logger *zap.Logger
}

// NewHealthController creates a new health controller.
func NewHealthController(db *database.Manager, logger *zap.Logger) *HealthController {
	return &HealthController{db: db, logger: logger}
}

type healthData struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Live reports process liveness.
func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	response.QuickSuccess(w, r, healthData{Status: "ok"})
}

// Ready reports readiness: the database must answer a ping.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := c.db.DB().PingContext(ctx); err != nil {
		c.logger.Warn("Readiness probe failed", zap.Error(err))
		response.QuickStatusResponse(w, r, http.StatusServiceUnavailable, "database unreachable")
		return
	}

	response.QuickSuccess(w, r, healthData{Status: "ok", Database: "up"})
}
