package sync

import (
	"net/http"

	"badgerelay/internal/response"
	"badgerelay/internal/services"

	"go.uber.org/zap"
)

// SyncController serves the on-demand prototype synchronization endpoint.
type SyncController struct {
	serviceCollection *services.ServiceCollection
	logger            *zap.Logger
}

// NewSyncController creates a new sync controller.
func NewSyncController(serviceCollection *services.ServiceCollection, logger *zap.Logger) *SyncController {
	return &SyncController{
		serviceCollection: serviceCollection,
		logger:            logger,
	}
}

// Sync handles an on-demand synchronization run.
func (c *SyncController) Sync(w http.ResponseWriter, r *http.Request) {
	result, err := c.serviceCollection.SyncService.Sync(r.Context())
	if err != nil {
		response.QuickError(w, r, err)
		return
	}

	response.QuickSuccess(w, r, result)
}
