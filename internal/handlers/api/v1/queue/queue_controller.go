package queue

import (
	"net/http"
	"strconv"

	"badgerelay/internal/response"
	"badgerelay/internal/services"

	"go.uber.org/zap"
)

// QueueController serves the issuance queue endpoints.
type QueueController struct {
	serviceCollection *services.ServiceCollection
	logger            *zap.Logger
}

// NewQueueController creates a new queue controller.
func NewQueueController(serviceCollection *services.ServiceCollection, logger *zap.Logger) *QueueController {
	return &QueueController{
		serviceCollection: serviceCollection,
		logger:            logger,
	}
}

// drainData reports how many tasks a drain touched.
type drainData struct {
	Processed int `json:"processed"`
}

// Drain handles an on-demand queue drain, optionally scoped to one issued
// record via the issued_id query parameter.
func (c *QueueController) Drain(w http.ResponseWriter, r *http.Request) {
	var issuedID int64
	if raw := r.URL.Query().Get("issued_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			response.QuickError(w, r, services.NewValidationError("invalid issued_id", err))
			return
		}
		issuedID = parsed
	}

	processed, err := c.serviceCollection.IssueService.Drain(r.Context(), issuedID)
	if err != nil {
		response.QuickError(w, r, err)
		return
	}

	response.QuickSuccess(w, r, drainData{Processed: processed})
}

// Overview handles the queue counts endpoint.
func (c *QueueController) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := c.serviceCollection.BadgeService.QueueOverview(r.Context())
	if err != nil {
		response.QuickError(w, r, err)
		return
	}

	response.QuickSuccess(w, r, overview)
}
