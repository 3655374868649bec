package events

import (
	"encoding/json"
	"net/http"

	"badgerelay/internal/middleware"
	"badgerelay/internal/response"
	"badgerelay/internal/services"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// EventController receives host-side events. The host treats event delivery
// as fire-and-forget: a processing failure here must never bubble back into
// the host's award transaction, so handled events always answer 200.
type EventController struct {
	serviceCollection *services.ServiceCollection
	validator         *validator.Validate
	logger            *zap.Logger
}

// NewEventController creates a new event controller.
func NewEventController(serviceCollection *services.ServiceCollection, logger *zap.Logger) *EventController {
	return &EventController{
		serviceCollection: serviceCollection,
		validator:         validator.New(),
		logger:            logger,
	}
}

// eventData acknowledges receipt of an event.
type eventData struct {
	Accepted bool `json:"accepted"`
}

// BadgeAwarded handles a host "badge awarded" event. Malformed payloads are
// the only rejected case; a well-formed event is acknowledged regardless of
// the processing outcome, with failures logged and the task left queued for
// the scheduled sweep.
func (c *EventController) BadgeAwarded(w http.ResponseWriter, r *http.Request) {
	var event services.BadgeAwardedEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		response.QuickError(w, r, services.NewValidationError("invalid event body", err))
		return
	}
	if err := c.validator.Struct(&event); err != nil {
		response.QuickError(w, r, services.NewValidationError("invalid event fields", err))
		return
	}

	if err := c.serviceCollection.AwardService.HandleBadgeAwarded(r.Context(), &event); err != nil {
		middleware.GetLogger(r.Context()).Error("Badge awarded event processing failed",
			zap.Int64("issued_id", event.IssuedID),
			zap.Error(err),
		)
	}

	response.QuickSuccess(w, r, eventData{Accepted: true})
}
