package badges

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"badgerelay/internal/response"
	"badgerelay/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// BadgeController serves the prototype management endpoints.
type BadgeController struct {
	serviceCollection *services.ServiceCollection
	logger            *zap.Logger
}

// NewBadgeController creates a new badge controller.
func NewBadgeController(serviceCollection *services.ServiceCollection, logger *zap.Logger) *BadgeController {
	return &BadgeController{
		serviceCollection: serviceCollection,
		logger:            logger,
	}
}

// ListPrototypes handles listing prototypes available for binding. The
// optional course_id query parameter scopes the availability check.
func (c *BadgeController) ListPrototypes(w http.ResponseWriter, r *http.Request) {
	var courseID int64
	if raw := r.URL.Query().Get("course_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			response.QuickError(w, r, services.NewValidationError("invalid course_id", err))
			return
		}
		courseID = parsed
	}

	protos, err := c.serviceCollection.BadgeService.ListAvailablePrototypes(r.Context(), courseID)
	if err != nil {
		response.QuickError(w, r, err)
		return
	}

	response.QuickSuccess(w, r, protos)
}

// CreatePrototype handles creating a badge on the remote service and
// mirroring it locally.
func (c *BadgeController) CreatePrototype(w http.ResponseWriter, r *http.Request) {
	var req services.CreatePrototypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.QuickError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	proto, err := c.serviceCollection.BadgeService.CreatePrototype(r.Context(), &req)
	if err != nil {
		response.QuickError(w, r, err)
		return
	}

	response.QuickCreated(w, r, proto)
}

// bindInstanceBody is the request body for BindInstance; the prototype ID
// comes from the path.
type bindInstanceBody struct {
	HostBadgeID int64 `json:"host_badge_id"`
}

// bindInstanceData is the response payload: the binding plus the badge
// artwork for the host to attach, base64-encoded.
type bindInstanceData struct {
	Instance interface{} `json:"instance"`
	Image    string      `json:"image"`
}

// BindInstance handles binding a prototype to a concrete host badge record.
func (c *BadgeController) BindInstance(w http.ResponseWriter, r *http.Request) {
	protoID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || protoID <= 0 {
		response.QuickError(w, r, services.NewValidationError("invalid prototype ID", err))
		return
	}

	var body bindInstanceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.QuickError(w, r, services.NewValidationError("invalid request body", err))
		return
	}

	result, err := c.serviceCollection.BadgeService.BindInstance(r.Context(), &services.BindInstanceRequest{
		PrototypeID: protoID,
		HostBadgeID: body.HostBadgeID,
	})
	if err != nil {
		response.QuickError(w, r, err)
		return
	}

	response.QuickCreated(w, r, bindInstanceData{
		Instance: result.Instance,
		Image:    base64.StdEncoding.EncodeToString(result.Image),
	})
}
