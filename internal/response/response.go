package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"badgerelay/internal/middleware"
	"badgerelay/internal/services"

	"go.uber.org/zap"
)

// Envelope is the uniform JSON response shape for the API.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    Meta        `json:"meta"`
}

// ErrorBody carries a machine-readable error type plus a human message.
type ErrorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Meta carries per-response bookkeeping.
type Meta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// QuickSuccess writes a 200 envelope around data.
func QuickSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	writeJSON(w, r, http.StatusOK, Envelope{Success: true, Data: data, Meta: meta(r)})
}

// QuickCreated writes a 201 envelope around data.
func QuickCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	writeJSON(w, r, http.StatusCreated, Envelope{Success: true, Data: data, Meta: meta(r)})
}

// QuickStatusResponse writes a bare status envelope with a message.
func QuickStatusResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, Envelope{
		Success: status < 400,
		Error:   errBody(status, message),
		Meta:    meta(r),
	})
}

// QuickError maps a service error onto an HTTP status and writes it. Unknown
// error shapes become opaque 500s so internals never leak.
func QuickError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.ServiceError
	if !errors.As(err, &svcErr) {
		middleware.GetLogger(r.Context()).Error("Unhandled error in HTTP handler", zap.Error(err))
		writeJSON(w, r, http.StatusInternalServerError, Envelope{
			Success: false,
			Error:   &ErrorBody{Type: services.TypeInternal, Message: "internal server error"},
			Meta:    meta(r),
		})
		return
	}

	writeJSON(w, r, statusFor(svcErr), Envelope{
		Success: false,
		Error:   &ErrorBody{Type: svcErr.Type, Message: svcErr.Message},
		Meta:    meta(r),
	})
}

func statusFor(err *services.ServiceError) int {
	switch err.Type {
	case services.TypeValidation:
		return http.StatusBadRequest
	case services.TypeNotFound:
		return http.StatusNotFound
	case services.TypeConfiguration:
		return http.StatusServiceUnavailable
	case services.TypeTransport, services.TypeProtocol:
		return http.StatusBadGateway
	case services.TypeDataIntegrity:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func errBody(status int, message string) *ErrorBody {
	if status < 400 {
		return nil
	}
	return &ErrorBody{Type: http.StatusText(status), Message: message}
}

func meta(r *http.Request) Meta {
	return Meta{
		RequestID: middleware.GetRequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		middleware.GetLogger(r.Context()).Error("Failed to encode response", zap.Error(err))
	}
}
