package events

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"badgerelay/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubAwardService struct {
	err    error
	events []*services.BadgeAwardedEvent
}

func (s *stubAwardService) HandleBadgeAwarded(_ context.Context, event *services.BadgeAwardedEvent) error {
	s.events = append(s.events, event)
	return s.err
}

func postEvent(t *testing.T, award services.AwardService, body string) *httptest.ResponseRecorder {
	t.Helper()
	controller := NewEventController(&services.ServiceCollection{AwardService: award}, zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/badge-awarded", strings.NewReader(body))
	rec := httptest.NewRecorder()
	controller.BadgeAwarded(rec, req)
	return rec
}

func TestBadgeAwardedAccepted(t *testing.T) {
	award := &stubAwardService{}

	rec := postEvent(t, award, `{"issued_id": 7, "badge_definition_id": 12, "user_id": 3}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, award.events, 1)
	assert.EqualValues(t, 7, award.events[0].IssuedID)
	assert.EqualValues(t, 12, award.events[0].BadgeDefinitionID)
	assert.EqualValues(t, 3, award.events[0].UserID)
}

func TestBadgeAwardedProcessingFailureStillAnswers200(t *testing.T) {
	award := &stubAwardService{err: errors.New("database down")}

	rec := postEvent(t, award, `{"issued_id": 7, "badge_definition_id": 12, "user_id": 3}`)

	assert.Equal(t, http.StatusOK, rec.Code,
		"the host's award transaction must never see our failure")
}

func TestBadgeAwardedRejectsMalformedBody(t *testing.T) {
	award := &stubAwardService{}

	rec := postEvent(t, award, `{"issued_id": `)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, award.events)
}

func TestBadgeAwardedRejectsMissingFields(t *testing.T) {
	award := &stubAwardService{}

	rec := postEvent(t, award, `{"issued_id": 7}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, award.events)
}
