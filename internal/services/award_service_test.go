package services

import (
	"context"
	"testing"

	"badgerelay/internal/badgeclient"
	"badgerelay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAwardFixture() (*fakeBadgeClient, *fakeInstanceRepo, *fakeTaskRepo, AwardService) {
	client := newFakeBadgeClient()
	instances := newFakeInstanceRepo()
	tasks := newFakeTaskRepo()
	issuer := NewIssueService(testBadgesConfig(), client, tasks, zap.NewNop())
	svc := NewAwardService(instances, tasks, issuer, zap.NewNop())
	return client, instances, tasks, svc
}

func awardEvent() *BadgeAwardedEvent {
	return &BadgeAwardedEvent{IssuedID: 7, BadgeDefinitionID: 12, UserID: 3}
}

func TestHandleBadgeAwardedUnboundBadgeIgnored(t *testing.T) {
	client, _, tasks, svc := newAwardFixture()

	err := svc.HandleBadgeAwarded(context.Background(), awardEvent())

	require.NoError(t, err)
	assert.Empty(t, tasks.tasks)
	assert.Zero(t, client.issueCalls)
}

func TestHandleBadgeAwardedDuplicateAbsorbed(t *testing.T) {
	client, instances, tasks, svc := newAwardFixture()
	instances.bindings[12] = 5
	tasks.duplicate = true

	err := svc.HandleBadgeAwarded(context.Background(), awardEvent())

	require.NoError(t, err)
	assert.Empty(t, tasks.tasks, "duplicate awards never enqueue")
	assert.Zero(t, client.issueCalls)
}

func TestHandleBadgeAwardedAlreadyIssuedNoOp(t *testing.T) {
	client, instances, tasks, svc := newAwardFixture()
	instances.bindings[12] = 5
	tasks.seedTask(7, 101, "alice")
	tasks.tasks[7].Status = models.TaskStatusIssued

	err := svc.HandleBadgeAwarded(context.Background(), awardEvent())

	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusIssued, tasks.tasks[7].Status)
	assert.Zero(t, client.issueCalls)
}

func TestHandleBadgeAwardedEnqueuesAndDrainsInline(t *testing.T) {
	client, instances, tasks, svc := newAwardFixture()
	instances.bindings[12] = 5
	tasks.joins[7] = queueJoin{badgeID: 101, username: "alice"}
	client.issueResult = confirmedIssue(101)

	err := svc.HandleBadgeAwarded(context.Background(), awardEvent())

	require.NoError(t, err)
	require.Contains(t, tasks.tasks, int64(7))
	assert.Equal(t, 1, client.issueCalls)
	assert.Equal(t, models.TaskStatusIssued, tasks.tasks[7].Status)
}

func TestHandleBadgeAwardedResetsFailedTask(t *testing.T) {
	client, instances, tasks, svc := newAwardFixture()
	instances.bindings[12] = 5
	seeded := tasks.seedTask(7, 101, "alice")
	seeded.Status = models.TaskStatusFailed
	seeded.RetryCount = 3
	seeded.Message = "Badge not issued."
	client.issueResult = confirmedIssue(101)

	err := svc.HandleBadgeAwarded(context.Background(), awardEvent())

	require.NoError(t, err)
	task := tasks.tasks[7]
	assert.Equal(t, models.TaskStatusIssued, task.Status)
	assert.Zero(t, task.RetryCount, "re-awarding resets the retry budget")
}

func TestHandleBadgeAwardedSwallowsDrainFailure(t *testing.T) {
	client, instances, tasks, svc := newAwardFixture()
	instances.bindings[12] = 5
	tasks.joins[7] = queueJoin{badgeID: 101, username: "alice"}
	client.issueErr = &badgeclient.APIError{Kind: badgeclient.ErrKindTransport, Message: "API request failed"}

	err := svc.HandleBadgeAwarded(context.Background(), awardEvent())

	require.NoError(t, err, "a failed inline drain is not an event failure")
	assert.Equal(t, models.TaskStatusQueued, tasks.tasks[7].Status)
}
