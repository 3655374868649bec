package services

import (
	"context"
	"sort"

	"badgerelay/internal/badgeclient"
	"badgerelay/internal/models"
)

// In-memory repository and client doubles shared by the service tests.

type fakePrototypeRepo struct {
	nextID    int64
	protos    map[int64]*models.Prototype
	getAllErr error
	listCalls int
	createErr error
	available []*models.Prototype
}

func newFakePrototypeRepo() *fakePrototypeRepo {
	return &fakePrototypeRepo{protos: make(map[int64]*models.Prototype)}
}

func (r *fakePrototypeRepo) GetByID(_ context.Context, id int64) (*models.Prototype, error) {
	p, ok := r.protos[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakePrototypeRepo) GetAll(_ context.Context) ([]*models.Prototype, error) {
	if r.getAllErr != nil {
		return nil, r.getAllErr
	}
	ids := make([]int64, 0, len(r.protos))
	for id := range r.protos {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*models.Prototype, 0, len(ids))
	for _, id := range ids {
		cp := *r.protos[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakePrototypeRepo) ListAvailable(_ context.Context, _ int64) ([]*models.Prototype, error) {
	r.listCalls++
	return r.available, nil
}

func (r *fakePrototypeRepo) Create(_ context.Context, p *models.Prototype) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	p.ID = r.nextID
	cp := *p
	r.protos[p.ID] = &cp
	return nil
}

func (r *fakePrototypeRepo) Update(_ context.Context, p *models.Prototype) error {
	existing, ok := r.protos[p.ID]
	if !ok {
		return nil
	}
	cp := *p
	cp.UserCreated = existing.UserCreated
	cp.UserModified = existing.UserModified
	r.protos[p.ID] = &cp
	return nil
}

func (r *fakePrototypeRepo) SoftDelete(_ context.Context, id int64) (bool, error) {
	p, ok := r.protos[id]
	if !ok || p.Status == models.PrototypeStatusDeleted {
		return false, nil
	}
	p.Status = models.PrototypeStatusDeleted
	return true, nil
}

func (r *fakePrototypeRepo) byBadgeID(badgeID int64) *models.Prototype {
	for _, p := range r.protos {
		if p.BadgeID == badgeID {
			return p
		}
	}
	return nil
}

type fakeInstanceRepo struct {
	bindings  map[int64]int64 // host badge ID -> prototype ID
	createErr error
}

func newFakeInstanceRepo() *fakeInstanceRepo {
	return &fakeInstanceRepo{bindings: make(map[int64]int64)}
}

func (r *fakeInstanceRepo) GetProtoID(_ context.Context, instanceID int64) (int64, error) {
	return r.bindings[instanceID], nil
}

func (r *fakeInstanceRepo) Create(_ context.Context, inst *models.Instance) error {
	if r.createErr != nil {
		return r.createErr
	}
	inst.ID = int64(len(r.bindings) + 1)
	r.bindings[inst.InstanceID] = inst.ProtoID
	return nil
}

// queueJoin is the host-side data a task joins against when drained.
type queueJoin struct {
	badgeID  int64
	username string
}

type fakeTaskRepo struct {
	nextID    int64
	tasks     map[int64]*models.IssuanceTask // keyed by issued ID
	joins     map[int64]queueJoin            // keyed by issued ID
	duplicate bool
	updates   int
	overview  models.QueueOverview
	ovCalls   int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{
		tasks: make(map[int64]*models.IssuanceTask),
		joins: make(map[int64]queueJoin),
	}
}

func (r *fakeTaskRepo) Enqueue(_ context.Context, issuedID int64) (bool, error) {
	if t, ok := r.tasks[issuedID]; ok {
		if t.Status == models.TaskStatusIssued {
			return false, nil
		}
		t.Status = models.TaskStatusQueued
		t.RetryCount = 0
		t.Message = ""
		return true, nil
	}
	r.nextID++
	r.tasks[issuedID] = &models.IssuanceTask{
		ID:       r.nextID,
		IssuedID: issuedID,
		Status:   models.TaskStatusQueued,
	}
	return true, nil
}

func (r *fakeTaskRepo) GetQueue(_ context.Context, issuedID int64) ([]*models.QueueItem, error) {
	ids := make([]int64, 0, len(r.tasks))
	for id := range r.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return r.tasks[ids[i]].ID < r.tasks[ids[j]].ID })

	var items []*models.QueueItem
	for _, id := range ids {
		t := r.tasks[id]
		if t.Status != models.TaskStatusQueued {
			continue
		}
		if issuedID > 0 && t.IssuedID != issuedID {
			continue
		}
		join := r.joins[id]
		items = append(items, &models.QueueItem{
			IssuanceTask: *t,
			BadgeID:      join.badgeID,
			Username:     join.username,
		})
	}
	return items, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task *models.IssuanceTask) error {
	r.updates++
	stored, ok := r.tasks[task.IssuedID]
	if !ok {
		return nil
	}
	stored.Status = task.Status
	stored.RetryCount = task.RetryCount
	stored.Message = task.Message
	return nil
}

func (r *fakeTaskRepo) HasActiveForPrototype(_ context.Context, _, _, _, _ int64) (bool, error) {
	return r.duplicate, nil
}

func (r *fakeTaskRepo) Overview(_ context.Context) (*models.QueueOverview, error) {
	r.ovCalls++
	cp := r.overview
	return &cp, nil
}

// seedTask installs a queued task with its joined host data.
func (r *fakeTaskRepo) seedTask(issuedID, badgeID int64, username string) *models.IssuanceTask {
	r.nextID++
	t := &models.IssuanceTask{
		ID:       r.nextID,
		IssuedID: issuedID,
		Status:   models.TaskStatusQueued,
	}
	r.tasks[issuedID] = t
	r.joins[issuedID] = queueJoin{badgeID: badgeID, username: username}
	return t
}

type fakeBadgeClient struct {
	badgesByCollection map[string][]badgeclient.RemoteBadge
	listErr            error

	userBadgeIDs map[string][]int64
	userErr      error

	issueResult *badgeclient.IssueResult
	issueErr    error
	issueCalls  int

	createID   int64
	createErr  error
	createReqs []*badgeclient.CreateBadgeRequest

	image    []byte
	imageErr error
}

func newFakeBadgeClient() *fakeBadgeClient {
	return &fakeBadgeClient{
		badgesByCollection: make(map[string][]badgeclient.RemoteBadge),
		userBadgeIDs:       make(map[string][]int64),
	}
}

func (c *fakeBadgeClient) ListBadges(_ context.Context, collection string) ([]badgeclient.RemoteBadge, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.badgesByCollection[collection], nil
}

func (c *fakeBadgeClient) ListUserBadgeIDs(_ context.Context, username string) ([]int64, error) {
	if c.userErr != nil {
		return nil, c.userErr
	}
	return c.userBadgeIDs[username], nil
}

func (c *fakeBadgeClient) IssueBadge(_ context.Context, _ int64, _ string) (*badgeclient.IssueResult, error) {
	c.issueCalls++
	if c.issueErr != nil {
		return nil, c.issueErr
	}
	if c.issueResult != nil {
		return c.issueResult, nil
	}
	return &badgeclient.IssueResult{}, nil
}

func (c *fakeBadgeClient) CreateBadge(_ context.Context, req *badgeclient.CreateBadgeRequest) (int64, error) {
	c.createReqs = append(c.createReqs, req)
	if c.createErr != nil {
		return 0, c.createErr
	}
	return c.createID, nil
}

func (c *fakeBadgeClient) DownloadImage(_ context.Context, _ string) ([]byte, error) {
	if c.imageErr != nil {
		return nil, c.imageErr
	}
	return c.image, nil
}
