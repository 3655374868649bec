package repositories

import (
	"context"

	"badgerelay/internal/models"
)

// PrototypeRepository owns prototype rows: the local mirror of remote badge
// definitions. Prototypes are soft-deleted only.
type PrototypeRepository interface {
	// GetByID retrieves a prototype by local ID, nil when absent.
	GetByID(ctx context.Context, id int64) (*models.Prototype, error)
	// GetAll retrieves every stored prototype regardless of status.
	GetAll(ctx context.Context) ([]*models.Prototype, error)
	// ListAvailable lists live prototypes not yet bound to a host badge in the
	// given course scope (courseID == 0 means site scope), ordered by name.
	ListAvailable(ctx context.Context, courseID int64) ([]*models.Prototype, error)
	// Create inserts a new prototype.
	Create(ctx context.Context, p *models.Prototype) error
	// Update overwrites the remote-authoritative columns of a prototype,
	// preserving the local audit columns.
	Update(ctx context.Context, p *models.Prototype) error
	// SoftDelete marks a prototype deleted. Reports whether a row changed.
	SoftDelete(ctx context.Context, id int64) (bool, error)
}

// InstanceRepository reads and writes instance rows binding prototypes to
// host badge records. Rows are written once and never mutated.
type InstanceRepository interface {
	// GetProtoID resolves the prototype bound to a host badge definition,
	// returning 0 when the badge is not an instance of any prototype.
	GetProtoID(ctx context.Context, instanceID int64) (int64, error)
	// Create inserts a new binding.
	Create(ctx context.Context, inst *models.Instance) error
}

// TaskRepository owns issuance task rows: the persisted issuance queue.
// Rows are never deleted; they double as the audit trail.
type TaskRepository interface {
	// Enqueue atomically inserts a queued task for issuedID, or resets an
	// existing non-issued task to queued with a zero retry count. Returns
	// false when the task is already issued and was left untouched.
	Enqueue(ctx context.Context, issuedID int64) (bool, error)
	// GetQueue returns queued tasks joined against the host award, instance,
	// prototype and host user rows. issuedID == 0 returns the whole queue.
	GetQueue(ctx context.Context, issuedID int64) ([]*models.QueueItem, error)
	// Update persists the status, retry count and message of a task.
	Update(ctx context.Context, task *models.IssuanceTask) error
	// HasActiveForPrototype reports whether any queued or issued task exists
	// for the same prototype and user through a different instance and
	// issued record. This is the cross-instance duplicate-award guard.
	HasActiveForPrototype(ctx context.Context, protoID, userID, excludeIssuedID, excludeInstanceID int64) (bool, error)
	// Overview returns task counts by status.
	Overview(ctx context.Context) (*models.QueueOverview, error)
}
