package models

import "time"

// Prototype statuses. A prototype is never physically deleted; when the
// remote side stops reporting it the status moves to "deleted" so that
// existing instances keep resolving.
const (
	PrototypeStatusLive    = "live"
	PrototypeStatusDraft   = "draft"
	PrototypeStatusDeleted = "deleted"
)

// Issuance task statuses. "issued" and "failed" are terminal.
const (
	TaskStatusQueued = "queued"
	TaskStatusIssued = "issued"
	TaskStatusFailed = "failed"
)

// Prototype is a locally mirrored definition of a remote badge.
// Name, description, collection, level, status and the remote timestamps are
// authoritative on the remote side; only the audit columns are local.
type Prototype struct {
	ID           int64  `json:"id" db:"id"`
	BadgeID      int64  `json:"badge_id" db:"badge_id"`
	Name         string `json:"name" db:"name"`
	Description  string `json:"description" db:"description"`
	ImageURL     string `json:"image_url" db:"image_url"`
	Requirements string `json:"requirements,omitempty" db:"requirements"`
	Hint         string `json:"hint,omitempty" db:"hint"`
	Collection   string `json:"collection" db:"collection"`
	Level        string `json:"level" db:"level"`
	Status       string `json:"status" db:"status"`
	TimeCreated  int64  `json:"time_created" db:"time_created"`
	TimeModified int64  `json:"time_modified" db:"time_modified"`
	UserCreated  int64  `json:"user_created" db:"user_created"`
	UserModified int64  `json:"user_modified" db:"user_modified"`
}

// Instance binds one prototype to one concrete awardable badge record in the
// host system. Written once at creation time, immutable thereafter.
type Instance struct {
	ID         int64 `json:"id" db:"id"`
	ProtoID    int64 `json:"proto_id" db:"proto_id"`
	InstanceID int64 `json:"instance_id" db:"instance_id"`
}

// IssuanceTask tracks the lifecycle of one issuance attempt. One row per
// host-side issued record, unique on IssuedID; rows are never deleted so the
// table doubles as an audit trail.
type IssuanceTask struct {
	ID         int64     `json:"id" db:"id"`
	IssuedID   int64     `json:"issued_id" db:"issued_id"`
	Status     string    `json:"status" db:"status"`
	RetryCount int       `json:"retry_count" db:"retry_count"`
	Message    string    `json:"message" db:"message"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// QueueItem is an issuance task joined against the host award, instance,
// prototype and host user rows needed to actually issue the badge. BadgeID
// and Username are zero-valued when the joined data is missing, which the
// engine treats as a data-integrity failure rather than silently skipping.
type QueueItem struct {
	IssuanceTask
	BadgeID  int64  `json:"badge_id" db:"badge_id"`
	Username string `json:"username" db:"username"`
}

// SyncResult reports what a prototype synchronization run changed.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
}

// QueueOverview holds issuance task counts by status.
type QueueOverview struct {
	Queued int64 `json:"queued"`
	Issued int64 `json:"issued"`
	Failed int64 `json:"failed"`
}
