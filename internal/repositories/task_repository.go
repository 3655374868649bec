package repositories

import (
	"context"
	"fmt"

	"badgerelay/internal/database"
	"badgerelay/internal/models"

	"go.uber.org/zap"
)

// taskRepository implements TaskRepository against Postgres.
type taskRepository struct {
	*BaseRepository
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *database.Manager, logger *zap.Logger) TaskRepository {
	return &taskRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Enqueue inserts or resets the task for issuedID in a single atomic
// statement. Two triggers racing on the same issuedID cannot produce two
// rows, and a task that already reached "issued" is never reset: the
// conditional update matches no row and no rows come back.
func (r *taskRepository) Enqueue(ctx context.Context, issuedID int64) (bool, error) {
	query := `
		INSERT INTO issuance_tasks (issued_id, status, retry_count, message)
		VALUES ($1, 'queued', 0, '')
		ON CONFLICT (issued_id) DO UPDATE
		SET status = 'queued', retry_count = 0, message = '', updated_at = CURRENT_TIMESTAMP
		WHERE issuance_tasks.status <> 'issued'
		RETURNING id`

	var id int64
	err := r.QueryRowContext(ctx, query, issuedID).Scan(&id)
	if err != nil {
		if r.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to enqueue task: %w", err)
	}

	r.GetLogger().Info("Issuance task queued",
		zap.Int64("issued_id", issuedID),
		zap.Int64("task_id", id),
	)
	return true, nil
}

// GetQueue returns queued tasks joined against the host data needed to issue
// them. The joins are LEFT JOINs on purpose: a task whose award, instance,
// prototype or user row is missing must still surface, with a zero badge ID
// or empty username, so the engine can fail it instead of retrying forever.
func (r *taskRepository) GetQueue(ctx context.Context, issuedID int64) ([]*models.QueueItem, error) {
	query := `
		SELECT t.id, t.issued_id, t.status, t.retry_count, t.message, t.created_at, t.updated_at,
		       COALESCE(p.badge_id, 0) AS badge_id,
		       COALESCE(u.username, '') AS username
		FROM issuance_tasks t
		LEFT JOIN host_awards a ON a.id = t.issued_id
		LEFT JOIN instances i ON i.instance_id = a.badge_id
		LEFT JOIN prototypes p ON p.id = i.proto_id
		LEFT JOIN host_users u ON u.id = a.user_id
		WHERE t.status = 'queued'`

	args := []interface{}{}
	if issuedID > 0 {
		query += ` AND t.issued_id = $1`
		args = append(args, issuedID)
	}
	query += ` ORDER BY t.id`

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load issuance queue: %w", err)
	}
	defer rows.Close()

	var items []*models.QueueItem
	for rows.Next() {
		var item models.QueueItem
		if err := rows.Scan(
			&item.ID, &item.IssuedID, &item.Status, &item.RetryCount, &item.Message,
			&item.CreatedAt, &item.UpdatedAt, &item.BadgeID, &item.Username,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (r *taskRepository) Update(ctx context.Context, task *models.IssuanceTask) error {
	query := `
		UPDATE issuance_tasks
		SET status = $2, retry_count = $3, message = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`

	result, err := r.ExecContext(ctx, query, task.ID, task.Status, task.RetryCount, task.Message)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("task %d not found", task.ID)
	}
	return nil
}

// HasActiveForPrototype checks whether the same prototype is already queued
// or issued to the same user through any other instance and issued record.
func (r *taskRepository) HasActiveForPrototype(ctx context.Context, protoID, userID, excludeIssuedID, excludeInstanceID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM issuance_tasks t
			JOIN host_awards a ON a.id = t.issued_id
			 AND a.id <> $3
			 AND a.user_id = $2
			JOIN instances i ON i.instance_id = a.badge_id
			 AND i.instance_id <> $4
			 AND i.proto_id = $1
			WHERE t.status IN ('queued', 'issued')
		)`

	var exists bool
	err := r.QueryRowContext(ctx, query, protoID, userID, excludeIssuedID, excludeInstanceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate award: %w", err)
	}
	return exists, nil
}

func (r *taskRepository) Overview(ctx context.Context) (*models.QueueOverview, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'queued'),
			COUNT(*) FILTER (WHERE status = 'issued'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM issuance_tasks`

	var o models.QueueOverview
	if err := r.QueryRowContext(ctx, query).Scan(&o.Queued, &o.Issued, &o.Failed); err != nil {
		return nil, fmt.Errorf("failed to load queue overview: %w", err)
	}
	return &o, nil
}
