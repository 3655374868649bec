package repositories

import (
	"context"
	"fmt"

	"badgerelay/internal/database"
	"badgerelay/internal/models"

	"go.uber.org/zap"
)

// prototypeRepository implements PrototypeRepository against Postgres.
type prototypeRepository struct {
	*BaseRepository
}

// NewPrototypeRepository creates a new PrototypeRepository.
func NewPrototypeRepository(db *database.Manager, logger *zap.Logger) PrototypeRepository {
	return &prototypeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const prototypeColumns = `
	id, badge_id, name, description, image_url, requirements, hint,
	collection, level, status, time_created, time_modified,
	user_created, user_modified`

func (r *prototypeRepository) GetByID(ctx context.Context, id int64) (*models.Prototype, error) {
	query := `SELECT` + prototypeColumns + ` FROM prototypes WHERE id = $1`

	var p models.Prototype
	err := r.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.BadgeID, &p.Name, &p.Description, &p.ImageURL, &p.Requirements, &p.Hint,
		&p.Collection, &p.Level, &p.Status, &p.TimeCreated, &p.TimeModified,
		&p.UserCreated, &p.UserModified,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get prototype by ID: %w", err)
	}
	return &p, nil
}

func (r *prototypeRepository) GetAll(ctx context.Context) ([]*models.Prototype, error) {
	query := `SELECT` + prototypeColumns + ` FROM prototypes ORDER BY id`

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list prototypes: %w", err)
	}
	defer rows.Close()

	var prototypes []*models.Prototype
	for rows.Next() {
		var p models.Prototype
		if err := rows.Scan(
			&p.ID, &p.BadgeID, &p.Name, &p.Description, &p.ImageURL, &p.Requirements, &p.Hint,
			&p.Collection, &p.Level, &p.Status, &p.TimeCreated, &p.TimeModified,
			&p.UserCreated, &p.UserModified,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prototype: %w", err)
		}
		prototypes = append(prototypes, &p)
	}
	return prototypes, rows.Err()
}

// ListAvailable returns live prototypes with no binding yet in the given
// scope: a concrete course when courseID > 0, otherwise the site scope.
func (r *prototypeRepository) ListAvailable(ctx context.Context, courseID int64) ([]*models.Prototype, error) {
	scope := "b.course_id IS NULL"
	args := []interface{}{}
	if courseID > 0 {
		scope = "b.course_id = $1"
		args = append(args, courseID)
	}

	query := `
		SELECT` + prototypeColumns + `
		FROM prototypes p
		WHERE p.status = 'live'
		  AND p.id NOT IN (
			SELECT i.proto_id
			  FROM instances i
			  JOIN host_badges b ON b.id = i.instance_id AND ` + scope + `
		  )
		ORDER BY p.name ASC`

	rows, err := r.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list available prototypes: %w", err)
	}
	defer rows.Close()

	var prototypes []*models.Prototype
	for rows.Next() {
		var p models.Prototype
		if err := rows.Scan(
			&p.ID, &p.BadgeID, &p.Name, &p.Description, &p.ImageURL, &p.Requirements, &p.Hint,
			&p.Collection, &p.Level, &p.Status, &p.TimeCreated, &p.TimeModified,
			&p.UserCreated, &p.UserModified,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prototype: %w", err)
		}
		prototypes = append(prototypes, &p)
	}
	return prototypes, rows.Err()
}

func (r *prototypeRepository) Create(ctx context.Context, p *models.Prototype) error {
	query := `
		INSERT INTO prototypes (
			badge_id, name, description, image_url, requirements, hint,
			collection, level, status, time_created, time_modified,
			user_created, user_modified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	err := r.QueryRowContext(
		ctx, query,
		p.BadgeID, p.Name, p.Description, p.ImageURL, p.Requirements, p.Hint,
		p.Collection, p.Level, p.Status, p.TimeCreated, p.TimeModified,
		p.UserCreated, p.UserModified,
	).Scan(&p.ID)

	if err != nil {
		r.GetLogger().Error("Failed to create prototype",
			zap.Error(err),
			zap.Int64("badge_id", p.BadgeID),
			zap.String("name", p.Name),
		)
		return fmt.Errorf("failed to create prototype: %w", err)
	}

	return nil
}

// Update overwrites the remote-authoritative columns. The user_created and
// user_modified audit columns are deliberately left out of the SET list.
func (r *prototypeRepository) Update(ctx context.Context, p *models.Prototype) error {
	query := `
		UPDATE prototypes SET
			name = $2, description = $3, image_url = $4, requirements = $5,
			hint = $6, collection = $7, level = $8, status = $9,
			time_created = $10, time_modified = $11
		WHERE id = $1`

	result, err := r.ExecContext(
		ctx, query,
		p.ID, p.Name, p.Description, p.ImageURL, p.Requirements,
		p.Hint, p.Collection, p.Level, p.Status,
		p.TimeCreated, p.TimeModified,
	)
	if err != nil {
		return fmt.Errorf("failed to update prototype: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("prototype %d not found", p.ID)
	}

	return nil
}

func (r *prototypeRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE prototypes SET status = 'deleted' WHERE id = $1 AND status <> 'deleted'`

	result, err := r.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to soft-delete prototype: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}
