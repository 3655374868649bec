package repositories

import (
	"context"
	"fmt"

	"badgerelay/internal/database"
	"badgerelay/internal/models"

	"go.uber.org/zap"
)

// instanceRepository implements InstanceRepository against Postgres.
type instanceRepository struct {
	*BaseRepository
}

// NewInstanceRepository creates a new InstanceRepository.
func NewInstanceRepository(db *database.Manager, logger *zap.Logger) InstanceRepository {
	return &instanceRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

func (r *instanceRepository) GetProtoID(ctx context.Context, instanceID int64) (int64, error) {
	query := `SELECT proto_id FROM instances WHERE instance_id = $1`

	var protoID int64
	err := r.QueryRowContext(ctx, query, instanceID).Scan(&protoID)
	if err != nil {
		if r.IsNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to resolve prototype for instance: %w", err)
	}
	return protoID, nil
}

func (r *instanceRepository) Create(ctx context.Context, inst *models.Instance) error {
	query := `
		INSERT INTO instances (proto_id, instance_id)
		VALUES ($1, $2)
		RETURNING id`

	err := r.QueryRowContext(ctx, query, inst.ProtoID, inst.InstanceID).Scan(&inst.ID)
	if err != nil {
		r.GetLogger().Error("Failed to create instance",
			zap.Error(err),
			zap.Int64("proto_id", inst.ProtoID),
			zap.Int64("instance_id", inst.InstanceID),
		)
		return fmt.Errorf("failed to create instance: %w", err)
	}

	return nil
}
