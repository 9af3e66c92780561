package requests

import (
	"context"
	"time"

	"github.com/amontesdeoca/equiptrack-backend/pkg/db/models"
	"github.com/amontesdeoca/equiptrack-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for item requests. Status transitions only
// happen while the caller holds the referenced item's row lock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ItemRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ItemRequest, error)
	ListByStatus(ctx context.Context, status enums.RequestStatus) ([]models.ItemRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.RequestStatus, decidedAt time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a requests repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.ItemRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ItemRequest, error) {
	var request models.ItemRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.RequestStatus) ([]models.ItemRequest, error) {
	query := r.db.WithContext(ctx).Order("created_at ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var rows []models.ItemRequest
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.RequestStatus, decidedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ItemRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"decided_at": decidedAt,
		})
	return res.RowsAffected, res.Error
}
