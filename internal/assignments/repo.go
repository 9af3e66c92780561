package assignments

import (
	"context"
	"time"

	"github.com/amontesdeoca/equiptrack-backend/pkg/db/models"
	"github.com/amontesdeoca/equiptrack-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for item assignments. Mutations only happen
// while the caller holds the referenced item's row lock.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.ItemAssignment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ItemAssignment, error)
	ListByStaff(ctx context.Context, staffID uuid.UUID) ([]models.ItemAssignment, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.ItemAssignment, error)
	MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an assignments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, assignment *models.ItemAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ItemAssignment, error) {
	var assignment models.ItemAssignment
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) ListByStaff(ctx context.Context, staffID uuid.UUID) ([]models.ItemAssignment, error) {
	var rows []models.ItemAssignment
	err := r.db.WithContext(ctx).
		Where("staff_id = ?", staffID).
		Order("allocation_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.ItemAssignment, error) {
	var rows []models.ItemAssignment
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("allocation_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) MarkReturned(ctx context.Context, id uuid.UUID, returnedAt time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ItemAssignment{}).
		Where("id = ? AND status = ?", id, enums.AssignmentStatusAssigned).
		Updates(map[string]any{
			"status":      enums.AssignmentStatusReturned,
			"returned_at": returnedAt,
		})
	return res.RowsAffected, res.Error
}
