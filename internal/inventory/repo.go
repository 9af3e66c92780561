package inventory

import (
	"context"

	"github.com/amontesdeoca/equiptrack-backend/pkg/db/models"
	"github.com/amontesdeoca/equiptrack-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for inventory items. Quantity columns are
// only written through AdjustAvailable/AdjustQuantities by callers that hold
// the row lock taken via FindByIDForUpdate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.InventoryItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	List(ctx context.Context, params listItemsParams) ([]models.InventoryItem, *pagination.Cursor, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, fields map[string]any) (int64, error)
	AdjustAvailable(ctx context.Context, id uuid.UUID, delta int) error
	AdjustQuantities(ctx context.Context, id uuid.UUID, totalDelta, availableDelta int) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteAssignmentsByItem(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteRequestsByItem(ctx context.Context, id uuid.UUID) (int64, error)
}

type listItemsParams struct {
	Category string
	Limit    int
	Cursor   *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDForUpdate reads the row under SELECT ... FOR UPDATE, blocking until
// the exclusive lock is granted. Values read before this call are stale.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context, params listItemsParams) ([]models.InventoryItem, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit)

	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var rows []models.InventoryItem
	if err := query.Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if params.Limit > 0 && len(rows) == params.Limit {
		last := rows[params.Limit-2]
		rows = rows[:params.Limit-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

func (r *repository) UpdateDetails(ctx context.Context, id uuid.UUID, fields map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *repository) AdjustAvailable(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Update("quantity_available", gorm.Expr("quantity_available + ?", delta)).Error
}

func (r *repository) AdjustQuantities(ctx context.Context, id uuid.UUID, totalDelta, availableDelta int) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quantity_total":     gorm.Expr("quantity_total + ?", totalDelta),
			"quantity_available": gorm.Expr("quantity_available + ?", availableDelta),
		}).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.InventoryItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteAssignmentsByItem(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("item_id = ?", id).
		Delete(&models.ItemAssignment{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteRequestsByItem(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("item_id = ?", id).
		Delete(&models.ItemRequest{})
	return res.RowsAffected, res.Error
}
