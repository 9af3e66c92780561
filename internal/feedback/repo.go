package feedback

import (
	"context"

	"github.com/amontesdeoca/equiptrack-backend/pkg/db/models"
	"github.com/amontesdeoca/equiptrack-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository manages persistence for feedback entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.FeedbackEntry) error
	List(ctx context.Context, params listFeedbackParams) ([]models.FeedbackEntry, *pagination.Cursor, error)
}

type listFeedbackParams struct {
	Limit  int
	Cursor *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a feedback repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.FeedbackEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, params listFeedbackParams) ([]models.FeedbackEntry, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.FeedbackEntry{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(params.Limit)

	if params.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var rows []models.FeedbackEntry
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
