package inventory

import (
	"context"
	"errors"

	"github.com/amontesdeoca/equiptrack-backend/pkg/db/models"
	pkgerrors "github.com/amontesdeoca/equiptrack-backend/pkg/errors"
	"github.com/amontesdeoca/equiptrack-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the inventory item catalog. Quantity counters are never
// mutated here outside a row lock; Assign/Approve/Return live in their own
// packages and go through the same repository.
type Service interface {
	Create(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error)
	Get(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UpdateDetails(ctx context.Context, itemID uuid.UUID, input UpdateItemInput) (*models.InventoryItem, error)
	Restock(ctx context.Context, itemID uuid.UUID, quantity int) (*models.InventoryItem, error)
	Delete(ctx context.Context, itemID uuid.UUID) error
}

// CreateItemInput captures a new catalog entry.
type CreateItemInput struct {
	Name              string
	Category          string
	SerialPrefix      *string
	QuantityTotal     int
	QuantityAvailable int
}

// UpdateItemInput carries the mutable descriptive fields. Quantities are
// excluded on purpose: they only change through locked adjustment operations.
type UpdateItemInput struct {
	Name         *string
	Category     *string
	SerialPrefix *string
}

// ListParams configures catalog pagination.
type ListParams struct {
	Category string
	Limit    int
	Cursor   string
}

// ListResult wraps returned items and the cursor for the next page.
type ListResult struct {
	Items  []models.InventoryItem `json:"items"`
	Cursor string                 `json:"cursor"`
}

type service struct {
	tx   txRunner
	repo Repository
}

// NewService wires inventory catalog dependencies.
func NewService(tx txRunner, repo Repository) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if input.Category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item category required")
	}
	if input.QuantityTotal < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity_total must not be negative")
	}
	if input.QuantityAvailable < 0 || input.QuantityAvailable > input.QuantityTotal {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity_available must be between 0 and quantity_total")
	}

	item := &models.InventoryItem{
		ID:                uuid.New(),
		Name:              input.Name,
		Category:          input.Category,
		SerialPrefix:      input.SerialPrefix,
		QuantityTotal:     input.QuantityTotal,
		QuantityAvailable: input.QuantityAvailable,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory item")
	}
	return item, nil
}

func (s *service) Get(ctx context.Context, itemID uuid.UUID) (*models.InventoryItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	item, err := s.repo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return item, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listItemsParams{
		Category: params.Category,
		Limit:    pagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) UpdateDetails(ctx context.Context, itemID uuid.UUID, input UpdateItemInput) (*models.InventoryItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	fields := map[string]any{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name must not be empty")
		}
		fields["name"] = *input.Name
	}
	if input.Category != nil {
		if *input.Category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item category must not be empty")
		}
		fields["category"] = *input.Category
	}
	if input.SerialPrefix != nil {
		fields["serial_prefix"] = *input.SerialPrefix
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	rows, err := s.repo.UpdateDetails(ctx, itemID, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory item")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	return s.Get(ctx, itemID)
}

// Restock raises both counters by quantity under the item's row lock so that
// concurrent adjustment operations never observe a half-applied restock.
func (s *service) Restock(ctx context.Context, itemID uuid.UUID, quantity int) (*models.InventoryItem, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be positive")
	}

	var updated *models.InventoryItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindByIDForUpdate(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory item")
		}

		if err := repo.AdjustQuantities(ctx, itemID, quantity, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock inventory item")
		}

		item.QuantityTotal += quantity
		item.QuantityAvailable += quantity
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an item together with every assignment and request that
// references it. The whole cascade is one unit of work: an abort anywhere
// leaves all rows in place.
func (s *service) Delete(ctx context.Context, itemID uuid.UUID) error {
	if itemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByIDForUpdate(ctx, itemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory item")
		}

		if _, err := repo.DeleteAssignmentsByItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item assignments")
		}
		if _, err := repo.DeleteRequestsByItem(ctx, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item requests")
		}

		rows, err := repo.Delete(ctx, itemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inventory item")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil
	})
}
