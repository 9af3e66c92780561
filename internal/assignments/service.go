package assignments

import (
	"context"
	"errors"
	"time"

	"github.com/amontesdeoca/equiptrack-backend/internal/inventory"
	"github.com/amontesdeoca/equiptrack-backend/internal/staff"
	"github.com/amontesdeoca/equiptrack-backend/pkg/db/models"
	"github.com/amontesdeoca/equiptrack-backend/pkg/enums"
	pkgerrors "github.com/amontesdeoca/equiptrack-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service executes the direct-assignment and return operations. Each call is
// one unit of work serialized on the target item's row lock; callers observe
// either the pre-operation state or the fully applied result.
type Service interface {
	Assign(ctx context.Context, itemID, staffID uuid.UUID) (*models.ItemAssignment, error)
	CompleteReturn(ctx context.Context, assignmentID uuid.UUID) (*models.ItemAssignment, error)
	Get(ctx context.Context, assignmentID uuid.UUID) (*models.ItemAssignment, error)
	ListByStaff(ctx context.Context, staffID uuid.UUID) ([]models.ItemAssignment, error)
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.ItemAssignment, error)
}

type service struct {
	tx    txRunner
	repo  Repository
	items inventory.Repository
	staff staff.Repository
}

// NewService wires assignment dependencies.
func NewService(tx txRunner, repo Repository, items inventory.Repository, staffRepo staff.Repository) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "assignments repository required")
	}
	if items == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if staffRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "staff repository required")
	}
	return &service{tx: tx, repo: repo, items: items, staff: staffRepo}, nil
}

// Assign hands one unit of the item to the staff member. The availability
// check only counts once the row lock is held; whatever a caller read before
// that is stale. Exactly one unit is deducted per successful call.
func (s *service) Assign(ctx context.Context, itemID, staffID uuid.UUID) (*models.ItemAssignment, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}

	var created *models.ItemAssignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items := s.items.WithTx(tx)
		staffRepo := s.staff.WithTx(tx)

		if _, err := staffRepo.FindByID(ctx, staffID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "staff member not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff member")
		}

		item, err := items.FindByIDForUpdate(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory item")
		}

		if item.QuantityAvailable <= 0 {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, "no available units for item").
				WithDetails(map[string]any{"item_id": itemID})
		}

		assignment := &models.ItemAssignment{
			ID:             uuid.New(),
			ItemID:         itemID,
			StaffID:        staffID,
			Status:         enums.AssignmentStatusAssigned,
			AllocationDate: time.Now().UTC(),
		}
		if err := repo.Create(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}
		if err := items.AdjustAvailable(ctx, itemID, -1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement availability")
		}

		created = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CompleteReturn flips the assignment to returned and gives the unit back to
// the item. The item row is the lock target, not the assignment: the counter
// is the contended resource. Returning an already-returned assignment is a
// state conflict, never a silent no-op.
func (s *service) CompleteReturn(ctx context.Context, assignmentID uuid.UUID) (*models.ItemAssignment, error) {
	if assignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}

	var updated *models.ItemAssignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items := s.items.WithTx(tx)

		assignment, err := repo.FindByID(ctx, assignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
		}

		item, err := items.FindByIDForUpdate(ctx, assignment.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeIntegrity, "assignment references a missing item")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory item")
		}

		// Status transitions happen under the item lock, so the re-read here
		// is the authoritative one.
		assignment, err = repo.FindByID(ctx, assignmentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload assignment")
		}
		if assignment.Status != enums.AssignmentStatusAssigned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is not active").
				WithDetails(map[string]any{"status": assignment.Status})
		}

		if item.QuantityAvailable+1 > item.QuantityTotal {
			return pkgerrors.New(pkgerrors.CodeIntegrity, "quantity_available would exceed quantity_total").
				WithDetails(map[string]any{"item_id": item.ID})
		}

		now := time.Now().UTC()
		rows, err := repo.MarkReturned(ctx, assignmentID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark assignment returned")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is not active")
		}
		if err := items.AdjustAvailable(ctx, assignment.ItemID, 1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment availability")
		}

		assignment.Status = enums.AssignmentStatusReturned
		assignment.ReturnedAt = &now
		updated = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, assignmentID uuid.UUID) (*models.ItemAssignment, error) {
	if assignmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}
	assignment, err := s.repo.FindByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	return assignment, nil
}

func (s *service) ListByStaff(ctx context.Context, staffID uuid.UUID) ([]models.ItemAssignment, error) {
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	rows, err := s.repo.ListByStaff(ctx, staffID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	return rows, nil
}

func (s *service) ListByItem(ctx context.Context, itemID uuid.UUID) ([]models.ItemAssignment, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	rows, err := s.repo.ListByItem(ctx, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	return rows, nil
}
