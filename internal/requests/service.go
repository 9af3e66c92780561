package requests

import (
	"context"
	"errors"
	"time"

	"github.com/amontesdeoca/equiptrack-backend/internal/assignments"
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

// Service manages the request lifecycle. Approve is the critical path: it
// mutates the request, the inventory counter and a fresh assignment as one
// unit under the item's row lock.
type Service interface {
	Create(ctx context.Context, input CreateRequestInput) (*models.ItemRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID) (*ApprovalResult, error)
	Reject(ctx context.Context, requestID uuid.UUID) (*models.ItemRequest, error)
	Get(ctx context.Context, requestID uuid.UUID) (*models.ItemRequest, error)
	List(ctx context.Context, status enums.RequestStatus) ([]models.ItemRequest, error)
}

// CreateRequestInput captures a new pending request.
type CreateRequestInput struct {
	ItemID  uuid.UUID
	StaffID uuid.UUID
	Note    *string
}

// ApprovalResult pairs the approved request with the assignment it produced.
type ApprovalResult struct {
	Request    *models.ItemRequest    `json:"request"`
	Assignment *models.ItemAssignment `json:"assignment"`
}

type service struct {
	tx              txRunner
	repo            Repository
	items           inventory.Repository
	assignmentsRepo assignments.Repository
	staff           staff.Repository
}

// NewService wires request dependencies.
func NewService(tx txRunner, repo Repository, items inventory.Repository, assignmentsRepo assignments.Repository, staffRepo staff.Repository) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "requests repository required")
	}
	if items == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	if assignmentsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "assignments repository required")
	}
	if staffRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "staff repository required")
	}
	return &service{
		tx:              tx,
		repo:            repo,
		items:           items,
		assignmentsRepo: assignmentsRepo,
		staff:           staffRepo,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateRequestInput) (*models.ItemRequest, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.StaffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}

	if _, err := s.items.FindByID(ctx, input.ItemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	if _, err := s.staff.FindByID(ctx, input.StaffID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staff member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff member")
	}

	request := &models.ItemRequest{
		ID:      uuid.New(),
		ItemID:  input.ItemID,
		StaffID: input.StaffID,
		Note:    input.Note,
		Status:  enums.RequestStatusPending,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request")
	}
	return request, nil
}

// Approve consumes a pending request: it creates an assignment for the
// requesting staff member, deducts one unit and flips the request status.
// The three writes commit or roll back together; an approved request with no
// assignment (or the reverse) is never observable.
func (s *service) Approve(ctx context.Context, requestID uuid.UUID) (*ApprovalResult, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	var result *ApprovalResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items := s.items.WithTx(tx)
		assignmentsRepo := s.assignmentsRepo.WithTx(tx)

		request, err := repo.FindByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}

		item, err := items.FindByIDForUpdate(ctx, request.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeIntegrity, "request references a missing item")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory item")
		}

		// Request decisions happen under the item lock; re-read now that we
		// hold it.
		request, err = repo.FindByID(ctx, requestID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload request")
		}
		if request.Status != enums.RequestStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request already decided").
				WithDetails(map[string]any{"status": request.Status})
		}

		if item.QuantityAvailable <= 0 {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, "no available units for item").
				WithDetails(map[string]any{"item_id": item.ID})
		}

		now := time.Now().UTC()
		assignment := &models.ItemAssignment{
			ID:             uuid.New(),
			ItemID:         request.ItemID,
			StaffID:        request.StaffID,
			Status:         enums.AssignmentStatusAssigned,
			AllocationDate: now,
		}
		if err := assignmentsRepo.Create(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}
		if err := items.AdjustAvailable(ctx, request.ItemID, -1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement availability")
		}
		rows, err := repo.UpdateStatus(ctx, requestID, enums.RequestStatusPending, enums.RequestStatusApproved, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request already decided")
		}

		request.Status = enums.RequestStatusApproved
		request.DecidedAt = &now
		result = &ApprovalResult{Request: request, Assignment: assignment}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reject declines a pending request. No inventory change, but the decision
// still happens under the item lock so request rows keep a single writer.
func (s *service) Reject(ctx context.Context, requestID uuid.UUID) (*models.ItemRequest, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}

	var updated *models.ItemRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items := s.items.WithTx(tx)

		request, err := repo.FindByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
		}

		if _, err := items.FindByIDForUpdate(ctx, request.ItemID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeIntegrity, "request references a missing item")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory item")
		}

		now := time.Now().UTC()
		rows, err := repo.UpdateStatus(ctx, requestID, enums.RequestStatusPending, enums.RequestStatusRejected, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject request")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "request already decided")
		}

		request.Status = enums.RequestStatusRejected
		request.DecidedAt = &now
		updated = request
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, requestID uuid.UUID) (*models.ItemRequest, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load request")
	}
	return request, nil
}

func (s *service) List(ctx context.Context, status enums.RequestStatus) ([]models.ItemRequest, error) {
	if status != "" && !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request status")
	}
	rows, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list requests")
	}
	return rows, nil
}
