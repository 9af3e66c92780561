package feedback

import (
	"context"
	"errors"

	"github.com/amontesdeoca/equiptrack-backend/internal/staff"
	"github.com/amontesdeoca/equiptrack-backend/pkg/db/models"
	pkgerrors "github.com/amontesdeoca/equiptrack-backend/pkg/errors"
	"github.com/amontesdeoca/equiptrack-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages staff feedback.
type Service interface {
	Create(ctx context.Context, input CreateFeedbackInput) (*models.FeedbackEntry, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
}

// CreateFeedbackInput captures a new feedback entry.
type CreateFeedbackInput struct {
	StaffID uuid.UUID
	Subject string
	Message string
}

// ListParams configures feedback pagination.
type ListParams struct {
	Limit  int
	Cursor string
}

// ListResult wraps returned entries and the cursor for the next page.
type ListResult struct {
	Items  []models.FeedbackEntry `json:"items"`
	Cursor string                 `json:"cursor"`
}

type service struct {
	repo  Repository
	staff staff.Repository
}

// NewService wires feedback dependencies.
func NewService(repo Repository, staffRepo staff.Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "feedback repository required")
	}
	if staffRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "staff repository required")
	}
	return &service{repo: repo, staff: staffRepo}, nil
}

func (s *service) Create(ctx context.Context, input CreateFeedbackInput) (*models.FeedbackEntry, error) {
	if input.StaffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if input.Subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject required")
	}
	if input.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message required")
	}

	if _, err := s.staff.FindByID(ctx, input.StaffID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staff member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff member")
	}

	entry := &models.FeedbackEntry{
		ID:      uuid.New(),
		StaffID: input.StaffID,
		Subject: input.Subject,
		Message: input.Message,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create feedback entry")
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listFeedbackParams{
		Limit: pagination.LimitWithBuffer(params.Limit),
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list feedback entries")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}
