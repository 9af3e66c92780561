package staff

import (
	"context"
	"errors"
	"strings"

	"github.com/amontesdeoca/equiptrack-backend/pkg/db"
	"github.com/amontesdeoca/equiptrack-backend/pkg/db/models"
	pkgerrors "github.com/amontesdeoca/equiptrack-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages the staff registry.
type Service interface {
	Create(ctx context.Context, input CreateStaffInput) (*models.StaffMember, error)
	Get(ctx context.Context, staffID uuid.UUID) (*models.StaffMember, error)
	GetByEmail(ctx context.Context, email string) (*models.StaffMember, error)
	List(ctx context.Context) ([]models.StaffMember, error)
}

// CreateStaffInput captures a new staff member.
type CreateStaffInput struct {
	FullName   string
	Email      string
	Department string
}

type service struct {
	repo Repository
}

// NewService wires staff dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "staff repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateStaffInput) (*models.StaffMember, error) {
	if input.FullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}

	member := &models.StaffMember{
		ID:         uuid.New(),
		FullName:   input.FullName,
		Email:      email,
		Department: input.Department,
	}
	if err := s.repo.Create(ctx, member); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create staff member")
	}
	return member, nil
}

func (s *service) Get(ctx context.Context, staffID uuid.UUID) (*models.StaffMember, error) {
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	member, err := s.repo.FindByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staff member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff member")
	}
	return member, nil
}

func (s *service) GetByEmail(ctx context.Context, email string) (*models.StaffMember, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email required")
	}
	member, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "staff member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff member")
	}
	return member, nil
}

func (s *service) List(ctx context.Context) ([]models.StaffMember, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list staff members")
	}
	return rows, nil
}
