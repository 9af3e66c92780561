package models

import (
	"time"

	"github.com/amontesdeoca/equiptrack-backend/pkg/enums"
	"github.com/google/uuid"
)

// ItemAssignment records one unit of an inventory item held by a staff member.
// Rows are only ever mutated while the referenced item's row lock is held.
type ItemAssignment struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	ItemID         uuid.UUID              `gorm:"column:item_id;type:uuid;not null;index"`
	StaffID        uuid.UUID              `gorm:"column:staff_id;type:uuid;not null;index"`
	Status         enums.AssignmentStatus `gorm:"column:status;type:assignment_status;not null;default:'assigned'"`
	AllocationDate time.Time              `gorm:"column:allocation_date;not null"`
	ReturnedAt     *time.Time             `gorm:"column:returned_at"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
