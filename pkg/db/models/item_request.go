package models

import (
	"time"

	"github.com/amontesdeoca/equiptrack-backend/pkg/enums"
	"github.com/google/uuid"
)

// ItemRequest is a staff member's pending claim on one unit of an item.
// Approval consumes the request: assignment creation, quantity decrement and
// the status flip to approved commit as one unit.
type ItemRequest struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ItemID    uuid.UUID           `gorm:"column:item_id;type:uuid;not null;index"`
	StaffID   uuid.UUID           `gorm:"column:staff_id;type:uuid;not null;index"`
	Note      *string             `gorm:"column:note"`
	Status    enums.RequestStatus `gorm:"column:status;type:request_status;not null;default:'pending'"`
	DecidedAt *time.Time          `gorm:"column:decided_at"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
