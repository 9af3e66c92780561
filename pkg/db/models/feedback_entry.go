package models

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackEntry is a free-form note a staff member leaves for the inventory team.
type FeedbackEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	StaffID   uuid.UUID `gorm:"column:staff_id;type:uuid;not null;index"`
	Subject   string    `gorm:"column:subject;not null"`
	Message   string    `gorm:"column:message;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
