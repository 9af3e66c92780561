package models

import (
	"time"

	"github.com/google/uuid"
)

// StaffMember is a person items can be assigned to.
type StaffMember struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	FullName   string    `gorm:"column:full_name;not null"`
	Email      string    `gorm:"column:email;not null;unique"`
	Department string    `gorm:"column:department;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
