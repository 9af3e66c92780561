package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem is the root of contention for every quantity change: all
// adjustment operations acquire its row lock before touching dependent rows.
// QuantityAvailable is never written outside an adjustment operation and
// satisfies 0 <= QuantityAvailable <= QuantityTotal for every committed state.
type InventoryItem struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name              string    `gorm:"column:name;not null"`
	Category          string    `gorm:"column:category;not null"`
	SerialPrefix      *string   `gorm:"column:serial_prefix"`
	QuantityTotal     int       `gorm:"column:quantity_total;not null;default:0"`
	QuantityAvailable int       `gorm:"column:quantity_available;not null;default:0"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
