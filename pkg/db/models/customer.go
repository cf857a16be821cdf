package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a contractor's client record.
type Customer struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ContractorID uuid.UUID `gorm:"column:contractor_id;type:uuid;not null;index"`
	Name         string    `gorm:"column:name;not null"`
	Email        *string   `gorm:"column:email"`
	Phone        *string   `gorm:"column:phone"`
	Address      *string   `gorm:"column:address"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
