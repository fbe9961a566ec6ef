package model

import (
	"time"

	"github.com/google/uuid"
)

// Company is a tenant. Productions, complaints and scoped users belong to one.
type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"not null"`
	Code      string    `gorm:"type:varchar(20);uniqueIndex;not null"`
	Address   *string
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Province is seeded reference data used by productions and complaints.
type Province struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"type:varchar(10);uniqueIndex;not null"`
	Name string `gorm:"not null"`
}
