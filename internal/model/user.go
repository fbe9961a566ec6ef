package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an operator of the admin backend.
// CompanyID nil means the user can see every tenant.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email        string     `gorm:"uniqueIndex;not null"`
	Name         string     `gorm:"not null"`
	PasswordHash string     `gorm:"not null"`
	Role         string     `gorm:"type:varchar(50);not null"`
	Department   *string    `gorm:"type:varchar(50)"`
	CompanyID    *uuid.UUID `gorm:"type:uuid;index"`
	Active       bool       `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
