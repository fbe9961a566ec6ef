package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Complaint status values.
const (
	ComplaintSubmitted     = "submitted"
	ComplaintInReview      = "in_review"
	ComplaintInvestigating = "investigating"
	ComplaintResolved      = "resolved"
	ComplaintRejected      = "rejected"
	ComplaintClosed        = "closed"
)

// Complaint is a customer report about a seed lot, submitted through the public form.
type Complaint struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ComplaintNumber string     `gorm:"type:varchar(30);uniqueIndex;not null"`
	CompanyID       *uuid.UUID `gorm:"type:uuid;index"`
	ProductionID    *uuid.UUID `gorm:"type:uuid;index"`

	CustomerName  string `gorm:"not null"`
	CustomerPhone string `gorm:"type:varchar(30);not null"`
	CustomerEmail *string
	ProvinceID    *uint
	City          string
	Address       string
	LotNumber     string `gorm:"type:varchar(50);index"`
	SerialNumber  *int64
	Variety       string
	PurchaseDate  *time.Time
	PurchasePlace string
	Quantity      string
	PlantingDate  *time.Time
	ComplaintType string `gorm:"type:varchar(30);not null"`
	Description   string `gorm:"type:text;not null"`

	Status      string     `gorm:"type:varchar(20);not null;default:'submitted';index"`
	AssignedTo  *uuid.UUID `gorm:"type:uuid;index"`
	Department  *string    `gorm:"type:varchar(50)"`
	Resolution  *string    `gorm:"type:text"`
	Attachments datatypes.JSON
	ResolvedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Investigation *Investigation `gorm:"foreignKey:ComplaintID"`
}

// Investigation status values.
const (
	InvestigationOpen       = "open"
	InvestigationInProgress = "in_progress"
	InvestigationCompleted  = "completed"
)

// Investigation is the internal follow-up of a single complaint.
type Investigation struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ComplaintID      uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null"`
	InvestigatorID   *uuid.UUID `gorm:"type:uuid"`
	Status           string     `gorm:"type:varchar(20);not null;default:'open'"`
	FieldVisitDate   *time.Time
	Findings         *string `gorm:"type:text"`
	RootCause        *string `gorm:"type:text"`
	CorrectiveAction *string `gorm:"type:text"`
	LabTestRequired  bool    `gorm:"not null;default:false"`
	LabResult        *string `gorm:"type:text"`
	Conclusion       *string `gorm:"type:varchar(10)"`
	Evidence         datatypes.JSON
	StartedAt        time.Time
	CompletedAt      *time.Time
	UpdatedAt        time.Time
}
