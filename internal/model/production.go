package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Production is a certified seed lot. Code1..Code4 prefix the register codes,
// LotTotal is the number of registers and LabResultSerialNumber the first serial.
// ImportQRAt stays nil until the registers have been generated.
type Production struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID             *uuid.UUID `gorm:"type:uuid;index"`
	ProvinceID            *uint
	LotNumber             string `gorm:"type:varchar(50);uniqueIndex;not null"`
	Variety               string `gorm:"not null"`
	SeedClass             string `gorm:"type:varchar(30)"`
	Code1                 string `gorm:"column:code_1;type:varchar(1);not null"`
	Code2                 string `gorm:"column:code_2;type:varchar(1);not null"`
	Code3                 string `gorm:"column:code_3;type:varchar(1);not null"`
	Code4                 string `gorm:"column:code_4;type:varchar(1);not null"`
	LotTotal              int    `gorm:"not null"`
	LabResultSerialNumber string `gorm:"type:varchar(30);not null"`
	CertificateNumber     *string
	LabSampleNumber       *string
	ProductionDate        *time.Time
	TestDate              *time.Time
	ExpiryDate            *time.Time
	PurityPct             decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	GerminationPct        decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	MoisturePct           decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	NetWeightKg           decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	QRToken               *string
	ImportQRAt            *time.Time
	CreatedBy             *uuid.UUID `gorm:"type:uuid"`
	CreatedAt             time.Time
	UpdatedAt             time.Time

	Company  *Company  `gorm:"foreignKey:CompanyID"`
	Province *Province `gorm:"foreignKey:ProvinceID"`
}

// Generated reports whether the registers of the lot already exist.
func (p *Production) Generated() bool { return p.ImportQRAt != nil }

// ProductionRegister is one QR/serial row of a lot.
// (production_id, serial_number) is unique so that re-inserting a chunk is a no-op.
type ProductionRegister struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	ProductionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_register_production_serial,priority:1"`
	Code         string    `gorm:"type:varchar(10);not null"`
	SerialNumber int64     `gorm:"not null;uniqueIndex:idx_register_production_serial,priority:2;index:idx_register_serial"`
	QRToken      string    `gorm:"type:varchar(120)"`
	CreatedAt    time.Time
}
