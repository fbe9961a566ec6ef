package dto

import (
	"github.com/luksuri-reka/advanta-cc-sub001/internal/registercode"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductionRequest struct {
	CompanyID             *string         `json:"company_id"               validate:"omitempty,uuid"`
	ProvinceID            *uint           `json:"province_id"`
	LotNumber             string          `json:"lot_number"               validate:"required,min=1,max=50"`
	Variety               string          `json:"variety"                  validate:"required,max=120"`
	SeedClass             string          `json:"seed_class"               validate:"omitempty,max=30"`
	Code1                 string          `json:"code_1"                   validate:"required,len=1"`
	Code2                 string          `json:"code_2"                   validate:"required,len=1"`
	Code3                 string          `json:"code_3"                   validate:"required,len=1"`
	Code4                 string          `json:"code_4"                   validate:"required,len=1"`
	LotTotal              int             `json:"lot_total"                validate:"required,min=1"`
	LabResultSerialNumber string          `json:"lab_result_serial_number" validate:"required,numeric,max=18"`
	CertificateNumber     *string         `json:"certificate_number"`
	LabSampleNumber       *string         `json:"lab_sample_number"`
	ProductionDate        *string         `json:"production_date"          validate:"omitempty,datetime=2006-01-02"`
	TestDate              *string         `json:"test_date"                validate:"omitempty,datetime=2006-01-02"`
	ExpiryDate            *string         `json:"expiry_date"              validate:"omitempty,datetime=2006-01-02"`
	PurityPct             decimal.Decimal `json:"purity_pct"               validate:"min=0,max=100"`
	GerminationPct        decimal.Decimal `json:"germination_pct"          validate:"min=0,max=100"`
	MoisturePct           decimal.Decimal `json:"moisture_pct"             validate:"min=0,max=100"`
	NetWeightKg           decimal.Decimal `json:"net_weight_kg"            validate:"min=0"`
}

// UpdateProductionRequest leaves nil fields untouched. Code, quantity and serial
// fields are rejected once the registers exist.
type UpdateProductionRequest struct {
	ProvinceID            *uint            `json:"province_id"`
	Variety               *string          `json:"variety"                  validate:"omitempty,max=120"`
	SeedClass             *string          `json:"seed_class"               validate:"omitempty,max=30"`
	Code1                 *string          `json:"code_1"                   validate:"omitempty,len=1"`
	Code2                 *string          `json:"code_2"                   validate:"omitempty,len=1"`
	Code3                 *string          `json:"code_3"                   validate:"omitempty,len=1"`
	Code4                 *string          `json:"code_4"                   validate:"omitempty,len=1"`
	LotTotal              *int             `json:"lot_total"                validate:"omitempty,min=1"`
	LabResultSerialNumber *string          `json:"lab_result_serial_number" validate:"omitempty,numeric,max=18"`
	CertificateNumber     *string          `json:"certificate_number"`
	LabSampleNumber       *string          `json:"lab_sample_number"`
	ProductionDate        *string          `json:"production_date"          validate:"omitempty,datetime=2006-01-02"`
	TestDate              *string          `json:"test_date"                validate:"omitempty,datetime=2006-01-02"`
	ExpiryDate            *string          `json:"expiry_date"              validate:"omitempty,datetime=2006-01-02"`
	PurityPct             *decimal.Decimal `json:"purity_pct"`
	GerminationPct        *decimal.Decimal `json:"germination_pct"`
	MoisturePct           *decimal.Decimal `json:"moisture_pct"`
	NetWeightKg           *decimal.Decimal `json:"net_weight_kg"`
}

// TouchesRegisterFields reports whether the update would change what the
// generated registers were computed from.
func (r UpdateProductionRequest) TouchesRegisterFields() bool {
	return r.Code1 != nil || r.Code2 != nil || r.Code3 != nil || r.Code4 != nil ||
		r.LotTotal != nil || r.LabResultSerialNumber != nil
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductionFilter struct {
	LotNumber string `form:"lot_number"`
	Variety   string `form:"variety"`
	SeedClass string `form:"seed_class"`
	CompanyID string `form:"company_id" validate:"omitempty,uuid"`
	Generated string `form:"generated"  validate:"omitempty,oneof=true false"`
	DateFrom  string `form:"date_from"  validate:"omitempty,datetime=2006-01-02"`
	DateTo    string `form:"date_to"    validate:"omitempty,datetime=2006-01-02"`
	Sort      string `form:"sort"       validate:"omitempty,oneof=created_at lot_number variety production_date"`
	Order     string `form:"order"      validate:"omitempty,oneof=asc desc"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=20" validate:"min=1,max=100"`

	// ScopeCompanyID is set from the caller's claims, never from the query string.
	ScopeCompanyID string `form:"-"`
}

type RegisterFilter struct {
	Page  int `form:"page,default=1"   validate:"min=1"`
	Limit int `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductionResponse struct {
	ID                    string             `json:"id"`
	CompanyID             *string            `json:"company_id"`
	CompanyName           string             `json:"company_name,omitempty"`
	ProvinceID            *uint              `json:"province_id"`
	LotNumber             string             `json:"lot_number"`
	Variety               string             `json:"variety"`
	SeedClass             string             `json:"seed_class"`
	Code1                 string             `json:"code_1"`
	Code2                 string             `json:"code_2"`
	Code3                 string             `json:"code_3"`
	Code4                 string             `json:"code_4"`
	LotTotal              int                `json:"lot_total"`
	LabResultSerialNumber string             `json:"lab_result_serial_number"`
	CertificateNumber     *string            `json:"certificate_number"`
	LabSampleNumber       *string            `json:"lab_sample_number"`
	ProductionDate        *string            `json:"production_date"`
	TestDate              *string            `json:"test_date"`
	ExpiryDate            *string            `json:"expiry_date"`
	PurityPct             decimal.Decimal    `json:"purity_pct"`
	GerminationPct        decimal.Decimal    `json:"germination_pct"`
	MoisturePct           decimal.Decimal    `json:"moisture_pct"`
	NetWeightKg           decimal.Decimal    `json:"net_weight_kg"`
	QRToken               *string            `json:"qr_token"`
	ImportQRAt            *string            `json:"import_qr_at"`
	Generated             bool               `json:"generated"`
	Range                 registercode.Range `json:"register_range"`
}

type ProductionListResponse struct {
	Data       []ProductionResponse `json:"data"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
}

type RegisterRangeResponse struct {
	ProductionID string `json:"production_id"`
	LotNumber    string `json:"lot_number"`
	registercode.Range
	Generated bool `json:"generated"`
}

type RegisterResponse struct {
	ID           uint64 `json:"id"`
	Code         string `json:"code"`
	SerialNumber int64  `json:"serial_number"`
	QRToken      string `json:"qr_token"`
}

type RegisterListResponse struct {
	Data       []RegisterResponse `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}
