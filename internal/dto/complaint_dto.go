package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateComplaintRequest struct {
	CustomerName  string  `json:"customer_name"  validate:"required,min=2,max=120"`
	CustomerPhone string  `json:"customer_phone" validate:"required,min=6,max=30"`
	CustomerEmail *string `json:"customer_email" validate:"omitempty,email"`
	ProvinceID    *uint   `json:"province_id"`
	City          string  `json:"city"           validate:"max=120"`
	Address       string  `json:"address"        validate:"max=255"`
	LotNumber     string  `json:"lot_number"     validate:"required,max=50"`
	SerialNumber  *int64  `json:"serial_number"  validate:"omitempty,min=1"`
	Variety       string  `json:"variety"        validate:"max=120"`
	PurchaseDate  *string `json:"purchase_date"  validate:"omitempty,datetime=2006-01-02"`
	PurchasePlace string  `json:"purchase_place" validate:"max=255"`
	Quantity      string  `json:"quantity"       validate:"max=60"`
	PlantingDate  *string `json:"planting_date"  validate:"omitempty,datetime=2006-01-02"`
	ComplaintType string  `json:"complaint_type" validate:"required,oneof=germination purity pest_disease packaging other"`
	Description   string  `json:"description"    validate:"required,min=10,max=5000"`
}

type AssignComplaintRequest struct {
	AssignedTo string  `json:"assigned_to" validate:"required,uuid"`
	Department *string `json:"department"  validate:"omitempty,max=50"`
}

type TransitionComplaintRequest struct {
	Status     string  `json:"status"     validate:"required,oneof=in_review investigating resolved rejected closed"`
	Resolution *string `json:"resolution" validate:"omitempty,max=5000"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ComplaintFilter struct {
	Status        string `form:"status"`
	ComplaintType string `form:"complaint_type"`
	CompanyID     string `form:"company_id"  validate:"omitempty,uuid"`
	AssignedTo    string `form:"assigned_to" validate:"omitempty,uuid"`
	DateFrom      string `form:"date_from"   validate:"omitempty,datetime=2006-01-02"`
	DateTo        string `form:"date_to"     validate:"omitempty,datetime=2006-01-02"`
	Search        string `form:"search"`
	Sort          string `form:"sort"        validate:"omitempty,oneof=created_at complaint_number status"`
	Order         string `form:"order"       validate:"omitempty,oneof=asc desc"`
	Page          int    `form:"page,default=1"   validate:"min=1"`
	Limit         int    `form:"limit,default=20" validate:"min=1,max=100"`

	ScopeCompanyID string `form:"-"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ComplaintResponse struct {
	ID              string                 `json:"id"`
	ComplaintNumber string                 `json:"complaint_number"`
	CompanyID       *string                `json:"company_id"`
	ProductionID    *string                `json:"production_id"`
	CustomerName    string                 `json:"customer_name"`
	CustomerPhone   string                 `json:"customer_phone"`
	CustomerEmail   *string                `json:"customer_email"`
	ProvinceID      *uint                  `json:"province_id"`
	City            string                 `json:"city"`
	Address         string                 `json:"address"`
	LotNumber       string                 `json:"lot_number"`
	SerialNumber    *int64                 `json:"serial_number"`
	Variety         string                 `json:"variety"`
	PurchaseDate    *string                `json:"purchase_date"`
	PurchasePlace   string                 `json:"purchase_place"`
	Quantity        string                 `json:"quantity"`
	PlantingDate    *string                `json:"planting_date"`
	ComplaintType   string                 `json:"complaint_type"`
	Description     string                 `json:"description"`
	Status          string                 `json:"status"`
	AssignedTo      *string                `json:"assigned_to"`
	Department      *string                `json:"department"`
	Resolution      *string                `json:"resolution"`
	Attachments     []string               `json:"attachments"`
	ResolvedAt      *time.Time             `json:"resolved_at"`
	CreatedAt       time.Time              `json:"created_at"`
	Investigation   *InvestigationResponse `json:"investigation,omitempty"`
}

type ComplaintListResponse struct {
	Data       []ComplaintResponse `json:"data"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"total_pages"`
}

// ComplaintTrackingResponse is what the public tracking page may see.
type ComplaintTrackingResponse struct {
	ComplaintNumber string     `json:"complaint_number"`
	Status          string     `json:"status"`
	ComplaintType   string     `json:"complaint_type"`
	LotNumber       string     `json:"lot_number"`
	Resolution      *string    `json:"resolution"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at"`
}

type AttachmentUploadResponse struct {
	ComplaintNumber string   `json:"complaint_number"`
	Attachments     []string `json:"attachments"`
	URLs            []string `json:"urls"`
}

// ─── Investigations ──────────────────────────────────────────────────────────

type OpenInvestigationRequest struct {
	InvestigatorID  *string `json:"investigator_id"  validate:"omitempty,uuid"`
	FieldVisitDate  *string `json:"field_visit_date" validate:"omitempty,datetime=2006-01-02"`
	LabTestRequired bool    `json:"lab_test_required"`
}

type UpdateInvestigationRequest struct {
	InvestigatorID   *string `json:"investigator_id"   validate:"omitempty,uuid"`
	FieldVisitDate   *string `json:"field_visit_date"  validate:"omitempty,datetime=2006-01-02"`
	Findings         *string `json:"findings"          validate:"omitempty,max=10000"`
	RootCause        *string `json:"root_cause"        validate:"omitempty,max=5000"`
	CorrectiveAction *string `json:"corrective_action" validate:"omitempty,max=5000"`
	LabTestRequired  *bool   `json:"lab_test_required"`
	LabResult        *string `json:"lab_result"        validate:"omitempty,max=5000"`
}

type CompleteInvestigationRequest struct {
	Conclusion string `json:"conclusion" validate:"required,oneof=valid invalid"`
	Resolution string `json:"resolution" validate:"required,min=5,max=5000"`
}

type InvestigationResponse struct {
	ID               string     `json:"id"`
	ComplaintID      string     `json:"complaint_id"`
	InvestigatorID   *string    `json:"investigator_id"`
	Status           string     `json:"status"`
	FieldVisitDate   *string    `json:"field_visit_date"`
	Findings         *string    `json:"findings"`
	RootCause        *string    `json:"root_cause"`
	CorrectiveAction *string    `json:"corrective_action"`
	LabTestRequired  bool       `json:"lab_test_required"`
	LabResult        *string    `json:"lab_result"`
	Conclusion       *string    `json:"conclusion"`
	Evidence         []string   `json:"evidence"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
}
