package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// GenerateRequest starts register generation for one production.
// JobID is optional: a client that supplies one can poll progress while the
// synchronous request is still running.
type GenerateRequest struct {
	ProductionID string `json:"production_id" validate:"required,uuid"`
	QRToken      string `json:"qr_token"      validate:"required,min=1,max=120"`
	JobID        string `json:"job_id"        validate:"omitempty,max=64"`
}

type BulkItem struct {
	ProductionID string `json:"production_id" validate:"required,uuid"`
	QRToken      string `json:"qr_token"      validate:"required,min=1,max=120"`
}

type BulkGenerateRequest struct {
	Items  []BulkItem `json:"items"   validate:"required,min=1,dive"`
	BulkID string     `json:"bulk_id" validate:"omitempty,max=64"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type GenerateResponse struct {
	JobID          string `json:"job_id"`
	ProductionID   string `json:"production_id"`
	Status         string `json:"status"`
	Generated      int    `json:"generated"`
	PollIntervalMs int64  `json:"poll_interval_ms"`
}

type BulkItemResult struct {
	ProductionID string `json:"production_id"`
	LotNumber    string `json:"lot_number,omitempty"`
	JobID        string `json:"job_id"`
	Success      bool   `json:"success"`
	Generated    int    `json:"generated"`
	Error        string `json:"error,omitempty"`
}

type BulkSummary struct {
	BulkID         string           `json:"bulk_id"`
	Success        int              `json:"success"`
	Failed         int              `json:"failed"`
	Total          int              `json:"total"`
	TotalGenerated int              `json:"total_generated"`
	Results        []BulkItemResult `json:"results"`
}

// TokenPreview is one parsed QR token file.
type TokenPreview struct {
	FileName         string `json:"file_name"`
	LotNumber        string `json:"lot_number"`
	QRToken          string `json:"qr_token"`
	ProductionID     string `json:"production_id,omitempty"`
	LotTotal         int    `json:"lot_total"`
	AlreadyGenerated bool   `json:"already_generated"`
	Error            string `json:"error,omitempty"`
}

type TokenPreviewResponse struct {
	Files []TokenPreview `json:"files"`
	Ready int            `json:"ready"`
}
