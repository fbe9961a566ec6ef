package dto

import "github.com/shopspring/decimal"

// VerifyResponse is returned by the public product verification lookup (no auth required).
type VerifyResponse struct {
	Code              string          `json:"code"`
	SerialNumber      int64           `json:"serial_number"`
	LotNumber         string          `json:"lot_number"`
	Variety           string          `json:"variety"`
	SeedClass         string          `json:"seed_class"`
	CompanyName       string          `json:"company_name"`
	CertificateNumber *string         `json:"certificate_number"`
	TestDate          *string         `json:"test_date"`
	ExpiryDate        *string         `json:"expiry_date"`
	PurityPct         decimal.Decimal `json:"purity_pct"`
	GerminationPct    decimal.Decimal `json:"germination_pct"`
	MoisturePct       decimal.Decimal `json:"moisture_pct"`
	NetWeightKg       decimal.Decimal `json:"net_weight_kg"`
	Status            string          `json:"status"` // valid | expired
	VerificationURL   string          `json:"verification_url"`
}
