package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"
)

const (
	VerifyStatusValid   = "valid"
	VerifyStatusExpired = "expired"
)

type VerificationService interface {
	Verify(ctx context.Context, serial, code string) (*dto.VerifyResponse, error)
}

type verificationService struct {
	registers   repository.RegisterRepository
	productions repository.ProductionRepository
	cache       VerifyCache // nil disables caching
	baseURL     string
	now         func() time.Time
}

func NewVerificationService(
	registers repository.RegisterRepository,
	productions repository.ProductionRepository,
	cache VerifyCache,
	baseURL string,
) VerificationService {
	return &verificationService{registers: registers, productions: productions, cache: cache, baseURL: baseURL, now: time.Now}
}

func (s *verificationService) Verify(ctx context.Context, serialStr, code string) (*dto.VerifyResponse, error) {
	serial, err := strconv.ParseInt(strings.TrimSpace(serialStr), 10, 64)
	if err != nil || serial <= 0 {
		return nil, fmt.Errorf("%w: serial number must be a positive integer", ErrValidation)
	}
	code = strings.TrimSpace(code)

	// 1. Try the cache
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, serial, code); ok {
			var resp dto.VerifyResponse
			if json.Unmarshal(cached, &resp) == nil {
				// expiry is time dependent, recompute it
				resp.Status = s.statusFor(resp.ExpiryDate)
				infra.VerificationLookups.WithLabelValues("cache_hit").Inc()
				return &resp, nil
			}
		}
	}

	// 2. Cache miss, query DB
	rows, err := s.registers.FindBySerial(ctx, serial, code)
	if err != nil {
		return nil, err
	}
	switch {
	case len(rows) == 0:
		infra.VerificationLookups.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("serial %d: %w", serial, ErrNotFound)
	case len(rows) > 1:
		infra.VerificationLookups.WithLabelValues("ambiguous").Inc()
		return nil, ErrAmbiguousSerial
	}
	reg := rows[0]

	p, err := s.productions.FindByID(ctx, reg.ProductionID)
	if err != nil {
		return nil, fmt.Errorf("production: %w", fromRepo(err))
	}

	resp := dto.VerifyResponse{
		Code:              reg.Code,
		SerialNumber:      reg.SerialNumber,
		LotNumber:         p.LotNumber,
		Variety:           p.Variety,
		SeedClass:         p.SeedClass,
		CertificateNumber: p.CertificateNumber,
		TestDate:          formatDate(p.TestDate),
		ExpiryDate:        formatDate(p.ExpiryDate),
		PurityPct:         p.PurityPct,
		GerminationPct:    p.GerminationPct,
		MoisturePct:       p.MoisturePct,
		NetWeightKg:       p.NetWeightKg,
		VerificationURL:   s.verificationURL(reg.QRToken, reg.SerialNumber),
	}
	if p.Company != nil {
		resp.CompanyName = p.Company.Name
	}
	resp.Status = s.statusFor(resp.ExpiryDate)
	infra.VerificationLookups.WithLabelValues("found").Inc()

	// 3. Populate cache, best effort
	if s.cache != nil {
		if b, err := json.Marshal(resp); err == nil {
			s.cache.Set(context.Background(), serial, code, b)
		}
	}
	return &resp, nil
}

// statusFor treats the expiry date as inclusive.
func (s *verificationService) statusFor(expiry *string) string {
	if expiry == nil {
		return VerifyStatusValid
	}
	t, err := time.Parse(dateLayout, *expiry)
	if err != nil {
		return VerifyStatusValid
	}
	if s.now().After(t.Add(24 * time.Hour)) {
		return VerifyStatusExpired
	}
	return VerifyStatusValid
}

func (s *verificationService) verificationURL(token string, serial int64) string {
	if s.baseURL == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(s.baseURL, "?") {
		sep = "&"
	}
	return s.baseURL + sep + "token=" + url.QueryEscape(token) + "&serial=" + strconv.FormatInt(serial, 10)
}
