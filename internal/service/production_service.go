package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/registercode"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type ProductionService interface {
	Create(ctx context.Context, scope Scope, req dto.CreateProductionRequest) (*dto.ProductionResponse, error)
	Get(ctx context.Context, scope Scope, id uuid.UUID) (*dto.ProductionResponse, error)
	List(ctx context.Context, scope Scope, filter dto.ProductionFilter) (*dto.ProductionListResponse, error)
	Update(ctx context.Context, scope Scope, id uuid.UUID, req dto.UpdateProductionRequest) (*dto.ProductionResponse, error)
	Delete(ctx context.Context, scope Scope, id uuid.UUID) error
	RegisterRange(ctx context.Context, scope Scope, id uuid.UUID) (*dto.RegisterRangeResponse, error)
	Registers(ctx context.Context, scope Scope, id uuid.UUID, filter dto.RegisterFilter) (*dto.RegisterListResponse, error)
}

type productionService struct {
	repo      repository.ProductionRepository
	registers repository.RegisterRepository
	verify    VerifyCache
}

func NewProductionService(repo repository.ProductionRepository, registers repository.RegisterRepository, verify VerifyCache) ProductionService {
	return &productionService{repo: repo, registers: registers, verify: verify}
}

func (s *productionService) Create(ctx context.Context, scope Scope, req dto.CreateProductionRequest) (*dto.ProductionResponse, error) {
	companyID, err := parseOptionalUUID(req.CompanyID)
	if err != nil {
		return nil, err
	}
	// scoped users can only create lots for their own company
	if scope.CompanyID != nil {
		if companyID != nil && *companyID != *scope.CompanyID {
			return nil, ErrForbiddenScope
		}
		companyID = scope.CompanyID
	}

	p := &model.Production{
		CompanyID:             companyID,
		ProvinceID:            req.ProvinceID,
		LotNumber:             req.LotNumber,
		Variety:               req.Variety,
		SeedClass:             req.SeedClass,
		Code1:                 req.Code1,
		Code2:                 req.Code2,
		Code3:                 req.Code3,
		Code4:                 req.Code4,
		LotTotal:              req.LotTotal,
		LabResultSerialNumber: req.LabResultSerialNumber,
		CertificateNumber:     req.CertificateNumber,
		LabSampleNumber:       req.LabSampleNumber,
		PurityPct:             req.PurityPct,
		GerminationPct:        req.GerminationPct,
		MoisturePct:           req.MoisturePct,
		NetWeightKg:           req.NetWeightKg,
	}
	if scope.UserID != uuid.Nil {
		uid := scope.UserID
		p.CreatedBy = &uid
	}
	if p.ProductionDate, err = parseDate(req.ProductionDate); err != nil {
		return nil, err
	}
	if p.TestDate, err = parseDate(req.TestDate); err != nil {
		return nil, err
	}
	if p.ExpiryDate, err = parseDate(req.ExpiryDate); err != nil {
		return nil, err
	}
	if err := validateRegisterFields(p); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("lot %s: %w", req.LotNumber, fromRepo(err))
	}
	resp := productionToResponse(p)
	return &resp, nil
}

func (s *productionService) Get(ctx context.Context, scope Scope, id uuid.UUID) (*dto.ProductionResponse, error) {
	p, err := s.load(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	resp := productionToResponse(p)
	return &resp, nil
}

func (s *productionService) List(ctx context.Context, scope Scope, filter dto.ProductionFilter) (*dto.ProductionListResponse, error) {
	filter.ScopeCompanyID = scope.CompanyFilter()
	productions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductionResponse, len(productions))
	for i := range productions {
		data[i] = productionToResponse(&productions[i])
	}
	return &dto.ProductionListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	}, nil
}

func (s *productionService) Update(ctx context.Context, scope Scope, id uuid.UUID, req dto.UpdateProductionRequest) (*dto.ProductionResponse, error) {
	p, err := s.load(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if p.Generated() && req.TouchesRegisterFields() {
		return nil, fmt.Errorf("%w: codes, quantity and starting serial are locked", ErrAlreadyGenerated)
	}

	if req.ProvinceID != nil {
		p.ProvinceID = req.ProvinceID
	}
	setString(&p.Variety, req.Variety)
	setString(&p.SeedClass, req.SeedClass)
	setString(&p.Code1, req.Code1)
	setString(&p.Code2, req.Code2)
	setString(&p.Code3, req.Code3)
	setString(&p.Code4, req.Code4)
	setString(&p.LabResultSerialNumber, req.LabResultSerialNumber)
	if req.LotTotal != nil {
		p.LotTotal = *req.LotTotal
	}
	if req.CertificateNumber != nil {
		p.CertificateNumber = req.CertificateNumber
	}
	if req.LabSampleNumber != nil {
		p.LabSampleNumber = req.LabSampleNumber
	}
	if req.ProductionDate != nil {
		if p.ProductionDate, err = parseDate(req.ProductionDate); err != nil {
			return nil, err
		}
	}
	if req.TestDate != nil {
		if p.TestDate, err = parseDate(req.TestDate); err != nil {
			return nil, err
		}
	}
	if req.ExpiryDate != nil {
		if p.ExpiryDate, err = parseDate(req.ExpiryDate); err != nil {
			return nil, err
		}
	}
	if req.PurityPct != nil {
		p.PurityPct = *req.PurityPct
	}
	if req.GerminationPct != nil {
		p.GerminationPct = *req.GerminationPct
	}
	if req.MoisturePct != nil {
		p.MoisturePct = *req.MoisturePct
	}
	if req.NetWeightKg != nil {
		p.NetWeightKg = *req.NetWeightKg
	}
	if req.TouchesRegisterFields() {
		if err := validateRegisterFields(p); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fromRepo(err)
	}
	// registers of a generated lot are public, their cached lookups carry lot data
	if p.Generated() && s.verify != nil {
		s.verify.Invalidate(ctx)
	}
	resp := productionToResponse(p)
	return &resp, nil
}

func (s *productionService) Delete(ctx context.Context, scope Scope, id uuid.UUID) error {
	p, err := s.load(ctx, scope, id)
	if err != nil {
		return err
	}
	if p.Generated() {
		return fmt.Errorf("%w: a lot with registers cannot be deleted", ErrAlreadyGenerated)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// generated between the load and the delete
			return ErrAlreadyGenerated
		}
		return err
	}
	return nil
}

func (s *productionService) RegisterRange(ctx context.Context, scope Scope, id uuid.UUID) (*dto.RegisterRangeResponse, error) {
	p, err := s.load(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	return &dto.RegisterRangeResponse{
		ProductionID: p.ID.String(),
		LotNumber:    p.LotNumber,
		Range:        rangeOf(p),
		Generated:    p.Generated(),
	}, nil
}

func (s *productionService) Registers(ctx context.Context, scope Scope, id uuid.UUID, filter dto.RegisterFilter) (*dto.RegisterListResponse, error) {
	if _, err := s.load(ctx, scope, id); err != nil {
		return nil, err
	}
	rows, total, err := s.registers.ListByProduction(ctx, id, filter.Page, filter.Limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.RegisterResponse, len(rows))
	for i, r := range rows {
		data[i] = dto.RegisterResponse{ID: r.ID, Code: r.Code, SerialNumber: r.SerialNumber, QRToken: r.QRToken}
	}
	return &dto.RegisterListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	}, nil
}

// load fetches a production and applies the caller's tenant scope.
// Out-of-scope records are reported as missing.
func (s *productionService) load(ctx context.Context, scope Scope, id uuid.UUID) (*model.Production, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("production: %w", fromRepo(err))
	}
	if !scope.Allows(p.CompanyID) {
		return nil, fmt.Errorf("production: %w", ErrNotFound)
	}
	return p, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func codesOf(p *model.Production) registercode.Codes {
	return registercode.Codes{Code1: p.Code1, Code2: p.Code2, Code3: p.Code3, Code4: p.Code4}
}

func rangeOf(p *model.Production) registercode.Range {
	return registercode.Compute(codesOf(p), p.LotTotal, registercode.ParseSerial(p.LabResultSerialNumber))
}

func validateRegisterFields(p *model.Production) error {
	err := registercode.Validate(codesOf(p), p.LotTotal, registercode.ParseSerial(p.LabResultSerialNumber))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

func productionToResponse(p *model.Production) dto.ProductionResponse {
	resp := dto.ProductionResponse{
		ID:                    p.ID.String(),
		ProvinceID:            p.ProvinceID,
		LotNumber:             p.LotNumber,
		Variety:               p.Variety,
		SeedClass:             p.SeedClass,
		Code1:                 p.Code1,
		Code2:                 p.Code2,
		Code3:                 p.Code3,
		Code4:                 p.Code4,
		LotTotal:              p.LotTotal,
		LabResultSerialNumber: p.LabResultSerialNumber,
		CertificateNumber:     p.CertificateNumber,
		LabSampleNumber:       p.LabSampleNumber,
		ProductionDate:        formatDate(p.ProductionDate),
		TestDate:              formatDate(p.TestDate),
		ExpiryDate:            formatDate(p.ExpiryDate),
		PurityPct:             p.PurityPct,
		GerminationPct:        p.GerminationPct,
		MoisturePct:           p.MoisturePct,
		NetWeightKg:           p.NetWeightKg,
		QRToken:               p.QRToken,
		Generated:             p.Generated(),
		Range:                 rangeOf(p),
	}
	if p.CompanyID != nil {
		id := p.CompanyID.String()
		resp.CompanyID = &id
	}
	if p.Company != nil {
		resp.CompanyName = p.Company.Name
	}
	if p.ImportQRAt != nil {
		at := p.ImportQRAt.Format(time.RFC3339)
		resp.ImportQRAt = &at
	}
	return resp
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", ErrValidation, *s)
	}
	return &t, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
