package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"

	"github.com/google/uuid"
)

type ReferenceService interface {
	ListCompanies(ctx context.Context, scope Scope) ([]dto.CompanyResponse, error)
	CreateCompany(ctx context.Context, req dto.CreateCompanyRequest) (*dto.CompanyResponse, error)
	UpdateCompany(ctx context.Context, id uuid.UUID, req dto.UpdateCompanyRequest) (*dto.CompanyResponse, error)
	ListProvinces(ctx context.Context) ([]dto.ProvinceResponse, error)
	SeedProvinces(ctx context.Context) error
}

type referenceService struct {
	companies repository.CompanyRepository
	provinces repository.ProvinceRepository
}

func NewReferenceService(companies repository.CompanyRepository, provinces repository.ProvinceRepository) ReferenceService {
	return &referenceService{companies: companies, provinces: provinces}
}

func (s *referenceService) ListCompanies(ctx context.Context, scope Scope) ([]dto.CompanyResponse, error) {
	companies, err := s.companies.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CompanyResponse, 0, len(companies))
	for i := range companies {
		if scope.Allows(&companies[i].ID) {
			out = append(out, companyToResponse(&companies[i]))
		}
	}
	return out, nil
}

func (s *referenceService) CreateCompany(ctx context.Context, req dto.CreateCompanyRequest) (*dto.CompanyResponse, error) {
	c := &model.Company{
		Name:    strings.TrimSpace(req.Name),
		Code:    strings.ToUpper(strings.TrimSpace(req.Code)),
		Address: req.Address,
		Active:  true,
	}
	if err := s.companies.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("company %s: %w", c.Code, fromRepo(err))
	}
	resp := companyToResponse(c)
	return &resp, nil
}

func (s *referenceService) UpdateCompany(ctx context.Context, id uuid.UUID, req dto.UpdateCompanyRequest) (*dto.CompanyResponse, error) {
	c, err := s.companies.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("company: %w", fromRepo(err))
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		c.Address = req.Address
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	if err := s.companies.Update(ctx, c); err != nil {
		return nil, fromRepo(err)
	}
	resp := companyToResponse(c)
	return &resp, nil
}

func (s *referenceService) ListProvinces(ctx context.Context) ([]dto.ProvinceResponse, error) {
	provinces, err := s.provinces.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProvinceResponse, len(provinces))
	for i, p := range provinces {
		out[i] = dto.ProvinceResponse{ID: p.ID, Code: p.Code, Name: p.Name}
	}
	return out, nil
}

func (s *referenceService) SeedProvinces(ctx context.Context) error {
	return s.provinces.Seed(ctx, DefaultProvinces())
}

func companyToResponse(c *model.Company) dto.CompanyResponse {
	return dto.CompanyResponse{ID: c.ID.String(), Name: c.Name, Code: c.Code, Address: c.Address, Active: c.Active}
}

// DefaultProvinces returns the provinces of Indonesia keyed by their BPS code.
func DefaultProvinces() []model.Province {
	return []model.Province{
		{Code: "11", Name: "Aceh"},
		{Code: "12", Name: "Sumatera Utara"},
		{Code: "13", Name: "Sumatera Barat"},
		{Code: "14", Name: "Riau"},
		{Code: "15", Name: "Jambi"},
		{Code: "16", Name: "Sumatera Selatan"},
		{Code: "17", Name: "Bengkulu"},
		{Code: "18", Name: "Lampung"},
		{Code: "19", Name: "Kepulauan Bangka Belitung"},
		{Code: "21", Name: "Kepulauan Riau"},
		{Code: "31", Name: "DKI Jakarta"},
		{Code: "32", Name: "Jawa Barat"},
		{Code: "33", Name: "Jawa Tengah"},
		{Code: "34", Name: "DI Yogyakarta"},
		{Code: "35", Name: "Jawa Timur"},
		{Code: "36", Name: "Banten"},
		{Code: "51", Name: "Bali"},
		{Code: "52", Name: "Nusa Tenggara Barat"},
		{Code: "53", Name: "Nusa Tenggara Timur"},
		{Code: "61", Name: "Kalimantan Barat"},
		{Code: "62", Name: "Kalimantan Tengah"},
		{Code: "63", Name: "Kalimantan Selatan"},
		{Code: "64", Name: "Kalimantan Timur"},
		{Code: "65", Name: "Kalimantan Utara"},
		{Code: "71", Name: "Sulawesi Utara"},
		{Code: "72", Name: "Sulawesi Tengah"},
		{Code: "73", Name: "Sulawesi Selatan"},
		{Code: "74", Name: "Sulawesi Tenggara"},
		{Code: "75", Name: "Gorontalo"},
		{Code: "76", Name: "Sulawesi Barat"},
		{Code: "81", Name: "Maluku"},
		{Code: "82", Name: "Maluku Utara"},
		{Code: "91", Name: "Papua Barat"},
		{Code: "92", Name: "Papua Barat Daya"},
		{Code: "94", Name: "Papua"},
		{Code: "95", Name: "Papua Selatan"},
		{Code: "96", Name: "Papua Tengah"},
		{Code: "97", Name: "Papua Pegunungan"},
	}
}
