package repository

import (
	"context"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ── Companies ────────────────────────────────────────────────────────────────

type CompanyRepository interface {
	Create(ctx context.Context, c *model.Company) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Company, error)
	List(ctx context.Context) ([]model.Company, error)
	Update(ctx context.Context, c *model.Company) error
}

type companyRepo struct{ db *gorm.DB }

func NewCompanyRepository(db *gorm.DB) CompanyRepository { return &companyRepo{db: db} }

func (r *companyRepo) Create(ctx context.Context, c *model.Company) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *companyRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Company, error) {
	var c model.Company
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *companyRepo) List(ctx context.Context) ([]model.Company, error) {
	var companies []model.Company
	err := r.db.WithContext(ctx).Order("name ASC").Find(&companies).Error
	return companies, err
}

func (r *companyRepo) Update(ctx context.Context, c *model.Company) error {
	return translate(r.db.WithContext(ctx).Save(c).Error)
}

// ── Provinces ────────────────────────────────────────────────────────────────

type ProvinceRepository interface {
	List(ctx context.Context) ([]model.Province, error)
	// Seed inserts the provinces whose code is not present yet.
	Seed(ctx context.Context, provinces []model.Province) error
}

type provinceRepo struct{ db *gorm.DB }

func NewProvinceRepository(db *gorm.DB) ProvinceRepository { return &provinceRepo{db: db} }

func (r *provinceRepo) List(ctx context.Context) ([]model.Province, error) {
	var provinces []model.Province
	err := r.db.WithContext(ctx).Order("name ASC").Find(&provinces).Error
	return provinces, err
}

func (r *provinceRepo) Seed(ctx context.Context, provinces []model.Province) error {
	if len(provinces) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&provinces).Error
}
