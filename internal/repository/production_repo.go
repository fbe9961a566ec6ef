package repository

import (
	"context"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductionRepository defines the data access contract for seed lots.
type ProductionRepository interface {
	Create(ctx context.Context, p *model.Production) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Production, error)
	FindByLotNumber(ctx context.Context, lotNumber string) (*model.Production, error)
	List(ctx context.Context, filter dto.ProductionFilter) ([]model.Production, int64, error)
	Update(ctx context.Context, p *model.Production) error
	Delete(ctx context.Context, id uuid.UUID) error
	// MarkGenerated stamps import_qr_at and the token that was used.
	MarkGenerated(ctx context.Context, id uuid.UUID, qrToken string, at time.Time) error
}

type productionRepo struct{ db *gorm.DB }

func NewProductionRepository(db *gorm.DB) ProductionRepository { return &productionRepo{db: db} }

// productionSortColumns whitelists the columns a client may sort by.
var productionSortColumns = map[string]string{
	"created_at":      "created_at",
	"lot_number":      "lot_number",
	"variety":         "variety",
	"production_date": "production_date",
}

func (r *productionRepo) Create(ctx context.Context, p *model.Production) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *productionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Production, error) {
	var p model.Production
	if err := r.db.WithContext(ctx).Preload("Company").First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productionRepo) FindByLotNumber(ctx context.Context, lotNumber string) (*model.Production, error) {
	var p model.Production
	if err := r.db.WithContext(ctx).Preload("Company").Where("lot_number = ?", lotNumber).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *productionRepo) List(ctx context.Context, filter dto.ProductionFilter) ([]model.Production, int64, error) {
	var productions []model.Production
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Production{})

	if filter.ScopeCompanyID != "" {
		q = q.Where("company_id = ?", filter.ScopeCompanyID)
	}
	if filter.CompanyID != "" {
		q = q.Where("company_id = ?", filter.CompanyID)
	}
	if filter.LotNumber != "" {
		q = q.Where("LOWER(lot_number) LIKE LOWER(?)", "%"+filter.LotNumber+"%")
	}
	if filter.Variety != "" {
		q = q.Where("LOWER(variety) LIKE LOWER(?)", "%"+filter.Variety+"%")
	}
	if filter.SeedClass != "" {
		q = q.Where("seed_class = ?", filter.SeedClass)
	}
	switch filter.Generated {
	case "true":
		q = q.Where("import_qr_at IS NOT NULL")
	case "false":
		q = q.Where("import_qr_at IS NULL")
	}
	if filter.DateFrom != "" {
		q = q.Where("production_date >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		q = q.Where("production_date <= ?", filter.DateTo)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Company").
		Order(orderClause(productionSortColumns, filter.Sort, filter.Order, "created_at")).
		Limit(filter.Limit).Offset(pageOffset(filter.Page, filter.Limit)).
		Find(&productions).Error
	return productions, total, err
}

func (r *productionRepo) Update(ctx context.Context, p *model.Production) error {
	return translate(r.db.WithContext(ctx).Omit("Company", "Province").Save(p).Error)
}

func (r *productionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ? AND import_qr_at IS NULL", id).Delete(&model.Production{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productionRepo) MarkGenerated(ctx context.Context, id uuid.UUID, qrToken string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Production{}).Where("id = ?", id).
		Updates(map[string]interface{}{"import_qr_at": at, "qr_token": qrToken, "updated_at": at}).Error
}

// orderClause resolves a whitelisted sort key; unknown keys fall back to def.
func orderClause(columns map[string]string, sort, order, def string) string {
	col, ok := columns[sort]
	if !ok {
		col = def
	}
	dir := "DESC"
	if order == "asc" {
		dir = "ASC"
	}
	return col + " " + dir
}
