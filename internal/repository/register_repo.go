package repository

import (
	"context"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegisterRepository stores the generated QR/serial rows of a production.
type RegisterRepository interface {
	// InsertBatch writes one chunk in a single statement. Rows whose
	// (production_id, serial_number) already exist are skipped, so re-running a
	// partially failed job completes the lot without duplicates. It returns the
	// number of rows actually written.
	InsertBatch(ctx context.Context, rows []model.ProductionRegister) (int64, error)
	CountByProduction(ctx context.Context, productionID uuid.UUID) (int64, error)
	ListByProduction(ctx context.Context, productionID uuid.UUID, page, limit int) ([]model.ProductionRegister, int64, error)
	// FindBySerial returns every register carrying the serial; code narrows the match when not empty.
	FindBySerial(ctx context.Context, serial int64, code string) ([]model.ProductionRegister, error)
}

type registerRepo struct{ db *gorm.DB }

func NewRegisterRepository(db *gorm.DB) RegisterRepository { return &registerRepo{db: db} }

func (r *registerRepo) InsertBatch(ctx context.Context, rows []model.ProductionRegister) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "production_id"}, {Name: "serial_number"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, len(rows))
	return res.RowsAffected, res.Error
}

func (r *registerRepo) CountByProduction(ctx context.Context, productionID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ProductionRegister{}).
		Where("production_id = ?", productionID).Count(&n).Error
	return n, err
}

func (r *registerRepo) ListByProduction(ctx context.Context, productionID uuid.UUID, page, limit int) ([]model.ProductionRegister, int64, error) {
	var rows []model.ProductionRegister
	var total int64
	q := r.db.WithContext(ctx).Model(&model.ProductionRegister{}).Where("production_id = ?", productionID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("serial_number ASC").Limit(limit).Offset(pageOffset(page, limit)).Find(&rows).Error
	return rows, total, err
}

func (r *registerRepo) FindBySerial(ctx context.Context, serial int64, code string) ([]model.ProductionRegister, error) {
	var rows []model.ProductionRegister
	q := r.db.WithContext(ctx).Where("serial_number = ?", serial)
	if code != "" {
		q = q.Where("code = ?", code)
	}
	err := q.Limit(10).Find(&rows).Error
	return rows, err
}
