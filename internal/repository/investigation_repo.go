package repository

import (
	"context"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvestigationRepository interface {
	Create(ctx context.Context, inv *model.Investigation) error
	FindByComplaintID(ctx context.Context, complaintID uuid.UUID) (*model.Investigation, error)
	Update(ctx context.Context, inv *model.Investigation) error
	CreateTx(tx *gorm.DB, inv *model.Investigation) error
	UpdateTx(tx *gorm.DB, inv *model.Investigation) error
}

type investigationRepo struct{ db *gorm.DB }

func NewInvestigationRepository(db *gorm.DB) InvestigationRepository {
	return &investigationRepo{db: db}
}

func (r *investigationRepo) Create(ctx context.Context, inv *model.Investigation) error {
	return translate(r.db.WithContext(ctx).Create(inv).Error)
}

func (r *investigationRepo) FindByComplaintID(ctx context.Context, complaintID uuid.UUID) (*model.Investigation, error) {
	var inv model.Investigation
	if err := r.db.WithContext(ctx).Where("complaint_id = ?", complaintID).First(&inv).Error; err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (r *investigationRepo) Update(ctx context.Context, inv *model.Investigation) error {
	return r.db.WithContext(ctx).Save(inv).Error
}

func (r *investigationRepo) CreateTx(tx *gorm.DB, inv *model.Investigation) error {
	return translate(tx.Create(inv).Error)
}

func (r *investigationRepo) UpdateTx(tx *gorm.DB, inv *model.Investigation) error {
	return tx.Save(inv).Error
}
