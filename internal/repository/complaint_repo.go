package repository

import (
	"context"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ComplaintRepository interface {
	Create(ctx context.Context, c *model.Complaint) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Complaint, error)
	FindByNumber(ctx context.Context, number string) (*model.Complaint, error)
	List(ctx context.Context, filter dto.ComplaintFilter) ([]model.Complaint, int64, error)
	Update(ctx context.Context, c *model.Complaint) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CountCreatedSince backs the complaint number sequence when Redis is unavailable.
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)

	// UpdateTx saves inside a transaction opened by the caller.
	UpdateTx(tx *gorm.DB, c *model.Complaint) error
	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type complaintRepo struct{ db *gorm.DB }

func NewComplaintRepository(db *gorm.DB) ComplaintRepository { return &complaintRepo{db: db} }

var complaintSortColumns = map[string]string{
	"created_at":       "created_at",
	"complaint_number": "complaint_number",
	"status":           "status",
}

func (r *complaintRepo) Create(ctx context.Context, c *model.Complaint) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *complaintRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Complaint, error) {
	var c model.Complaint
	if err := r.db.WithContext(ctx).Preload("Investigation").First(&c, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *complaintRepo) FindByNumber(ctx context.Context, number string) (*model.Complaint, error) {
	var c model.Complaint
	if err := r.db.WithContext(ctx).Where("complaint_number = ?", number).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *complaintRepo) List(ctx context.Context, filter dto.ComplaintFilter) ([]model.Complaint, int64, error) {
	var complaints []model.Complaint
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Complaint{})
	if filter.ScopeCompanyID != "" {
		q = q.Where("company_id = ?", filter.ScopeCompanyID)
	}
	if filter.CompanyID != "" {
		q = q.Where("company_id = ?", filter.CompanyID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.ComplaintType != "" {
		q = q.Where("complaint_type = ?", filter.ComplaintType)
	}
	if filter.AssignedTo != "" {
		q = q.Where("assigned_to = ?", filter.AssignedTo)
	}
	if filter.DateFrom != "" {
		q = q.Where("created_at >= ?", filter.DateFrom)
	}
	if filter.DateTo != "" {
		// inclusive upper day bound
		if to, err := time.Parse("2006-01-02", filter.DateTo); err == nil {
			q = q.Where("created_at < ?", to.AddDate(0, 0, 1))
		}
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("(LOWER(complaint_number) LIKE LOWER(?) OR LOWER(customer_name) LIKE LOWER(?) OR LOWER(lot_number) LIKE LOWER(?))",
			like, like, like)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order(orderClause(complaintSortColumns, filter.Sort, filter.Order, "created_at")).
		Limit(filter.Limit).Offset(pageOffset(filter.Page, filter.Limit)).
		Find(&complaints).Error
	return complaints, total, err
}

func (r *complaintRepo) Update(ctx context.Context, c *model.Complaint) error {
	return r.db.WithContext(ctx).Omit("Investigation").Save(c).Error
}

func (r *complaintRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("complaint_id = ?", id).Delete(&model.Investigation{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Complaint{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *complaintRepo) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Complaint{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

func (r *complaintRepo) UpdateTx(tx *gorm.DB, c *model.Complaint) error {
	return tx.Omit("Investigation").Save(c).Error
}

func (r *complaintRepo) DB() *gorm.DB { return r.db }
