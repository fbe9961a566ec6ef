package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/rbac"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// complaintTransitions lists the statuses reachable from each status.
var complaintTransitions = map[string][]string{
	model.ComplaintSubmitted:     {model.ComplaintInReview, model.ComplaintRejected},
	model.ComplaintInReview:      {model.ComplaintInvestigating, model.ComplaintRejected},
	model.ComplaintInvestigating: {model.ComplaintResolved},
	model.ComplaintResolved:      {model.ComplaintClosed},
}

// CanTransition reports whether a complaint may move from one status to another.
func CanTransition(from, to string) bool {
	for _, s := range complaintTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ComplaintQueue is satisfied by *worker.Dispatcher.
type ComplaintQueue interface {
	EnqueueComplaintAck(ctx context.Context, payload worker.ComplaintAckPayload) error
}

type ComplaintService interface {
	Submit(ctx context.Context, req dto.CreateComplaintRequest) (*dto.ComplaintResponse, error)
	// AddAttachments is public; the phone number must match the complaint.
	AddAttachments(ctx context.Context, number, phone string, uploads []Upload) (*dto.AttachmentUploadResponse, error)
	Track(ctx context.Context, number, phone string) (*dto.ComplaintTrackingResponse, error)
	List(ctx context.Context, scope Scope, filter dto.ComplaintFilter) (*dto.ComplaintListResponse, error)
	Get(ctx context.Context, scope Scope, id uuid.UUID) (*dto.ComplaintResponse, error)
	Assign(ctx context.Context, scope Scope, id uuid.UUID, req dto.AssignComplaintRequest) (*dto.ComplaintResponse, error)
	Transition(ctx context.Context, scope Scope, id uuid.UUID, req dto.TransitionComplaintRequest) (*dto.ComplaintResponse, error)
	Delete(ctx context.Context, scope Scope, id uuid.UUID) error
}

type complaintService struct {
	repo        repository.ComplaintRepository
	productions repository.ProductionRepository
	files       infra.FileStore
	queue       ComplaintQueue // nil skips the acknowledgement
	rdb         *redis.Client  // nil falls back to counting today's rows
	now         func() time.Time
}

func NewComplaintService(
	repo repository.ComplaintRepository,
	productions repository.ProductionRepository,
	files infra.FileStore,
	queue ComplaintQueue,
	rdb *redis.Client,
) ComplaintService {
	return &complaintService{repo: repo, productions: productions, files: files, queue: queue, rdb: rdb, now: time.Now}
}

func (s *complaintService) Submit(ctx context.Context, req dto.CreateComplaintRequest) (*dto.ComplaintResponse, error) {
	c := &model.Complaint{
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: normalizePhone(req.CustomerPhone),
		CustomerEmail: req.CustomerEmail,
		ProvinceID:    req.ProvinceID,
		City:          req.City,
		Address:       req.Address,
		LotNumber:     strings.TrimSpace(req.LotNumber),
		SerialNumber:  req.SerialNumber,
		Variety:       req.Variety,
		PurchasePlace: req.PurchasePlace,
		Quantity:      req.Quantity,
		ComplaintType: req.ComplaintType,
		Description:   req.Description,
		Status:        model.ComplaintSubmitted,
		Attachments:   encodeKeys([]string{}),
	}
	var err error
	if c.PurchaseDate, err = parseDate(req.PurchaseDate); err != nil {
		return nil, err
	}
	if c.PlantingDate, err = parseDate(req.PlantingDate); err != nil {
		return nil, err
	}

	if p, err := s.productions.FindByLotNumber(ctx, c.LotNumber); err == nil {
		c.ProductionID = &p.ID
		c.CompanyID = p.CompanyID
		if c.Variety == "" {
			c.Variety = p.Variety
		}
	}

	const maxNumberAttempts = 3
	for attempt := 0; ; attempt++ {
		if c.ComplaintNumber, err = s.nextNumber(ctx, attempt); err != nil {
			return nil, err
		}
		err = s.repo.Create(ctx, c)
		if err == nil {
			break
		}
		if !errors.Is(err, repository.ErrDuplicate) || attempt+1 == maxNumberAttempts {
			return nil, fromRepo(err)
		}
		c.ID = uuid.Nil
	}
	infra.ComplaintsSubmitted.WithLabelValues(c.ComplaintType).Inc()

	if s.queue != nil {
		if err := s.queue.EnqueueComplaintAck(ctx, worker.ComplaintAckPayload{ComplaintID: c.ID.String()}); err != nil {
			// the complaint is stored; only the receipt is lost
			log.Error().Err(err).Str("complaint", c.ComplaintNumber).Msg("enqueue complaint acknowledgement failed")
		}
	}

	log.Info().Str("complaint", c.ComplaintNumber).Str("type", c.ComplaintType).Str("lot_number", c.LotNumber).Msg("complaint submitted")
	resp := complaintToResponse(c, s.files)
	return &resp, nil
}

// nextNumber returns CMP-YYYYMMDD-NNNN using a daily Redis counter, or today's
// row count when Redis is unavailable.
func (s *complaintService) nextNumber(ctx context.Context, attempt int) (string, error) {
	now := s.now()
	day := now.Format("20060102")

	var seq int64
	if s.rdb != nil {
		key := "complaint_seq:" + day
		n, err := s.rdb.Incr(ctx, key).Result()
		if err == nil {
			_ = s.rdb.Expire(ctx, key, 48*time.Hour).Err()
			seq = n
		} else {
			log.Warn().Err(err).Msg("complaint sequence: redis unavailable, counting rows")
		}
	}
	if seq == 0 {
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		n, err := s.repo.CountCreatedSince(ctx, startOfDay)
		if err != nil {
			return "", err
		}
		seq = n + 1 + int64(attempt)
	}
	return fmt.Sprintf("CMP-%s-%04d", day, seq), nil
}

func (s *complaintService) AddAttachments(ctx context.Context, number, phone string, uploads []Upload) (*dto.AttachmentUploadResponse, error) {
	c, err := s.findForCustomer(ctx, number, phone)
	if err != nil {
		return nil, err
	}
	if c.Status != model.ComplaintSubmitted && c.Status != model.ComplaintInReview {
		return nil, fmt.Errorf("%w: attachments can no longer be added to a %s complaint", ErrInvalidTransition, c.Status)
	}
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrValidation)
	}
	keys := decodeKeys(c.Attachments)
	if len(keys)+len(uploads) > MaxAttachmentFiles {
		return nil, fmt.Errorf("%w: at most %d attachments per complaint", ErrValidation, MaxAttachmentFiles)
	}

	added, err := storeUploads(ctx, s.files, "complaints/"+c.ComplaintNumber, uploads)
	keys = append(keys, added...)
	if len(added) > 0 {
		c.Attachments = encodeKeys(keys)
		if uerr := s.repo.Update(ctx, c); uerr != nil {
			return nil, uerr
		}
	}
	if err != nil {
		return nil, err
	}
	return &dto.AttachmentUploadResponse{
		ComplaintNumber: c.ComplaintNumber,
		Attachments:     keys,
		URLs:            publicURLs(s.files, keys),
	}, nil
}

func (s *complaintService) Track(ctx context.Context, number, phone string) (*dto.ComplaintTrackingResponse, error) {
	c, err := s.findForCustomer(ctx, number, phone)
	if err != nil {
		return nil, err
	}
	return &dto.ComplaintTrackingResponse{
		ComplaintNumber: c.ComplaintNumber,
		Status:          c.Status,
		ComplaintType:   c.ComplaintType,
		LotNumber:       c.LotNumber,
		Resolution:      c.Resolution,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		ResolvedAt:      c.ResolvedAt,
	}, nil
}

// findForCustomer answers not found for a wrong phone so numbers cannot be probed.
func (s *complaintService) findForCustomer(ctx context.Context, number, phone string) (*model.Complaint, error) {
	c, err := s.repo.FindByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, fmt.Errorf("complaint: %w", fromRepo(err))
	}
	if phone == "" || normalizePhone(phone) != normalizePhone(c.CustomerPhone) {
		return nil, fmt.Errorf("complaint: %w", ErrNotFound)
	}
	return c, nil
}

func (s *complaintService) List(ctx context.Context, scope Scope, filter dto.ComplaintFilter) (*dto.ComplaintListResponse, error) {
	filter.ScopeCompanyID = scope.CompanyFilter()
	complaints, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ComplaintResponse, len(complaints))
	for i := range complaints {
		data[i] = complaintToResponse(&complaints[i], s.files)
	}
	return &dto.ComplaintListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	}, nil
}

func (s *complaintService) Get(ctx context.Context, scope Scope, id uuid.UUID) (*dto.ComplaintResponse, error) {
	c, err := loadComplaint(ctx, s.repo, scope, id)
	if err != nil {
		return nil, err
	}
	resp := complaintToResponse(c, s.files)
	return &resp, nil
}

func (s *complaintService) Assign(ctx context.Context, scope Scope, id uuid.UUID, req dto.AssignComplaintRequest) (*dto.ComplaintResponse, error) {
	c, err := loadComplaint(ctx, s.repo, scope, id)
	if err != nil {
		return nil, err
	}
	if c.Status == model.ComplaintClosed || c.Status == model.ComplaintRejected {
		return nil, fmt.Errorf("%w: a %s complaint cannot be reassigned", ErrInvalidTransition, c.Status)
	}
	assignee, err := uuid.Parse(req.AssignedTo)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid assignee", ErrValidation)
	}
	c.AssignedTo = &assignee
	if req.Department != nil {
		c.Department = req.Department
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	resp := complaintToResponse(c, s.files)
	return &resp, nil
}

func (s *complaintService) Transition(ctx context.Context, scope Scope, id uuid.UUID, req dto.TransitionComplaintRequest) (*dto.ComplaintResponse, error) {
	c, err := loadComplaint(ctx, s.repo, scope, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(c.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, c.Status, req.Status)
	}
	if req.Status == model.ComplaintResolved && (req.Resolution == nil || strings.TrimSpace(*req.Resolution) == "") {
		return nil, fmt.Errorf("%w: a resolution is required to resolve a complaint", ErrValidation)
	}

	c.Status = req.Status
	if req.Resolution != nil {
		c.Resolution = req.Resolution
	}
	if req.Status == model.ComplaintResolved {
		now := s.now()
		c.ResolvedAt = &now
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	log.Info().Str("complaint", c.ComplaintNumber).Str("status", c.Status).Msg("complaint status changed")
	resp := complaintToResponse(c, s.files)
	return &resp, nil
}

func (s *complaintService) Delete(ctx context.Context, scope Scope, id uuid.UUID) error {
	if scope.Role != rbac.AdminRole {
		return fmt.Errorf("%w: only administrators delete complaints", ErrForbiddenScope)
	}
	c, err := loadComplaint(ctx, s.repo, scope, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fromRepo(err)
	}
	keys := decodeKeys(c.Attachments)
	if c.Investigation != nil {
		keys = append(keys, decodeKeys(c.Investigation.Evidence)...)
	}
	for _, k := range keys {
		if err := s.files.Delete(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("delete complaint file failed")
		}
	}
	return nil
}

func loadComplaint(ctx context.Context, repo repository.ComplaintRepository, scope Scope, id uuid.UUID) (*model.Complaint, error) {
	c, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("complaint: %w", fromRepo(err))
	}
	if !scope.Allows(c.CompanyID) {
		return nil, fmt.Errorf("complaint: %w", ErrNotFound)
	}
	return c, nil
}

// normalizePhone keeps digits only and maps the +62 country prefix to 0.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "62") && len(digits) > 9 {
		digits = "0" + digits[2:]
	}
	return digits
}

func complaintToResponse(c *model.Complaint, files infra.FileStore) dto.ComplaintResponse {
	resp := dto.ComplaintResponse{
		ID:              c.ID.String(),
		ComplaintNumber: c.ComplaintNumber,
		CompanyID:       uuidString(c.CompanyID),
		ProductionID:    uuidString(c.ProductionID),
		CustomerName:    c.CustomerName,
		CustomerPhone:   c.CustomerPhone,
		CustomerEmail:   c.CustomerEmail,
		ProvinceID:      c.ProvinceID,
		City:            c.City,
		Address:         c.Address,
		LotNumber:       c.LotNumber,
		SerialNumber:    c.SerialNumber,
		Variety:         c.Variety,
		PurchaseDate:    formatDate(c.PurchaseDate),
		PurchasePlace:   c.PurchasePlace,
		Quantity:        c.Quantity,
		PlantingDate:    formatDate(c.PlantingDate),
		ComplaintType:   c.ComplaintType,
		Description:     c.Description,
		Status:          c.Status,
		AssignedTo:      uuidString(c.AssignedTo),
		Department:      c.Department,
		Resolution:      c.Resolution,
		Attachments:     publicURLs(files, decodeKeys(c.Attachments)),
		ResolvedAt:      c.ResolvedAt,
		CreatedAt:       c.CreatedAt,
	}
	if c.Investigation != nil {
		inv := investigationToResponse(c.Investigation, files)
		resp.Investigation = &inv
	}
	return resp
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
