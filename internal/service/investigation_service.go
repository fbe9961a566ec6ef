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
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type InvestigationService interface {
	// Open starts the investigation of an in-review complaint and moves the
	// complaint to investigating.
	Open(ctx context.Context, scope Scope, complaintID uuid.UUID, req dto.OpenInvestigationRequest) (*dto.InvestigationResponse, error)
	Get(ctx context.Context, scope Scope, complaintID uuid.UUID) (*dto.InvestigationResponse, error)
	Update(ctx context.Context, scope Scope, complaintID uuid.UUID, req dto.UpdateInvestigationRequest) (*dto.InvestigationResponse, error)
	// Complete records the conclusion and resolves the complaint.
	Complete(ctx context.Context, scope Scope, complaintID uuid.UUID, req dto.CompleteInvestigationRequest) (*dto.InvestigationResponse, error)
	AddEvidence(ctx context.Context, scope Scope, complaintID uuid.UUID, uploads []Upload) (*dto.InvestigationResponse, error)
}

type investigationService struct {
	repo       repository.InvestigationRepository
	complaints repository.ComplaintRepository
	files      infra.FileStore
	now        func() time.Time
}

func NewInvestigationService(
	repo repository.InvestigationRepository,
	complaints repository.ComplaintRepository,
	files infra.FileStore,
) InvestigationService {
	return &investigationService{repo: repo, complaints: complaints, files: files, now: time.Now}
}

func (s *investigationService) Open(ctx context.Context, scope Scope, complaintID uuid.UUID, req dto.OpenInvestigationRequest) (*dto.InvestigationResponse, error) {
	c, err := loadComplaint(ctx, s.complaints, scope, complaintID)
	if err != nil {
		return nil, err
	}
	if c.Status != model.ComplaintInReview && c.Status != model.ComplaintInvestigating {
		return nil, fmt.Errorf("%w: a %s complaint cannot be investigated", ErrInvalidTransition, c.Status)
	}
	if _, err := s.repo.FindByComplaintID(ctx, complaintID); err == nil {
		return nil, fmt.Errorf("investigation: %w", ErrDuplicate)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	inv := &model.Investigation{
		ComplaintID:     complaintID,
		Status:          model.InvestigationOpen,
		LabTestRequired: req.LabTestRequired,
		Evidence:        encodeKeys([]string{}),
		StartedAt:       s.now(),
	}
	if inv.InvestigatorID, err = parseOptionalUUID(req.InvestigatorID); err != nil {
		return nil, err
	}
	if inv.InvestigatorID == nil && scope.UserID != uuid.Nil {
		uid := scope.UserID
		inv.InvestigatorID = &uid
	}
	if inv.FieldVisitDate, err = parseDate(req.FieldVisitDate); err != nil {
		return nil, err
	}

	err = runTx(ctx, s.complaints.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, inv); err != nil {
			return fromRepo(err)
		}
		c.Status = model.ComplaintInvestigating
		return s.complaints.UpdateTx(tx, c)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("complaint", c.ComplaintNumber).Msg("investigation opened")
	resp := investigationToResponse(inv, s.files)
	return &resp, nil
}

func (s *investigationService) Get(ctx context.Context, scope Scope, complaintID uuid.UUID) (*dto.InvestigationResponse, error) {
	_, inv, err := s.load(ctx, scope, complaintID)
	if err != nil {
		return nil, err
	}
	resp := investigationToResponse(inv, s.files)
	return &resp, nil
}

func (s *investigationService) Update(ctx context.Context, scope Scope, complaintID uuid.UUID, req dto.UpdateInvestigationRequest) (*dto.InvestigationResponse, error) {
	_, inv, err := s.load(ctx, scope, complaintID)
	if err != nil {
		return nil, err
	}
	if inv.Status == model.InvestigationCompleted {
		return nil, fmt.Errorf("%w: investigation already completed", ErrInvestigationState)
	}

	if req.InvestigatorID != nil {
		if inv.InvestigatorID, err = parseOptionalUUID(req.InvestigatorID); err != nil {
			return nil, err
		}
	}
	if req.FieldVisitDate != nil {
		if inv.FieldVisitDate, err = parseDate(req.FieldVisitDate); err != nil {
			return nil, err
		}
	}
	if req.Findings != nil {
		inv.Findings = req.Findings
	}
	if req.RootCause != nil {
		inv.RootCause = req.RootCause
	}
	if req.CorrectiveAction != nil {
		inv.CorrectiveAction = req.CorrectiveAction
	}
	if req.LabTestRequired != nil {
		inv.LabTestRequired = *req.LabTestRequired
	}
	if req.LabResult != nil {
		inv.LabResult = req.LabResult
	}
	inv.Status = model.InvestigationInProgress

	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}
	resp := investigationToResponse(inv, s.files)
	return &resp, nil
}

func (s *investigationService) Complete(ctx context.Context, scope Scope, complaintID uuid.UUID, req dto.CompleteInvestigationRequest) (*dto.InvestigationResponse, error) {
	c, inv, err := s.load(ctx, scope, complaintID)
	if err != nil {
		return nil, err
	}
	if inv.Status == model.InvestigationCompleted {
		return nil, fmt.Errorf("%w: investigation already completed", ErrInvestigationState)
	}
	if req.Conclusion == "" {
		return nil, fmt.Errorf("%w: a conclusion is required", ErrValidation)
	}
	if !CanTransition(c.Status, model.ComplaintResolved) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, c.Status, model.ComplaintResolved)
	}

	now := s.now()
	conclusion := req.Conclusion
	resolution := strings.TrimSpace(req.Resolution)
	inv.Status = model.InvestigationCompleted
	inv.Conclusion = &conclusion
	inv.CompletedAt = &now
	c.Status = model.ComplaintResolved
	c.Resolution = &resolution
	c.ResolvedAt = &now

	err = runTx(ctx, s.complaints.DB(), func(tx *gorm.DB) error {
		if err := s.repo.UpdateTx(tx, inv); err != nil {
			return err
		}
		return s.complaints.UpdateTx(tx, c)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("complaint", c.ComplaintNumber).Str("conclusion", conclusion).Msg("investigation completed")
	resp := investigationToResponse(inv, s.files)
	return &resp, nil
}

func (s *investigationService) AddEvidence(ctx context.Context, scope Scope, complaintID uuid.UUID, uploads []Upload) (*dto.InvestigationResponse, error) {
	c, inv, err := s.load(ctx, scope, complaintID)
	if err != nil {
		return nil, err
	}
	if inv.Status == model.InvestigationCompleted {
		return nil, fmt.Errorf("%w: investigation already completed", ErrInvestigationState)
	}
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", ErrValidation)
	}

	added, err := storeUploads(ctx, s.files, fmt.Sprintf("complaints/%s/evidence", c.ComplaintNumber), uploads)
	if len(added) > 0 {
		inv.Evidence = encodeKeys(append(decodeKeys(inv.Evidence), added...))
		if uerr := s.repo.Update(ctx, inv); uerr != nil {
			return nil, uerr
		}
	}
	if err != nil {
		return nil, err
	}
	resp := investigationToResponse(inv, s.files)
	return &resp, nil
}

func (s *investigationService) load(ctx context.Context, scope Scope, complaintID uuid.UUID) (*model.Complaint, *model.Investigation, error) {
	c, err := loadComplaint(ctx, s.complaints, scope, complaintID)
	if err != nil {
		return nil, nil, err
	}
	inv, err := s.repo.FindByComplaintID(ctx, complaintID)
	if err != nil {
		return nil, nil, fmt.Errorf("investigation: %w", fromRepo(err))
	}
	return c, inv, nil
}

func investigationToResponse(inv *model.Investigation, files infra.FileStore) dto.InvestigationResponse {
	return dto.InvestigationResponse{
		ID:               inv.ID.String(),
		ComplaintID:      inv.ComplaintID.String(),
		InvestigatorID:   uuidString(inv.InvestigatorID),
		Status:           inv.Status,
		FieldVisitDate:   formatDate(inv.FieldVisitDate),
		Findings:         inv.Findings,
		RootCause:        inv.RootCause,
		CorrectiveAction: inv.CorrectiveAction,
		LabTestRequired:  inv.LabTestRequired,
		LabResult:        inv.LabResult,
		Conclusion:       inv.Conclusion,
		Evidence:         publicURLs(files, decodeKeys(inv.Evidence)),
		StartedAt:        inv.StartedAt,
		CompletedAt:      inv.CompletedAt,
	}
}
