package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"
)

// Sentinel errors returned by services. Handlers map them to HTTP status codes
// with errors.Is; wrapped messages carry the detail shown to the client.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already exists")
	ErrValidation         = errors.New("validation failed")
	ErrUnauthorized       = errors.New("invalid credentials")
	ErrForbiddenScope     = errors.New("resource belongs to another company")
	ErrAlreadyGenerated   = errors.New("registers already generated for this production")
	ErrAmbiguousSerial    = errors.New("serial number matches more than one product, a code is required")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrUnavailable        = errors.New("dependency unavailable")
	ErrInvestigationState = errors.New("investigation state does not allow this change")
)

// fromRepo lifts repository sentinels into service sentinels.
func fromRepo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrDuplicate
	}
	return err
}

// Scope is the tenant view of the caller. A nil CompanyID sees every company.
type Scope struct {
	UserID    uuid.UUID
	Role      string
	CompanyID *uuid.UUID
}

// Allows reports whether a record owned by companyID is visible to the caller.
func (s Scope) Allows(companyID *uuid.UUID) bool {
	if s.CompanyID == nil {
		return true
	}
	return companyID != nil && *companyID == *s.CompanyID
}

// CompanyFilter returns the company id a list query must be restricted to, if any.
func (s Scope) CompanyFilter() string {
	if s.CompanyID == nil {
		return ""
	}
	return s.CompanyID.String()
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}
