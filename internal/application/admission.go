package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"vn.io.arda/account/internal/domain"
	"vn.io.arda/account/internal/metrics"
)

// AdmissionResult is either an admitted account or a structured failure, never both.
type AdmissionResult struct {
	Account *domain.Identity
	Failure *domain.AdmissionFailure
}

// Admitted reports whether the request produced an account.
func (r AdmissionResult) Admitted() bool {
	return r.Account != nil && r.Failure == nil
}

// SystemAdminGuard admits new system admin accounts after field validation,
// a duplicate check and a quota check, in that order.
//
// The duplicate and quota reads take no lock. Two concurrent admissions for the
// same email are resolved by the store's unique index on (email, provenance):
// the losing write surfaces as FailureDuplicate.
type SystemAdminGuard struct {
	repo            domain.AccountRepository
	maxSystemAdmins int
	metrics         metrics.Recorder
	now             func() time.Time
}

// NewSystemAdminGuard creates a guard allowing at most maxSystemAdmins internal
// system admins.
func NewSystemAdminGuard(repo domain.AccountRepository, maxSystemAdmins int, rec metrics.Recorder) *SystemAdminGuard {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &SystemAdminGuard{
		repo:            repo,
		maxSystemAdmins: maxSystemAdmins,
		metrics:         rec,
		now:             time.Now,
	}
}

// Admit runs the admission checks and persists the account when all pass.
// Business denials come back in AdmissionResult.Failure; the error return is
// reserved for store failures, in which case nothing is admitted.
func (g *SystemAdminGuard) Admit(ctx context.Context, issuerID string, req domain.SystemAdminRequest) (AdmissionResult, error) {
	req = normaliseSystemAdminRequest(req)

	if fieldErrs := validateSystemAdminRequest(req); len(fieldErrs) > 0 {
		return g.deny(issuerID, &domain.AdmissionFailure{
			Reason:      domain.FailureValidation,
			Request:     req,
			FieldErrors: fieldErrs,
		}), nil
	}

	existing, err := g.repo.FindByEmailAndProvenance(ctx, req.Email, domain.ProvenanceInternalSSO)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return AdmissionResult{}, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil {
		return g.deny(issuerID, &domain.AdmissionFailure{Reason: domain.FailureDuplicate, Request: req}), nil
	}

	count, err := g.repo.CountByRoleAndProvenance(ctx, domain.RoleSystemAdmin, domain.ProvenanceInternalSSO)
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("quota check: %w", err)
	}
	if count >= g.maxSystemAdmins {
		return g.deny(issuerID, &domain.AdmissionFailure{Reason: domain.FailureQuotaExceeded, Request: req}), nil
	}

	// A new admin starts its dormancy clock on admission.
	now := g.now().UTC()
	identity := &domain.Identity{
		UserID:           uuid.New(),
		Provenance:       domain.ProvenanceInternalSSO,
		ProvenanceUserID: req.Email,
		Role:             domain.RoleSystemAdmin,
		Email:            req.Email,
		Forenames:        req.FirstName,
		Surname:          req.Surname,
		CreatedDate:      now,
		LastSignedInDate: &now,
	}
	if !domain.ValidRoleProvenance(identity.Role, identity.Provenance) {
		return AdmissionResult{}, fmt.Errorf("system admin identity has inconsistent role and provenance")
	}

	saved, err := g.repo.Create(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return g.deny(issuerID, &domain.AdmissionFailure{Reason: domain.FailureDuplicate, Request: req}), nil
		}
		return AdmissionResult{}, fmt.Errorf("save system admin: %w", err)
	}

	g.metrics.RecordAdmission("ADMITTED")
	log.Info().
		Str("issuer", issuerID).
		Str("user_id", saved.UserID.String()).
		Msg("system admin account admitted")

	return AdmissionResult{Account: saved}, nil
}

func (g *SystemAdminGuard) deny(issuerID string, f *domain.AdmissionFailure) AdmissionResult {
	g.metrics.RecordAdmission(string(f.Reason))
	log.Info().
		Str("issuer", issuerID).
		Str("reason", string(f.Reason)).
		Msg("system admin admission denied")
	return AdmissionResult{Failure: f}
}

func normaliseSystemAdminRequest(req domain.SystemAdminRequest) domain.SystemAdminRequest {
	return domain.SystemAdminRequest{
		Email:     strings.TrimSpace(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		Surname:   strings.TrimSpace(req.Surname),
	}
}

func validateSystemAdminRequest(r domain.SystemAdminRequest) []domain.FieldError {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(1, 255), is.Email),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Surname, validation.Required, validation.Length(1, 255)),
	)
	return fieldErrors(err)
}

// fieldErrors flattens ozzo validation errors into a stable, field-sorted list.
func fieldErrors(err error) []domain.FieldError {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return []domain.FieldError{{Field: "request", Message: err.Error()}}
	}
	out := make([]domain.FieldError, 0, len(errs))
	for field, fe := range errs {
		out = append(out, domain.FieldError{Field: field, Message: fe.Error()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
