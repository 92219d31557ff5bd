package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"vn.io.arda/account/internal/application"
	"vn.io.arda/account/internal/domain"
	"vn.io.arda/account/internal/transport/mw"
)

// AccountService is the subset of application.AccountService served over HTTP.
type AccountService interface {
	ValidateRoleProvenance(rawRole, rawProvenance string) (bool, error)
	ValidateName(title, firstName, surname string) bool
	CreateAccounts(ctx context.Context, issuerID string, inputs []domain.AccountInput) (application.CreateAccountsResult, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Identity, error)
	RecordSignIn(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordVerification(ctx context.Context, id uuid.UUID, at time.Time) error
	ListByRole(ctx context.Context, rawRole string) ([]*domain.Identity, error)
}

// Authorizer returns domain.ErrForbidden for requesters that may not run
// administrative operations. application.ThirdPartyGate implements it.
type Authorizer interface {
	Authorize(ctx context.Context, requesterID string) error
}

type AdmissionGuard interface {
	Admit(ctx context.Context, issuerID string, req domain.SystemAdminRequest) (application.AdmissionResult, error)
}

type AccountDeleter interface {
	DeleteAccount(ctx context.Context, userID uuid.UUID) (application.DeletionOutcome, error)
}

type SweepRunner interface {
	RunSweep(ctx context.Context, kind domain.SweepKind) (application.SweepReport, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the collaborators the Handler dispatches to.
type Services struct {
	Admins     Authorizer
	Accounts   AccountService
	Admission  AdmissionGuard
	Deletion   AccountDeleter
	Lifecycle  SweepRunner
	ThirdParty ThirdPartyService
	DB         Pinger
}

// Handler holds all HTTP handler methods.
type Handler struct {
	svc Services
}

// NewHandler creates a new Handler.
func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc}
}

// --- Validation ---

type roleProvenanceRequest struct {
	Role       string `json:"role"`
	Provenance string `json:"provenance"`
}

// ValidateRoleProvenance POST /account/validate/role-provenance
func (h *Handler) ValidateRoleProvenance(c echo.Context) error {
	var req roleProvenanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	valid, err := h.svc.Accounts.ValidateRoleProvenance(req.Role, req.Provenance)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"valid": valid})
}

type nameRequest struct {
	Title     string `json:"title"`
	FirstName string `json:"firstName"`
	Surname   string `json:"surname"`
}

// ValidateName POST /account/validate/name
func (h *Handler) ValidateName(c echo.Context) error {
	var req nameRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return c.JSON(http.StatusOK, map[string]bool{
		"valid": h.svc.Accounts.ValidateName(req.Title, req.FirstName, req.Surname),
	})
}

// --- Accounts ---

// CreateSystemAdmin POST /account/system-admin
func (h *Handler) CreateSystemAdmin(c echo.Context) error {
	if err := h.authorizeAdmin(c); err != nil {
		return err
	}
	var req domain.SystemAdminRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	result, err := h.svc.Admission.Admit(c.Request().Context(), mw.RequesterID(c), req)
	if err != nil {
		return toHTTPError(err)
	}
	if !result.Admitted() {
		return c.JSON(failureStatus(result.Failure.Reason), result.Failure)
	}
	return c.JSON(http.StatusCreated, result.Account)
}

// CreateAccounts POST /account
func (h *Handler) CreateAccounts(c echo.Context) error {
	var inputs []domain.AccountInput
	if err := c.Bind(&inputs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	result, err := h.svc.Accounts.CreateAccounts(c.Request().Context(), mw.RequesterID(c), inputs)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

// GetAccount GET /account/:id
func (h *Handler) GetAccount(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	identity, err := h.svc.Accounts.GetAccount(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, identity)
}

// ListAccountsByRole GET /account/role/:role
func (h *Handler) ListAccountsByRole(c echo.Context) error {
	if err := h.authorizeAdmin(c); err != nil {
		return err
	}

	identities, err := h.svc.Accounts.ListByRole(c.Request().Context(), c.Param("role"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": identities})
}

type timestampRequest struct {
	At time.Time `json:"at"`
}

// RecordSignIn PUT /account/:id/sign-in
func (h *Handler) RecordSignIn(c echo.Context) error {
	return h.touch(c, h.svc.Accounts.RecordSignIn)
}

// RecordVerification PUT /account/:id/verified
func (h *Handler) RecordVerification(c echo.Context) error {
	return h.touch(c, h.svc.Accounts.RecordVerification)
}

func (h *Handler) touch(c echo.Context, fn func(context.Context, uuid.UUID, time.Time) error) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	// An empty body stamps the current time.
	var req timestampRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := fn(c.Request().Context(), id, req.At); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteAccount DELETE /account/:id
func (h *Handler) DeleteAccount(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.authorizeAdmin(c); err != nil {
		return err
	}

	outcome, err := h.svc.Deletion.DeleteAccount(c.Request().Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, outcome)
}

// RunSweep POST /account/lifecycle/:kind
func (h *Handler) RunSweep(c echo.Context) error {
	if err := h.authorizeAdmin(c); err != nil {
		return err
	}
	kind := domain.SweepKind(c.Param("kind"))

	report, err := h.svc.Lifecycle.RunSweep(c.Request().Context(), kind)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, report)
}

// --- Healthcheck ---

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	if err := h.svc.DB.Ping(c.Request().Context()); err != nil {
		log.Warn().Err(err).Msg("health check: database unreachable")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

func (h *Handler) authorizeAdmin(c echo.Context) error {
	if err := h.svc.Admins.Authorize(c.Request().Context(), mw.RequesterID(c)); err != nil {
		return toHTTPError(err)
	}
	return nil
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, name+" must be a UUID")
	}
	return id, nil
}

func failureStatus(reason domain.FailureReason) int {
	switch reason {
	case domain.FailureDuplicate:
		return http.StatusConflict
	case domain.FailureQuotaExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// toHTTPError maps domain sentinels onto status codes. Anything unrecognised
// is logged and hidden behind a 500.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDuplicate):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrQuotaExceeded):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		return echo.ErrInternalServerError
	}
}
