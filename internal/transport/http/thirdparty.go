package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"vn.io.arda/account/internal/application"
	"vn.io.arda/account/internal/domain"
	"vn.io.arda/account/internal/transport/mw"
)

// ThirdPartyService is implemented by application.ThirdPartyService. Every
// method is gated on the requester.
type ThirdPartyService interface {
	CreateUser(ctx context.Context, requesterID, name string) (*domain.ApiUser, error)
	GetUser(ctx context.Context, requesterID string, userID uuid.UUID) (*domain.ApiUser, error)
	ListUsers(ctx context.Context, requesterID string) ([]*domain.ApiUser, error)
	UpdateUserStatus(ctx context.Context, requesterID string, userID uuid.UUID, status domain.ApiUserStatus) error
	DeleteUser(ctx context.Context, requesterID string, userID uuid.UUID) error

	CreateConfiguration(ctx context.Context, requesterID string, userID uuid.UUID, in application.ConfigurationInput) (*domain.ApiOauthConfiguration, error)
	GetConfiguration(ctx context.Context, requesterID string, userID uuid.UUID) (*domain.ApiOauthConfiguration, error)
	UpdateConfiguration(ctx context.Context, requesterID string, userID uuid.UUID, in application.ConfigurationInput) (*domain.ApiOauthConfiguration, error)

	CreateSubscriptions(ctx context.Context, requesterID string, userID uuid.UUID, in []application.SubscriptionInput) ([]*domain.ApiSubscription, error)
	GetSubscriptions(ctx context.Context, requesterID string, userID uuid.UUID) ([]*domain.ApiSubscription, error)
	UpdateSubscriptions(ctx context.Context, requesterID string, userID uuid.UUID, in []application.SubscriptionInput) ([]*domain.ApiSubscription, error)
}

// CreateThirdPartyUser POST /third-party
func (h *Handler) CreateThirdPartyUser(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.svc.ThirdParty.CreateUser(c.Request().Context(), mw.RequesterID(c), req.Name)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

// ListThirdPartyUsers GET /third-party
func (h *Handler) ListThirdPartyUsers(c echo.Context) error {
	users, err := h.svc.ThirdParty.ListUsers(c.Request().Context(), mw.RequesterID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": users})
}

// GetThirdPartyUser GET /third-party/:id
func (h *Handler) GetThirdPartyUser(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	user, err := h.svc.ThirdParty.GetUser(c.Request().Context(), mw.RequesterID(c), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateThirdPartyStatus PUT /third-party/:id/status
func (h *Handler) UpdateThirdPartyStatus(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Status domain.ApiUserStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if err := h.svc.ThirdParty.UpdateUserStatus(c.Request().Context(), mw.RequesterID(c), id, req.Status); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteThirdPartyUser DELETE /third-party/:id
func (h *Handler) DeleteThirdPartyUser(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.svc.ThirdParty.DeleteUser(c.Request().Context(), mw.RequesterID(c), id); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- OAuth configuration ---

// CreateConfiguration POST /third-party/:id/configuration
func (h *Handler) CreateConfiguration(c echo.Context) error {
	return h.writeConfiguration(c, http.StatusCreated, h.svc.ThirdParty.CreateConfiguration)
}

// UpdateConfiguration PUT /third-party/:id/configuration
func (h *Handler) UpdateConfiguration(c echo.Context) error {
	return h.writeConfiguration(c, http.StatusOK, h.svc.ThirdParty.UpdateConfiguration)
}

type configurationWriter func(context.Context, string, uuid.UUID, application.ConfigurationInput) (*domain.ApiOauthConfiguration, error)

func (h *Handler) writeConfiguration(c echo.Context, status int, fn configurationWriter) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var in application.ConfigurationInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cfg, err := fn(c.Request().Context(), mw.RequesterID(c), id, in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(status, cfg)
}

// GetConfiguration GET /third-party/:id/configuration
func (h *Handler) GetConfiguration(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	cfg, err := h.svc.ThirdParty.GetConfiguration(c.Request().Context(), mw.RequesterID(c), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// --- Subscriptions ---

// CreateSubscriptions POST /third-party/:id/subscriptions
func (h *Handler) CreateSubscriptions(c echo.Context) error {
	return h.writeSubscriptions(c, http.StatusCreated, h.svc.ThirdParty.CreateSubscriptions)
}

// UpdateSubscriptions PUT /third-party/:id/subscriptions
func (h *Handler) UpdateSubscriptions(c echo.Context) error {
	return h.writeSubscriptions(c, http.StatusOK, h.svc.ThirdParty.UpdateSubscriptions)
}

type subscriptionWriter func(context.Context, string, uuid.UUID, []application.SubscriptionInput) ([]*domain.ApiSubscription, error)

func (h *Handler) writeSubscriptions(c echo.Context, status int, fn subscriptionWriter) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var in []application.SubscriptionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	subs, err := fn(c.Request().Context(), mw.RequesterID(c), id, in)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(status, map[string]any{"data": subs})
}

// GetSubscriptions GET /third-party/:id/subscriptions
func (h *Handler) GetSubscriptions(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	subs, err := h.svc.ThirdParty.GetSubscriptions(c.Request().Context(), mw.RequesterID(c), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": subs})
}
