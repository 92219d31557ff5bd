package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"vn.io.arda/account/internal/metrics"
	"vn.io.arda/account/internal/transport/mw"
)

// NewRouter sets up all Echo routes and middleware.
func NewRouter(h *Handler, jwtSecret string, gatherer prometheus.Gatherer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	// No auth required
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))

	api := e.Group("")
	api.Use(mw.JWTAuth(jwtSecret))

	account := api.Group("/account")
	account.POST("/validate/role-provenance", h.ValidateRoleProvenance)
	account.POST("/validate/name", h.ValidateName)
	account.POST("/system-admin", h.CreateSystemAdmin)
	account.POST("", h.CreateAccounts)
	account.GET("/role/:role", h.ListAccountsByRole)
	account.GET("/:id", h.GetAccount)
	account.PUT("/:id/sign-in", h.RecordSignIn)
	account.PUT("/:id/verified", h.RecordVerification)
	account.DELETE("/:id", h.DeleteAccount)
	account.POST("/lifecycle/:kind", h.RunSweep)

	tp := api.Group("/third-party")
	tp.POST("", h.CreateThirdPartyUser)
	tp.GET("", h.ListThirdPartyUsers)
	tp.GET("/:id", h.GetThirdPartyUser)
	tp.PUT("/:id/status", h.UpdateThirdPartyStatus)
	tp.DELETE("/:id", h.DeleteThirdPartyUser)
	tp.POST("/:id/configuration", h.CreateConfiguration)
	tp.GET("/:id/configuration", h.GetConfiguration)
	tp.PUT("/:id/configuration", h.UpdateConfiguration)
	tp.POST("/:id/subscriptions", h.CreateSubscriptions)
	tp.GET("/:id/subscriptions", h.GetSubscriptions)
	tp.PUT("/:id/subscriptions", h.UpdateSubscriptions)

	return e
}
