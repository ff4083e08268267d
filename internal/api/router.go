package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/Hdiignna-DEV/mpt-warrior-sub003/docs"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/api/handler"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/api/middleware"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/domain"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/core/ports"
	"github.com/Hdiignna-DEV/mpt-warrior-sub003/internal/infrastructure/http/handlers"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Accounts ports.AccountService
	Ledger   ports.LedgerService
	Stats    ports.StatsService
	Audit    ports.AuditService
	Tokens   ports.TokenVerifier
	Finder   ports.AccountFinder

	Cookie    handler.CookieOptions
	RateLimit float64
	RateBurst int

	HealthChecks map[string]handlers.CheckFunc
	Version      string
	Log          zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
// It registers Prometheus collectors, so build it once per process.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddleware("mpt"))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Accounts, d.Cookie)
	invitationHandler := handler.NewInvitationHandler(d.Ledger)
	adminHandler := handler.NewAdminHandler(d.Accounts, d.Stats, d.Audit)

	authn := middleware.Auth(d.Tokens)
	limiter := middleware.RateLimit(d.RateLimit, d.RateBurst)
	superAdmin := middleware.Require(d.Finder, domain.RoleSuperAdmin, domain.StatusActive)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register, limiter)
	auth.POST("/login", authHandler.Login, limiter)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/check-status", authHandler.CheckStatus, limiter)
	auth.GET("/me", authHandler.Me, authn)

	e.POST("/invitations/validate", invitationHandler.Validate, limiter)

	// --- Back office: live ADMIN+ and active for everything below ---
	admin := e.Group("/admin", authn, middleware.Require(d.Finder, domain.RoleAdmin, domain.StatusActive))

	admin.GET("/pending-users", adminHandler.PendingUsers)
	admin.GET("/users/:id", adminHandler.GetUser)
	admin.POST("/approve-user", adminHandler.Approve)
	admin.POST("/reject-user", adminHandler.Reject)
	admin.POST("/suspend-user", adminHandler.Suspend)
	admin.POST("/promote-user", adminHandler.Promote, superAdmin)
	admin.POST("/mark-founder", adminHandler.MarkFounder, superAdmin)

	admin.POST("/generate-code", invitationHandler.Generate)
	admin.POST("/invitations/generate", invitationHandler.GenerateInvitation)
	admin.POST("/legacy-code", invitationHandler.CreateLegacy, superAdmin)
	admin.GET("/codes", invitationHandler.List)
	admin.PATCH("/codes/:code", invitationHandler.Edit)
	admin.POST("/codes/:code/deactivate", invitationHandler.Deactivate)
	admin.DELETE("/codes/:code", invitationHandler.Delete, superAdmin)

	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/audit-logs", adminHandler.AuditLogs, superAdmin)

	// --- Health probes, metrics and docs (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler(d.Version).Liveness)
	e.GET("/health/ready", handlers.NewHealthDependenciesHandler(d.HealthChecks).Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
