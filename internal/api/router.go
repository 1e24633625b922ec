package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/hikari-health/auth-core/docs"
	"github.com/hikari-health/auth-core/internal/api/handler"
	"github.com/hikari-health/auth-core/internal/api/middleware"
	"github.com/hikari-health/auth-core/internal/core/domain"
	"github.com/hikari-health/auth-core/internal/core/ports"
	"github.com/hikari-health/auth-core/internal/infrastructure/http/handlers"
)

const (
	metricsNamespace = "hikari_auth"
	bodyLimit        = "1M"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Sessions ports.SessionService
	Issuer   ports.TokenIssuer
	Captcha  ports.CaptchaVerifier
	Counter  ports.RateCounter
	Audit    ports.AuditSink
	Checks   []handlers.Check
	Logger   zerolog.Logger

	// Registry receives the HTTP request metrics and backs /metrics.
	// Nil means the prometheus default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echomiddleware.Secure())
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(metricsConfig(d.Registry)))

	authHandler := handler.NewAuthHandler(d.Sessions, d.Captcha)
	authenticate := middleware.Authenticate(d.Issuer, d.Sessions)
	limit := func(p middleware.Policy) echo.MiddlewareFunc {
		return middleware.RateLimit(d.Counter, p, d.Logger)
	}

	// --- Auth routes ---
	// Audit wraps everything so rejected requests are recorded too.
	auth := e.Group("/auth", middleware.Audit(d.Audit), middleware.Sanitize())
	auth.POST("/login", authHandler.Login, limit(middleware.LoginPolicy))
	auth.POST("/register", authHandler.Register, limit(middleware.RegisterPolicy))
	auth.POST("/tenant", authHandler.CreateTenant, limit(middleware.TenantPolicy))
	auth.POST("/refresh", authHandler.Refresh, limit(middleware.RefreshPolicy))
	auth.POST("/logout", authHandler.Logout, limit(middleware.DefaultPolicy))
	auth.POST("/logout-all", authHandler.LogoutAll, authenticate, limit(middleware.DefaultPolicy))
	auth.GET("/profile", authHandler.Profile, authenticate, limit(middleware.DefaultPolicy))
	auth.GET("/sessions", authHandler.Sessions, authenticate, limit(middleware.DefaultPolicy))

	// --- Tenant routes ---
	tenants := e.Group("/tenants", middleware.Audit(d.Audit), middleware.Sanitize())
	tenants.GET("/:tenantId/permissions", authHandler.TenantPermissions,
		authenticate,
		limit(middleware.DefaultPolicy),
		middleware.TenantIsolation(d.Logger),
		middleware.RequireRoles(domain.RoleAdmin),
	)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Checks...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: gatherer(d.Registry),
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func metricsConfig(reg *prometheus.Registry) echoprometheus.MiddlewareConfig {
	cfg := echoprometheus.MiddlewareConfig{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/metrics" || strings.HasPrefix(p, "/health") || strings.HasPrefix(p, "/swagger")
		},
	}
	if reg != nil {
		cfg.Registerer = reg
	}
	return cfg
}

func gatherer(reg *prometheus.Registry) prometheus.Gatherer {
	if reg == nil {
		return prometheus.DefaultGatherer
	}
	return reg
}

// requestLogger feeds one access line per request into zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
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
