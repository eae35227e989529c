package api

import (
	"net/http"
	"sync"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/99minutos/tracking-service/internal/api/handler"
	"github.com/99minutos/tracking-service/internal/api/middleware"
	"github.com/99minutos/tracking-service/internal/core/ports"

	_ "github.com/99minutos/tracking-service/docs"
)

const (
	roleAdmin   = "admin"
	metricsPath = "/metrics"
)

// requestMetrics registers the HTTP collectors on the default registry once,
// however many routers the process builds.
var requestMetrics = sync.OnceValue(func() echo.MiddlewareFunc {
	return echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem: "tracking",
		Skipper: func(c echo.Context) bool {
			return c.Path() == metricsPath
		},
	})
})

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Service        ports.TrackingService
	Providers      handler.ProviderLister
	ActiveProvider string
	Health         map[string]handler.Pinger
	// JWTSecret enables the admin routes when non-empty.
	JWTSecret string
	Log       zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(requestMetrics())
	e.Use(middleware.HandleErrors())

	// --- Tracking routes ---
	trackingHandler := handler.NewTrackingHandler(d.Service, d.Providers, d.ActiveProvider, d.Log)

	v1 := e.Group("/v1")
	v1.GET("/tracking", trackingHandler.Lookup)
	v1.GET("/tracking/:code", trackingHandler.Get)
	e.GET("/tracking", trackingHandler.Lookup) // legacy path kept for existing clients

	// --- Admin routes (JWT, admin role) ---
	if d.JWTSecret != "" {
		admin := v1.Group("", middleware.Auth(d.JWTSecret), middleware.RBAC(roleAdmin))
		admin.POST("/sweeps", trackingHandler.TriggerSweep)
		admin.GET("/providers", trackingHandler.ListProviders)
	} else {
		d.Log.Warn().Msg("JWT_SECRET not set, admin routes disabled")
	}

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(d.Health)
	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?

	// --- Operations ---
	e.GET(metricsPath, echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/swagger/index.html")
	})

	return e
}
