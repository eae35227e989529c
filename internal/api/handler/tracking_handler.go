package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/tracking-service/internal/core/domain"
	"github.com/99minutos/tracking-service/internal/core/ports"
)

// ProviderLister exposes the registered carrier provider names.
type ProviderLister interface {
	Names() []string
}

// TrackingHandler handles HTTP requests for tracking operations.
type TrackingHandler struct {
	service   ports.TrackingService
	providers ProviderLister
	active    string
	log       zerolog.Logger
}

func NewTrackingHandler(service ports.TrackingService, providers ProviderLister, active string, log zerolog.Logger) *TrackingHandler {
	return &TrackingHandler{service: service, providers: providers, active: active, log: log}
}

// Lookup godoc
// @Summary      Reconcile a tracking code
// @Description  Fetches the carrier state of the code, stores it and returns the stored record.
// @Tags         tracking
// @Produce      json
// @Param        code  query     string  true  "Tracking code"
// @Success      200   {object}  trackingResponse
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /v1/tracking [get]
func (h *TrackingHandler) Lookup(c echo.Context) error {
	values := queryValues(c, "code")
	if len(values) != 1 {
		return domain.ErrInvalidTrackingCode
	}

	req := trackingCodeRequest{Code: values[0]}
	if err := c.Validate(&req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidTrackingCode, err)
	}

	rec, err := h.service.ReconcileOne(c.Request().Context(), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTrackingResponse(rec))
}

// Get godoc
// @Summary      Get a stored tracking record
// @Description  Returns the last reconciled state without contacting the carrier.
// @Tags         tracking
// @Produce      json
// @Param        code  path      string  true  "Tracking code"
// @Success      200   {object}  trackingResponse
// @Failure      404   {object}  map[string]string
// @Router       /v1/tracking/{code} [get]
func (h *TrackingHandler) Get(c echo.Context) error {
	req := trackingCodeRequest{Code: c.Param("code")}
	if err := c.Validate(&req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidTrackingCode, err)
	}

	rec, err := h.service.Get(c.Request().Context(), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTrackingResponse(rec))
}

// TriggerSweep godoc
// @Summary      Run a sweep now
// @Description  Reconciles every pending record and reports the outcome.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  sweepResponse
// @Failure      409  {object}  map[string]string
// @Router       /v1/sweeps [post]
func (h *TrackingHandler) TriggerSweep(c echo.Context) error {
	username, _, err := ctxSubject(c)
	if err != nil {
		return err
	}

	report, err := h.service.ReconcilePending(c.Request().Context())
	if err != nil {
		return err
	}

	h.log.Info().
		Str("username", username).
		Str("sweep_id", report.SweepID).
		Msg("sweep triggered over http")

	return c.JSON(http.StatusOK, toSweepResponse(report))
}

// ListProviders godoc
// @Summary      List carrier providers
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  providersResponse
// @Router       /v1/providers [get]
func (h *TrackingHandler) ListProviders(c echo.Context) error {
	if _, _, err := ctxSubject(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, providersResponse{
		Active:    h.active,
		Providers: h.providers.Names(),
	})
}
