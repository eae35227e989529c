package carrier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/tracking-service/internal/core/domain"
	"github.com/99minutos/tracking-service/internal/infrastructure/metrics"
)

// CarriersName is the registry name of the built-in provider.
const CarriersName = "carriers"

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 512
)

// Config captures the settings of the Carriers tracking API.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// CarriersProvider calls GET {BaseURL}/Tracking/{code} with a bearer token
// and validates the answer against the carrier schema.
type CarriersProvider struct {
	baseURL string
	token   string
	client  *http.Client
	log     zerolog.Logger
}

// NewCarriersProvider returns a provider for cfg. A default timeout is
// applied when none is provided.
func NewCarriersProvider(cfg Config, log zerolog.Logger) *CarriersProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &CarriersProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (p *CarriersProvider) Name() string {
	return CarriersName
}

// CheckCredentials reports domain.ErrAuthentication when no token is set.
func (p *CarriersProvider) CheckCredentials() error {
	if p.token == "" {
		return domain.ErrAuthentication
	}
	return nil
}

// FetchTrackingInfo returns the validated tracking payload for trackingCode.
func (p *CarriersProvider) FetchTrackingInfo(ctx context.Context, trackingCode string) (resp *domain.CarrierResponse, err error) {
	if err := p.CheckCredentials(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.CarrierRequestDuration.WithLabelValues(CarriersName, result).Observe(time.Since(start).Seconds())
	}()

	payload, err := p.get(ctx, trackingCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrUpstream, CarriersName, err)
	}
	if err := validatePayload(payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrUpstream, CarriersName, err)
	}

	p.log.Debug().
		Str("tracking_code", trackingCode).
		Int("events", len(payload.Eventos)).
		Dur("took", time.Since(start)).
		Msg("carrier tracking fetched")

	return payload.toDomain(), nil
}

func (p *CarriersProvider) get(ctx context.Context, trackingCode string) (*trackingPayload, error) {
	endpoint := p.baseURL + "/Tracking/" + url.PathEscape(trackingCode)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Accept", "application/json")

	res, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(res.Body)

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		return nil, fmt.Errorf("unexpected status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload trackingPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrValidation, err)
	}
	return &payload, nil
}
