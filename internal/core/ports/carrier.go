package ports

import (
	"context"
	"time"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

// CarrierProvider fetches tracking data from one carrier.
//
// Implementations return domain.ErrAuthentication when no credential is
// configured and wrap every other failure in domain.ErrUpstream.
type CarrierProvider interface {
	Name() string
	FetchTrackingInfo(ctx context.Context, trackingCode string) (*domain.CarrierResponse, error)
}

// CredentialChecker is implemented by providers that can tell, without a
// request, whether they are configured to authenticate.
type CredentialChecker interface {
	CheckCredentials() error
}

// ResponseCache memoizes carrier responses for a bounded time.
// A miss is reported as (nil, false, nil).
type ResponseCache interface {
	Get(ctx context.Context, trackingCode string) (*domain.CarrierResponse, bool, error)
	Set(ctx context.Context, trackingCode string, resp *domain.CarrierResponse, ttl time.Duration) error
}
