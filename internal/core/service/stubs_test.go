package service

import (
	"context"
	"sync"
	"time"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Carrier provider stub
// ---------------------------------------------------------------------------

type stubProvider struct {
	mu        sync.Mutex
	name      string
	responses map[string]*domain.CarrierResponse
	errs      map[string]error
	calls     map[string]int
	// noCredentials makes CheckCredentials fail.
	noCredentials bool
	// gate, when set, is called on every fetch before the answer is read.
	gate func(code string)
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		name:      "carriers",
		responses: make(map[string]*domain.CarrierResponse),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) CheckCredentials() error {
	if p.noCredentials {
		return domain.ErrAuthentication
	}
	return nil
}

func (p *stubProvider) FetchTrackingInfo(_ context.Context, code string) (*domain.CarrierResponse, error) {
	if p.gate != nil {
		p.gate(code)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[code]++
	if err, ok := p.errs[code]; ok {
		return nil, err
	}
	resp, ok := p.responses[code]
	if !ok {
		return nil, domain.ErrUpstream
	}
	clone := *resp
	clone.Events = append([]domain.RawEvent(nil), resp.Events...)
	return &clone, nil
}

func (p *stubProvider) callCount(code string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[code]
}

// ---------------------------------------------------------------------------
// In-memory TTL cache
// ---------------------------------------------------------------------------

type cacheEntry struct {
	resp    domain.CarrierResponse
	expires time.Time
}

type memCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]cacheEntry
	getErr  error
	setErr  error
	sets    int
}

func newMemCache(now func() time.Time) *memCache {
	return &memCache{now: now, entries: make(map[string]cacheEntry)}
}

func (c *memCache) Get(_ context.Context, code string) (*domain.CarrierResponse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	e, ok := c.entries[code]
	if !ok || !c.now().Before(e.expires) {
		return nil, false, nil
	}
	resp := e.resp
	return &resp, true, nil
}

func (c *memCache) Set(_ context.Context, code string, resp *domain.CarrierResponse, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[code] = cacheEntry{resp: *resp, expires: c.now().Add(ttl)}
	return nil
}

// ---------------------------------------------------------------------------
// In-memory repository (mirrors the Mongo upsert semantics)
// ---------------------------------------------------------------------------

type stubRepo struct {
	mu        sync.Mutex
	byCode    map[string]*domain.TrackingRecord
	upserts   int
	upsertErr error
	pendingFn func(ctx context.Context) // runs before FindPending returns
}

func newStubRepo() *stubRepo {
	return &stubRepo{byCode: make(map[string]*domain.TrackingRecord)}
}

func (r *stubRepo) FindByCode(_ context.Context, code string) (*domain.TrackingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byCode[code]
	if !ok {
		return nil, domain.ErrTrackingNotFound
	}
	return cloneRecord(rec), nil
}

func (r *stubRepo) Upsert(_ context.Context, rec *domain.TrackingRecord) (*domain.TrackingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return nil, r.upsertErr
	}
	r.upserts++
	now := time.Now().UTC()
	stored, ok := r.byCode[rec.TrackingCode]
	if !ok {
		stored = &domain.TrackingRecord{
			ID:           rec.TrackingCode + "-id",
			TrackingCode: rec.TrackingCode,
			Carrier:      rec.Carrier,
			CreatedAt:    now,
		}
		r.byCode[rec.TrackingCode] = stored
	}
	stored.Events = append([]domain.Event(nil), rec.Events...)
	stored.UpdatedAt = now
	return cloneRecord(stored), nil
}

func (r *stubRepo) FindPending(ctx context.Context) ([]*domain.TrackingRecord, error) {
	if r.pendingFn != nil {
		r.pendingFn(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.TrackingRecord
	for _, rec := range r.byCode {
		if !rec.Delivered() {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

func (r *stubRepo) seed(rec *domain.TrackingRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCode[rec.TrackingCode] = cloneRecord(rec)
}

func cloneRecord(rec *domain.TrackingRecord) *domain.TrackingRecord {
	clone := *rec
	clone.Events = append([]domain.Event(nil), rec.Events...)
	return &clone
}

// ---------------------------------------------------------------------------
// Notifier and dedup stubs
// ---------------------------------------------------------------------------

type stubNotifier struct {
	mu        sync.Mutex
	published []*domain.TrackingRecord
	err       error
}

func (n *stubNotifier) Publish(_ context.Context, rec *domain.TrackingRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.published = append(n.published, cloneRecord(rec))
	return nil
}

func (n *stubNotifier) codes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.published))
	for _, rec := range n.published {
		out = append(out, rec.TrackingCode)
	}
	return out
}

type stubDedup struct {
	mu      sync.Mutex
	claimed map[string]bool
	err     error
}

func (d *stubDedup) Claim(_ context.Context, code string, latest domain.Event) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.claimed == nil {
		d.claimed = make(map[string]bool)
	}
	key := code + ":" + latest.Status + ":" + latest.Timestamp.String()
	if d.claimed[key] {
		return false, nil
	}
	d.claimed[key] = true
	return true, nil
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

func carrierResponse(code string, events ...domain.RawEvent) *domain.CarrierResponse {
	return &domain.CarrierResponse{
		ClientOrderID: code,
		TrackingCode:  code,
		TrackingURL:   "https://track.example.com/" + code,
		ProtocolURL:   "https://track.example.com/protocol/" + code,
		Events:        events,
	}
}

var (
	rawPosted    = domain.RawEvent{Date: "24-12-2024 09:00:00", Status: "POSTED", StatusID: 1, Description: "Posted"}
	rawInTransit = domain.RawEvent{Date: "24-12-2024 18:15:00", Status: "TRANSIT", StatusID: 2, Description: "In transit"}
	rawDelivered = domain.RawEvent{Date: "25-12-2024 14:30:00", Status: "DELIVERED", StatusID: domain.StatusCodeDelivered, Description: "Delivered"}
)
