package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/tracking-service/internal/core/domain"
	"github.com/99minutos/tracking-service/internal/core/ports"
	"github.com/99minutos/tracking-service/internal/infrastructure/metrics"
)

const (
	triggerLookup = "lookup"
	triggerSweep  = "sweep"
)

// Fanout runs fn once for every index of keys. Implementations may run calls
// concurrently but must attempt every key exactly once.
type Fanout interface {
	Run(ctx context.Context, keys []string, fn func(ctx context.Context, i int))
}

type sequential struct{}

func (sequential) Run(ctx context.Context, keys []string, fn func(ctx context.Context, i int)) {
	for i := range keys {
		fn(ctx, i)
	}
}

// Option configures optional TrackingService collaborators.
type Option func(*TrackingService)

// WithDedup guards notifications with a cross-process claim.
func WithDedup(d ports.NotificationDedup) Option {
	return func(s *TrackingService) { s.dedup = d }
}

// WithFanout replaces the default sequential sweep loop.
func WithFanout(f Fanout) Option {
	return func(s *TrackingService) {
		if f != nil {
			s.fanout = f
		}
	}
}

// WithLocation sets the time zone carrier dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *TrackingService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// TrackingService reconciles carrier state with the tracking store.
type TrackingService struct {
	repo     ports.TrackingRepository
	fetcher  *Fetcher
	notifier ports.Notifier
	dedup    ports.NotificationDedup
	fanout   Fanout
	loc      *time.Location
	locks    *KeyedMutex
	sweeping atomic.Bool
	log      zerolog.Logger
}

// NewTrackingService returns a TrackingService.
func NewTrackingService(
	repo ports.TrackingRepository,
	fetcher *Fetcher,
	notifier ports.Notifier,
	log zerolog.Logger,
	opts ...Option,
) *TrackingService {
	s := &TrackingService{
		repo:     repo,
		fetcher:  fetcher,
		notifier: notifier,
		fanout:   sequential{},
		loc:      time.UTC,
		locks:    NewKeyedMutex(),
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored record for trackingCode.
func (s *TrackingService) Get(ctx context.Context, trackingCode string) (*domain.TrackingRecord, error) {
	code, err := cleanCode(trackingCode)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByCode(ctx, code)
}

// ReconcileOne fetches the carrier state of trackingCode, stores it and
// returns the stored record. The stored events always reflect the latest
// fetch, changed or not.
func (s *TrackingService) ReconcileOne(ctx context.Context, trackingCode string) (*domain.TrackingRecord, error) {
	code, err := cleanCode(trackingCode)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(code)
	defer unlock()

	start := time.Now()
	defer func() {
		metrics.ReconciliationDuration.WithLabelValues(triggerLookup).Observe(time.Since(start).Seconds())
	}()

	events, err := s.fetchEvents(ctx, code)
	if err != nil {
		metrics.ReconciliationsTotal.WithLabelValues(triggerLookup, "error").Inc()
		return nil, fmt.Errorf("reconcile %s: %w", code, err)
	}

	existing, err := s.repo.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, domain.ErrTrackingNotFound) {
		metrics.ReconciliationsTotal.WithLabelValues(triggerLookup, "error").Inc()
		return nil, fmt.Errorf("reconcile %s: load: %w", code, err)
	}

	saved, err := s.upsert(ctx, code, existing, events)
	if err != nil {
		metrics.ReconciliationsTotal.WithLabelValues(triggerLookup, "error").Inc()
		return nil, fmt.Errorf("reconcile %s: %w", code, err)
	}

	var stored []domain.Event
	if existing != nil {
		stored = existing.Events
	}
	changed, _ := domain.DetectChange(stored, events)
	metrics.ReconciliationsTotal.WithLabelValues(triggerLookup, changeLabel(changed)).Inc()

	s.log.Info().
		Str("tracking_code", code).
		Bool("created", existing == nil).
		Int("events", len(saved.Events)).
		Msg("tracking reconciled on demand")

	return saved, nil
}

// ReconcilePending runs one sweep. Every pending code is attempted once; a
// failure on one code is logged and counted, it never stops the others.
// Only one sweep runs at a time per service; an overlapping call returns
// domain.ErrSweepInProgress.
func (s *TrackingService) ReconcilePending(ctx context.Context) (*ports.SweepReport, error) {
	if !s.sweeping.CompareAndSwap(false, true) {
		metrics.SweepsTotal.WithLabelValues("skipped").Inc()
		return nil, domain.ErrSweepInProgress
	}
	defer s.sweeping.Store(false)

	report := &ports.SweepReport{SweepID: uuid.NewString(), StartedAt: time.Now().UTC()}
	log := s.log.With().Str("sweep_id", report.SweepID).Logger()

	pending, err := s.repo.FindPending(ctx)
	if err != nil {
		metrics.SweepsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("reconcile pending: %w", err)
	}
	report.Pending = len(pending)
	metrics.PendingRecords.Set(float64(len(pending)))

	if len(pending) == 0 {
		log.Info().Msg("no pending tracking codes")
		metrics.SweepsTotal.WithLabelValues("completed").Inc()
		return report, nil
	}

	codes := make([]string, len(pending))
	for i, rec := range pending {
		codes[i] = rec.TrackingCode
	}

	var mu sync.Mutex
	s.fanout.Run(ctx, codes, func(ctx context.Context, i int) {
		notified, err := s.reconcilePending(ctx, pending[i], log)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			report.Failed++
			log.Error().Err(err).Str("tracking_code", codes[i]).Msg("reconciliation failed")
			return
		}
		report.Reconciled++
		if notified {
			report.Notified++
		}
	})

	report.Duration = time.Since(report.StartedAt)
	metrics.SweepDuration.Observe(report.Duration.Seconds())
	metrics.SweepsTotal.WithLabelValues("completed").Inc()

	log.Info().
		Int("pending", report.Pending).
		Int("reconciled", report.Reconciled).
		Int("notified", report.Notified).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("sweep finished")

	return report, nil
}

// reconcilePending refreshes one pending record, comparing against the
// events it held when the sweep selected it.
func (s *TrackingService) reconcilePending(ctx context.Context, rec *domain.TrackingRecord, log zerolog.Logger) (notified bool, err error) {
	code := rec.TrackingCode

	unlock := s.locks.Lock(code)
	defer unlock()

	start := time.Now()
	defer func() {
		metrics.ReconciliationDuration.WithLabelValues(triggerSweep).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ReconciliationsTotal.WithLabelValues(triggerSweep, "error").Inc()
		}
	}()

	log.Debug().Str("tracking_code", code).Msg("reconciling")

	events, err := s.fetchEvents(ctx, code)
	if err != nil {
		return false, err
	}

	changed, latest := domain.DetectChange(rec.Events, events)

	saved, err := s.upsert(ctx, code, rec, events)
	if err != nil {
		return false, err
	}
	metrics.ReconciliationsTotal.WithLabelValues(triggerSweep, changeLabel(changed)).Inc()

	if !changed {
		log.Debug().Str("tracking_code", code).Msg("status unchanged")
		return false, nil
	}

	if s.dedup != nil {
		first, err := s.dedup.Claim(ctx, code, latest)
		if err != nil {
			log.Warn().Err(err).Str("tracking_code", code).Msg("notification dedup failed, publishing anyway")
		} else if !first {
			metrics.NotificationsTotal.WithLabelValues("duplicate").Inc()
			log.Debug().Str("tracking_code", code).Msg("status change already notified")
			return false, nil
		}
	}

	if err := s.notifier.Publish(ctx, saved); err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		return false, fmt.Errorf("publish %s: %w", code, err)
	}
	metrics.NotificationsTotal.WithLabelValues("published").Inc()

	log.Info().
		Str("tracking_code", code).
		Str("status", latest.Status).
		Int("status_code", latest.StatusCode).
		Msg("status changed, notification published")

	return true, nil
}

func (s *TrackingService) fetchEvents(ctx context.Context, code string) ([]domain.Event, error) {
	resp, err := s.fetcher.Fetch(ctx, code)
	if err != nil {
		return nil, err
	}
	return NormalizeEvents(resp.Events, s.loc)
}

// upsert replaces the events of existing (or creates a record when nil).
// The carrier is the fetching provider's name on creation and immutable after.
func (s *TrackingService) upsert(ctx context.Context, code string, existing *domain.TrackingRecord, events []domain.Event) (*domain.TrackingRecord, error) {
	rec := &domain.TrackingRecord{
		TrackingCode: code,
		Carrier:      s.fetcher.ProviderName(),
		Events:       events,
	}
	if existing != nil {
		rec.ID = existing.ID
		rec.Carrier = existing.Carrier
		rec.CreatedAt = existing.CreatedAt
	}

	saved, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("upsert: %w", err)
	}
	return saved, nil
}

func cleanCode(trackingCode string) (string, error) {
	code := strings.TrimSpace(trackingCode)
	if code == "" {
		return "", domain.ErrInvalidTrackingCode
	}
	return code, nil
}

func changeLabel(changed bool) string {
	if changed {
		return "changed"
	}
	return "unchanged"
}
