package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

type harness struct {
	provider *stubProvider
	repo     *stubRepo
	notifier *stubNotifier
	svc      *TrackingService
}

func newHarness(opts ...Option) *harness {
	h := &harness{
		provider: newStubProvider(),
		repo:     newStubRepo(),
		notifier: &stubNotifier{},
	}
	// No cache: every reconciliation sees the provider's current answer.
	fetcher := NewFetcher(h.provider, nil, time.Minute, zerolog.Nop())
	h.svc = NewTrackingService(h.repo, fetcher, h.notifier, zerolog.Nop(), opts...)
	return h
}

func (h *harness) pendingCodes(t *testing.T) []string {
	t.Helper()
	pending, err := h.repo.FindPending(context.Background())
	require.NoError(t, err)
	codes := make([]string, 0, len(pending))
	for _, rec := range pending {
		codes = append(codes, rec.TrackingCode)
	}
	sort.Strings(codes)
	return codes
}

// ---------------------------------------------------------------------------
// ReconcileOne
// ---------------------------------------------------------------------------

func TestReconcileOne_CreatesRecordForUnseenCode(t *testing.T) {
	h := newHarness()
	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted, rawDelivered)

	rec, err := h.svc.ReconcileOne(context.Background(), "TRK-1")

	require.NoError(t, err)
	assert.Equal(t, "TRK-1", rec.TrackingCode)
	assert.Equal(t, "carriers", rec.Carrier)
	require.Len(t, rec.Events, 2)
	assert.Equal(t, "Posted", rec.Events[0].Status)
	assert.Equal(t, domain.StatusCodeDelivered, rec.Events[1].StatusCode)
	assert.NotEmpty(t, rec.ID)
	assert.Empty(t, h.notifier.published, "on-demand lookups never notify")
}

func TestReconcileOne_DeliveredCodeLeavesPendingSet(t *testing.T) {
	h := newHarness()
	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted, rawDelivered)

	_, err := h.svc.ReconcileOne(context.Background(), "TRK-1")
	require.NoError(t, err)

	report, err := h.svc.ReconcilePending(context.Background())
	require.NoError(t, err)

	assert.Zero(t, report.Pending)
	assert.Equal(t, 1, h.provider.callCount("TRK-1"), "a delivered code is never polled again")
}

func TestReconcileOne_ReplacesEventsWholesale(t *testing.T) {
	// The carrier always returns the full history, so the stored events are
	// the latest response, never a merge with what was stored before.
	h := newHarness()
	h.repo.seed(&domain.TrackingRecord{
		TrackingCode: "TRK-1",
		Carrier:      "carriers",
		Events: []domain.Event{
			{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Status: "Stale", StatusCode: 9},
		},
	})
	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted, rawInTransit)

	rec, err := h.svc.ReconcileOne(context.Background(), "TRK-1")

	require.NoError(t, err)
	require.Len(t, rec.Events, 2)
	for _, e := range rec.Events {
		assert.NotEqual(t, "Stale", e.Status)
	}
}

func TestReconcileOne_KeepsCarrierOfExistingRecord(t *testing.T) {
	h := newHarness()
	h.repo.seed(&domain.TrackingRecord{TrackingCode: "TRK-1", Carrier: "legacy"})
	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted)

	rec, err := h.svc.ReconcileOne(context.Background(), "TRK-1")

	require.NoError(t, err)
	assert.Equal(t, "legacy", rec.Carrier)
}

func TestReconcileOne_TrimsCode(t *testing.T) {
	h := newHarness()
	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted)

	rec, err := h.svc.ReconcileOne(context.Background(), "  TRK-1 ")

	require.NoError(t, err)
	assert.Equal(t, "TRK-1", rec.TrackingCode)
}

func TestReconcileOne_InvalidCode(t *testing.T) {
	h := newHarness()

	_, err := h.svc.ReconcileOne(context.Background(), "   ")

	assert.ErrorIs(t, err, domain.ErrInvalidTrackingCode)
}

func TestReconcileOne_PropagatesFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		want  error
	}{
		{
			name:  "missing credential",
			setup: func(h *harness) { h.provider.errs["TRK-1"] = domain.ErrAuthentication },
			want:  domain.ErrAuthentication,
		},
		{
			name:  "upstream failure",
			setup: func(h *harness) { h.provider.errs["TRK-1"] = domain.ErrUpstream },
			want:  domain.ErrUpstream,
		},
		{
			name: "malformed carrier date",
			setup: func(h *harness) {
				h.provider.responses["TRK-1"] = carrierResponse("TRK-1", domain.RawEvent{Date: "yesterday"})
			},
			want: domain.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h)

			_, err := h.svc.ReconcileOne(context.Background(), "TRK-1")

			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, h.repo.upserts, "nothing is persisted on failure")
		})
	}
}

func TestReconcileOne_UpsertError(t *testing.T) {
	h := newHarness()
	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted)
	h.repo.upsertErr = errors.New("mongo unavailable")

	_, err := h.svc.ReconcileOne(context.Background(), "TRK-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo unavailable")
}

// ---------------------------------------------------------------------------
// ReconcilePending
// ---------------------------------------------------------------------------

func TestReconcilePending_NotifiesOnStatusChange(t *testing.T) {
	h := newHarness()
	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted)
	_, err := h.svc.ReconcileOne(context.Background(), "TRK-1")
	require.NoError(t, err)

	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted, rawInTransit)
	report, err := h.svc.ReconcilePending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Pending)
	assert.Equal(t, 1, report.Reconciled)
	assert.Equal(t, 1, report.Notified)
	require.Len(t, h.notifier.published, 1)
	published := h.notifier.published[0]
	assert.Equal(t, "TRK-1", published.TrackingCode)
	assert.Len(t, published.Events, 2, "the notification carries the persisted record")
}

func TestReconcilePending_UnchangedResponseNotifiesOnce(t *testing.T) {
	h := newHarness()
	h.repo.seed(&domain.TrackingRecord{TrackingCode: "TRK-1", Carrier: "carriers"})
	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted, rawInTransit)

	for i := 0; i < 2; i++ {
		_, err := h.svc.ReconcilePending(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"TRK-1"}, h.notifier.codes())
	assert.Equal(t, 2, h.repo.upserts, "the record is written on every sweep, changed or not")
}

func TestReconcilePending_FirstObservationIsAChange(t *testing.T) {
	h := newHarness()
	h.repo.seed(&domain.TrackingRecord{TrackingCode: "TRK-1", Carrier: "carriers"})
	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted)

	report, err := h.svc.ReconcilePending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Notified)
}

func TestReconcilePending_IsolatesPerCodeFailures(t *testing.T) {
	h := newHarness()
	for _, code := range []string{"A", "B", "C"} {
		h.repo.seed(&domain.TrackingRecord{TrackingCode: code, Carrier: "carriers"})
	}
	h.provider.responses["A"] = carrierResponse("A", rawPosted)
	h.provider.errs["B"] = domain.ErrUpstream
	h.provider.responses["C"] = carrierResponse("C", rawPosted, rawDelivered)

	report, err := h.svc.ReconcilePending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, report.Pending)
	assert.Equal(t, 2, report.Reconciled)
	assert.Equal(t, 2, report.Notified)
	assert.Equal(t, 1, report.Failed)

	notified := h.notifier.codes()
	sort.Strings(notified)
	assert.Equal(t, []string{"A", "C"}, notified)

	// C is delivered now; B keeps being retried by the next sweeps.
	assert.Equal(t, []string{"A", "B"}, h.pendingCodes(t))
}

func TestReconcilePending_ContinuesAfterNotification(t *testing.T) {
	h := newHarness()
	codes := []string{"A", "B", "C", "D"}
	for _, code := range codes {
		h.repo.seed(&domain.TrackingRecord{TrackingCode: code, Carrier: "carriers"})
		h.provider.responses[code] = carrierResponse(code, rawPosted)
	}

	report, err := h.svc.ReconcilePending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, len(codes), report.Notified)
	for _, code := range codes {
		assert.Equal(t, 1, h.provider.callCount(code), "code %s attempted exactly once", code)
	}
}

func TestReconcilePending_MalformedDateIsIsolated(t *testing.T) {
	h := newHarness()
	h.repo.seed(&domain.TrackingRecord{TrackingCode: "A", Carrier: "carriers"})
	h.repo.seed(&domain.TrackingRecord{TrackingCode: "B", Carrier: "carriers"})
	h.provider.responses["A"] = carrierResponse("A", domain.RawEvent{Date: "not a date"})
	h.provider.responses["B"] = carrierResponse("B", rawPosted)

	report, err := h.svc.ReconcilePending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"B"}, h.notifier.codes())
}

func TestReconcilePending_PublishErrorCountsAsFailure(t *testing.T) {
	h := newHarness()
	h.repo.seed(&domain.TrackingRecord{TrackingCode: "A", Carrier: "carriers"})
	h.provider.responses["A"] = carrierResponse("A", rawPosted)
	h.notifier.err = errors.New("kafka: leader not available")

	report, err := h.svc.ReconcilePending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Notified)

	rec, err := h.repo.FindByCode(context.Background(), "A")
	require.NoError(t, err)
	assert.Len(t, rec.Events, 1, "the upsert happens before publishing")
}

func TestReconcilePending_NoPendingRecords(t *testing.T) {
	h := newHarness()

	report, err := h.svc.ReconcilePending(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.Pending)
	assert.NotEmpty(t, report.SweepID)
}

func TestReconcilePending_RejectsOverlappingSweep(t *testing.T) {
	h := newHarness()
	entered := make(chan struct{})
	release := make(chan struct{})
	h.repo.pendingFn = func(context.Context) {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := h.svc.ReconcilePending(context.Background())
		done <- err
	}()
	<-entered

	_, err := h.svc.ReconcilePending(context.Background())
	assert.ErrorIs(t, err, domain.ErrSweepInProgress)

	close(release)
	require.NoError(t, <-done)

	h.repo.pendingFn = nil
	_, err = h.svc.ReconcilePending(context.Background())
	assert.NoError(t, err, "a new sweep may start once the previous one finished")
}

func TestReconcilePending_DedupSkipsAlreadyNotifiedChange(t *testing.T) {
	dedup := &stubDedup{}
	h := newHarness(WithDedup(dedup))
	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted)

	// Another process already notified this exact change.
	latest, _ := domain.LatestEvent(mustNormalize(t, rawPosted))
	_, err := dedup.Claim(context.Background(), "TRK-1", latest)
	require.NoError(t, err)

	h.repo.seed(&domain.TrackingRecord{TrackingCode: "TRK-1", Carrier: "carriers"})
	report, err := h.svc.ReconcilePending(context.Background())

	require.NoError(t, err)
	assert.Zero(t, report.Notified)
	assert.Equal(t, 1, report.Reconciled)
	assert.Empty(t, h.notifier.published)
}

func TestReconcilePending_DedupErrorStillPublishes(t *testing.T) {
	h := newHarness(WithDedup(&stubDedup{err: errors.New("redis down")}))
	h.repo.seed(&domain.TrackingRecord{TrackingCode: "TRK-1", Carrier: "carriers"})
	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted)

	report, err := h.svc.ReconcilePending(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Notified)
}

type recordingFanout struct {
	keys []string
}

func (f *recordingFanout) Run(ctx context.Context, keys []string, fn func(context.Context, int)) {
	f.keys = append(f.keys, keys...)
	sequential{}.Run(ctx, keys, fn)
}

func TestReconcilePending_UsesFanout(t *testing.T) {
	fanout := &recordingFanout{}
	h := newHarness(WithFanout(fanout))
	h.repo.seed(&domain.TrackingRecord{TrackingCode: "A", Carrier: "carriers"})
	h.repo.seed(&domain.TrackingRecord{TrackingCode: "B", Carrier: "carriers"})
	h.provider.responses["A"] = carrierResponse("A", rawPosted)
	h.provider.responses["B"] = carrierResponse("B", rawPosted)

	_, err := h.svc.ReconcilePending(context.Background())
	require.NoError(t, err)

	sort.Strings(fanout.keys)
	assert.Equal(t, []string{"A", "B"}, fanout.keys)
}

func TestReconcile_LookupWaitsForSweepOfSameCode(t *testing.T) {
	h := newHarness()
	h.repo.seed(&domain.TrackingRecord{TrackingCode: "TRK-1", Carrier: "carriers"})
	h.provider.responses["TRK-1"] = carrierResponse("TRK-1", rawPosted)

	var (
		mu                   sync.Mutex
		fetches              int
		upsertsAtSecondFetch = -1
	)
	sweepFetching := make(chan struct{})
	release := make(chan struct{})
	h.provider.gate = func(code string) {
		mu.Lock()
		fetches++
		n := fetches
		mu.Unlock()

		if n == 1 {
			close(sweepFetching)
			<-release
			return
		}
		h.repo.mu.Lock()
		upsertsAtSecondFetch = h.repo.upserts
		h.repo.mu.Unlock()

		// The carrier moved on between the two fetches.
		h.provider.mu.Lock()
		h.provider.responses[code] = carrierResponse(code, rawPosted, rawInTransit)
		h.provider.mu.Unlock()
	}

	sweepDone := make(chan error, 1)
	go func() {
		_, err := h.svc.ReconcilePending(context.Background())
		sweepDone <- err
	}()
	<-sweepFetching

	type lookupResult struct {
		rec *domain.TrackingRecord
		err error
	}
	lookupDone := make(chan lookupResult, 1)
	go func() {
		rec, err := h.svc.ReconcileOne(context.Background(), "TRK-1")
		lookupDone <- lookupResult{rec, err}
	}()

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, fetches, "lookup must not fetch while the sweep holds the code")
	mu.Unlock()

	close(release)
	require.NoError(t, <-sweepDone)
	res := <-lookupDone
	require.NoError(t, res.err)

	assert.Equal(t, 1, upsertsAtSecondFetch, "second fetch must start after the sweep's upsert")

	want := mustNormalize(t, rawPosted, rawInTransit)
	assert.Equal(t, want, res.rec.Events)
	stored, err := h.repo.FindByCode(context.Background(), "TRK-1")
	require.NoError(t, err)
	assert.Equal(t, want, stored.Events, "last write reflects the most recent fetch")
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

func TestGet(t *testing.T) {
	h := newHarness()
	h.repo.seed(&domain.TrackingRecord{TrackingCode: "TRK-1", Carrier: "carriers"})

	rec, err := h.svc.Get(context.Background(), "TRK-1")
	require.NoError(t, err)
	assert.Equal(t, "TRK-1", rec.TrackingCode)
	assert.Zero(t, h.provider.callCount("TRK-1"))

	_, err = h.svc.Get(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrTrackingNotFound)

	_, err = h.svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidTrackingCode)
}

func mustNormalize(t *testing.T, raw ...domain.RawEvent) []domain.Event {
	t.Helper()
	events, err := NormalizeEvents(raw, time.UTC)
	require.NoError(t, err)
	return events
}
