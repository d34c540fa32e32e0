package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbruni/weekendfly/config"
	"github.com/tbruni/weekendfly/db"
	"github.com/tbruni/weekendfly/engine"
	"github.com/tbruni/weekendfly/fares"
	"github.com/tbruni/weekendfly/metro"
	"github.com/tbruni/weekendfly/pkg/notify"
)

// emptySource serves no fares; enough for scheduling tests, which only care
// about dispatch and bookkeeping.
type emptySource struct{}

func (emptySource) OneWayFares(ctx context.Context, origin, destination string, from, to time.Time, party int) ([]fares.Leg, error) {
	return nil, nil
}

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.New(config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	require.NoError(t, d.InitSchema())
	t.Cleanup(func() { d.Close() })
	return d
}

func newTestScheduler(t *testing.T, d *db.DB) *Scheduler {
	t.Helper()
	client := notify.NewClient(notify.Config{Enabled: false})
	notifier := engine.NewNotifier(client, config.NTFYConfig{})
	orchestrator := engine.NewOrchestrator(d,
		engine.NewHarvester(d, emptySource{}, config.ScanConfig{Cooldown: 30 * time.Minute, LookupHorizonDays: 120}),
		engine.NewMatcher(metro.New(100), config.MatchConfig{HourTolerance: 1}),
		notifier,
	)
	return NewScheduler(d, orchestrator, notifier,
		config.WorkerConfig{
			UpdateInterval:  3 * time.Hour,
			MaxWorkers:      3,
			DigestHour:      8,
			ShutdownTimeout: 5 * time.Second,
		},
		config.ScanConfig{FlightStaleness: 24 * time.Hour},
	)
}

func saveProfile(t *testing.T, d *db.DB, name string) *db.SearchProfile {
	t.Helper()
	p := &db.SearchProfile{
		Name:       name,
		Origins:    []string{"PSA"},
		Party:      1,
		MaxPricePP: 100,
		Strategy: db.Strategy{
			MinNights: 2,
			MaxNights: 3,
			OutDays:   map[int]db.HourWindow{4: {From: 17, To: 24}},
			InDays:    map[int]db.HourWindow{6: {From: 15, To: 23}},
		},
		Active: true,
	}
	require.NoError(t, d.Store().SaveProfile(context.Background(), p))
	return p
}

func TestDispatchProcessesDueProfiles(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	fresh := saveProfile(t, d, "fresh")
	stale := saveProfile(t, d, "stale")

	// One profile was processed moments ago and is not due.
	require.NoError(t, d.Store().StampProfile(ctx, fresh.ID, time.Now()))
	require.NoError(t, d.Store().StampProfile(ctx, stale.ID, time.Now().Add(-4*time.Hour)))

	s := newTestScheduler(t, d)
	s.dispatch(ctx)

	got, err := d.Store().ProfileByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), got.UpdatedAt, time.Minute)

	due, err := d.Store().DueProfiles(ctx, time.Now().Add(-3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDispatchSkipsInactive(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	p := saveProfile(t, d, "paused")
	p.Active = false
	require.NoError(t, d.Store().SaveProfile(ctx, p))

	s := newTestScheduler(t, d)
	s.dispatch(ctx)

	got, err := d.Store().ProfileByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.IsZero())
}

func TestStartRunsImmediateDispatch(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)
	p := saveProfile(t, d, "eager")

	s := newTestScheduler(t, d)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		got, err := d.Store().ProfileByID(ctx, p.ID)
		return err == nil && !got.UpdatedAt.IsZero()
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStartRejectsBadDigestHour(t *testing.T) {
	d := newTestDB(t)
	s := newTestScheduler(t, d)
	s.cfg.DigestHour = 99

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest")
}

func TestStopDrains(t *testing.T) {
	d := newTestDB(t)
	s := newTestScheduler(t, d)
	require.NoError(t, s.Start())

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return before the shutdown timeout")
	}
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	d := newTestDB(t)

	now := time.Now()
	dep := now.AddDate(0, 0, 7)
	stale := db.Flight{
		ID: db.Fingerprint("PSA", "BCN", dep, 1), Origin: "PSA", Destination: "BCN",
		Departure: dep, Arrival: dep.Add(2 * time.Hour), Price: 30, Currency: "EUR", Party: 1,
		UpdatedAt: now.Add(-48 * time.Hour),
	}
	fresh := db.Flight{
		ID: db.Fingerprint("BCN", "PSA", dep.AddDate(0, 0, 2), 1), Origin: "BCN", Destination: "PSA",
		Departure: dep.AddDate(0, 0, 2), Arrival: dep.AddDate(0, 0, 2).Add(2 * time.Hour),
		Price: 25, Currency: "EUR", Party: 1,
		UpdatedAt: now,
	}
	require.NoError(t, d.UpsertFlights(ctx, []db.Flight{stale, fresh}))

	// A deal referencing the soon-to-be-pruned leg becomes an orphan.
	p := saveProfile(t, d, "orphaned")
	require.NoError(t, d.Store().UpsertDeal(ctx, &db.Deal{
		ProfileID:        p.ID,
		OutboundFlightID: stale.ID,
		InboundFlightID:  fresh.ID,
		TotalPricePP:     55,
	}))
	require.NoError(t, d.Store().RecordScan(ctx, "PSA", 1, now.Add(-8*24*time.Hour)))

	s := newTestScheduler(t, d)
	s.prune(ctx)

	_, err := d.Store().FlightByID(ctx, stale.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = d.Store().FlightByID(ctx, fresh.ID)
	assert.NoError(t, err)

	deals, err := d.Store().Deals(ctx, db.DealFilter{ProfileID: p.ID})
	require.NoError(t, err)
	assert.Empty(t, deals)

	recent, err := d.Store().RecentlyScanned(ctx, "PSA", 1, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.False(t, recent)
}
