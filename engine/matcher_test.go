package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbruni/weekendfly/config"
	"github.com/tbruni/weekendfly/db"
	"github.com/tbruni/weekendfly/metro"
)

func newEngineDB(t *testing.T) *db.DB {
	t.Helper()
	d, err := db.New(config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	require.NoError(t, d.InitSchema())
	t.Cleanup(func() { d.Close() })
	return d
}

// Friday evening out, Sunday afternoon back; matches weekendProfile.
var (
	matchStart = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	outDep     = time.Date(2025, 7, 4, 18, 0, 0, 0, time.UTC)
	inDep      = time.Date(2025, 7, 6, 16, 0, 0, 0, time.UTC)
)

func weekendProfile(t *testing.T, d *db.DB) *db.SearchProfile {
	t.Helper()
	p := &db.SearchProfile{
		Name:       "weekend hops",
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

func seedFlight(t *testing.T, d *db.DB, origin, dest string, dep time.Time, price float64, party int) db.Flight {
	t.Helper()
	f := db.Flight{
		ID:           db.Fingerprint(origin, dest, dep, party),
		Origin:       origin,
		Destination:  dest,
		Departure:    dep,
		Arrival:      dep.Add(2 * time.Hour),
		FlightNumber: "FR 1234",
		Price:        price,
		Currency:     "EUR",
		Party:        party,
	}
	require.NoError(t, d.UpsertFlights(context.Background(), []db.Flight{f}))
	return f
}

func newMatcher(radiusKm float64) *Matcher {
	return NewMatcher(metro.New(radiusKm), config.MatchConfig{HourTolerance: 1, NearbyRadiusKm: radiusKm})
}

func TestMatchExactPair(t *testing.T) {
	ctx := context.Background()
	d := newEngineDB(t)
	p := weekendProfile(t, d)

	out := seedFlight(t, d, "PSA", "BCN", outDep, 35, 1)
	in := seedFlight(t, d, "BCN", "PSA", inDep, 25, 1)

	n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deals, err := d.Store().Deals(ctx, db.DealFilter{ProfileID: p.ID})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, out.ID, deals[0].OutboundFlightID)
	assert.Equal(t, in.ID, deals[0].InboundFlightID)
	assert.Equal(t, 60.0, deals[0].TotalPricePP)
	assert.False(t, deals[0].Notified)
}

func TestMatchMetroPair(t *testing.T) {
	ctx := context.Background()

	// Outbound lands in Girona, return leaves from Barcelona across town.
	t.Run("radius 100 pairs neighbours", func(t *testing.T) {
		d := newEngineDB(t)
		p := weekendProfile(t, d)
		seedFlight(t, d, "PSA", "GRO", outDep, 40, 1)
		seedFlight(t, d, "BCN", "PSA", inDep, 30, 1)

		n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		deals, err := d.Store().Deals(ctx, db.DealFilter{ProfileID: p.ID})
		require.NoError(t, err)
		require.Len(t, deals, 1)
		assert.Equal(t, "GRO", deals[0].Outbound.Destination)
		assert.Equal(t, "BCN", deals[0].Inbound.Origin)
		assert.Equal(t, 70.0, deals[0].TotalPricePP)
	})

	t.Run("radius 0 requires exact reverse", func(t *testing.T) {
		d := newEngineDB(t)
		p := weekendProfile(t, d)
		seedFlight(t, d, "PSA", "GRO", outDep, 40, 1)
		seedFlight(t, d, "BCN", "PSA", inDep, 30, 1)

		n, err := newMatcher(0).Match(ctx, d.Store(), p, matchStart)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestMatchDedupAcrossPasses(t *testing.T) {
	// An exact reverse pair is also visible to the metro pass; it must still
	// produce a single deal.
	ctx := context.Background()
	d := newEngineDB(t)
	p := weekendProfile(t, d)
	seedFlight(t, d, "PSA", "BCN", outDep, 35, 1)
	seedFlight(t, d, "BCN", "PSA", inDep, 25, 1)

	n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deals, err := d.Store().Deals(ctx, db.DealFilter{ProfileID: p.ID})
	require.NoError(t, err)
	assert.Len(t, deals, 1)
}

func TestMatchBudgetCap(t *testing.T) {
	ctx := context.Background()

	t.Run("pair over slack cap dropped", func(t *testing.T) {
		d := newEngineDB(t)
		p := weekendProfile(t, d)
		seedFlight(t, d, "PSA", "BCN", outDep, 100, 1)
		seedFlight(t, d, "BCN", "PSA", inDep, 60, 1)

		// 160 exceeds 100 * 1 * 1.25.
		n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("pair inside slack kept", func(t *testing.T) {
		d := newEngineDB(t)
		p := weekendProfile(t, d)
		seedFlight(t, d, "PSA", "BCN", outDep, 65, 1)
		seedFlight(t, d, "BCN", "PSA", inDep, 55, 1)

		// 120 is over budget but under the 125 cap, so the row is tracked.
		n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestMatchDestinationFilters(t *testing.T) {
	ctx := context.Background()

	t.Run("excluded destination", func(t *testing.T) {
		d := newEngineDB(t)
		p := weekendProfile(t, d)
		p.ExcludedDestinations = []string{"BCN"}
		require.NoError(t, d.Store().SaveProfile(ctx, p))
		seedFlight(t, d, "PSA", "BCN", outDep, 35, 1)
		seedFlight(t, d, "BCN", "PSA", inDep, 25, 1)

		n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("allow-list misses destination", func(t *testing.T) {
		d := newEngineDB(t)
		p := weekendProfile(t, d)
		p.AllowedDestinations = []string{"AGP"}
		require.NoError(t, d.Store().SaveProfile(ctx, p))
		seedFlight(t, d, "PSA", "BCN", outDep, 35, 1)
		seedFlight(t, d, "BCN", "PSA", inDep, 25, 1)

		n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("allow-list hits destination", func(t *testing.T) {
		d := newEngineDB(t)
		p := weekendProfile(t, d)
		p.AllowedDestinations = []string{"BCN"}
		require.NoError(t, d.Store().SaveProfile(ctx, p))
		seedFlight(t, d, "PSA", "BCN", outDep, 35, 1)
		seedFlight(t, d, "BCN", "PSA", inDep, 25, 1)

		n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestMatchStrategyWindows(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong outbound weekday", func(t *testing.T) {
		d := newEngineDB(t)
		p := weekendProfile(t, d)
		// Saturday departure; profile only flies out on Fridays.
		satDep := time.Date(2025, 7, 5, 18, 0, 0, 0, time.UTC)
		seedFlight(t, d, "PSA", "BCN", satDep, 35, 1)
		seedFlight(t, d, "BCN", "PSA", time.Date(2025, 7, 7, 16, 0, 0, 0, time.UTC), 25, 1)

		n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("hour inside tolerance", func(t *testing.T) {
		d := newEngineDB(t)
		p := weekendProfile(t, d)
		// 16:30 is before the [17, 24) window but inside the 1h tolerance.
		earlyDep := time.Date(2025, 7, 4, 16, 30, 0, 0, time.UTC)
		seedFlight(t, d, "PSA", "BCN", earlyDep, 35, 1)
		seedFlight(t, d, "BCN", "PSA", inDep, 25, 1)

		n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("hour outside tolerance", func(t *testing.T) {
		d := newEngineDB(t)
		p := weekendProfile(t, d)
		noonDep := time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)
		seedFlight(t, d, "PSA", "BCN", noonDep, 35, 1)
		seedFlight(t, d, "BCN", "PSA", inDep, 25, 1)

		n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("stay too short", func(t *testing.T) {
		d := newEngineDB(t)
		p := weekendProfile(t, d)
		p.Strategy.InDays[5] = db.HourWindow{From: 15, To: 23}
		require.NoError(t, d.Store().SaveProfile(ctx, p))
		seedFlight(t, d, "PSA", "BCN", outDep, 35, 1)
		// Back the next day: one night, minimum is two.
		seedFlight(t, d, "BCN", "PSA", time.Date(2025, 7, 5, 16, 0, 0, 0, time.UTC), 25, 1)

		n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestMatchStaleDealRemoved(t *testing.T) {
	ctx := context.Background()
	d := newEngineDB(t)
	p := weekendProfile(t, d)
	seedFlight(t, d, "PSA", "BCN", outDep, 35, 1)
	in := seedFlight(t, d, "BCN", "PSA", inDep, 25, 1)

	m := newMatcher(100)
	n, err := m.Match(ctx, d.Store(), p, matchStart)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// The return fare disappears from the feed; the next match run must take
	// the deal with it.
	_, err = d.Conn().ExecContext(ctx, `DELETE FROM flights WHERE id = ?`, in.ID)
	require.NoError(t, err)

	n, err = m.Match(ctx, d.Store(), p, matchStart.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	deals, err := d.Store().Deals(ctx, db.DealFilter{ProfileID: p.ID})
	require.NoError(t, err)
	assert.Empty(t, deals)
}

func TestMatchPriceDropClearsNotified(t *testing.T) {
	ctx := context.Background()
	d := newEngineDB(t)
	p := weekendProfile(t, d)
	seedFlight(t, d, "PSA", "BCN", outDep, 35, 1)
	seedFlight(t, d, "BCN", "PSA", inDep, 25, 1)

	m := newMatcher(100)
	_, err := m.Match(ctx, d.Store(), p, matchStart)
	require.NoError(t, err)

	deals, err := d.Store().Deals(ctx, db.DealFilter{ProfileID: p.ID})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	require.NoError(t, d.Store().MarkDealsNotified(ctx, []int64{deals[0].ID}))

	// Same fingerprint, lower price.
	seedFlight(t, d, "PSA", "BCN", outDep, 20, 1)

	_, err = m.Match(ctx, d.Store(), p, matchStart.Add(time.Hour))
	require.NoError(t, err)

	deals, err = d.Store().Deals(ctx, db.DealFilter{ProfileID: p.ID})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, 45.0, deals[0].TotalPricePP)
	assert.False(t, deals[0].Notified)
}

func TestMatchNearbyOrigins(t *testing.T) {
	ctx := context.Background()
	d := newEngineDB(t)
	p := weekendProfile(t, d)
	p.Origins = []string{"BCN"}
	p.NearbyOrigins = true
	require.NoError(t, d.Store().SaveProfile(ctx, p))

	// Out of Barcelona, back into Girona. Only valid because the return set
	// widens to Barcelona's neighbours.
	seedFlight(t, d, "BCN", "PSA", outDep, 35, 1)
	seedFlight(t, d, "PSA", "GRO", inDep, 25, 1)

	n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = newMatcher(100).Match(ctx, d.Store(), &db.SearchProfile{
		ID: p.ID, Name: p.Name, Origins: p.Origins, Party: p.Party,
		MaxPricePP: p.MaxPricePP, Strategy: p.Strategy, NearbyOrigins: false, Active: true,
	}, matchStart.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMatchEmptyDayMapsNeverMatch(t *testing.T) {
	ctx := context.Background()
	d := newEngineDB(t)
	p := weekendProfile(t, d)
	p.Strategy.OutDays = nil
	require.NoError(t, d.Store().SaveProfile(ctx, p))

	seedFlight(t, d, "PSA", "BCN", outDep, 35, 1)
	seedFlight(t, d, "BCN", "PSA", inDep, 25, 1)

	n, err := newMatcher(100).Match(ctx, d.Store(), p, matchStart)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMatchSameDayTrip(t *testing.T) {
	ctx := context.Background()
	d := newEngineDB(t)

	// min = max = 0 nights: out and back on the same calendar date.
	p := &db.SearchProfile{
		Name:       "friday day trip",
		Origins:    []string{"PSA"},
		Party:      1,
		MaxPricePP: 100,
		Strategy: db.Strategy{
			MinNights: 0,
			MaxNights: 0,
			OutDays:   map[int]db.HourWindow{4: {From: 6, To: 12}},
			InDays:    map[int]db.HourWindow{4: {From: 18, To: 24}, 5: {From: 18, To: 24}},
		},
		Active: true,
	}
	require.NoError(t, d.Store().SaveProfile(ctx, p))

	morning := time.Date(2025, 7, 4, 7, 0, 0, 0, time.UTC)
	sameEvening := time.Date(2025, 7, 4, 20, 0, 0, 0, time.UTC)
	seedFlight(t, d, "PSA", "BCN", morning, 30, 1)
	seedFlight(t, d, "BCN", "PSA", sameEvening, 30, 1)

	n, err := newMatcher(0).Match(ctx, d.Store(), p, matchStart)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// An overnight return is one night too many for a day trip.
	nextEvening := time.Date(2025, 7, 5, 20, 0, 0, 0, time.UTC)
	seedFlight(t, d, "PSA", "AGP", morning, 30, 1)
	seedFlight(t, d, "AGP", "PSA", nextEvening, 30, 1)

	n, err = newMatcher(0).Match(ctx, d.Store(), p, matchStart.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deals, err := d.Store().Deals(ctx, db.DealFilter{ProfileID: p.ID})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, "BCN", deals[0].Outbound.Destination)
}

func TestCalendarNights(t *testing.T) {
	assert.Equal(t, 2, calendarNights(outDep, inDep))
	// Late Friday out, early Sunday back is still two nights.
	assert.Equal(t, 2, calendarNights(
		time.Date(2025, 7, 4, 23, 50, 0, 0, time.UTC),
		time.Date(2025, 7, 6, 0, 10, 0, 0, time.UTC),
	))
	assert.Equal(t, 0, calendarNights(outDep, outDep.Add(3*time.Hour)))
}

func TestWeekdayMonday(t *testing.T) {
	assert.Equal(t, 4, weekdayMonday(outDep)) // Friday
	assert.Equal(t, 6, weekdayMonday(inDep))  // Sunday
	assert.Equal(t, 0, weekdayMonday(time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC)))
}
