package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbruni/weekendfly/config"
	"github.com/tbruni/weekendfly/fares"
)

// fakeSource serves canned legs keyed by "origin-destination"; "" stands for
// the any-destination outbound call.
type fakeSource struct {
	legs  map[string][]fares.Leg
	errs  map[string]error
	calls []string
}

func (f *fakeSource) OneWayFares(ctx context.Context, origin, destination string, from, to time.Time, party int) ([]fares.Leg, error) {
	key := fmt.Sprintf("%s-%s", origin, destination)
	f.calls = append(f.calls, key)
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.legs[key], nil
}

func fakeLeg(origin, dest string, dep time.Time, price float64, party int) fares.Leg {
	return fares.Leg{
		Origin:       origin,
		Destination:  dest,
		Departure:    dep,
		Arrival:      dep.Add(2 * time.Hour),
		FlightNumber: "FR 1234",
		Price:        price,
		Currency:     "EUR",
		Party:        party,
	}
}

func scanConfig() config.ScanConfig {
	return config.ScanConfig{
		Cooldown:          30 * time.Minute,
		LookupHorizonDays: 120,
	}
}

func TestHarvestStoresLegsAndRecordsScan(t *testing.T) {
	ctx := context.Background()
	d := newEngineDB(t)
	dep := time.Now().AddDate(0, 0, 7).Truncate(time.Hour)

	src := &fakeSource{legs: map[string][]fares.Leg{
		"PSA-": {
			fakeLeg("PSA", "BCN", dep, 29.99, 1),
			fakeLeg("PSA", "AGP", dep.Add(time.Hour), 39.99, 1),
		},
		"BCN-PSA": {fakeLeg("BCN", "PSA", dep.AddDate(0, 0, 2), 24.99, 1)},
		"AGP-PSA": {fakeLeg("AGP", "PSA", dep.AddDate(0, 0, 2), 34.99, 1)},
	}}

	h := NewHarvester(d, src, scanConfig())
	n, err := h.Harvest(ctx, []ScanPair{{Origin: "PSA", Party: 1}})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// One outbound call plus one return call per destination, alphabetical.
	assert.Equal(t, []string{"PSA-", "AGP-PSA", "BCN-PSA"}, src.calls)

	flights, err := d.Store().OutboundFlights(ctx, []string{"PSA"}, 1, time.Now(), time.Now().AddDate(1, 0, 0), 1000)
	require.NoError(t, err)
	assert.Len(t, flights, 2)

	recent, err := d.Store().RecentlyScanned(ctx, "PSA", 1, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, recent)
}

func TestHarvestCooldownSkips(t *testing.T) {
	ctx := context.Background()
	d := newEngineDB(t)
	require.NoError(t, d.Store().RecordScan(ctx, "PSA", 1, time.Now()))

	src := &fakeSource{}
	h := NewHarvester(d, src, scanConfig())

	n, err := h.Harvest(ctx, []ScanPair{{Origin: "PSA", Party: 1}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, src.calls)
}

func TestHarvestCooldownIsPerParty(t *testing.T) {
	ctx := context.Background()
	d := newEngineDB(t)
	require.NoError(t, d.Store().RecordScan(ctx, "PSA", 1, time.Now()))

	src := &fakeSource{}
	h := NewHarvester(d, src, scanConfig())

	// Same airport, different party size: not covered by the recorded scan.
	n, err := h.Harvest(ctx, []ScanPair{{Origin: "PSA", Party: 2}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"PSA-"}, src.calls)
}

func TestHarvestOutboundErrorSkipsPair(t *testing.T) {
	ctx := context.Background()
	d := newEngineDB(t)

	src := &fakeSource{errs: map[string]error{"PSA-": errors.New("upstream down")}}
	h := NewHarvester(d, src, scanConfig())

	n, err := h.Harvest(ctx, []ScanPair{{Origin: "PSA", Party: 1}})
	require.NoError(t, err)
	assert.Zero(t, n)

	// No scan record, so the pair is retried next cycle.
	recent, err := d.Store().RecentlyScanned(ctx, "PSA", 1, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, recent)
}

func TestHarvestReturnErrorSkipsDestination(t *testing.T) {
	ctx := context.Background()
	d := newEngineDB(t)
	dep := time.Now().AddDate(0, 0, 7).Truncate(time.Hour)

	src := &fakeSource{
		legs: map[string][]fares.Leg{
			"PSA-": {
				fakeLeg("PSA", "BCN", dep, 29.99, 1),
				fakeLeg("PSA", "AGP", dep.Add(time.Hour), 39.99, 1),
			},
			"BCN-PSA": {fakeLeg("BCN", "PSA", dep.AddDate(0, 0, 2), 24.99, 1)},
		},
		errs: map[string]error{"AGP-PSA": errors.New("timeout")},
	}

	h := NewHarvester(d, src, scanConfig())
	n, err := h.Harvest(ctx, []ScanPair{{Origin: "PSA", Party: 1}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// A failing destination does not block the scan record.
	recent, err := d.Store().RecentlyScanned(ctx, "PSA", 1, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, recent)

	inbound, err := d.Store().InboundFlights(ctx, []string{"PSA"}, 1, time.Now(), 1000)
	require.NoError(t, err)
	require.Len(t, inbound, 1)
	assert.Equal(t, "BCN", inbound[0].Origin)
}

func TestHarvestUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	d := newEngineDB(t)
	dep := time.Now().AddDate(0, 0, 7).Truncate(time.Hour)

	src := &fakeSource{legs: map[string][]fares.Leg{
		"PSA-":    {fakeLeg("PSA", "BCN", dep, 29.99, 1)},
		"BCN-PSA": nil,
	}}

	h := NewHarvester(d, src, config.ScanConfig{Cooldown: 0, LookupHorizonDays: 120})
	for i := 0; i < 2; i++ {
		_, err := h.Harvest(ctx, []ScanPair{{Origin: "PSA", Party: 1}})
		require.NoError(t, err)
	}

	flights, err := d.Store().OutboundFlights(ctx, []string{"PSA"}, 1, time.Now(), time.Now().AddDate(1, 0, 0), 1000)
	require.NoError(t, err)
	assert.Len(t, flights, 1)
}
