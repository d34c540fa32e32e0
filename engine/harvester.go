// Package engine drives the deal pipeline: harvest one-way fares, match
// round trips against search profiles, and push alerts for new deals.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tbruni/weekendfly/config"
	"github.com/tbruni/weekendfly/db"
	"github.com/tbruni/weekendfly/fares"
	"github.com/tbruni/weekendfly/pkg/logger"
)

// ScanPair identifies one harvest unit. Fares are priced per party size, so
// the same origin scanned for different party sizes yields distinct rows.
type ScanPair struct {
	Origin string
	Party  int
}

// Harvester pulls one-way fares from the upstream source into the flight
// store. For every origin it first fetches outbound legs to anywhere, then
// return legs from each discovered destination back to the origin.
type Harvester struct {
	db          *db.DB
	source      fares.Source
	horizonDays int
	cooldown    time.Duration
}

// NewHarvester creates a harvester.
func NewHarvester(database *db.DB, source fares.Source, cfg config.ScanConfig) *Harvester {
	return &Harvester{
		db:          database,
		source:      source,
		horizonDays: cfg.LookupHorizonDays,
		cooldown:    cfg.Cooldown,
	}
}

// Harvest scans each pair unless it was scanned inside the cooldown window,
// and returns the total number of legs fetched. Upstream failures skip the
// affected call and keep going; store failures abort.
func (h *Harvester) Harvest(ctx context.Context, pairs []ScanPair) (int, error) {
	store := h.db.Store()
	now := time.Now()
	from := now
	to := now.AddDate(0, 0, h.horizonDays)

	total := 0
	for _, pair := range pairs {
		recent, err := store.RecentlyScanned(ctx, pair.Origin, pair.Party, now.Add(-h.cooldown))
		if err != nil {
			return total, err
		}
		if recent {
			logger.Debug("scan cooldown active, skipping", "origin", pair.Origin, "party", pair.Party)
			continue
		}

		fetched, err := h.harvestPair(ctx, store, pair, from, to)
		total += fetched
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (h *Harvester) harvestPair(ctx context.Context, store *db.Store, pair ScanPair, from, to time.Time) (int, error) {
	outbound, err := h.source.OneWayFares(ctx, pair.Origin, "", from, to, pair.Party)
	if err != nil {
		// Nothing was stored and no scan is recorded, so the next cycle
		// retries the whole pair.
		logger.Warn("outbound fare fetch failed, skipping origin",
			"origin", pair.Origin, "party", pair.Party, "error", err)
		return 0, nil
	}
	if err := h.db.UpsertFlights(ctx, legsToFlights(outbound)); err != nil {
		return 0, fmt.Errorf("failed to store outbound legs for %s: %w", pair.Origin, err)
	}
	total := len(outbound)

	// Return legs depend on where the outbound scan actually goes, so the
	// fan-out only starts once the destinations are known.
	for _, dest := range distinctDestinations(outbound) {
		inbound, err := h.source.OneWayFares(ctx, dest, pair.Origin, from, to, pair.Party)
		if err != nil {
			logger.Warn("return fare fetch failed, skipping destination",
				"origin", pair.Origin, "destination", dest, "error", err)
			continue
		}
		if err := h.db.UpsertFlights(ctx, legsToFlights(inbound)); err != nil {
			return total, fmt.Errorf("failed to store return legs %s-%s: %w", dest, pair.Origin, err)
		}
		total += len(inbound)
	}

	if err := store.RecordScan(ctx, pair.Origin, pair.Party, time.Now()); err != nil {
		return total, err
	}
	return total, nil
}

func legsToFlights(legs []fares.Leg) []db.Flight {
	now := time.Now()
	flights := make([]db.Flight, 0, len(legs))
	for _, leg := range legs {
		flights = append(flights, db.Flight{
			ID:              db.Fingerprint(leg.Origin, leg.Destination, leg.Departure, leg.Party),
			Origin:          leg.Origin,
			Destination:     leg.Destination,
			OriginFull:      leg.OriginFull,
			DestinationFull: leg.DestinationFull,
			Departure:       leg.Departure,
			Arrival:         leg.Arrival,
			FlightNumber:    leg.FlightNumber,
			Price:           leg.Price,
			Currency:        leg.Currency,
			Party:           leg.Party,
			UpdatedAt:       now,
		})
	}
	return flights
}

func distinctDestinations(legs []fares.Leg) []string {
	seen := make(map[string]bool, len(legs))
	var dests []string
	for _, leg := range legs {
		if !seen[leg.Destination] {
			seen[leg.Destination] = true
			dests = append(dests, leg.Destination)
		}
	}
	sort.Strings(dests)
	return dests
}
