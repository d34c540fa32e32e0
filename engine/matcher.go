package engine

import (
	"context"
	"time"

	"github.com/tbruni/weekendfly/config"
	"github.com/tbruni/weekendfly/db"
	"github.com/tbruni/weekendfly/metro"
	"github.com/tbruni/weekendfly/pkg/logger"
)

// budgetSlack widens the price cap past the profile budget so a deal that
// drifts slightly over budget keeps its row alive instead of flapping in and
// out of the table between price updates.
const budgetSlack = 1.25

// matchHorizon bounds how far ahead outbound departures are considered.
const matchHorizon = 365 * 24 * time.Hour

// Matcher pairs stored one-way fares into round trips that satisfy a
// profile's strategy and budget.
type Matcher struct {
	metro         *metro.Index
	hourTolerance int
}

// NewMatcher creates a matcher over the given metro index.
func NewMatcher(index *metro.Index, cfg config.MatchConfig) *Matcher {
	return &Matcher{
		metro:         index,
		hourTolerance: cfg.HourTolerance,
	}
}

// Match rebuilds the profile's deals from the current flight table. Every
// surviving deal is stamped with matchStart; rows the match did not touch are
// deleted afterwards, so a vanished fare takes its deal with it. Returns the
// number of deals upserted.
func (m *Matcher) Match(ctx context.Context, store *db.Store, profile *db.SearchProfile, matchStart time.Time) (int, error) {
	priceCap := profile.MaxPricePP * float64(profile.Party) * budgetSlack
	from := matchStart
	to := matchStart.Add(matchHorizon)

	seen := make(map[[2]string]bool)
	count := 0

	upsert := func(out, in db.Flight) error {
		key := [2]string{out.ID, in.ID}
		if seen[key] {
			return nil
		}
		seen[key] = true
		count++
		return store.UpsertDeal(ctx, &db.Deal{
			ProfileID:        profile.ID,
			OutboundFlightID: out.ID,
			InboundFlightID:  in.ID,
			TotalPricePP:     db.Round2((out.Price + in.Price) / float64(profile.Party)),
			UpdatedAt:        matchStart,
		})
	}

	// Pass 1: exact reverse routes, joined in SQL.
	pairs, err := store.MatchExactPairs(ctx, profile.Origins, profile.Party, from, to, priceCap)
	if err != nil {
		return 0, err
	}
	for _, pair := range pairs {
		if !m.validMatch(profile, pair.Outbound, pair.Inbound) {
			continue
		}
		if err := upsert(pair.Outbound, pair.Inbound); err != nil {
			return count, err
		}
	}

	// Pass 2: metro pairing. An outbound into one airport of a metro area can
	// be closed by a return out of a neighbour. Skipped entirely when metro
	// grouping is disabled, because it would only rediscover pass 1.
	if m.metro.RadiusKm() > 0 {
		if err := m.matchMetro(ctx, store, profile, from, to, priceCap, upsert); err != nil {
			return count, err
		}
	}

	deleted, err := store.DeleteStaleDeals(ctx, profile.ID, matchStart)
	if err != nil {
		return count, err
	}
	if deleted > 0 {
		logger.Debug("dropped stale deals", "profile_id", profile.ID, "deleted", deleted)
	}
	return count, nil
}

func (m *Matcher) matchMetro(ctx context.Context, store *db.Store, profile *db.SearchProfile,
	from, to time.Time, priceCap float64, upsert func(out, in db.Flight) error) error {

	outs, err := store.OutboundFlights(ctx, profile.Origins, profile.Party, from, to, priceCap)
	if err != nil {
		return err
	}
	ins, err := store.InboundFlights(ctx, m.returnAirports(profile), profile.Party, from, priceCap)
	if err != nil {
		return err
	}

	for _, out := range outs {
		if !profile.Allowed(out.Destination) || profile.Excluded(out.Destination) {
			continue
		}
		away := m.metro.NearbySet(out.Destination)
		for _, in := range ins {
			if !away[in.Origin] {
				continue
			}
			if !in.Departure.After(out.Arrival) {
				continue
			}
			if out.Price+in.Price > priceCap {
				continue
			}
			if !m.validMatch(profile, out, in) {
				continue
			}
			if err := upsert(out, in); err != nil {
				return err
			}
		}
	}
	return nil
}

// returnAirports lists where a trip may land coming home. With NearbyOrigins
// the configured origins widen to their metro neighbours, so a trip out of
// one airport can return into a neighbour across town.
func (m *Matcher) returnAirports(profile *db.SearchProfile) []string {
	if !profile.NearbyOrigins {
		return profile.Origins
	}
	seen := make(map[string]bool)
	var codes []string
	for _, origin := range profile.Origins {
		for _, code := range m.metro.Nearby(origin) {
			if !seen[code] {
				seen[code] = true
				codes = append(codes, code)
			}
		}
	}
	return codes
}

// validMatch applies the profile strategy to a candidate pair: destination
// filters, stay length and departure windows on both legs.
func (m *Matcher) validMatch(profile *db.SearchProfile, out, in db.Flight) bool {
	if !profile.Allowed(out.Destination) || profile.Excluded(out.Destination) {
		return false
	}

	nights := calendarNights(out.Departure, in.Departure)
	if nights < profile.Strategy.MinNights || nights > profile.Strategy.MaxNights {
		return false
	}

	outWindow, ok := profile.Strategy.OutDays[weekdayMonday(out.Departure)]
	if !ok || !outWindow.Allows(out.Departure.Hour(), m.hourTolerance) {
		return false
	}
	inWindow, ok := profile.Strategy.InDays[weekdayMonday(in.Departure)]
	if !ok || !inWindow.Allows(in.Departure.Hour(), m.hourTolerance) {
		return false
	}
	return true
}

// calendarNights counts nights as the calendar-date difference between the
// two departures, so a Friday night flight returning Sunday morning is two
// nights regardless of the hours involved.
func calendarNights(out, in time.Time) int {
	o, i := out.UTC(), in.UTC()
	oDay := time.Date(o.Year(), o.Month(), o.Day(), 0, 0, 0, 0, time.UTC)
	iDay := time.Date(i.Year(), i.Month(), i.Day(), 0, 0, 0, 0, time.UTC)
	return int(iDay.Sub(oDay) / (24 * time.Hour))
}

// weekdayMonday numbers weekdays 0=Monday through 6=Sunday.
func weekdayMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
