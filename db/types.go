package db

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// RowScanner defines the interface for scanning a single row result.
// This allows mocking database row scanning behavior.
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// All timestamps are persisted as RFC3339 UTC strings so lexicographic
// comparison in SQL matches chronological order on both dialects.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime returns the zero time for empty or malformed values.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Flight represents one observed fare for a single flight leg. Departure and
// arrival hold the airport wall-clock time with a UTC label, because the fare
// source reports local times without offsets.
type Flight struct {
	ID              string    `json:"id"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	OriginFull      string    `json:"origin_full"`
	DestinationFull string    `json:"destination_full"`
	Departure       time.Time `json:"departure"`
	Arrival         time.Time `json:"arrival"`
	FlightNumber    string    `json:"flight_number"`
	Price           float64   `json:"price"`
	Currency        string    `json:"currency"`
	Party           int       `json:"party"`
	UpdatedAt       time.Time `json:"updated_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// Fingerprint derives the stable flight row ID from the fields that identify
// a leg. Price changes keep the same fingerprint and update in place.
func Fingerprint(origin, destination string, departure time.Time, party int) string {
	key := fmt.Sprintf("%s_%s_%s_%d", origin, destination, departure.UTC().Format(time.RFC3339), party)
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Round2 rounds a price to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ScanEntry records one completed harvest of an airport.
type ScanEntry struct {
	ID        int64     `json:"id"`
	Airport   string    `json:"airport"`
	Party     int       `json:"party"`
	ScannedAt time.Time `json:"scanned_at"`
}

// HourWindow is a half-open local departure hour range [From, To). It is
// serialized as a two-element array to keep strategy blobs compact.
type HourWindow struct {
	From int
	To   int
}

// MarshalJSON implements json.Marshaler.
func (w HourWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{w.From, w.To})
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *HourWindow) UnmarshalJSON(b []byte) error {
	var arr []int
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	if len(arr) != 2 {
		return fmt.Errorf("hour window must be a [from, to] pair, got %d elements", len(arr))
	}
	w.From, w.To = arr[0], arr[1]
	return nil
}

// Allows reports whether a departure hour falls inside the window widened by
// tolerance hours on both ends, clamped to [0, 24).
func (w HourWindow) Allows(hour, tolerance int) bool {
	lo := w.From - tolerance
	if lo < 0 {
		lo = 0
	}
	hi := w.To + tolerance
	if hi > 24 {
		hi = 24
	}
	return hour >= lo && hour < hi
}

// Strategy describes when a profile wants to fly. Weekdays are numbered
// 0=Monday through 6=Sunday.
type Strategy struct {
	MinNights int                `json:"min_nights"`
	MaxNights int                `json:"max_nights"`
	OutDays   map[int]HourWindow `json:"out_days"`
	InDays    map[int]HourWindow `json:"in_days"`
}

// Validate checks the strategy invariants.
func (s Strategy) Validate() error {
	if s.MinNights < 0 || s.MaxNights < s.MinNights {
		return fmt.Errorf("%w: nights range %d..%d", ErrInvalidStrategy, s.MinNights, s.MaxNights)
	}
	// Empty day maps are legal; such a strategy simply never matches.
	for _, days := range []map[int]HourWindow{s.OutDays, s.InDays} {
		for day, w := range days {
			if day < 0 || day > 6 {
				return fmt.Errorf("%w: weekday %d out of range 0..6", ErrInvalidStrategy, day)
			}
			if w.From < 0 || w.To > 24 || w.From > w.To {
				return fmt.Errorf("%w: hour window [%d, %d) on weekday %d", ErrInvalidStrategy, w.From, w.To, day)
			}
		}
	}
	return nil
}

// Profile validation errors.
var (
	ErrProfileName     = errors.New("profile name is required")
	ErrNoOrigins       = errors.New("profile needs at least one origin airport")
	ErrInvalidOrigin   = errors.New("origin must be a 3-letter IATA code")
	ErrInvalidParty    = errors.New("party must be at least 1")
	ErrInvalidBudget   = errors.New("max price per person must be positive")
	ErrInvalidStrategy = errors.New("invalid strategy")
)

// SearchProfile is a subscriber's standing search. UpdatedAt is the zero time
// until the profile has been processed once.
type SearchProfile struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	Origins              []string  `json:"origins"`
	AllowedDestinations  []string  `json:"allowed_destinations"`
	ExcludedDestinations []string  `json:"excluded_destinations"`
	NotifyDestinations   []string  `json:"notify_destinations"`
	Party                int       `json:"party"`
	MaxPricePP           float64   `json:"max_price_pp"`
	Strategy             Strategy  `json:"strategy"`
	NearbyOrigins        bool      `json:"nearby_origins"`
	NtfyTopic            string    `json:"ntfy_topic"`
	Active               bool      `json:"active"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Normalize trims and upper-cases airport codes in place.
func (p *SearchProfile) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	for i, o := range p.Origins {
		p.Origins[i] = strings.ToUpper(strings.TrimSpace(o))
	}
	for i, d := range p.AllowedDestinations {
		p.AllowedDestinations[i] = strings.ToUpper(strings.TrimSpace(d))
	}
	for i, d := range p.ExcludedDestinations {
		p.ExcludedDestinations[i] = strings.ToUpper(strings.TrimSpace(d))
	}
	for i, d := range p.NotifyDestinations {
		p.NotifyDestinations[i] = strings.ToUpper(strings.TrimSpace(d))
	}
	p.NtfyTopic = strings.TrimSpace(p.NtfyTopic)
}

// Validate checks the profile invariants.
func (p *SearchProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrProfileName
	}
	if len(p.Origins) == 0 {
		return ErrNoOrigins
	}
	for _, o := range p.Origins {
		if len(o) != 3 {
			return fmt.Errorf("%w: %q", ErrInvalidOrigin, o)
		}
	}
	if p.Party < 1 {
		return ErrInvalidParty
	}
	if p.MaxPricePP <= 0 {
		return ErrInvalidBudget
	}
	return p.Strategy.Validate()
}

// Allowed reports whether a destination passes the profile's allow-list. An
// empty list allows every destination.
func (p *SearchProfile) Allowed(destination string) bool {
	if len(p.AllowedDestinations) == 0 {
		return true
	}
	return contains(p.AllowedDestinations, destination)
}

// Excluded reports whether a destination is on the profile's exclusion list.
func (p *SearchProfile) Excluded(destination string) bool {
	return contains(p.ExcludedDestinations, destination)
}

// Belled reports whether the subscriber opted into realtime alerts for a
// destination.
func (p *SearchProfile) Belled(destination string) bool {
	return contains(p.NotifyDestinations, destination)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Deal is a matched round trip for a profile. Notified flips back to false
// whenever the total price changes, so the pair is surfaced again.
type Deal struct {
	ID               int64     `json:"id"`
	ProfileID        int64     `json:"profile_id"`
	OutboundFlightID string    `json:"outbound_flight_id"`
	InboundFlightID  string    `json:"inbound_flight_id"`
	TotalPricePP     float64   `json:"total_price_pp"`
	Notified         bool      `json:"notified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DealView is a deal joined with both flight legs.
type DealView struct {
	Deal
	Outbound Flight `json:"outbound"`
	Inbound  Flight `json:"inbound"`
}

// DealFilter narrows deal listings.
type DealFilter struct {
	ProfileID   int64
	Origin      string
	Destination string
}
