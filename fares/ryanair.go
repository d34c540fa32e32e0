package fares

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/text/currency"

	"github.com/tbruni/weekendfly/pkg/logger"
)

// DefaultRyanairBaseURL is the public fare-finder endpoint.
const DefaultRyanairBaseURL = "https://services-api.ryanair.com"

// fareDateLayout is the local wall-clock format the fare finder returns,
// without a zone offset.
const fareDateLayout = "2006-01-02T15:04:05"

// Ryanair lists one-way fares through the public fare-finder API. The client
// is safe for concurrent use.
type Ryanair struct {
	baseURL string
	client  httpClient
}

type httpClient interface {
	Do(req *retryablehttp.Request) (*http.Response, error)
}

// NewRyanair returns a client against the given base URL, falling back to the
// public endpoint when empty.
func NewRyanair(baseURL string) *Ryanair {
	if baseURL == "" {
		baseURL = DefaultRyanairBaseURL
	}

	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = time.Second
	client.Logger = nil
	client.CheckRetry = fareRetryPolicy()
	client.HTTPClient.Timeout = 30 * time.Second

	return &Ryanair{baseURL: baseURL, client: client}
}

// fareRetryPolicy retries transport failures and throttling, but gives up
// immediately on cancellation and on other client errors.
func fareRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return false, ctx.Err()
			}
			return true, nil
		}
		if resp == nil {
			return true, fmt.Errorf("response is nil")
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return true, fmt.Errorf("wrong status code: %d", resp.StatusCode)
		}
		return false, nil
	}
}

// Wire types of the fare-finder response.
type fareAirport struct {
	IataCode    string `json:"iataCode"`
	Name        string `json:"name"`
	CountryName string `json:"countryName"`
}

type farePrice struct {
	Value        float64 `json:"value"`
	CurrencyCode string  `json:"currencyCode"`
}

type fareLeg struct {
	DepartureAirport fareAirport `json:"departureAirport"`
	ArrivalAirport   fareAirport `json:"arrivalAirport"`
	DepartureDate    string      `json:"departureDate"`
	ArrivalDate      string      `json:"arrivalDate"`
	FlightNumber     string      `json:"flightNumber"`
	Price            *farePrice  `json:"price"`
}

type fareEntry struct {
	Outbound *fareLeg `json:"outbound"`
}

type faresResponse struct {
	Fares []fareEntry `json:"fares"`
}

// OneWayFares implements Source against the fare-finder cheapest-per-day
// listing. Legs with missing prices, unparseable dates or unknown currencies
// are skipped with a warning rather than failing the whole call.
func (r *Ryanair) OneWayFares(ctx context.Context, origin, destination string, from, to time.Time, party int) ([]Leg, error) {
	q := url.Values{}
	q.Set("departureAirportIataCode", origin)
	q.Set("outboundDepartureDateFrom", from.Format("2006-01-02"))
	q.Set("outboundDepartureDateTo", to.Format("2006-01-02"))
	q.Set("adultPaxCount", fmt.Sprintf("%d", party))
	if destination != "" {
		q.Set("arrivalAirportIataCode", destination)
	}
	endpoint := r.baseURL + "/farfnd/v4/oneWayFares?" + q.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fare request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fare request %s: %w", origin, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fare request %s: unexpected status %d", origin, resp.StatusCode)
	}

	var body faresResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode fare response for %s: %w", origin, err)
	}

	legs := make([]Leg, 0, len(body.Fares))
	for _, entry := range body.Fares {
		raw := entry.Outbound
		if raw == nil || raw.Price == nil {
			continue
		}
		leg, err := normalizeLeg(raw, party)
		if err != nil {
			logger.Warn("skipping malformed fare", "origin", origin, "error", err)
			continue
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

func normalizeLeg(raw *fareLeg, party int) (Leg, error) {
	dep, err := time.Parse(fareDateLayout, raw.DepartureDate)
	if err != nil {
		return Leg{}, fmt.Errorf("bad departure date %q: %w", raw.DepartureDate, err)
	}
	arr, err := time.Parse(fareDateLayout, raw.ArrivalDate)
	if err != nil {
		return Leg{}, fmt.Errorf("bad arrival date %q: %w", raw.ArrivalDate, err)
	}
	unit, err := currency.ParseISO(raw.Price.CurrencyCode)
	if err != nil {
		return Leg{}, fmt.Errorf("bad currency %q: %w", raw.Price.CurrencyCode, err)
	}
	return Leg{
		Origin:          raw.DepartureAirport.IataCode,
		Destination:     raw.ArrivalAirport.IataCode,
		OriginFull:      fullName(raw.DepartureAirport),
		DestinationFull: fullName(raw.ArrivalAirport),
		Departure:       dep.UTC(),
		Arrival:         arr.UTC(),
		FlightNumber:    raw.FlightNumber,
		Price:           raw.Price.Value,
		Currency:        unit.String(),
		Party:           party,
	}, nil
}

func fullName(a fareAirport) string {
	if a.Name == "" {
		return a.IataCode
	}
	if a.CountryName == "" {
		return a.Name
	}
	return a.Name + ", " + a.CountryName
}
