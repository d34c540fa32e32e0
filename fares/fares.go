// Package fares fetches one-way fare listings from external flight sources.
package fares

import (
	"context"
	"time"
)

// Leg is one observed one-way fare. Departure and arrival carry the airport
// wall-clock time labelled UTC, because sources report local times without
// offsets.
type Leg struct {
	Origin          string
	Destination     string
	OriginFull      string
	DestinationFull string
	Departure       time.Time
	Arrival         time.Time
	FlightNumber    string
	Price           float64
	Currency        string
	Party           int
}

// Source lists one-way fares departing origin inside the date window. An
// empty destination means every reachable destination; a set destination
// restricts the listing to that airport.
type Source interface {
	OneWayFares(ctx context.Context, origin, destination string, from, to time.Time, party int) ([]Leg, error)
}
