package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by single-row lookups with no matching row.
var ErrNotFound = errors.New("not found")

// upsertChunkSize caps the number of rows written per transaction.
const upsertChunkSize = 1000

const flightColumns = "id, origin, destination, origin_full, destination_full, departure, arrival, flight_number, price, currency, party, updated_at, created_at"

const upsertFlightSQL = `
	INSERT INTO flights (id, origin, destination, origin_full, destination_full, departure, arrival, flight_number, price, currency, party, updated_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		departure = excluded.departure,
		arrival = excluded.arrival,
		price = excluded.price,
		updated_at = excluded.updated_at`

// UpsertFlights stores fare observations in chunks of at most 1000 rows, one
// transaction per chunk, so a failure part way through a harvest keeps the
// chunks already committed.
func (d *DB) UpsertFlights(ctx context.Context, flights []Flight) error {
	for start := 0; start < len(flights); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(flights) {
			end = len(flights)
		}
		if err := d.upsertFlightChunk(ctx, flights[start:end]); err != nil {
			return fmt.Errorf("failed to store flights %d..%d: %w", start, end, err)
		}
	}
	return nil
}

func (d *DB) upsertFlightChunk(ctx context.Context, chunk []Flight) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, rebind(d.dialect, upsertFlightSQL))
	if err != nil {
		return fmt.Errorf("failed to prepare flight upsert: %w", err)
	}
	defer stmt.Close()

	for _, f := range chunk {
		if f.ID == "" {
			return fmt.Errorf("flight %s-%s at %s has no fingerprint", f.Origin, f.Destination, f.Departure)
		}
		updatedAt := f.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		createdAt := f.CreatedAt
		if createdAt.IsZero() {
			createdAt = updatedAt
		}
		_, err := stmt.ExecContext(ctx,
			f.ID,
			f.Origin,
			f.Destination,
			f.OriginFull,
			f.DestinationFull,
			formatTime(f.Departure),
			formatTime(f.Arrival),
			f.FlightNumber,
			f.Price,
			f.Currency,
			f.Party,
			formatTime(updatedAt),
			formatTime(createdAt),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert flight %s: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

// PruneStaleFlights deletes fare rows last refreshed before the cutoff and
// returns the number of rows removed.
func (s *Store) PruneStaleFlights(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx, s.rebind(`DELETE FROM flights WHERE updated_at < ?`), formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune stale flights: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// FlightByID fetches a single fare row. Returns ErrNotFound when absent.
func (s *Store) FlightByID(ctx context.Context, id string) (Flight, error) {
	row := s.q.QueryRowContext(ctx, s.rebind(`SELECT `+flightColumns+` FROM flights WHERE id = ?`), id)
	f, err := scanFlight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Flight{}, ErrNotFound
	}
	if err != nil {
		return Flight{}, fmt.Errorf("failed to fetch flight %s: %w", id, err)
	}
	return f, nil
}

// OutboundFlights lists fares leaving any of the given airports inside the
// departure window, for the given party size, priced at or under maxPrice.
func (s *Store) OutboundFlights(ctx context.Context, origins []string, party int, from, to time.Time, maxPrice float64) ([]Flight, error) {
	if len(origins) == 0 {
		return nil, nil
	}
	query := `SELECT ` + flightColumns + ` FROM flights
		WHERE origin IN (` + inPlaceholders(len(origins)) + `)
		AND party = ? AND departure >= ? AND departure <= ? AND price <= ?
		ORDER BY departure, id`

	args := make([]interface{}, 0, len(origins)+4)
	for _, o := range origins {
		args = append(args, o)
	}
	args = append(args, party, formatTime(from), formatTime(to), maxPrice)

	return s.queryFlights(ctx, query, args...)
}

// InboundFlights lists fares arriving into any of the given airports that
// depart after the given instant, for the given party size, priced at or
// under maxPrice.
func (s *Store) InboundFlights(ctx context.Context, destinations []string, party int, after time.Time, maxPrice float64) ([]Flight, error) {
	if len(destinations) == 0 {
		return nil, nil
	}
	query := `SELECT ` + flightColumns + ` FROM flights
		WHERE destination IN (` + inPlaceholders(len(destinations)) + `)
		AND party = ? AND departure > ? AND price <= ?
		ORDER BY departure, id`

	args := make([]interface{}, 0, len(destinations)+3)
	for _, d := range destinations {
		args = append(args, d)
	}
	args = append(args, party, formatTime(after), maxPrice)

	return s.queryFlights(ctx, query, args...)
}

// FlightPair is an outbound leg joined with a possible return leg.
type FlightPair struct {
	Outbound Flight
	Inbound  Flight
}

// MatchExactPairs joins outbound fares from the given origins against return
// fares on the exact reverse route. The join enforces route symmetry, party
// size, the departure window, return-after-arrival ordering and the combined
// price cap; finer strategy checks happen in the matcher.
func (s *Store) MatchExactPairs(ctx context.Context, origins []string, party int, from, to time.Time, maxSum float64) ([]FlightPair, error) {
	if len(origins) == 0 {
		return nil, nil
	}
	query := `SELECT
			o.id, o.origin, o.destination, o.origin_full, o.destination_full, o.departure, o.arrival, o.flight_number, o.price, o.currency, o.party, o.updated_at,
			i.id, i.origin, i.destination, i.origin_full, i.destination_full, i.departure, i.arrival, i.flight_number, i.price, i.currency, i.party, i.updated_at
		FROM flights o
		JOIN flights i ON i.origin = o.destination AND i.destination = o.origin AND i.party = o.party
		WHERE o.origin IN (` + inPlaceholders(len(origins)) + `)
		AND o.party = ?
		AND o.departure >= ? AND o.departure <= ?
		AND i.departure > o.arrival
		AND o.price + i.price <= ?
		ORDER BY o.departure, i.departure, o.id, i.id`

	args := make([]interface{}, 0, len(origins)+4)
	for _, o := range origins {
		args = append(args, o)
	}
	args = append(args, party, formatTime(from), formatTime(to), maxSum)

	rows, err := s.q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight pairs: %w", err)
	}
	defer rows.Close()

	var pairs []FlightPair
	for rows.Next() {
		var o, i Flight
		var oDep, oArr, oUpd, iDep, iArr, iUpd string
		if err := rows.Scan(
			&o.ID, &o.Origin, &o.Destination, &o.OriginFull, &o.DestinationFull, &oDep, &oArr, &o.FlightNumber, &o.Price, &o.Currency, &o.Party, &oUpd,
			&i.ID, &i.Origin, &i.Destination, &i.OriginFull, &i.DestinationFull, &iDep, &iArr, &i.FlightNumber, &i.Price, &i.Currency, &i.Party, &iUpd,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flight pair: %w", err)
		}
		o.Departure, o.Arrival, o.UpdatedAt = parseTime(oDep), parseTime(oArr), parseTime(oUpd)
		i.Departure, i.Arrival, i.UpdatedAt = parseTime(iDep), parseTime(iArr), parseTime(iUpd)
		pairs = append(pairs, FlightPair{Outbound: o, Inbound: i})
	}
	return pairs, rows.Err()
}

func (s *Store) queryFlights(ctx context.Context, query string, args ...interface{}) ([]Flight, error) {
	rows, err := s.q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	var flights []Flight
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight: %w", err)
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func scanFlight(row RowScanner) (Flight, error) {
	var f Flight
	var departure, arrival, updatedAt, createdAt string
	err := row.Scan(
		&f.ID, &f.Origin, &f.Destination, &f.OriginFull, &f.DestinationFull,
		&departure, &arrival, &f.FlightNumber, &f.Price, &f.Currency, &f.Party, &updatedAt, &createdAt,
	)
	if err != nil {
		return Flight{}, err
	}
	f.Departure = parseTime(departure)
	f.Arrival = parseTime(arrival)
	f.UpdatedAt = parseTime(updatedAt)
	f.CreatedAt = parseTime(createdAt)
	return f, nil
}

func inPlaceholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
