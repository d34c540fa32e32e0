package db

import (
	"context"
	"fmt"
	"time"
)

// UpsertDeal inserts a deal or refreshes an existing one for the same
// (profile, outbound, inbound) triple. A changed total price clears the
// notified flag so the deal is surfaced again; an unchanged price leaves it
// alone. updated_at always moves to the caller's match timestamp.
func (s *Store) UpsertDeal(ctx context.Context, deal *Deal) error {
	createdAt := deal.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := deal.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	_, err := s.q.ExecContext(ctx, s.rebind(`
		INSERT INTO deals (profile_id, outbound_flight_id, inbound_flight_id, total_price_pp, notified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_id, outbound_flight_id, inbound_flight_id) DO UPDATE SET
			notified = CASE WHEN deals.total_price_pp <> excluded.total_price_pp THEN excluded.notified ELSE deals.notified END,
			total_price_pp = excluded.total_price_pp,
			updated_at = excluded.updated_at`),
		deal.ProfileID, deal.OutboundFlightID, deal.InboundFlightID, deal.TotalPricePP,
		false, formatTime(createdAt), formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert deal for profile %d: %w", deal.ProfileID, err)
	}
	return nil
}

// DeleteStaleDeals removes a profile's deals that were not refreshed by the
// match that started at the cutoff. Deals stamped exactly at the cutoff are
// kept.
func (s *Store) DeleteStaleDeals(ctx context.Context, profileID int64, updatedBefore time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx, s.rebind(
		`DELETE FROM deals WHERE profile_id = ? AND updated_at < ?`),
		profileID, formatTime(updatedBefore),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale deals for profile %d: %w", profileID, err)
	}
	return res.RowsAffected()
}

// PruneOrphanDeals removes deals whose flight legs were pruned out of the
// fare table.
func (s *Store) PruneOrphanDeals(ctx context.Context) (int64, error) {
	res, err := s.q.ExecContext(ctx, `
		DELETE FROM deals
		WHERE outbound_flight_id NOT IN (SELECT id FROM flights)
		   OR inbound_flight_id NOT IN (SELECT id FROM flights)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prune orphan deals: %w", err)
	}
	return res.RowsAffected()
}

// MarkDealsNotified flags the given deals as pushed to the subscriber.
func (s *Store) MarkDealsNotified(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE deals SET notified = ? WHERE id IN (` + inPlaceholders(len(ids)) + `)`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, true)
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := s.q.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return fmt.Errorf("failed to mark deals notified: %w", err)
	}
	return nil
}

// UnnotifiedDeals returns a profile's deals that have not been pushed yet,
// cheapest first.
func (s *Store) UnnotifiedDeals(ctx context.Context, profileID int64) ([]DealView, error) {
	return s.queryDealViews(ctx,
		`WHERE d.profile_id = ? AND d.notified = ?`,
		` ORDER BY d.total_price_pp, d.id`,
		profileID, false,
	)
}

// Deals lists deal views matching the filter, cheapest first.
func (s *Store) Deals(ctx context.Context, f DealFilter) ([]DealView, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.ProfileID != 0 {
		conds = append(conds, "d.profile_id = ?")
		args = append(args, f.ProfileID)
	}
	if f.Origin != "" {
		conds = append(conds, "o.origin = ?")
		args = append(args, f.Origin)
	}
	if f.Destination != "" {
		conds = append(conds, "o.destination = ?")
		args = append(args, f.Destination)
	}
	where := ""
	for i, c := range conds {
		if i == 0 {
			where = "WHERE " + c
			continue
		}
		where += " AND " + c
	}
	return s.queryDealViews(ctx, where, ` ORDER BY d.total_price_pp, d.id`, args...)
}

func (s *Store) queryDealViews(ctx context.Context, where, order string, args ...interface{}) ([]DealView, error) {
	query := `SELECT
			d.id, d.profile_id, d.outbound_flight_id, d.inbound_flight_id, d.total_price_pp, d.notified, d.created_at, d.updated_at,
			o.id, o.origin, o.destination, o.origin_full, o.destination_full, o.departure, o.arrival, o.flight_number, o.price, o.currency, o.party, o.updated_at,
			i.id, i.origin, i.destination, i.origin_full, i.destination_full, i.departure, i.arrival, i.flight_number, i.price, i.currency, i.party, i.updated_at
		FROM deals d
		JOIN flights o ON o.id = d.outbound_flight_id
		JOIN flights i ON i.id = d.inbound_flight_id
		` + where + order

	rows, err := s.q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	var views []DealView
	for rows.Next() {
		var v DealView
		var dCreated, dUpdated string
		var oDep, oArr, oUpd, iDep, iArr, iUpd string
		err := rows.Scan(
			&v.ID, &v.ProfileID, &v.OutboundFlightID, &v.InboundFlightID, &v.TotalPricePP, &v.Notified, &dCreated, &dUpdated,
			&v.Outbound.ID, &v.Outbound.Origin, &v.Outbound.Destination, &v.Outbound.OriginFull, &v.Outbound.DestinationFull,
			&oDep, &oArr, &v.Outbound.FlightNumber, &v.Outbound.Price, &v.Outbound.Currency, &v.Outbound.Party, &oUpd,
			&v.Inbound.ID, &v.Inbound.Origin, &v.Inbound.Destination, &v.Inbound.OriginFull, &v.Inbound.DestinationFull,
			&iDep, &iArr, &v.Inbound.FlightNumber, &v.Inbound.Price, &v.Inbound.Currency, &v.Inbound.Party, &iUpd,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		v.CreatedAt = parseTime(dCreated)
		v.UpdatedAt = parseTime(dUpdated)
		v.Outbound.Departure, v.Outbound.Arrival, v.Outbound.UpdatedAt = parseTime(oDep), parseTime(oArr), parseTime(oUpd)
		v.Inbound.Departure, v.Inbound.Arrival, v.Inbound.UpdatedAt = parseTime(iDep), parseTime(iArr), parseTime(iUpd)
		views = append(views, v)
	}
	return views, rows.Err()
}
