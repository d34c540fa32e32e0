package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const profileColumns = "id, name, origins, allowed_destinations, excluded_destinations, notify_destinations, party, max_price_pp, strategy, nearby_origins, ntfy_topic, active, created_at, updated_at"

// SaveProfile inserts a new profile (zero ID) or updates an existing one.
// Updating resets updated_at so the profile is picked up on the next tick
// with its new criteria.
func (s *Store) SaveProfile(ctx context.Context, p *SearchProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	origins, err := json.Marshal(p.Origins)
	if err != nil {
		return fmt.Errorf("failed to encode origins: %w", err)
	}
	allowedJSON, err := marshalCodes(p.AllowedDestinations)
	if err != nil {
		return fmt.Errorf("failed to encode allowed destinations: %w", err)
	}
	excludedJSON, err := marshalCodes(p.ExcludedDestinations)
	if err != nil {
		return fmt.Errorf("failed to encode excluded destinations: %w", err)
	}
	notifyJSON, err := marshalCodes(p.NotifyDestinations)
	if err != nil {
		return fmt.Errorf("failed to encode notify destinations: %w", err)
	}
	strategy, err := json.Marshal(p.Strategy)
	if err != nil {
		return fmt.Errorf("failed to encode strategy: %w", err)
	}

	if p.ID == 0 {
		now := time.Now()
		err := s.q.QueryRowContext(ctx, s.rebind(`
			INSERT INTO search_profiles (name, origins, allowed_destinations, excluded_destinations, notify_destinations, party, max_price_pp, strategy, nearby_origins, ntfy_topic, active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`),
			p.Name, string(origins), allowedJSON, excludedJSON, notifyJSON, p.Party, p.MaxPricePP, string(strategy),
			p.NearbyOrigins, p.NtfyTopic, p.Active, formatTime(now),
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("failed to insert profile: %w", err)
		}
		p.CreatedAt = now.UTC()
		return nil
	}

	res, err := s.q.ExecContext(ctx, s.rebind(`
		UPDATE search_profiles
		SET name = ?, origins = ?, allowed_destinations = ?, excluded_destinations = ?, notify_destinations = ?, party = ?, max_price_pp = ?, strategy = ?, nearby_origins = ?, ntfy_topic = ?, active = ?, updated_at = ''
		WHERE id = ?`),
		p.Name, string(origins), allowedJSON, excludedJSON, notifyJSON, p.Party, p.MaxPricePP, string(strategy),
		p.NearbyOrigins, p.NtfyTopic, p.Active, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	p.UpdatedAt = time.Time{}
	return nil
}

// ProfileByID fetches a single profile. Returns ErrNotFound when absent.
func (s *Store) ProfileByID(ctx context.Context, id int64) (*SearchProfile, error) {
	row := s.q.QueryRowContext(ctx, s.rebind(`SELECT `+profileColumns+` FROM search_profiles WHERE id = ?`), id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile %d: %w", id, err)
	}
	return p, nil
}

// ListProfiles returns every profile ordered by ID.
func (s *Store) ListProfiles(ctx context.Context) ([]*SearchProfile, error) {
	return s.queryProfiles(ctx, `SELECT `+profileColumns+` FROM search_profiles ORDER BY id`)
}

// ActiveProfiles returns every active profile ordered by ID.
func (s *Store) ActiveProfiles(ctx context.Context) ([]*SearchProfile, error) {
	return s.queryProfiles(ctx, `SELECT `+profileColumns+` FROM search_profiles WHERE active = ? ORDER BY id`, true)
}

// DueProfiles returns active profiles last processed before the cutoff.
// Never-processed profiles sort first because their updated_at is empty.
func (s *Store) DueProfiles(ctx context.Context, updatedBefore time.Time) ([]*SearchProfile, error) {
	return s.queryProfiles(ctx, `
		SELECT `+profileColumns+` FROM search_profiles
		WHERE active = ? AND updated_at < ?
		ORDER BY updated_at, id`,
		true, formatTime(updatedBefore))
}

// StampProfile records that a profile finished processing at the given time.
func (s *Store) StampProfile(ctx context.Context, id int64, at time.Time) error {
	res, err := s.q.ExecContext(ctx, s.rebind(`UPDATE search_profiles SET updated_at = ? WHERE id = ?`), formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to stamp profile %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) queryProfiles(ctx context.Context, query string, args ...interface{}) ([]*SearchProfile, error) {
	rows, err := s.q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*SearchProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanProfile(row RowScanner) (*SearchProfile, error) {
	var p SearchProfile
	var origins, allowed, excluded, notify, strategy, createdAt, updatedAt string
	err := row.Scan(
		&p.ID, &p.Name, &origins, &allowed, &excluded, &notify, &p.Party, &p.MaxPricePP, &strategy,
		&p.NearbyOrigins, &p.NtfyTopic, &p.Active, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(origins), &p.Origins); err != nil {
		return nil, fmt.Errorf("failed to decode origins for profile %d: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(allowed), &p.AllowedDestinations); err != nil {
		return nil, fmt.Errorf("failed to decode allowed destinations for profile %d: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(excluded), &p.ExcludedDestinations); err != nil {
		return nil, fmt.Errorf("failed to decode excluded destinations for profile %d: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(notify), &p.NotifyDestinations); err != nil {
		return nil, fmt.Errorf("failed to decode notify destinations for profile %d: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(strategy), &p.Strategy); err != nil {
		return nil, fmt.Errorf("failed to decode strategy for profile %d: %w", p.ID, err)
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

// marshalCodes encodes an airport code list, treating nil as empty.
func marshalCodes(codes []string) (string, error) {
	if codes == nil {
		codes = []string{}
	}
	b, err := json.Marshal(codes)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
