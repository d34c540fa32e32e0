package db

import (
	"context"
	"fmt"
	"time"
)

// RecentlyScanned reports whether the airport was harvested for the given
// party size at or after the cutoff.
func (s *Store) RecentlyScanned(ctx context.Context, airport string, party int, since time.Time) (bool, error) {
	var exists bool
	err := s.q.QueryRowContext(ctx, s.rebind(
		`SELECT EXISTS (SELECT 1 FROM scan_log WHERE airport = ? AND party = ? AND scanned_at >= ?)`),
		airport, party, formatTime(since),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check scan log for %s: %w", airport, err)
	}
	return exists, nil
}

// RecordScan appends a completed harvest to the scan log.
func (s *Store) RecordScan(ctx context.Context, airport string, party int, at time.Time) error {
	_, err := s.q.ExecContext(ctx, s.rebind(
		`INSERT INTO scan_log (airport, party, scanned_at) VALUES (?, ?, ?)`),
		airport, party, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("failed to record scan of %s: %w", airport, err)
	}
	return nil
}

// PruneScanLog deletes entries older than the cutoff and returns the number
// of rows removed.
func (s *Store) PruneScanLog(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.q.ExecContext(ctx, s.rebind(`DELETE FROM scan_log WHERE scanned_at < ?`), formatTime(olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to prune scan log: %w", err)
	}
	return res.RowsAffected()
}
