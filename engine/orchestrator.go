package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tbruni/weekendfly/db"
	"github.com/tbruni/weekendfly/pkg/logger"
	"github.com/tbruni/weekendfly/pkg/notify"
)

// Orchestrator runs the full pipeline for one profile: harvest the profile's
// origins, then match and alert inside a single transaction.
type Orchestrator struct {
	db        *db.DB
	harvester *Harvester
	matcher   *Matcher
	notifier  *Notifier
}

// NewOrchestrator wires the pipeline stages together.
func NewOrchestrator(database *db.DB, harvester *Harvester, matcher *Matcher, notifier *Notifier) *Orchestrator {
	return &Orchestrator{
		db:        database,
		harvester: harvester,
		matcher:   matcher,
		notifier:  notifier,
	}
}

// RunProfile processes one profile end to end. A missing or inactive profile
// is a no-op. The harvest commits on its own; matching, alerting and the
// profile stamp share one transaction, so a failure leaves updated_at
// untouched and the profile is retried on the next dispatch.
func (o *Orchestrator) RunProfile(ctx context.Context, profileID int64) error {
	runID := uuid.NewString()[:8]
	log := logger.WithFields(map[string]interface{}{"run_id": runID, "profile_id": profileID})

	profile, err := o.db.Store().ProfileByID(ctx, profileID)
	if errors.Is(err, db.ErrNotFound) {
		log.Debug("profile gone, skipping run")
		return nil
	}
	if err != nil {
		return fmt.Errorf("profile %d: %w", profileID, err)
	}
	if !profile.Active {
		log.Debug("profile inactive, skipping run")
		return nil
	}

	start := time.Now()
	pairs := make([]ScanPair, 0, len(profile.Origins))
	for _, origin := range profile.Origins {
		pairs = append(pairs, ScanPair{Origin: origin, Party: profile.Party})
	}
	fetched, err := o.harvester.Harvest(ctx, pairs)
	if err != nil {
		return fmt.Errorf("profile %d (%s): harvest: %w", profile.ID, profile.Name, err)
	}

	var matched int
	var pending []notify.Message
	matchStart := time.Now()
	err = o.db.WithTx(ctx, func(store *db.Store) error {
		var err error
		if matched, err = o.matcher.Match(ctx, store, profile, matchStart); err != nil {
			return fmt.Errorf("match: %w", err)
		}
		if pending, err = o.notifier.Alert(ctx, store, profile); err != nil {
			return fmt.Errorf("alert: %w", err)
		}
		return store.StampProfile(ctx, profile.ID, matchStart)
	})
	if err != nil {
		return fmt.Errorf("profile %d (%s): %w", profile.ID, profile.Name, err)
	}

	// Posts happen after the commit so a slow push server never holds the
	// transaction open, and a rollback never leaks phantom alerts.
	o.notifier.Send(ctx, pending)

	log.Info("profile run complete",
		"name", profile.Name,
		"legs_fetched", fetched,
		"deals_matched", matched,
		"pushes", len(pending),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}
