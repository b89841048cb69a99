package usecase

import (
	"context"
	"time"

	"RiskScreen/internal/domain/models"
	domrepo "RiskScreen/internal/domain/repository"
	applogger "RiskScreen/pkg/logger"
)

// Refresher reloads the snapshot and fans out alerts for the new generation.
type Refresher struct {
	store     *SnapshotStore
	publisher domrepo.AlertPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	minStreak models.Severity
}

// NewRefresher builds a refresher. A nil publisher skips alerting.
func NewRefresher(store *SnapshotStore, publisher domrepo.AlertPublisher, metrics domrepo.Metrics, l *applogger.Logger, minStreak models.Severity) *Refresher {
	if minStreak <= models.SeverityNone {
		minStreak = models.SeverityDouble
	}
	return &Refresher{store: store, publisher: publisher, metrics: metrics, l: l, minStreak: minStreak}
}

// Refresh swaps in a new snapshot. Alert failures are logged and do not fail the refresh.
func (r *Refresher) Refresh(ctx context.Context, reason string) (*Snapshot, error) {
	snap, err := r.store.Refresh(ctx)
	if err != nil {
		r.l.Error("snapshot refresh failed", applogger.String("reason", reason), applogger.Error(err))
		return nil, err
	}
	r.l.Info("snapshot refreshed", applogger.String("reason", reason), applogger.Uint64("version", snap.Version))

	if r.publisher == nil {
		return snap, nil
	}
	alerts, err := BuildAlerts(snap, r.minStreak, time.Now())
	if err != nil {
		r.metrics.RecordError("alerts_build")
		r.l.Warn("alert build failed", applogger.Uint64("version", snap.Version), applogger.Error(err))
		return snap, nil
	}
	if len(alerts) == 0 {
		return snap, nil
	}
	if err := r.publisher.PublishAlerts(ctx, alerts); err != nil {
		r.metrics.RecordError("alerts_publish")
		r.l.Warn("alert publish failed", applogger.Int("alerts", len(alerts)), applogger.Error(err))
		return snap, nil
	}
	r.l.Info("alerts published", applogger.Int("alerts", len(alerts)), applogger.Uint64("version", snap.Version))
	return snap, nil
}
