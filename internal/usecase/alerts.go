package usecase

import (
	"fmt"
	"time"

	"RiskScreen/internal/domain/models"
	"RiskScreen/internal/services/screening"
)

// BuildAlerts collects the flags raised at each entity's latest report in both modes:
// virtual growth flags and negative streaks at or above minStreak.
func BuildAlerts(snap *Snapshot, minStreak models.Severity, now time.Time) ([]models.Alert, error) {
	out := make([]models.Alert, 0)
	for _, mode := range []models.Mode{models.ModeInterim, models.ModeAnnual} {
		vg, err := screening.EvaluateVirtualGrowth(snap.Panel, mode)
		if err != nil {
			return nil, fmt.Errorf("alerts %s: %w", mode, err)
		}
		prev := ""
		for _, r := range vg {
			latest := r.Row.Entity != prev
			prev = r.Row.Entity
			if !latest || r.Flag == models.SeverityNone {
				continue
			}
			out = append(out, alert(RuleVirtualGrowth, r.Row, "", r.Flag, snap.Version, now))
		}

		streaks, evaluated, err := screening.EvaluateStreak(snap.Panel, mode, StreakMetrics)
		if err != nil {
			return nil, fmt.Errorf("alerts %s: %w", mode, err)
		}
		for _, r := range streaks {
			for _, m := range evaluated {
				if sev := r.Severities[m]; sev >= minStreak && sev > models.SeverityNone {
					out = append(out, alert(RuleNegativeStreak, r.Row, m, sev, snap.Version, now))
				}
			}
		}
	}
	return out, nil
}

func alert(rule string, r models.ReportRow, metric string, sev models.Severity, version uint64, now time.Time) models.Alert {
	return models.Alert{
		Rule:      rule,
		Entity:    r.Entity,
		Period:    r.Period,
		Metric:    metric,
		Severity:  int(sev),
		Marker:    sev.Marker(),
		Version:   version,
		Timestamp: now,
	}
}
