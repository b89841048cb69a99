package screening

import (
	"fmt"

	"RiskScreen/internal/domain/models"
)

// PeriodFilter restricts rows to a year and, in interim mode, a set of quarters.
// Zero values select everything.
type PeriodFilter struct {
	Year     int
	Quarters []int
}

// Match reports whether the row falls inside the filter for the given mode.
func (f PeriodFilter) Match(r models.ReportRow, mode models.Mode) bool {
	if f.Year != 0 && r.Year != f.Year {
		return false
	}
	if mode != models.ModeInterim || len(f.Quarters) == 0 {
		return true
	}
	p, err := ParsePeriod(r.Period)
	if err != nil {
		return false
	}
	for _, q := range f.Quarters {
		if p.Quarter == q {
			return true
		}
	}
	return false
}

// EvaluateVirtualGrowth runs classification, alignment and the virtual growth rule.
func EvaluateVirtualGrowth(panel *models.Panel, mode models.Mode) ([]models.VirtualGrowthRow, error) {
	if err := RequireIdentity(panel); err != nil {
		return nil, err
	}
	idx, err := Align(Classify(panel.Rows, mode))
	if err != nil {
		return nil, fmt.Errorf("virtual growth: %w", err)
	}
	return VirtualGrowth(idx, models.MetricCFO, models.MetricNetRevenue), nil
}

// EvaluateStreak runs the negative streak rule for the given metrics.
func EvaluateStreak(panel *models.Panel, mode models.Mode, metrics []string) ([]models.StreakRow, []string, error) {
	if err := RequireIdentity(panel); err != nil {
		return nil, nil, err
	}
	idx, err := Align(Classify(panel.Rows, mode))
	if err != nil {
		return nil, nil, fmt.Errorf("negative streak: %w", err)
	}
	rows, evaluated := NegativeStreak(idx, panel, metrics)
	return rows, evaluated, nil
}

// EvaluateGroupRank filters by mode, period and groups, then ranks the metrics the panel has.
func EvaluateGroupRank(panel *models.Panel, mode models.Mode, f PeriodFilter, groups []string, metrics []string) ([]models.GroupRankRow, []string, error) {
	if err := RequireColumns(panel, models.ColEntity, models.ColPeriod, models.ColGroup); err != nil {
		return nil, nil, err
	}
	ranked := present(panel, metrics)
	allowed := toSet(groups)

	rows := make([]models.ReportRow, 0)
	for _, r := range Classify(panel.Rows, mode) {
		if !f.Match(r, mode) {
			continue
		}
		if len(allowed) > 0 && !allowed[r.Group] {
			continue
		}
		rows = append(rows, r)
	}
	return RankWithinGroup(rows, ranked), ranked, nil
}

func toSet(xs []string) map[string]bool {
	if len(xs) == 0 {
		return nil
	}
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		m[x] = true
	}
	return m
}
