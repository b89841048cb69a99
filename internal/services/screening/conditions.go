package screening

import "RiskScreen/internal/domain/models"

// VirtualGrowth flags rows where operating cash flow is negative while revenue is
// positive, both in the current period and in the previous period of the same entity.
// Rows are returned in aligned order. Missing cfo or revenue columns leave every flag empty.
func VirtualGrowth(idx *LagIndex, cfo, revenue string) []models.VirtualGrowthRow {
	out := make([]models.VirtualGrowthRow, 0, idx.Len())
	for i := 0; i < idx.Len(); i++ {
		flag := models.SeverityNone
		if disguised(idx, i, 0, cfo, revenue) && disguised(idx, i, 1, cfo, revenue) {
			flag = models.SeveritySingle
		}
		out = append(out, models.VirtualGrowthRow{Row: idx.Row(i), Flag: flag})
	}
	return out
}

func disguised(idx *LagIndex, i, k int, cfo, revenue string) bool {
	return idx.Lag(i, cfo, k).Less(0) && idx.Lag(i, revenue, k).Greater(0)
}

// StreakSeverity maps consecutive negative periods to a severity level.
// s0 is the current period, s1 and s2 the two before it.
func StreakSeverity(s0, s1, s2 bool) models.Severity {
	switch {
	case !s0:
		return models.SeverityNone
	case !s1:
		return models.SeveritySingle
	case !s2:
		return models.SeverityDouble
	default:
		return models.SeverityTriple
	}
}

// NegativeStreak evaluates the persistent-negative rule independently for each metric
// and keeps only the latest row of each entity. Metrics missing from the panel schema
// are skipped; the returned slice lists the metrics actually evaluated.
func NegativeStreak(idx *LagIndex, panel *models.Panel, metrics []string) ([]models.StreakRow, []string) {
	evaluated := make([]string, 0, len(metrics))
	dup := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		if dup[m] || !panel.Has(m) {
			continue
		}
		dup[m] = true
		evaluated = append(evaluated, m)
	}

	out := make([]models.StreakRow, 0)
	for i := 0; i < idx.Len(); i++ {
		if !idx.IsLatest(i) {
			continue
		}
		sev := make(map[string]models.Severity, len(evaluated))
		for _, m := range evaluated {
			sev[m] = StreakAt(idx, i, m)
		}
		out = append(out, models.StreakRow{Row: idx.Row(i), Severities: sev})
	}
	return out, evaluated
}

// StreakAt evaluates one metric's streak severity at any aligned row, not only the latest.
func StreakAt(idx *LagIndex, i int, metric string) models.Severity {
	return StreakSeverity(
		idx.Lag(i, metric, 0).Less(0),
		idx.Lag(i, metric, 1).Less(0),
		idx.Lag(i, metric, 2).Less(0),
	)
}
