package screening

import "RiskScreen/internal/domain/models"

// Labels are the presentation names of output columns.
var Labels = map[string]string{
	models.ColEntity:          "Ticker",
	models.ColPeriod:          "Period",
	models.ColYear:            "Year",
	models.ColGroup:           "Industry",
	"flag":                    "Virtual growth",
	models.MetricCFO:          "Operating cash flow",
	models.MetricNetRevenue:   "Net revenue",
	models.MetricParentProfit: "Parent company profit",
	models.MetricNetIncome:    "Net income",
	models.MetricGrossMargin:  "Gross margin",
	models.MetricNetMargin:    "Net margin",
	models.ColExchange:        "Exchange",
	models.ColModel:           "Business model",
}

// Label returns the presentation name of a column key, or the key itself.
func Label(key string) string { return label(key) }

// Virtual growth allow-list after entity, period and flag.
var virtualGrowthMetrics = []string{
	models.MetricCFO,
	models.MetricNetRevenue,
	models.MetricParentProfit,
	models.MetricNetIncome,
}

// RankKey and DeviationKey name the per-metric statistic columns.
func RankKey(metric string) string      { return "rank_" + metric }
func DeviationKey(metric string) string { return "dev_pp_" + metric }

func label(key string) string {
	if l, ok := Labels[key]; ok {
		return l
	}
	return key
}

func col(key string) models.Column { return models.Column{Key: key, Label: label(key)} }

// ProjectVirtualGrowth projects virtual growth rows, keeping only metric columns the panel has.
func ProjectVirtualGrowth(panel *models.Panel, rows []models.VirtualGrowthRow) *models.Table {
	metrics := present(panel, virtualGrowthMetrics)
	t := &models.Table{Columns: []models.Column{col(models.ColEntity), col(models.ColPeriod), col("flag")}}
	for _, m := range metrics {
		t.Columns = append(t.Columns, col(m))
	}
	t.Rows = make([][]any, 0, len(rows))
	for _, r := range rows {
		line := []any{r.Row.Entity, r.Row.Period, r.Flag.Marker()}
		for _, m := range metrics {
			line = append(line, r.Row.Metric(m).Ptr())
		}
		t.Rows = append(t.Rows, line)
	}
	return t
}

// ProjectStreak projects streak rows with one marker column per evaluated metric.
func ProjectStreak(rows []models.StreakRow, metrics []string) *models.Table {
	t := &models.Table{Columns: []models.Column{col(models.ColEntity), col(models.ColPeriod)}}
	for _, m := range metrics {
		t.Columns = append(t.Columns, col(m))
	}
	t.Rows = make([][]any, 0, len(rows))
	for _, r := range rows {
		line := []any{r.Row.Entity, r.Row.Period}
		for _, m := range metrics {
			line = append(line, r.Severities[m].Marker())
		}
		t.Rows = append(t.Rows, line)
	}
	return t
}

// ProjectGroupRank projects ranked rows as rank, deviation and raw value per metric.
func ProjectGroupRank(rows []models.GroupRankRow, metrics []string) *models.Table {
	t := &models.Table{Columns: []models.Column{
		col(models.ColEntity), col(models.ColGroup), col(models.ColYear), col(models.ColPeriod),
	}}
	for _, m := range metrics {
		t.Columns = append(t.Columns,
			models.Column{Key: RankKey(m), Label: "Rank " + label(m)},
			models.Column{Key: DeviationKey(m), Label: label(m) + " vs industry (pp)"},
			col(m),
		)
	}
	t.Rows = make([][]any, 0, len(rows))
	for _, r := range rows {
		line := []any{r.Row.Entity, r.Row.Group, r.Row.Year, r.Row.Period}
		for _, m := range metrics {
			st := r.Stats[m]
			line = append(line, st.Rank, st.DeviationPP, r.Row.Metric(m).Ptr())
		}
		t.Rows = append(t.Rows, line)
	}
	return t
}

func present(panel *models.Panel, cols []string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if panel.Has(c) {
			out = append(out, c)
		}
	}
	return out
}
