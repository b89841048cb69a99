package screening

import (
	"math"
	"sort"
	"strings"

	"RiskScreen/internal/domain/models"
)

type partitionKey struct {
	year   int
	period string
	group  string
}

// RankWithinGroup ranks each metric inside partitions of (year, period, group).
// Rank is descending with min tie-break; deviation is (value - mean) * 100 in
// percentage points over the partition's present values. Infinite values are
// treated as absent. Rows with every metric absent, or without a group, are dropped.
func RankWithinGroup(rows []models.ReportRow, metrics []string) []models.GroupRankRow {
	parts := make(map[partitionKey][]models.ReportRow)
	keys := make([]partitionKey, 0)
	for _, r := range rows {
		if r.Group == "" {
			continue
		}
		k := partitionKey{year: r.Year, period: strings.ToUpper(strings.TrimSpace(r.Period)), group: r.Group}
		if _, ok := parts[k]; !ok {
			keys = append(keys, k)
		}
		parts[k] = append(parts[k], r)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.year != b.year {
			return a.year < b.year
		}
		if a.period != b.period {
			return a.period < b.period
		}
		return a.group < b.group
	})

	out := make([]models.GroupRankRow, 0, len(rows))
	for _, k := range keys {
		out = append(out, rankPartition(parts[k], metrics)...)
	}
	return out
}

func rankPartition(rows []models.ReportRow, metrics []string) []models.GroupRankRow {
	// vals[m][i] is the finite value of metric m for row i
	vals := make(map[string][]models.Value, len(metrics))
	means := make(map[string]float64, len(metrics))
	for _, m := range metrics {
		col := make([]models.Value, len(rows))
		var sum float64
		var n int
		for i, r := range rows {
			v := r.Metric(m)
			if !v.Finite() {
				continue
			}
			col[i] = v
			f, _ := v.Get()
			sum += f
			n++
		}
		vals[m] = col
		if n > 0 {
			means[m] = sum / float64(n)
		}
	}

	out := make([]models.GroupRankRow, 0, len(rows))
	for i, r := range rows {
		stats := make(map[string]models.RankStat, len(metrics))
		kept := false
		for _, m := range metrics {
			f, ok := vals[m][i].Get()
			if !ok {
				stats[m] = models.RankStat{}
				continue
			}
			kept = true
			rank := minRankDesc(vals[m], f)
			dev := (f - means[m]) * 100
			stats[m] = models.RankStat{Rank: &rank, DeviationPP: &dev}
		}
		if !kept {
			continue
		}
		out = append(out, models.GroupRankRow{Row: finiteRow(r, metrics), Stats: stats})
	}
	return out
}

// minRankDesc is 1 + the number of present values strictly greater than f.
func minRankDesc(col []models.Value, f float64) int {
	rank := 1
	for _, v := range col {
		if x, ok := v.Get(); ok && x > f {
			rank++
		}
	}
	return rank
}

// finiteRow returns r with infinite values of the ranked metrics replaced by absent.
func finiteRow(r models.ReportRow, metrics []string) models.ReportRow {
	clean := false
	for _, m := range metrics {
		if f, ok := r.Metric(m).Get(); ok && math.IsInf(f, 0) {
			clean = true
			break
		}
	}
	if !clean {
		return r
	}
	cp := make(map[string]models.Value, len(r.Metrics))
	for k, v := range r.Metrics {
		cp[k] = v
	}
	for _, m := range metrics {
		if !cp[m].Finite() {
			cp[m] = models.Absent()
		}
	}
	r.Metrics = cp
	return r
}
