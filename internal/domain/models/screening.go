package models

import "strings"

// Severity is the flag level assigned to a (row, metric) pair.
type Severity int

const (
	SeverityNone Severity = iota
	SeveritySingle
	SeverityDouble
	SeverityTriple
)

// FlagMarker is the single marker unit; a severity renders as N markers.
const FlagMarker = "!"

// Marker renders the severity as a short marker string; none is empty.
func (s Severity) Marker() string {
	if s <= SeverityNone {
		return ""
	}
	return strings.Repeat(FlagMarker, int(s))
}

// VirtualGrowthRow is a row evaluated by the disguised growth rule.
type VirtualGrowthRow struct {
	Row  ReportRow
	Flag Severity
}

// StreakRow holds per-metric negative streak severities for the latest row of an entity.
type StreakRow struct {
	Row        ReportRow
	Severities map[string]Severity
}

// RankStat is the within-partition rank and deviation of one metric.
// Both are nil when the metric is absent for the row.
type RankStat struct {
	Rank        *int
	DeviationPP *float64
}

// GroupRankRow is a ranked row with per-metric statistics.
type GroupRankRow struct {
	Row   ReportRow
	Stats map[string]RankStat
}

// Column is one projected output column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Table is a projected, presentation-ready result.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the index of key, or -1.
func (t *Table) ColumnIndex(key string) int {
	for i, c := range t.Columns {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// PeriodOptions lists selectable years and, for interim mode, quarters per year.
type PeriodOptions struct {
	Mode     Mode          `json:"mode"`
	Years    []int         `json:"years"`
	Quarters map[int][]int `json:"quarters,omitempty"`
}
