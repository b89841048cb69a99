package models

import (
	"math"
	"time"
)

// Column keys of the report panel. Identity columns first, then metrics.
const (
	ColEntity       = "entity"
	ColPeriod       = "period"
	ColPeriodLength = "period_length"
	ColYear         = "year"
	ColGroup        = "group"

	MetricCFO          = "cfo"           // net operating cash flow
	MetricNetRevenue   = "net_revenue"   // net revenue
	MetricParentProfit = "parent_profit" // net profit attributable to parent shareholders
	MetricNetIncome    = "net_income"    // net income after tax
	MetricGrossMargin  = "gross_margin"
	MetricNetMargin    = "net_margin"
)

// AnnualLength is the period_length sentinel used by annual reports.
const AnnualLength = 5

// Mode selects annual or interim reports.
type Mode string

const (
	ModeAnnual  Mode = "annual"
	ModeInterim Mode = "interim"
)

// Value is an optional metric value. The zero Value is absent.
type Value struct {
	v  float64
	ok bool
}

// Some returns a present value. NaN is treated as absent.
func Some(v float64) Value {
	if math.IsNaN(v) {
		return Value{}
	}
	return Value{v: v, ok: true}
}

// Absent returns a missing value.
func Absent() Value { return Value{} }

// Get returns the value and whether it is present.
func (v Value) Get() (float64, bool) { return v.v, v.ok }

// Present reports whether the value exists.
func (v Value) Present() bool { return v.ok }

// Finite reports whether the value is present and not infinite.
func (v Value) Finite() bool { return v.ok && !math.IsInf(v.v, 0) }

// Less reports v < x; absent is never less than anything.
func (v Value) Less(x float64) bool { return v.ok && v.v < x }

// Greater reports v > x; absent is never greater than anything.
func (v Value) Greater(x float64) bool { return v.ok && v.v > x }

// Ptr returns a pointer to the value, or nil if absent. Used for JSON output.
func (v Value) Ptr() *float64 {
	if !v.ok {
		return nil
	}
	f := v.v
	return &f
}

// ReportRow is one reporting period for one entity.
type ReportRow struct {
	Entity       string
	Period       string
	PeriodLength int
	Year         int
	Group        string
	Metrics      map[string]Value
}

// Metric returns the named metric, absent when missing.
func (r ReportRow) Metric(name string) Value {
	if r.Metrics == nil {
		return Value{}
	}
	return r.Metrics[name]
}

// IsAnnual reports whether the row is an annual report.
func (r ReportRow) IsAnnual() bool { return r.PeriodLength == AnnualLength }

// Panel is an immutable snapshot of the loaded report table.
type Panel struct {
	Columns  map[string]bool
	Rows     []ReportRow
	LoadedAt time.Time
}

// NewPanel builds a panel from the column set and rows.
func NewPanel(columns []string, rows []ReportRow) *Panel {
	cols := make(map[string]bool, len(columns))
	for _, c := range columns {
		cols[c] = true
	}
	return &Panel{Columns: cols, Rows: rows, LoadedAt: time.Now()}
}

// Has reports whether the source schema carried the column.
func (p *Panel) Has(col string) bool {
	return p != nil && p.Columns[col]
}

// Empty reports whether the panel has no rows.
func (p *Panel) Empty() bool {
	return p == nil || len(p.Rows) == 0
}
