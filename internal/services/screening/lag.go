package screening

import (
	"fmt"
	"sort"

	"RiskScreen/internal/domain/models"
)

type span struct{ lo, hi int }

// LagIndex holds rows ordered by (entity asc, period desc) with per-entity spans.
// Lag lookups never cross entity boundaries.
type LagIndex struct {
	rows    []models.ReportRow
	periods []Period
	owner   []int // span index per row
	spans   []span
	byName  map[string]int
}

// Align sorts rows per entity by recency and builds the lag index.
// Input order breaks ties between rows of equal recency, including rows that
// repeat a period key; a repeated row is kept and lags as the earlier period.
func Align(rows []models.ReportRow) (*LagIndex, error) {
	type item struct {
		row    models.ReportRow
		period Period
	}
	items := make([]item, 0, len(rows))
	for _, r := range rows {
		p, err := ParsePeriod(r.Period)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", r.Entity, err)
		}
		items = append(items, item{row: r, period: p})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].row.Entity != items[j].row.Entity {
			return items[i].row.Entity < items[j].row.Entity
		}
		return items[i].period.Ordinal > items[j].period.Ordinal
	})

	idx := &LagIndex{
		rows:    make([]models.ReportRow, 0, len(items)),
		periods: make([]Period, 0, len(items)),
		owner:   make([]int, 0, len(items)),
		byName:  make(map[string]int),
	}
	for _, it := range items {
		n := len(idx.rows)
		if n == 0 || idx.rows[n-1].Entity != it.row.Entity {
			idx.spans = append(idx.spans, span{lo: n, hi: n})
			idx.byName[it.row.Entity] = len(idx.spans) - 1
		}
		s := len(idx.spans) - 1
		idx.rows = append(idx.rows, it.row)
		idx.periods = append(idx.periods, it.period)
		idx.owner = append(idx.owner, s)
		idx.spans[s].hi = n + 1
	}
	return idx, nil
}

// Len returns the number of aligned rows.
func (x *LagIndex) Len() int { return len(x.rows) }

// Row returns the i-th aligned row.
func (x *LagIndex) Row(i int) models.ReportRow { return x.rows[i] }

// Period returns the parsed period of the i-th aligned row.
func (x *LagIndex) Period(i int) Period { return x.periods[i] }

// Lag returns metric m at k periods before row i for the same entity.
// Offsets beyond the entity's history are absent.
func (x *LagIndex) Lag(i int, metric string, k int) models.Value {
	if i < 0 || i >= len(x.rows) || k < 0 {
		return models.Absent()
	}
	j := i + k
	if j >= x.spans[x.owner[i]].hi {
		return models.Absent()
	}
	return x.rows[j].Metric(metric)
}

// IsLatest reports whether row i is the most recent row of its entity.
func (x *LagIndex) IsLatest(i int) bool {
	return x.spans[x.owner[i]].lo == i
}

// Entities returns entity ids in ascending order.
func (x *LagIndex) Entities() []string {
	out := make([]string, 0, len(x.spans))
	for _, s := range x.spans {
		out = append(out, x.rows[s.lo].Entity)
	}
	return out
}

// Series returns the rows of one entity, most recent first.
func (x *LagIndex) Series(entity string) []models.ReportRow {
	s, ok := x.byName[entity]
	if !ok {
		return nil
	}
	sp := x.spans[s]
	return x.rows[sp.lo:sp.hi:sp.hi]
}
