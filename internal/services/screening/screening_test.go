package screening

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"

	"RiskScreen/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(entity, period string, metrics map[string]float64) models.ReportRow {
	p, _ := ParsePeriod(period)
	r := models.ReportRow{Entity: entity, Period: period, PeriodLength: 1, Year: p.Year, Metrics: map[string]models.Value{}}
	if p.Quarter == 0 {
		r.PeriodLength = models.AnnualLength
	}
	for k, v := range metrics {
		r.Metrics[k] = models.Some(v)
	}
	return r
}

func panelOf(rows ...models.ReportRow) *models.Panel {
	return models.NewPanel([]string{
		models.ColEntity, models.ColPeriod, models.ColPeriodLength, models.ColYear, models.ColGroup,
		models.MetricCFO, models.MetricNetRevenue, models.MetricParentProfit, models.MetricNetIncome,
		models.MetricGrossMargin, models.MetricNetMargin,
	}, rows)
}

func cfoRev(c, r float64) map[string]float64 {
	return map[string]float64{models.MetricCFO: c, models.MetricNetRevenue: r}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		key     string
		year    int
		quarter int
		ordinal int
	}{
		{"2025_Q1", 2025, 1, 2025*12 + 3},
		{"2025_Q4", 2025, 4, 2025*12 + 12},
		{"2024", 2024, 0, 2024*12 + 12},
		{"2024_FY", 2024, 0, 2024*12 + 12},
		{"2024_H1", 2024, 0, 2024*12 + 6},
		{" 2023_q2 ", 2023, 2, 2023*12 + 6},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			p, err := ParsePeriod(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.year, p.Year)
			assert.Equal(t, tt.quarter, p.Quarter)
			assert.Equal(t, tt.ordinal, p.Ordinal)
		})
	}

	for _, bad := range []string{"", "Q1_2025", "2025_Q5", "25_Q1", "2025-13"} {
		_, err := ParsePeriod(bad)
		assert.ErrorIs(t, err, ErrUnorderablePeriod, bad)
	}
}

func TestClassify(t *testing.T) {
	rows := []models.ReportRow{
		row("AAA", "2024", nil),
		row("AAA", "2024_Q4", nil),
		row("BBB", "2024_Q3", nil),
	}
	assert.Len(t, Classify(rows, models.ModeAnnual), 1)
	assert.Len(t, Classify(rows, models.ModeInterim), 2)
	assert.Empty(t, Classify(nil, models.ModeAnnual))
	assert.NotNil(t, Classify(nil, models.ModeAnnual))
}

func TestAlignOrdersPerEntityDescending(t *testing.T) {
	idx, err := Align([]models.ReportRow{
		row("BBB", "2024_Q1", nil),
		row("AAA", "2024_Q1", nil),
		row("AAA", "2024_Q3", nil),
		row("BBB", "2023_Q4", nil),
		row("AAA", "2024_Q2", nil),
	})
	require.NoError(t, err)

	got := make([]string, 0, idx.Len())
	for i := 0; i < idx.Len(); i++ {
		got = append(got, idx.Row(i).Entity+"/"+idx.Row(i).Period)
	}
	assert.Equal(t, []string{"AAA/2024_Q3", "AAA/2024_Q2", "AAA/2024_Q1", "BBB/2024_Q1", "BBB/2023_Q4"}, got)
	assert.Equal(t, []string{"AAA", "BBB"}, idx.Entities())
	assert.Len(t, idx.Series("BBB"), 2)
	assert.Nil(t, idx.Series("CCC"))
	assert.True(t, idx.IsLatest(0))
	assert.False(t, idx.IsLatest(1))
	assert.True(t, idx.IsLatest(3))
}

func TestAlignLagNeverCrossesEntities(t *testing.T) {
	idx, err := Align([]models.ReportRow{
		row("AAA", "2024_Q1", cfoRev(-1, 1)),
		row("BBB", "2024_Q2", cfoRev(-2, 2)),
		row("BBB", "2024_Q1", cfoRev(-3, 3)),
	})
	require.NoError(t, err)

	// AAA has a single period; offset 1 must be absent, not BBB's value.
	assert.False(t, idx.Lag(0, models.MetricCFO, 1).Present())
	v, ok := idx.Lag(1, models.MetricCFO, 1).Get()
	assert.True(t, ok)
	assert.Equal(t, -3.0, v)
	assert.False(t, idx.Lag(1, models.MetricCFO, 2).Present())
	assert.False(t, idx.Lag(1, models.MetricCFO, -1).Present())
}

func TestAlignLagIsolationUnderShuffle(t *testing.T) {
	base := []models.ReportRow{
		row("AAA", "2024_Q4", cfoRev(-4, 1)),
		row("AAA", "2024_Q3", cfoRev(-3, 1)),
		row("AAA", "2024_Q2", cfoRev(2, 1)),
		row("BBB", "2024_Q4", cfoRev(40, 1)),
		row("BBB", "2024_Q3", cfoRev(-30, 1)),
		row("BBB", "2024_Q1", cfoRev(-10, 1)),
		row("CCC", "2024_Q3", cfoRev(-7, 1)),
	}
	snapshot := func(idx *LagIndex, entity string) [][4]models.Value {
		var out [][4]models.Value
		for i := 0; i < idx.Len(); i++ {
			if idx.Row(i).Entity != entity {
				continue
			}
			var lags [4]models.Value
			for k := range lags {
				lags[k] = idx.Lag(i, models.MetricCFO, k)
			}
			out = append(out, lags)
		}
		return out
	}

	ref, err := Align(base)
	require.NoError(t, err)
	want := snapshot(ref, "AAA")
	require.Len(t, want, 3)
	assert.False(t, want[2][1].Present())

	rng := rand.New(rand.NewSource(7))
	for n := 0; n < 50; n++ {
		shuffled := append([]models.ReportRow(nil), base...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		idx, err := Align(shuffled)
		require.NoError(t, err)
		assert.Equal(t, want, snapshot(idx, "AAA"))
	}
}

func TestAlignKeepsRepeatedPeriodsInInputOrder(t *testing.T) {
	rows := []models.ReportRow{
		row("AAA", "2025_Q2", cfoRev(-5, 100)),
		row("ZZZ", "2025_Q1", cfoRev(-1, 10)),
		row("AAA", "2025_Q1", cfoRev(1, 100)),
		row("AAA", "2025_Q2", cfoRev(-6, 100)),
		row("ZZZ", "2025_Q2", cfoRev(-1, 10)),
	}

	idx, err := Align(rows)
	require.NoError(t, err)
	require.Equal(t, 5, idx.Len())

	aaa := idx.Series("AAA")
	require.Len(t, aaa, 3)
	assert.Equal(t, []string{"2025_Q2", "2025_Q2", "2025_Q1"}, []string{aaa[0].Period, aaa[1].Period, aaa[2].Period})
	assert.True(t, aaa[0].Metric(models.MetricCFO).Less(-4.5), "first input row stays ahead")
	assert.Equal(t, models.Some(-6), idx.Lag(0, models.MetricCFO, 1), "repeated row lags as the previous period")

	out, err := EvaluateVirtualGrowth(panelOf(rows...), models.ModeInterim)
	require.NoError(t, err)
	require.Len(t, out, 5)
	flags := map[string][]models.Severity{}
	for _, r := range out {
		flags[r.Row.Entity] = append(flags[r.Row.Entity], r.Flag)
	}
	assert.Equal(t, []models.Severity{models.SeveritySingle, models.SeverityNone, models.SeverityNone}, flags["AAA"])
	assert.Equal(t, []models.Severity{models.SeveritySingle, models.SeverityNone}, flags["ZZZ"])

	streaks, _, err := EvaluateStreak(panelOf(rows...), models.ModeInterim, []string{models.MetricCFO})
	require.NoError(t, err)
	require.Len(t, streaks, 2)
	assert.Equal(t, models.SeverityDouble, streaks[0].Severities[models.MetricCFO])
	assert.Equal(t, models.SeverityDouble, streaks[1].Severities[models.MetricCFO])
}

func TestAlignKeepsIdenticalDuplicates(t *testing.T) {
	idx, err := Align([]models.ReportRow{
		row("AAA", "2024_Q1", cfoRev(-1, 1)),
		row("AAA", "2024_Q1", cfoRev(-1, 1)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
}

func TestAlignRejectsUnparseablePeriod(t *testing.T) {
	_, err := Align([]models.ReportRow{{Entity: "AAA", Period: "latest"}})
	assert.ErrorIs(t, err, ErrUnorderablePeriod)
}

func TestStreakSeverityMonotonic(t *testing.T) {
	periods := []string{"2024_Q4", "2024_Q3", "2024_Q2", "2024_Q1", "2023_Q4", "2023_Q3"}
	for k := 0; k <= 4; k++ {
		rows := make([]models.ReportRow, 0, len(periods))
		for i, p := range periods {
			v := 10.0
			if i < k {
				v = -1
			}
			rows = append(rows, row("AAA", p, map[string]float64{models.MetricCFO: v}))
		}
		idx, err := Align(rows)
		require.NoError(t, err)
		out, evaluated := NegativeStreak(idx, panelOf(rows...), []string{models.MetricCFO})
		require.Len(t, out, 1)
		assert.Equal(t, []string{models.MetricCFO}, evaluated)
		assert.Equal(t, models.Severity(min(k, 3)), out[0].Severities[models.MetricCFO], "k=%d", k)
	}
}

func TestStreakAbsentHistoryBreaksStreak(t *testing.T) {
	rows := []models.ReportRow{
		row("AAA", "2024_Q4", map[string]float64{models.MetricCFO: -1}),
		{Entity: "AAA", Period: "2024_Q3", Metrics: map[string]models.Value{models.MetricCFO: models.Some(math.NaN())}},
		row("AAA", "2024_Q2", map[string]float64{models.MetricCFO: -1}),
	}
	idx, err := Align(rows)
	require.NoError(t, err)
	out, _ := NegativeStreak(idx, panelOf(rows...), []string{models.MetricCFO})
	require.Len(t, out, 1)
	assert.Equal(t, models.SeveritySingle, out[0].Severities[models.MetricCFO])
}

func TestStreakSkipsMissingMetricColumns(t *testing.T) {
	rows := []models.ReportRow{row("AAA", "2024_Q4", map[string]float64{models.MetricCFO: -1})}
	panel := models.NewPanel([]string{models.ColEntity, models.ColPeriod, models.MetricCFO}, rows)
	idx, err := Align(rows)
	require.NoError(t, err)

	out, evaluated := NegativeStreak(idx, panel, []string{models.MetricNetIncome, models.MetricCFO, models.MetricCFO})
	assert.Equal(t, []string{models.MetricCFO}, evaluated)
	require.Len(t, out, 1)
	assert.NotContains(t, out[0].Severities, models.MetricNetIncome)
}

func TestStreakAllAbsentIsNone(t *testing.T) {
	rows := []models.ReportRow{
		{Entity: "AAA", Period: "2024_Q4"},
		{Entity: "AAA", Period: "2024_Q3"},
	}
	idx, err := Align(rows)
	require.NoError(t, err)
	out, _ := NegativeStreak(idx, panelOf(rows...), []string{models.MetricCFO})
	require.Len(t, out, 1)
	assert.Equal(t, models.SeverityNone, out[0].Severities[models.MetricCFO])
}

func TestVirtualGrowthRequiresBothPeriods(t *testing.T) {
	tests := []struct {
		name string
		cur  map[string]float64
		prev map[string]float64
		want models.Severity
	}{
		{"both met", cfoRev(-5, 100), cfoRev(-3, 50), models.SeveritySingle},
		{"previous cfo positive", cfoRev(-5, 100), cfoRev(3, 50), models.SeverityNone},
		{"previous revenue zero", cfoRev(-5, 100), cfoRev(-3, 0), models.SeverityNone},
		{"current revenue negative", cfoRev(-5, -1), cfoRev(-3, 50), models.SeverityNone},
		{"previous revenue absent", cfoRev(-5, 100), map[string]float64{models.MetricCFO: -3}, models.SeverityNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Align([]models.ReportRow{
				row("AAA", "2024_Q2", tt.cur),
				row("AAA", "2024_Q1", tt.prev),
			})
			require.NoError(t, err)
			out := VirtualGrowth(idx, models.MetricCFO, models.MetricNetRevenue)
			require.Len(t, out, 2)
			assert.Equal(t, tt.want, out[0].Flag)
			assert.Equal(t, models.SeverityNone, out[1].Flag)
		})
	}
}

func TestSinglePeriodEntityIsAbsentSafe(t *testing.T) {
	for _, v := range []float64{-100, -1, 0, 1} {
		rows := []models.ReportRow{row("ONE", "2024_Q1", map[string]float64{
			models.MetricCFO: v, models.MetricNetRevenue: 1, models.MetricNetIncome: v,
		})}
		idx, err := Align(rows)
		require.NoError(t, err)

		vg := VirtualGrowth(idx, models.MetricCFO, models.MetricNetRevenue)
		require.Len(t, vg, 1)
		assert.Equal(t, models.SeverityNone, vg[0].Flag)

		st, _ := NegativeStreak(idx, panelOf(rows...), []string{models.MetricCFO, models.MetricNetIncome})
		require.Len(t, st, 1)
		for _, s := range st[0].Severities {
			assert.LessOrEqual(t, s, models.SeveritySingle)
		}
	}
}

func TestEndToEndScenario(t *testing.T) {
	panel := panelOf(
		row("BBB", "2025_Q2", cfoRev(-1, 10)),
		row("AAA", "2025_Q1", cfoRev(-3, 50)),
		row("AAA", "2025_Q2", cfoRev(-5, 100)),
	)

	vg, err := EvaluateVirtualGrowth(panel, models.ModeInterim)
	require.NoError(t, err)
	require.Len(t, vg, 3)
	assert.Equal(t, "AAA", vg[0].Row.Entity)
	assert.Equal(t, "2025_Q2", vg[0].Row.Period)
	assert.Equal(t, models.SeveritySingle, vg[0].Flag)
	assert.Equal(t, "!", vg[0].Flag.Marker())
	assert.Equal(t, models.SeverityNone, vg[1].Flag)
	assert.Equal(t, "BBB", vg[2].Row.Entity)
	assert.Equal(t, models.SeverityNone, vg[2].Flag)

	idx, err := Align(Classify(panel.Rows, models.ModeInterim))
	require.NoError(t, err)
	assert.Equal(t, models.SeverityDouble, StreakAt(idx, 0, models.MetricCFO))
	assert.Equal(t, models.SeveritySingle, StreakAt(idx, 1, models.MetricCFO))

	st, evaluated, err := EvaluateStreak(panel, models.ModeInterim, []string{models.MetricCFO})
	require.NoError(t, err)
	assert.Equal(t, []string{models.MetricCFO}, evaluated)
	require.Len(t, st, 2)
	assert.Equal(t, "2025_Q2", st[0].Row.Period)
	assert.Equal(t, models.SeverityDouble, st[0].Severities[models.MetricCFO])
	assert.Equal(t, "BBB", st[1].Row.Entity)
	assert.Equal(t, models.SeveritySingle, st[1].Severities[models.MetricCFO])
}

func TestEvaluateRequiresIdentityColumns(t *testing.T) {
	panel := models.NewPanel([]string{models.ColPeriod, models.MetricCFO}, nil)
	_, err := EvaluateVirtualGrowth(panel, models.ModeInterim)
	assert.ErrorIs(t, err, ErrSchema)
	assert.Contains(t, err.Error(), models.ColEntity)

	_, _, err = EvaluateStreak(panel, models.ModeAnnual, []string{models.MetricCFO})
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestEvaluateEmptyPanel(t *testing.T) {
	panel := panelOf()
	vg, err := EvaluateVirtualGrowth(panel, models.ModeAnnual)
	require.NoError(t, err)
	assert.Empty(t, vg)

	st, _, err := EvaluateStreak(panel, models.ModeInterim, []string{models.MetricCFO})
	require.NoError(t, err)
	assert.Empty(t, st)

	gr, _, err := EvaluateGroupRank(panel, models.ModeInterim, PeriodFilter{}, nil, []string{models.MetricGrossMargin})
	require.NoError(t, err)
	assert.Empty(t, gr)
}

func TestIdempotentOutput(t *testing.T) {
	panel := panelOf(
		row("AAA", "2025_Q1", cfoRev(-3, 50)),
		row("CCC", "2025_Q1", cfoRev(-3, 50)),
		row("AAA", "2025_Q2", cfoRev(-5, 100)),
		row("CCC", "2025_Q2", cfoRev(1, 50)),
	)
	render := func() []byte {
		vg, err := EvaluateVirtualGrowth(panel, models.ModeInterim)
		require.NoError(t, err)
		b, err := json.Marshal(ProjectVirtualGrowth(panel, vg))
		require.NoError(t, err)
		return b
	}
	assert.Equal(t, render(), render())
}
