package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"RiskScreen/internal/domain/models"
	domrepo "RiskScreen/internal/domain/repository"
	"RiskScreen/internal/service/cache"
	"RiskScreen/internal/services/screening"
	applogger "RiskScreen/pkg/logger"
)

// ErrInvalidQuery is returned for parameters outside the accepted domain.
var ErrInvalidQuery = errors.New("invalid query")

// Rule names used for metrics, cache keys and alerts.
const (
	RuleVirtualGrowth  = "virtual_growth"
	RuleNegativeStreak = "negative_streak"
	RuleIndustry       = "industry_comparison"
	RuleVolume         = "volume_signals"
	RuleCatalogue      = "catalogue"
)

// StreakMetrics are the metrics accepted by the negative streak rule.
var StreakMetrics = []string{models.MetricCFO, models.MetricParentProfit, models.MetricNetIncome}

// IndustryMetrics are ranked by the industry comparison.
var IndustryMetrics = []string{models.MetricGrossMargin, models.MetricNetMargin}

const (
	defaultTopN = 50
	minTopN     = 30
	maxTopN     = 300
)

// Filters narrow results by ticker and by catalogue attributes joined on ticker.
type Filters struct {
	Tickers   []string
	Exchanges []string
	Sectors   []string // catalogue business model
}

type VirtualGrowthQuery struct {
	Mode     models.Mode
	Year     int
	Quarters []int
	Filters
}

type StreakQuery struct {
	Mode    models.Mode
	Metrics []string
	Filters
}

type RankQuery struct {
	Mode     models.Mode
	Year     int
	Quarters []int
	Groups   []string
	Tickers  []string
}

type VolumeQuery struct {
	Date    string
	Tickers []string
}

type CatalogueQuery struct {
	Tickers []string
	Model   string
	Grades  []string
	TopN    int
}

// CatalogueResult is a capped catalogue listing with the count before capping.
type CatalogueResult struct {
	Total     int           `json:"total"`
	UpdatedAt string        `json:"updated_at"`
	Table     *models.Table `json:"table"`
}

// Screener answers screening queries against the current snapshot.
type Screener struct {
	store   *SnapshotStore
	cache   cache.BytesCache
	ttl     time.Duration
	metrics domrepo.Metrics
	l       *applogger.Logger
}

// NewScreener builds a screener. A nil cache disables response caching.
func NewScreener(store *SnapshotStore, c cache.BytesCache, ttl time.Duration, metrics domrepo.Metrics, l *applogger.Logger) *Screener {
	return &Screener{store: store, cache: c, ttl: ttl, metrics: metrics, l: l}
}

// VirtualGrowth flags disguised growth. Flags use the full history of the mode;
// the year and quarter filters only narrow what is displayed.
func (s *Screener) VirtualGrowth(ctx context.Context, q VirtualGrowthQuery) (*models.Table, error) {
	if err := checkMode(q.Mode); err != nil {
		return nil, err
	}
	return cached(ctx, s, RuleVirtualGrowth, q, func(snap *Snapshot) (*models.Table, int, error) {
		rows, err := screening.EvaluateVirtualGrowth(snap.Panel, q.Mode)
		if err != nil {
			return nil, 0, err
		}
		ef := newEntityFilter(q.Filters, snap.Catalogue)
		pf := screening.PeriodFilter{Year: q.Year, Quarters: q.Quarters}
		kept := make([]models.VirtualGrowthRow, 0, len(rows))
		flagged := 0
		for _, r := range rows {
			if !pf.Match(r.Row, q.Mode) || !ef.keep(r.Row.Entity) {
				continue
			}
			if r.Flag > models.SeverityNone {
				flagged++
			}
			kept = append(kept, r)
		}
		return ef.decorate(screening.ProjectVirtualGrowth(snap.Panel, kept)), flagged, nil
	})
}

// NegativeStreak reports consecutive negative periods at each entity's latest report.
func (s *Screener) NegativeStreak(ctx context.Context, q StreakQuery) (*models.Table, error) {
	if err := checkMode(q.Mode); err != nil {
		return nil, err
	}
	if len(q.Metrics) == 0 {
		q.Metrics = []string{models.MetricCFO}
	}
	for _, m := range q.Metrics {
		if !contains(StreakMetrics, m) {
			return nil, fmt.Errorf("%w: metric %q", ErrInvalidQuery, m)
		}
	}
	return cached(ctx, s, RuleNegativeStreak, q, func(snap *Snapshot) (*models.Table, int, error) {
		rows, evaluated, err := screening.EvaluateStreak(snap.Panel, q.Mode, q.Metrics)
		if err != nil {
			return nil, 0, err
		}
		ef := newEntityFilter(q.Filters, snap.Catalogue)
		kept := make([]models.StreakRow, 0, len(rows))
		flagged := 0
		for _, r := range rows {
			if !ef.keep(r.Row.Entity) {
				continue
			}
			for _, sev := range r.Severities {
				if sev > models.SeverityNone {
					flagged++
					break
				}
			}
			kept = append(kept, r)
		}
		return ef.decorate(screening.ProjectStreak(kept, evaluated)), flagged, nil
	})
}

// IndustryComparison ranks margins within (year, period, industry).
func (s *Screener) IndustryComparison(ctx context.Context, q RankQuery) (*models.Table, error) {
	if err := checkMode(q.Mode); err != nil {
		return nil, err
	}
	return cached(ctx, s, RuleIndustry, q, func(snap *Snapshot) (*models.Table, int, error) {
		pf := screening.PeriodFilter{Year: q.Year, Quarters: q.Quarters}
		rows, ranked, err := screening.EvaluateGroupRank(snap.Panel, q.Mode, pf, q.Groups, IndustryMetrics)
		if err != nil {
			return nil, 0, err
		}
		ef := newEntityFilter(Filters{Tickers: q.Tickers}, nil)
		kept := make([]models.GroupRankRow, 0, len(rows))
		for _, r := range rows {
			if ef.keep(r.Row.Entity) {
				kept = append(kept, r)
			}
		}
		return screening.ProjectGroupRank(kept, ranked), 0, nil
	})
}

// AvailablePeriods lists years for the mode, newest first, and quarters per year for interim.
func (s *Screener) AvailablePeriods(ctx context.Context, mode models.Mode) (*models.PeriodOptions, error) {
	if err := checkMode(mode); err != nil {
		return nil, err
	}
	snap, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	years := make(map[int]map[int]bool)
	for _, r := range screening.Classify(snap.Panel.Rows, mode) {
		if _, ok := years[r.Year]; !ok {
			years[r.Year] = make(map[int]bool)
		}
		if mode != models.ModeInterim {
			continue
		}
		if p, err := screening.ParsePeriod(r.Period); err == nil && p.Quarter > 0 {
			years[r.Year][p.Quarter] = true
		}
	}

	out := &models.PeriodOptions{Mode: mode, Years: make([]int, 0, len(years))}
	if mode == models.ModeInterim {
		out.Quarters = make(map[int][]int, len(years))
	}
	for y, qs := range years {
		out.Years = append(out.Years, y)
		if out.Quarters == nil {
			continue
		}
		list := make([]int, 0, len(qs))
		for q := range qs {
			list = append(list, q)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(list)))
		out.Quarters[y] = list
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out.Years)))
	return out, nil
}

// Groups lists distinct non-empty industry keys in ascending order.
func (s *Screener) Groups(ctx context.Context) ([]string, error) {
	snap, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if err := screening.RequireColumns(snap.Panel, models.ColGroup); err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range snap.Panel.Rows {
		if r.Group == "" || seen[r.Group] {
			continue
		}
		seen[r.Group] = true
		out = append(out, r.Group)
	}
	sort.Strings(out)
	return out, nil
}

// VolumeDates lists trade dates present in the volume table, newest first.
func (s *Screener) VolumeDates(ctx context.Context) ([]string, error) {
	snap, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range snap.Volume.Rows {
		if r.Date == "" || seen[r.Date] {
			continue
		}
		seen[r.Date] = true
		out = append(out, r.Date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// VolumeSignals passes the volume-breakout table through, filtered by date and ticker.
func (s *Screener) VolumeSignals(ctx context.Context, q VolumeQuery) (*models.Table, error) {
	return cached(ctx, s, RuleVolume, q, func(snap *Snapshot) (*models.Table, int, error) {
		ef := newEntityFilter(Filters{Tickers: q.Tickers}, nil)
		rows := make([]models.VolumeSignal, 0, len(snap.Volume.Rows))
		for _, r := range snap.Volume.Rows {
			if q.Date != "" && r.Date != q.Date {
				continue
			}
			if ef.keep(r.Symbol) {
				rows = append(rows, r)
			}
		}
		return projectVolume(snap.Volume.Columns, rows), 0, nil
	})
}

// Catalogue lists rating catalogue entries filtered by ticker, model and grade, capped at TopN.
func (s *Screener) Catalogue(ctx context.Context, q CatalogueQuery) (*CatalogueResult, error) {
	if q.TopN == 0 {
		q.TopN = defaultTopN
	}
	if q.TopN < minTopN || q.TopN > maxTopN {
		return nil, fmt.Errorf("%w: top_n must be within %d..%d", ErrInvalidQuery, minTopN, maxTopN)
	}
	return cached(ctx, s, RuleCatalogue, q, func(snap *Snapshot) (*CatalogueResult, int, error) {
		tickers := upperSet(q.Tickers)
		grades := toSet(q.Grades)
		model := strings.TrimSpace(q.Model)

		matched := make([]models.CatalogueEntry, 0, len(snap.Catalogue.Entries))
		for _, e := range snap.Catalogue.Entries {
			if tickers != nil && !tickers[strings.ToUpper(e.Ticker)] {
				continue
			}
			if model != "" && !strings.EqualFold(model, "all") && e.Model != model {
				continue
			}
			if grades != nil && !grades[e.Grade] {
				continue
			}
			matched = append(matched, e)
		}

		res := &CatalogueResult{Total: len(matched), UpdatedAt: catalogueUpdatedAt(snap)}
		if len(matched) > q.TopN {
			matched = matched[:q.TopN]
		}
		res.Table = projectCatalogue(snap.Catalogue.Columns, matched)
		return res, 0, nil
	})
}

// cached runs build against the current snapshot, memoizing the JSON result per
// snapshot version and query.
func cached[T any](ctx context.Context, s *Screener, rule string, q any, build func(*Snapshot) (T, int, error)) (T, error) {
	var zero T
	start := time.Now()
	snap, err := s.store.Get(ctx)
	if err != nil {
		s.metrics.RecordError(rule)
		return zero, err
	}

	key, kerr := cacheKey(rule, snap.Version, q)
	if s.cache != nil && kerr == nil {
		if b, ok, err := s.cache.GetBytes(ctx, key); err != nil {
			s.l.Warn("cache get failed", applogger.String("rule", rule), applogger.Error(err))
		} else if ok {
			var out T
			if err := json.Unmarshal(b, &out); err == nil {
				s.metrics.RecordQuery(rule+"_cached", time.Since(start).Seconds(), 0)
				return out, nil
			}
		}
	}

	out, flagged, err := build(snap)
	if err != nil {
		s.metrics.RecordError(rule)
		return zero, fmt.Errorf("%s: %w", rule, err)
	}
	s.metrics.RecordQuery(rule, time.Since(start).Seconds(), resultRows(out))
	if flagged > 0 {
		s.metrics.RecordFlags(rule, flagged)
	}

	if s.cache != nil && kerr == nil {
		if b, err := json.Marshal(out); err == nil {
			if err := s.cache.SetBytes(ctx, key, b, s.ttl); err != nil {
				s.l.Warn("cache set failed", applogger.String("rule", rule), applogger.Error(err))
			}
		}
	}
	return out, nil
}

func cacheKey(rule string, version uint64, q any) (string, error) {
	b, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("screen:%s:v%d:%s", rule, version, hex.EncodeToString(sum[:8])), nil
}

func resultRows(v any) int {
	switch t := v.(type) {
	case *models.Table:
		return t.Len()
	case *CatalogueResult:
		return t.Table.Len()
	}
	return 0
}

func checkMode(m models.Mode) error {
	if m != models.ModeAnnual && m != models.ModeInterim {
		return fmt.Errorf("%w: mode %q", ErrInvalidQuery, m)
	}
	return nil
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func toSet(xs []string) map[string]bool {
	if len(xs) == 0 {
		return nil
	}
	m := make(map[string]bool, len(xs))
	for _, x := range xs {
		if x = strings.TrimSpace(x); x != "" {
			m[x] = true
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func upperSet(xs []string) map[string]bool {
	up := make([]string, 0, len(xs))
	for _, x := range xs {
		up = append(up, strings.ToUpper(x))
	}
	return toSet(up)
}
