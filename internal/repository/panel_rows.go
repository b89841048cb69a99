package repository

import (
	"math"
	"strconv"
	"strings"

	"RiskScreen/internal/domain/models"
	"RiskScreen/internal/services/screening"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindInt
	kindMetric
)

// PanelColumns are the canonical panel columns in load order.
var PanelColumns = []string{
	models.ColEntity, models.ColPeriod, models.ColPeriodLength, models.ColYear, models.ColGroup,
	models.MetricCFO, models.MetricNetRevenue, models.MetricParentProfit, models.MetricNetIncome,
	models.MetricGrossMargin, models.MetricNetMargin,
}

// DefaultPanelHeaders maps canonical columns to the headers of the upstream risk workbook.
var DefaultPanelHeaders = map[string]string{
	models.ColEntity:          "Ticker",
	models.ColPeriod:          "KyBaoCao",
	models.ColPeriodLength:    "LengthReport",
	models.ColYear:            "YearReport",
	models.ColGroup:           "Nganh",
	models.MetricCFO:          "Lưu chuyển tiền thuần từ HĐKD",
	models.MetricNetRevenue:   "Doanh thu thuần",
	models.MetricParentProfit: "Cổ đông của công ty mẹ",
	models.MetricNetIncome:    "LNST",
	models.MetricGrossMargin:  "Biên lợi nhuận gộp",
	models.MetricNetMargin:    "Biên lợi nhuận ròng",
}

func kindOf(col string) fieldKind {
	switch col {
	case models.ColEntity, models.ColPeriod, models.ColGroup:
		return kindText
	case models.ColPeriodLength, models.ColYear:
		return kindInt
	default:
		return kindMetric
	}
}

// parseCell converts spreadsheet or CSV text to the typed value of its column kind.
// Empty or unparseable cells are nil.
func parseCell(kind fieldKind, s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch kind {
	case kindText:
		return s
	case kindInt:
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) {
			return int(f)
		}
		return nil
	default:
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return nil
		}
		return f
	}
}

// toReportRow assembles a row from typed values aligned with cols.
// Rows without an entity or period are skipped. A missing year is taken from
// the period key; a missing period length is 5 for annual keys and 1 otherwise.
func toReportRow(cols []string, vals []any) (models.ReportRow, bool) {
	r := models.ReportRow{Metrics: make(map[string]models.Value)}
	for i, c := range cols {
		v := vals[i]
		if v == nil {
			continue
		}
		switch c {
		case models.ColEntity:
			r.Entity = strings.ToUpper(v.(string))
		case models.ColPeriod:
			r.Period = v.(string)
		case models.ColGroup:
			r.Group = v.(string)
		case models.ColYear:
			r.Year = v.(int)
		case models.ColPeriodLength:
			r.PeriodLength = v.(int)
		default:
			r.Metrics[c] = models.Some(v.(float64))
		}
	}
	if r.Entity == "" || r.Period == "" {
		return r, false
	}
	if r.Year == 0 || r.PeriodLength == 0 {
		if p, err := screening.ParsePeriod(r.Period); err == nil {
			if r.Year == 0 {
				r.Year = p.Year
			}
			if r.PeriodLength == 0 {
				r.PeriodLength = 1
				if p.Quarter == 0 && !strings.Contains(strings.ToUpper(r.Period), "H") {
					r.PeriodLength = models.AnnualLength
				}
			}
		}
	}
	return r, true
}
