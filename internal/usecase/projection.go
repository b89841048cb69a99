package usecase

import (
	"strconv"
	"strings"

	"RiskScreen/internal/domain/models"
	"RiskScreen/internal/services/screening"
)

// entityFilter keeps rows by ticker and, when exchange or sector filters are
// set, by attributes of the catalogue entry with the same ticker. Entities
// without a catalogue entry are dropped while a catalogue filter is active.
type entityFilter struct {
	tickers   map[string]bool
	exchanges map[string]bool
	sectors   map[string]bool
	byTicker  map[string]models.CatalogueEntry
}

func newEntityFilter(f Filters, cat *models.Catalogue) *entityFilter {
	ef := &entityFilter{
		tickers:   upperSet(f.Tickers),
		exchanges: toSet(f.Exchanges),
		sectors:   toSet(f.Sectors),
	}
	if ef.joined() && cat != nil {
		ef.byTicker = make(map[string]models.CatalogueEntry, len(cat.Entries))
		for _, e := range cat.Entries {
			k := strings.ToUpper(e.Ticker)
			if _, dup := ef.byTicker[k]; !dup {
				ef.byTicker[k] = e
			}
		}
	}
	return ef
}

func (f *entityFilter) joined() bool {
	return f.exchanges != nil || f.sectors != nil
}

func (f *entityFilter) keep(entity string) bool {
	key := strings.ToUpper(entity)
	if f.tickers != nil && !f.tickers[key] {
		return false
	}
	if !f.joined() {
		return true
	}
	e, ok := f.byTicker[key]
	if !ok {
		return false
	}
	if f.exchanges != nil && !f.exchanges[e.Exchange] {
		return false
	}
	if f.sectors != nil && !f.sectors[e.Model] {
		return false
	}
	return true
}

// decorate appends the joined exchange and model columns when a catalogue filter is active.
func (f *entityFilter) decorate(t *models.Table) *models.Table {
	if !f.joined() {
		return t
	}
	ei := t.ColumnIndex(models.ColEntity)
	t.Columns = append(t.Columns,
		models.Column{Key: models.ColExchange, Label: screening.Label(models.ColExchange)},
		models.Column{Key: models.ColModel, Label: screening.Label(models.ColModel)},
	)
	for i, row := range t.Rows {
		var e models.CatalogueEntry
		if ei >= 0 {
			if s, ok := row[ei].(string); ok {
				e = f.byTicker[strings.ToUpper(s)]
			}
		}
		t.Rows[i] = append(row, e.Exchange, e.Model)
	}
	return t
}

// volumeColumns is the pass-through allow-list of the volume table.
var volumeColumns = []models.Column{
	{Key: "symbol", Label: "Ticker"},
	{Key: "time", Label: "Date"},
	{Key: "volume", Label: "Volume"},
	{Key: "vol_vs_ma20_pct", Label: "% vs MA20"},
	{Key: "vol_vs_ma50_pct", Label: "% vs MA50"},
	{Key: "vol_vs_ma100_pct", Label: "% vs MA100"},
	{Key: "vol_vs_ma200_pct", Label: "% vs MA200"},
	{Key: "flag_break_vol_100", Label: "Volume breakout 100"},
	{Key: "flag_break_vol_200", Label: "Volume breakout 200"},
}

func projectVolume(source []string, rows []models.VolumeSignal) *models.Table {
	have := toSet(source)
	t := &models.Table{Columns: make([]models.Column, 0, len(volumeColumns))}
	for _, c := range volumeColumns {
		if have[c.Key] {
			t.Columns = append(t.Columns, c)
		}
	}
	t.Rows = make([][]any, 0, len(rows))
	for _, r := range rows {
		line := make([]any, 0, len(t.Columns))
		for _, c := range t.Columns {
			switch c.Key {
			case "symbol":
				line = append(line, r.Symbol)
			case "time":
				line = append(line, r.Date)
			default:
				line = append(line, cell(r.Values[c.Key]))
			}
		}
		t.Rows = append(t.Rows, line)
	}
	return t
}

// cell renders numeric text as a number, empty text as null and anything else verbatim.
func cell(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func projectCatalogue(columns []string, entries []models.CatalogueEntry) *models.Table {
	t := &models.Table{Columns: make([]models.Column, 0, len(columns))}
	for _, c := range columns {
		t.Columns = append(t.Columns, models.Column{Key: c, Label: c})
	}
	t.Rows = make([][]any, 0, len(entries))
	for _, e := range entries {
		line := make([]any, 0, len(columns))
		for _, c := range columns {
			line = append(line, cell(e.Fields[c]))
		}
		t.Rows = append(t.Rows, line)
	}
	return t
}

const updatedAtLayout = "02/01/2006 15:04:05"

func catalogueUpdatedAt(snap *Snapshot) string {
	for _, e := range snap.Catalogue.Entries {
		if e.UpdatedAt != "" {
			return e.UpdatedAt
		}
	}
	return snap.LoadedAt.Format(updatedAtLayout)
}
