package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"RiskScreen/internal/domain/models"
	applogger "RiskScreen/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// XLSXPanelSource loads the report panel from a workbook sheet. Headers are
// mapped to canonical columns; columns whose header is absent are not in the panel schema.
type XLSXPanelSource struct {
	path    string
	sheet   string
	headers map[string]string
	l       *applogger.Logger
}

// NewXLSXPanelSource builds a panel source. An empty sheet reads the first sheet;
// nil headers use DefaultPanelHeaders. Entries in headers override the defaults.
func NewXLSXPanelSource(path, sheet string, headers map[string]string, l *applogger.Logger) *XLSXPanelSource {
	merged := make(map[string]string, len(DefaultPanelHeaders))
	for k, v := range DefaultPanelHeaders {
		merged[k] = v
	}
	for k, v := range headers {
		merged[k] = v
	}
	return &XLSXPanelSource{path: path, sheet: sheet, headers: merged, l: l}
}

func (s *XLSXPanelSource) LoadPanel(ctx context.Context) (*models.Panel, error) {
	start := time.Now()
	header, records, err := readSheet(ctx, s.path, s.sheet)
	if err != nil {
		return nil, err
	}

	pos := indexHeader(header)
	cols := make([]string, 0, len(PanelColumns))
	idx := make([]int, 0, len(PanelColumns))
	for _, c := range PanelColumns {
		if i, ok := pos[normalizeHeader(s.headers[c])]; ok {
			cols = append(cols, c)
			idx = append(idx, i)
		}
	}

	rows := make([]models.ReportRow, 0, len(records))
	skipped := 0
	for _, rec := range records {
		vals := make([]any, len(cols))
		for j, c := range cols {
			vals[j] = parseCell(kindOf(c), at(rec, idx[j]))
		}
		r, ok := toReportRow(cols, vals)
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, r)
	}

	s.l.Info("xlsx panel loaded",
		applogger.String("path", s.path),
		applogger.Strings("columns", cols),
		applogger.Int("rows", len(rows)),
		applogger.Int("skipped", skipped),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return models.NewPanel(cols, rows), nil
}

// Catalogue header names of the rating workbook.
type CatalogueHeaders struct {
	Ticker    string
	Exchange  string
	Model     string
	Grade     string
	UpdatedAt string
}

// DefaultCatalogueHeaders are the headers of the upstream rating summary.
var DefaultCatalogueHeaders = CatalogueHeaders{
	Ticker:    "Mã",
	Exchange:  "Sàn",
	Model:     "Mô hình",
	Grade:     "Điểm",
	UpdatedAt: "Thời gian cập nhật",
}

// XLSXCatalogueSource loads the rating catalogue from a workbook sheet.
type XLSXCatalogueSource struct {
	path    string
	sheet   string
	headers CatalogueHeaders
	l       *applogger.Logger
}

func NewXLSXCatalogueSource(path, sheet string, headers CatalogueHeaders, l *applogger.Logger) *XLSXCatalogueSource {
	def := DefaultCatalogueHeaders
	if headers.Ticker != "" {
		def.Ticker = headers.Ticker
	}
	if headers.Exchange != "" {
		def.Exchange = headers.Exchange
	}
	if headers.Model != "" {
		def.Model = headers.Model
	}
	if headers.Grade != "" {
		def.Grade = headers.Grade
	}
	if headers.UpdatedAt != "" {
		def.UpdatedAt = headers.UpdatedAt
	}
	return &XLSXCatalogueSource{path: path, sheet: sheet, headers: def, l: l}
}

func (s *XLSXCatalogueSource) LoadCatalogue(ctx context.Context) (*models.Catalogue, error) {
	header, records, err := readSheet(ctx, s.path, s.sheet)
	if err != nil {
		return nil, err
	}
	pos := indexHeader(header)
	ti, ok := pos[normalizeHeader(s.headers.Ticker)]
	if !ok {
		return nil, fmt.Errorf("catalogue %s: ticker column %q not found", s.path, s.headers.Ticker)
	}
	get := func(rec []string, name string) string {
		if i, ok := pos[normalizeHeader(name)]; ok {
			return strings.TrimSpace(at(rec, i))
		}
		return ""
	}

	cat := &models.Catalogue{Columns: header, Entries: make([]models.CatalogueEntry, 0, len(records)), LoadedAt: time.Now()}
	for _, rec := range records {
		ticker := strings.ToUpper(strings.TrimSpace(at(rec, ti)))
		if ticker == "" {
			continue
		}
		fields := make(map[string]string, len(header))
		for i, h := range header {
			fields[h] = at(rec, i)
		}
		fields[header[ti]] = ticker
		cat.Entries = append(cat.Entries, models.CatalogueEntry{
			Ticker:    ticker,
			Exchange:  get(rec, s.headers.Exchange),
			Model:     get(rec, s.headers.Model),
			Grade:     get(rec, s.headers.Grade),
			UpdatedAt: get(rec, s.headers.UpdatedAt),
			Fields:    fields,
		})
	}
	s.l.Info("xlsx catalogue loaded", applogger.String("path", s.path), applogger.Int("rows", len(cat.Entries)))
	return cat, nil
}

// readSheet returns the header row and the data rows of a sheet with raw cell values.
func readSheet(ctx context.Context, path, sheet string) ([]string, [][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %s is empty", sheet)
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	return header, rows[1:], nil
}

func indexHeader(header []string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		k := normalizeHeader(h)
		if _, dup := pos[k]; !dup && k != "" {
			pos[k] = i
		}
	}
	return pos
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func at(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return rec[i]
}
