package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"RiskScreen/internal/domain/models"
	pkgkafka "RiskScreen/pkg/kafka"
	applogger "RiskScreen/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParseCell(t *testing.T) {
	assert.Nil(t, parseCell(kindMetric, " "))
	assert.Equal(t, 1234.5, parseCell(kindMetric, "1,234.5"))
	assert.Nil(t, parseCell(kindMetric, "n/a"))
	assert.Equal(t, 2024, parseCell(kindInt, "2024"))
	assert.Equal(t, 5, parseCell(kindInt, "5.0"))
	assert.Nil(t, parseCell(kindInt, "5.5"))
	assert.Equal(t, "Bank", parseCell(kindText, " Bank "))
}

func TestToReportRowDerivesYearAndLength(t *testing.T) {
	cols := []string{models.ColEntity, models.ColPeriod, models.MetricCFO}

	r, ok := toReportRow(cols, []any{"aaa", "2024_Q3", -1.5})
	require.True(t, ok)
	assert.Equal(t, "AAA", r.Entity)
	assert.Equal(t, 2024, r.Year)
	assert.Equal(t, 1, r.PeriodLength)
	v, present := r.Metric(models.MetricCFO).Get()
	assert.True(t, present)
	assert.Equal(t, -1.5, v)

	r, ok = toReportRow(cols, []any{"AAA", "2023", nil})
	require.True(t, ok)
	assert.Equal(t, models.AnnualLength, r.PeriodLength)
	assert.False(t, r.Metric(models.MetricCFO).Present())

	r, ok = toReportRow(cols, []any{"AAA", "2023_H1", nil})
	require.True(t, ok)
	assert.Equal(t, 1, r.PeriodLength)

	_, ok = toReportRow(cols, []any{nil, "2023", 1.0})
	assert.False(t, ok)
}

func TestXLSXPanelSource(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Ticker", "KyBaoCao", "LengthReport", "YearReport", "Nganh", "Lưu chuyển tiền thuần từ HĐKD", "Doanh thu thuần", "Ignored"},
		{"aaa", "2025_Q2", 1, 2025, "Steel", -5, 100, "x"},
		{"AAA", "2025_Q1", 1, 2025, "Steel", "", 50, "x"},
		{"", "2025_Q1", 1, 2025, "Steel", 1, 1, "x"},
	})

	src := NewXLSXPanelSource(path, "", nil, applogger.Nop())
	p, err := src.LoadPanel(context.Background())
	require.NoError(t, err)

	assert.True(t, p.Has(models.MetricCFO))
	assert.True(t, p.Has(models.MetricNetRevenue))
	assert.False(t, p.Has(models.MetricNetIncome))
	require.Len(t, p.Rows, 2)
	assert.Equal(t, "AAA", p.Rows[0].Entity)
	assert.Equal(t, "Steel", p.Rows[0].Group)
	assert.True(t, p.Rows[0].Metric(models.MetricCFO).Less(0))
	assert.False(t, p.Rows[1].Metric(models.MetricCFO).Present())
}

func TestXLSXPanelSourceHeaderOverride(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Code", "Period", "CFO"},
		{"BBB", "2024", 3.5},
	})
	src := NewXLSXPanelSource(path, "Sheet1", map[string]string{
		models.ColEntity: "code",
		models.ColPeriod: "period",
		models.MetricCFO: "cfo",
	}, applogger.Nop())

	p, err := src.LoadPanel(context.Background())
	require.NoError(t, err)
	require.Len(t, p.Rows, 1)
	assert.Equal(t, 2024, p.Rows[0].Year)
	assert.True(t, p.Rows[0].IsAnnual())
}

func TestXLSXPanelSourceMissingFile(t *testing.T) {
	src := NewXLSXPanelSource(filepath.Join(t.TempDir(), "missing.xlsx"), "", nil, applogger.Nop())
	_, err := src.LoadPanel(context.Background())
	assert.Error(t, err)
}

func TestXLSXCatalogueSource(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Mã", "Sàn", "Mô hình", "Điểm", "Thời gian cập nhật"},
		{"aaa", "HOSE", "Non-financial", "A", "01/06/2025 08:00:00"},
		{"", "HNX", "Bank", "B", ""},
		{"CCC", "HOSE", "Bank", "B", ""},
	})

	src := NewXLSXCatalogueSource(path, "", CatalogueHeaders{}, applogger.Nop())
	cat, err := src.LoadCatalogue(context.Background())
	require.NoError(t, err)

	require.Len(t, cat.Entries, 2)
	e := cat.Entries[0]
	assert.Equal(t, "AAA", e.Ticker)
	assert.Equal(t, "HOSE", e.Exchange)
	assert.Equal(t, "Non-financial", e.Model)
	assert.Equal(t, "A", e.Grade)
	assert.Equal(t, "01/06/2025 08:00:00", e.UpdatedAt)
	assert.Equal(t, "AAA", e.Fields["Mã"])
	assert.Equal(t, []string{"Mã", "Sàn", "Mô hình", "Điểm", "Thời gian cập nhật"}, cat.Columns)
}

func TestXLSXCatalogueSourceRequiresTicker(t *testing.T) {
	path := writeWorkbook(t, [][]any{{"Sàn"}, {"HOSE"}})
	_, err := NewXLSXCatalogueSource(path, "", CatalogueHeaders{}, applogger.Nop()).LoadCatalogue(context.Background())
	assert.Error(t, err)
}

func TestCSVVolumeRead(t *testing.T) {
	data := "\ufeffsymbol,time,volume,vol_vs_ma20_pct\naaa,2025-06-02,1000,150.5\n,2025-06-02,1,1\nBBB,2025-06-03,20,\n"
	src := NewCSVVolumeSource("inline.csv", applogger.Nop())

	tbl, err := src.read(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []string{"symbol", "time", "volume", "vol_vs_ma20_pct"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "AAA", tbl.Rows[0].Symbol)
	assert.Equal(t, "2025-06-02", tbl.Rows[0].Date)
	assert.Equal(t, "150.5", tbl.Rows[0].Values["vol_vs_ma20_pct"])
	assert.Equal(t, "", tbl.Rows[1].Values["vol_vs_ma20_pct"])
}

func TestCSVVolumeRequiresSymbol(t *testing.T) {
	src := NewCSVVolumeSource("inline.csv", applogger.Nop())
	_, err := src.read(strings.NewReader("ticker,time\nAAA,2025-06-02\n"))
	assert.Error(t, err)

	tbl, err := src.read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, tbl.Rows)
}

func TestCSVVolumeLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volume.csv")
	require.NoError(t, os.WriteFile(path, []byte("symbol,volume\nCCC,10\n"), 0o600))

	tbl, err := NewCSVVolumeSource(path, applogger.Nop()).LoadVolume(context.Background())
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "", tbl.Rows[0].Date)
}

type fakeProducer struct {
	topic  string
	batch  []pkgkafka.Message
	err    error
	closed bool
}

func (f *fakeProducer) PublishBatch(_ context.Context, topic string, messages []pkgkafka.Message) error {
	f.topic = topic
	f.batch = append(f.batch, messages...)
	return f.err
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func TestKafkaAlertPublisher(t *testing.T) {
	fp := &fakeProducer{}
	pub := NewKafkaAlertPublisher(fp, "risk.alerts")

	require.NoError(t, pub.PublishAlerts(context.Background(), nil))
	assert.Empty(t, fp.batch)

	alerts := []models.Alert{
		{Rule: "virtual_growth", Entity: "AAA", Period: "2025_Q2", Severity: 1, Marker: "x"},
		{Rule: "negative_streak", Entity: "BBB", Period: "2025_Q2", Metric: "cfo", Severity: 3, Marker: "xxx"},
	}
	require.NoError(t, pub.PublishAlerts(context.Background(), alerts))
	assert.Equal(t, "risk.alerts", fp.topic)
	require.Len(t, fp.batch, 2)
	assert.Equal(t, []byte("BBB"), fp.batch[1].Key)

	b, err := json.Marshal(fp.batch[1].Value)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"metric":"cfo"`)

	fp.err = errors.New("broker down")
	assert.ErrorContains(t, pub.PublishAlerts(context.Background(), alerts), "broker down")

	require.NoError(t, pub.Close())
	assert.True(t, fp.closed)
}

func TestSelectExprQuotesIdentifiers(t *testing.T) {
	assert.Equal(t, "toString(`group`)", selectExpr(models.ColGroup))
	assert.Equal(t, "toInt64(`year`)", selectExpr(models.ColYear))
	assert.Equal(t, "CAST(`cfo` AS Nullable(Float64))", selectExpr(models.MetricCFO))
	assert.Len(t, PanelSchema("risk", "financial_reports"), 2)
}
