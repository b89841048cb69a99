package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"RiskScreen/internal/domain/models"
	pkgch "RiskScreen/pkg/clickhouse"
	applogger "RiskScreen/pkg/logger"
)

// CHPanelStore loads the report panel from a ClickHouse table whose column
// names are the canonical panel columns. Columns the table lacks are left out
// of the panel schema.
type CHPanelStore struct {
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
}

func NewCHPanelStore(ch *pkgch.Client, database, table string, l *applogger.Logger) *CHPanelStore {
	return &CHPanelStore{db: ch.DB(), database: database, table: table, l: l}
}

// PanelSchema is the DDL of the reports table.
func PanelSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            entity String,
            period String,
            period_length UInt8,
            year UInt16,
            `+"`group`"+` String,
            cfo Nullable(Float64),
            net_revenue Nullable(Float64),
            parent_profit Nullable(Float64),
            net_income Nullable(Float64),
            gross_margin Nullable(Float64),
            net_margin Nullable(Float64),
            updated_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(updated_at) ORDER BY (entity, period)`, database, table),
	}
}

func (s *CHPanelStore) LoadPanel(ctx context.Context) (*models.Panel, error) {
	start := time.Now()
	cols, err := s.columns(ctx)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s.%s not found or has no panel columns", s.database, s.table)
	}

	selects := make([]string, 0, len(cols))
	for _, c := range cols {
		selects = append(selects, selectExpr(c))
	}
	q := fmt.Sprintf("SELECT %s FROM %s.%s FINAL", strings.Join(selects, ", "), s.database, s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		s.l.Error("clickhouse load_panel query error",
			applogger.String("table", s.table),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("load panel: %w", err)
	}
	defer rows.Close()

	out := make([]models.ReportRow, 0, 4096)
	dest := make([]any, len(cols))
	for i, c := range cols {
		switch kindOf(c) {
		case kindText:
			dest[i] = new(sql.NullString)
		case kindInt:
			dest[i] = new(sql.NullInt64)
		default:
			dest[i] = new(sql.NullFloat64)
		}
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			s.l.Error("clickhouse load_panel scan error", applogger.String("table", s.table), applogger.Error(err))
			return nil, fmt.Errorf("scan report: %w", err)
		}
		vals := make([]any, len(cols))
		for i, d := range dest {
			switch v := d.(type) {
			case *sql.NullString:
				if v.Valid && v.String != "" {
					vals[i] = v.String
				}
			case *sql.NullInt64:
				if v.Valid {
					vals[i] = int(v.Int64)
				}
			case *sql.NullFloat64:
				if v.Valid {
					vals[i] = v.Float64
				}
			}
		}
		if r, ok := toReportRow(cols, vals); ok {
			out = append(out, r)
		}
	}
	if err := rows.Err(); err != nil {
		s.l.Error("clickhouse load_panel rows error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Info("clickhouse load_panel ok",
		applogger.String("table", s.table),
		applogger.Strings("columns", cols),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return models.NewPanel(cols, out), nil
}

// columns returns the canonical panel columns present in the table, in canonical order.
func (s *CHPanelStore) columns(ctx context.Context) ([]string, error) {
	const q = `SELECT name FROM system.columns WHERE database = ? AND table = ?`
	rows, err := s.db.QueryContext(ctx, q, s.database, s.table)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", s.table, err)
	}
	defer rows.Close()

	have := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		have[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	out := make([]string, 0, len(PanelColumns))
	for _, c := range PanelColumns {
		if have[c] {
			out = append(out, c)
		}
	}
	return out, nil
}

func selectExpr(col string) string {
	quoted := "`" + col + "`"
	switch kindOf(col) {
	case kindText:
		return fmt.Sprintf("toString(%s)", quoted)
	case kindInt:
		return fmt.Sprintf("toInt64(%s)", quoted)
	default:
		return fmt.Sprintf("CAST(%s AS Nullable(Float64))", quoted)
	}
}
