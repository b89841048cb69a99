package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"RiskScreen/internal/domain/models"
	applogger "RiskScreen/pkg/logger"
)

// CSVVolumeSource loads the daily volume-breakout file produced upstream.
// The file must carry a symbol column; time is optional.
type CSVVolumeSource struct {
	path string
	l    *applogger.Logger
}

func NewCSVVolumeSource(path string, l *applogger.Logger) *CSVVolumeSource {
	return &CSVVolumeSource{path: path, l: l}
}

func (s *CSVVolumeSource) LoadVolume(ctx context.Context) (*models.VolumeTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open volume file: %w", err)
	}
	defer f.Close()
	return s.read(f)
}

func (s *CSVVolumeSource) read(r io.Reader) (*models.VolumeTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &models.VolumeTable{}, nil
		}
		return nil, fmt.Errorf("read volume header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	pos := indexHeader(header)
	si, ok := pos["symbol"]
	if !ok {
		return nil, fmt.Errorf("volume file %s: symbol column missing", s.path)
	}
	ti, hasTime := pos["time"]
	if !hasTime {
		ti = -1
	}

	out := &models.VolumeTable{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read volume row: %w", err)
		}
		sym := strings.ToUpper(strings.TrimSpace(at(rec, si)))
		if sym == "" {
			continue
		}
		vals := make(map[string]string, len(header))
		for i, h := range header {
			vals[h] = at(rec, i)
		}
		out.Rows = append(out.Rows, models.VolumeSignal{Symbol: sym, Date: strings.TrimSpace(at(rec, ti)), Values: vals})
	}
	s.l.Debug("volume signals loaded", applogger.String("path", s.path), applogger.Int("rows", len(out.Rows)))
	return out, nil
}
