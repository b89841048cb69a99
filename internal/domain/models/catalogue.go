package models

import "time"

// CatalogueEntry is one row of the externally produced rating catalogue.
type CatalogueEntry struct {
	Ticker    string
	Exchange  string
	Model     string // business model: bank, securities, insurance, non-financial
	Grade     string
	Fields    map[string]string
	UpdatedAt string
}

// Catalogue is the loaded rating catalogue with its source column order.
type Catalogue struct {
	Columns  []string
	Entries  []CatalogueEntry
	LoadedAt time.Time
}

// VolumeSignal is one row of the external volume-breakout pipeline output.
// Values are passed through as produced upstream.
type VolumeSignal struct {
	Symbol string
	Date   string
	Values map[string]string
}

// VolumeTable is the loaded volume-signal file with its header order.
type VolumeTable struct {
	Columns []string
	Rows    []VolumeSignal
}

// Columns joined from the catalogue onto screening results.
const (
	ColExchange = "exchange"
	ColModel    = "model"
)
