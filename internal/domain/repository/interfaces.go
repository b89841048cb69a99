package repository

import (
	"context"

	"RiskScreen/internal/domain/models"
)

// PanelSource loads the full report panel from an external store.
type PanelSource interface {
	LoadPanel(ctx context.Context) (*models.Panel, error)
}

// CatalogueSource loads the rating catalogue.
type CatalogueSource interface {
	LoadCatalogue(ctx context.Context) (*models.Catalogue, error)
}

// VolumeSource loads the precomputed volume-breakout signals.
type VolumeSource interface {
	LoadVolume(ctx context.Context) (*models.VolumeTable, error)
}

// AlertPublisher fans out flagged entities to downstream consumers.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, alerts []models.Alert) error
	Close() error
}

// Metrics records service-level measurements.
type Metrics interface {
	RecordQuery(rule string, seconds float64, rows int)
	RecordError(kind string)
	RecordSnapshot(rows int, version uint64)
	RecordFlags(rule string, count int)
}
