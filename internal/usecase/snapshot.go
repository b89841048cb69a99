package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"RiskScreen/internal/domain/models"
	domrepo "RiskScreen/internal/domain/repository"
	applogger "RiskScreen/pkg/logger"
)

// ErrSnapshotUnavailable wraps failures to load a snapshot generation.
var ErrSnapshotUnavailable = errors.New("snapshot unavailable")

// Snapshot is one immutable generation of loaded data. Queries read it without locks.
type Snapshot struct {
	Panel     *models.Panel
	Catalogue *models.Catalogue
	Volume    *models.VolumeTable
	Version   uint64
	LoadedAt  time.Time
}

// SnapshotStore loads data once on first use and replaces it wholesale on refresh.
type SnapshotStore struct {
	panels    domrepo.PanelSource
	catalogue domrepo.CatalogueSource
	volume    domrepo.VolumeSource
	metrics   domrepo.Metrics
	l         *applogger.Logger

	cur     atomic.Pointer[Snapshot]
	mu      sync.Mutex // serializes loads
	version atomic.Uint64
}

// NewSnapshotStore builds a store. catalogue and volume may be nil.
func NewSnapshotStore(panels domrepo.PanelSource, catalogue domrepo.CatalogueSource, volume domrepo.VolumeSource, metrics domrepo.Metrics, l *applogger.Logger) *SnapshotStore {
	return &SnapshotStore{panels: panels, catalogue: catalogue, volume: volume, metrics: metrics, l: l}
}

// Get returns the current snapshot, loading it on first use.
func (s *SnapshotStore) Get(ctx context.Context) (*Snapshot, error) {
	if snap := s.cur.Load(); snap != nil {
		return snap, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap := s.cur.Load(); snap != nil {
		return snap, nil
	}
	return s.loadLocked(ctx)
}

// Refresh loads a new generation and swaps it in. On failure the previous snapshot stays.
func (s *SnapshotStore) Refresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Current returns the loaded snapshot or nil without triggering a load.
func (s *SnapshotStore) Current() *Snapshot {
	return s.cur.Load()
}

func (s *SnapshotStore) loadLocked(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	panel, err := s.panels.LoadPanel(ctx)
	if err != nil {
		s.metrics.RecordError("snapshot_panel")
		return nil, fmt.Errorf("%w: load panel: %w", ErrSnapshotUnavailable, err)
	}

	cat := &models.Catalogue{}
	if s.catalogue != nil {
		if cat, err = s.catalogue.LoadCatalogue(ctx); err != nil {
			s.metrics.RecordError("snapshot_catalogue")
			return nil, fmt.Errorf("%w: load catalogue: %w", ErrSnapshotUnavailable, err)
		}
	}

	vol := &models.VolumeTable{}
	if s.volume != nil {
		if vol, err = s.volume.LoadVolume(ctx); err != nil {
			s.metrics.RecordError("snapshot_volume")
			return nil, fmt.Errorf("%w: load volume: %w", ErrSnapshotUnavailable, err)
		}
	}

	snap := &Snapshot{
		Panel:     panel,
		Catalogue: cat,
		Volume:    vol,
		Version:   s.version.Add(1),
		LoadedAt:  time.Now(),
	}
	s.cur.Store(snap)

	s.metrics.RecordSnapshot(len(panel.Rows), snap.Version)
	s.l.Info("snapshot loaded",
		applogger.Uint64("version", snap.Version),
		applogger.Int("panel_rows", len(panel.Rows)),
		applogger.Int("catalogue_rows", len(cat.Entries)),
		applogger.Int("volume_rows", len(vol.Rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return snap, nil
}
