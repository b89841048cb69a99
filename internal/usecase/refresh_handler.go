package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	domrepo "RiskScreen/internal/domain/repository"
	pkgkafka "RiskScreen/pkg/kafka"
	applogger "RiskScreen/pkg/logger"
)

// PanelUpdatedEvent announces that the upstream report table changed.
type PanelUpdatedEvent struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
	TS     int64  `json:"ts"`
}

// RefreshHandler consumes panel update events and refreshes the snapshot.
type RefreshHandler struct {
	topic     string
	refresher *Refresher
	metrics   domrepo.Metrics
	l         *applogger.Logger
}

func NewRefreshHandler(topic string, refresher *Refresher, metrics domrepo.Metrics, l *applogger.Logger) *RefreshHandler {
	return &RefreshHandler{topic: topic, refresher: refresher, metrics: metrics, l: l}
}

func (h *RefreshHandler) Topic() string { return h.topic }

// Handle accepts an empty payload as a bare refresh signal.
func (h *RefreshHandler) Handle(ctx context.Context, b []byte) error {
	var ev PanelUpdatedEvent
	if len(b) > 0 {
		if err := json.Unmarshal(b, &ev); err != nil {
			h.metrics.RecordError("consumer_unmarshal")
			return fmt.Errorf("decode panel event: %w", err)
		}
	}
	reason := "kafka"
	if ev.Source != "" {
		reason += ":" + ev.Source
	}
	if _, err := h.refresher.Refresh(ctx, reason); err != nil {
		h.metrics.RecordError("consumer_refresh")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*RefreshHandler)(nil)
