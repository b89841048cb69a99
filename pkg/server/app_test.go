package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"RiskScreen/internal/domain/models"
	"RiskScreen/internal/usecase"
	xhttp "RiskScreen/pkg/http"
	applogger "RiskScreen/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panels struct{ calls int }

func (p *panels) LoadPanel(context.Context) (*models.Panel, error) {
	p.calls++
	return models.NewPanel([]string{models.ColEntity, models.ColPeriod}, nil), nil
}

type nopMetrics struct{}

func (nopMetrics) RecordQuery(string, float64, int) {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordSnapshot(int, uint64)       {}
func (nopMetrics) RecordFlags(string, int)          {}

type closer struct {
	order *[]string
	name  string
	err   error
}

func (c closer) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestRunContextWarmsUpAndClosesInReverse(t *testing.T) {
	l := applogger.Nop()
	src := &panels{}
	store := usecase.NewSnapshotStore(src, nil, nil, nopMetrics{}, l)
	srv := xhttp.NewServer(nil, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))
	app := New(l, Options{ShutdownTimeout: time.Second}, store, srv, nil, nil)

	var order []string
	app.AddCloser("redis", closer{order: &order, name: "redis"})
	app.AddCloser("kafka", closer{order: &order, name: "kafka", err: errors.New("already closed")})
	app.AddCloser("nil", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := app.RunContext(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already closed")
	assert.Equal(t, 1, src.calls)
	require.NotNil(t, store.Current())
	assert.Equal(t, []string{"kafka", "redis"}, order)
}
