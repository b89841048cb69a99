package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RiskScreen/internal/usecase"
	xhttp "RiskScreen/pkg/http"
	pkgkafka "RiskScreen/pkg/kafka"
	applogger "RiskScreen/pkg/logger"
)

// Options carries the shutdown budget and warm-up timeout.
type Options struct {
	ShutdownTimeout time.Duration
	WarmupTimeout   time.Duration
}

// App encapsulates the entire application lifecycle.
type App struct {
	l          *applogger.Logger
	opts       Options
	store      *usecase.SnapshotStore
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	handler    pkgkafka.MessageHandler
	closers    []namedCloser
}

type namedCloser struct {
	name string
	c    io.Closer
}

// New creates a new App. consumer and handler may be nil when Kafka is disabled.
func New(
	l *applogger.Logger,
	opts Options,
	store *usecase.SnapshotStore,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	handler pkgkafka.MessageHandler,
) *App {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.WarmupTimeout <= 0 {
		opts.WarmupTimeout = time.Minute
	}
	return &App{l: l, opts: opts, store: store, httpServer: httpServer, consumer: consumer, handler: handler}
}

// AddCloser registers a resource closed on shutdown, in reverse order of registration.
func (a *App) AddCloser(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	a.warmup(ctx)

	if a.consumer != nil && a.handler != nil {
		a.consumer.RegisterHandler(a.handler)
		if err := a.consumer.Start(); err != nil {
			return err
		}
		a.l.Info("refresh consumer started", applogger.String("topic", a.handler.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// warmup loads the first snapshot so the first request does not pay for it.
// A failure is logged; requests retry the load.
func (a *App) warmup(ctx context.Context) {
	wctx, cancel := context.WithTimeout(ctx, a.opts.WarmupTimeout)
	defer cancel()
	if _, err := a.store.Get(wctx); err != nil {
		a.l.Warn("snapshot warmup failed", applogger.Error(err))
	}
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		nc := a.closers[i]
		if err := nc.c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", nc.name), applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
