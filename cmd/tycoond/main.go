// Command tycoond serves the restaurant chain engine over HTTP, streams its
// events over WebSocket and optionally forwards them to an AMQP exchange.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tycooncore/internal/adapters/httpapi"
	"tycooncore/internal/archive"
	"tycooncore/internal/config"
	"tycooncore/internal/engine"
	"tycooncore/internal/kv"
	"tycooncore/internal/notify/amqpsink"
	"tycooncore/internal/notify/wsbridge"
	"tycooncore/internal/savestore"
)

const shutdownTimeout = 10 * time.Second

var exitFunc = os.Exit

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		exitFunc(2)
		return
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		log.Error("listen", "addr", cfg.HTTPAddr, "error", err)
		exitFunc(1)
		return
	}
	if err := serve(ctx, cfg, log, ln); err != nil {
		log.Error("server stopped", "error", err)
		exitFunc(1)
	}
}

// serve wires storage, the engine and the event sinks, then serves HTTP on ln
// until ctx is cancelled.
func serve(ctx context.Context, cfg config.Config, log *slog.Logger, ln net.Listener) error {
	store, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	arch, err := archive.Open(ctx, cfg.Archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	opts := []savestore.Option{savestore.WithKey(cfg.SaveKey), savestore.WithBalance(cfg.Balance)}
	if arch != nil {
		opts = append(opts, savestore.WithArchive(arch))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := engine.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	svc, err := engine.New(savestore.New(store, opts...),
		engine.WithLogger(log.With("component", "engine")),
		engine.WithMetricsRecorder(metrics),
	)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if save, ok := svc.Load(ctx); ok {
		log.Info("save loaded", "player", save.Player, "period", save.Progression.Period)
	}

	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	hub := wsbridge.NewHub(log.With("component", "events"))
	go hub.Run(hubCtx)
	defer hub.Attach(svc.Notifier())()

	if cfg.AMQP.URL != "" {
		sink, err := amqpsink.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, log.With("component", "amqp"))
		if err != nil {
			return err
		}
		defer func() { _ = sink.Close() }()
		defer sink.Attach(svc.Notifier())()
		log.Info("forwarding events", "exchange", cfg.AMQP.Exchange)
	}

	srv := &http.Server{
		Handler:           httpapi.NewHandler(svc, httpapi.WithEvents(hub), httpapi.WithMetrics(reg), httpapi.WithLogger(log)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info("listening", "addr", ln.Addr().String(), "storage", string(cfg.Storage.Driver))

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
