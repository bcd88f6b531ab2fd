package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andy6609/broadcast-chat/internal/chat"
	"github.com/andy6609/broadcast-chat/internal/config"
	"github.com/andy6609/broadcast-chat/internal/transcript"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	cfg, err := config.LoadServer()
	if err != nil {
		return exitConfig, err
	}

	addr := flag.String("addr", cfg.Addr(), "chat listen address")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "metrics listen address, empty to disable")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))

	opts := []chat.Option{
		chat.WithMaxMessageLength(cfg.MaxMessageLength),
		chat.WithWriteTimeout(cfg.WriteTimeout),
	}
	if cfg.TranscriptPath != "" {
		store, err := transcript.Open(cfg.TranscriptPath, logger)
		if err != nil {
			return exitRuntime, err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close transcript", "error", err)
			}
		}()
		opts = append(opts, chat.WithRecorder(store, cfg.HistoryGreets))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	var metrics *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metrics = &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info("metrics endpoint started", "addr", *metricsAddr)
			if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	srv := chat.NewServer(*addr, logger, opts...)
	if err := srv.Start(); err != nil {
		logger.Error("failed to start server", "error", err)
		return exitRuntime, err
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		logger.Error("stopping after failure", "error", runErr)
	}

	srv.Stop()
	if metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metrics.Shutdown(shutdownCtx)
	}
	if runErr != nil {
		return exitRuntime, runErr
	}
	return exitOK, nil
}
