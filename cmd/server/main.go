package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tyrowin/gochat-relay/internal/config"
	"github.com/Tyrowin/gochat-relay/internal/logging"
	"github.com/Tyrowin/gochat-relay/internal/metrics"
	"github.com/Tyrowin/gochat-relay/internal/registry"
	"github.com/Tyrowin/gochat-relay/internal/relay"
	"github.com/Tyrowin/gochat-relay/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	promRegistry := metrics.NewRegistry()
	relayMetrics := metrics.NewRelayMetrics(promRegistry)

	engine := relay.NewEngine(log, registry.New(), relayMetrics, cfg.SendTimeout)
	relayServer := server.NewServer(*cfg, engine, log, server.WithGatherer(promRegistry))
	httpServer := server.CreateServer(cfg.Port, relayServer.Routes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.StartServer(httpServer)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	}

	shutdownErr := server.ShutdownServer(httpServer, cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := relayServer.Shutdown(shutdownCtx); err != nil {
		shutdownErr = errors.Join(shutdownErr, fmt.Errorf("close clients: %w", err))
	}
	if shutdownErr != nil {
		return shutdownErr
	}

	log.Info("Program stopped cleanly")
	return nil
}
