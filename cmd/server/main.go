package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/config"
	"github.com/AlbertWijaya1/MultiPlayer/internal/lobby"
	"github.com/AlbertWijaya1/MultiPlayer/internal/logging"
	"github.com/AlbertWijaya1/MultiPlayer/internal/metrics"
	"github.com/AlbertWijaya1/MultiPlayer/internal/mock"
	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
	"go.uber.org/zap"
)

func main() {
	mockMode := flag.Bool("mock", false, "Seed the lobby with bot-hosted sessions")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	port := flag.Int("port", 0, "Override server port")
	token := flag.String("token", "", "Override auth token")
	logLevel := flag.String("log-level", "", "Override log level")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *token != "" {
		cfg.Server.Token = *token
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	reg := metrics.NewRegistry()
	store := session.NewStore()
	server := lobby.NewServer(store, lobby.Options{
		AuthToken:        cfg.Server.Token,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		SessionTTL:       cfg.Lobby.SessionTTL,
		SweepInterval:    cfg.Lobby.SweepInterval,
		MaxSearchResults: cfg.Lobby.MaxSearchResults,
		Privacy:          cfg.Lobby.Privacy,
		Logger:           log.Named("lobby"),
		Metrics:          metrics.NewLobbyMetrics(reg),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go server.RunSweeper(ctx)

	if *mockMode {
		log.Info("starting in mock mode")
		mock.NewGenerator(store, nil, log.Named("mock")).Start(ctx, time.Second)
	}

	mux := http.NewServeMux()
	server.SetupRoutes(mux)
	mux.Handle("/metrics", metrics.Handler(reg))

	if err := lobby.ListenAndServe(ctx, cfg.Server.Host, cfg.Server.Port, mux, log); err != nil {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("shutting down")
	if err := server.Close(); err != nil {
		log.Warn("close lobby clients", zap.Error(err))
	}
}
