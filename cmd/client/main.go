package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/config"
	"github.com/AlbertWijaya1/MultiPlayer/internal/coordinator"
	"github.com/AlbertWijaya1/MultiPlayer/internal/frame"
	"github.com/AlbertWijaya1/MultiPlayer/internal/lobby"
	"github.com/AlbertWijaya1/MultiPlayer/internal/logging"
	"github.com/AlbertWijaya1/MultiPlayer/internal/metrics"
	"github.com/AlbertWijaya1/MultiPlayer/internal/netaddr"
	"github.com/AlbertWijaya1/MultiPlayer/internal/online"
	"github.com/AlbertWijaya1/MultiPlayer/internal/travel"
	"github.com/AlbertWijaya1/MultiPlayer/internal/tui/app"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	lobbyURL := flag.String("lobby", "", "Lobby WebSocket URL, e.g. ws://127.0.0.1:8080/ws (empty: offline)")
	token := flag.String("token", "", "Lobby auth token")
	name := flag.String("name", "", "Player name")
	listenPort := flag.Int("listen-port", 0, "Override listen server port")
	headless := flag.Bool("headless", false, "Run without the menu")
	hostFlag := flag.Bool("host", false, "Headless: host a session on start")
	joinFlag := flag.Bool("join", false, "Headless: find and join a session on start")
	metricsAddr := flag.String("metrics-addr", "", "Serve coordinator metrics on this address")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *lobbyURL != "" {
		cfg.Client.LobbyURL = *lobbyURL
	}
	if *token != "" {
		cfg.Server.Token = *token
	}
	if *name != "" {
		cfg.Client.PlayerName = *name
	}
	if *listenPort > 0 {
		cfg.Travel.ListenPort = *listenPort
	}

	log, err := buildLogger(cfg, *headless)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log, runOptions{
		headless:    *headless,
		host:        *hostFlag,
		join:        *joinFlag,
		metricsAddr: *metricsAddr,
	}); err != nil {
		log.Error("client exited", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	headless    bool
	host        bool
	join        bool
	metricsAddr string
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, opts runOptions) (err error) {
	queue := frame.New()
	address := netaddr.Advertise(netaddr.System(), cfg.Travel.AdvertiseHost, cfg.Travel.ListenPort)

	var game *app.Game
	link := travel.New(travel.Options{
		ListenPort:  cfg.Travel.ListenPort,
		PlayerName:  cfg.Client.PlayerName,
		DialTimeout: cfg.Travel.DialTimeout,
		Logger:      log.Named("travel"),
		OnGuest: func(guest string, joined bool) {
			text := guest + " left"
			if joined {
				text = guest + " joined"
			}
			queue.Post(func() {
				game.Notify(coordinator.Message{Color: coordinator.Cyan, Duration: 15 * time.Second, Text: text})
			})
		},
	})
	defer func() { err = multierr.Append(err, link.Close()) }()

	svc, player, err := connect(ctx, cfg, address, log)
	if err != nil {
		return err
	}
	if c, ok := svc.(*lobby.Client); ok {
		defer func() { err = multierr.Append(err, c.Close()) }()
	}

	game = app.NewGame(app.GameOptions{
		Player:     player,
		PlayerName: cfg.Client.PlayerName,
		Travel:     link,
		Logger:     log.Named("game"),
		Poster:     queue,
	})

	reg := metrics.NewRegistry()
	if opts.metricsAddr != "" {
		go serveMetrics(ctx, opts.metricsAddr, metrics.Handler(reg), log)
	}

	coord := coordinator.New(svc, game, queue, coordinator.Options{
		SessionName: cfg.Session.Name,
		LobbyMap:    cfg.Travel.LobbyMap,
		Logger:      log.Named("coordinator"),
		Metrics:     metrics.NewCoordinatorMetrics(reg),
	})
	game.OnTravelFailed(coord.TravelFailed)

	if opts.headless {
		switch {
		case opts.host:
			coord.CreateSession(cfg.HostSettings())
		case opts.join:
			coord.FindSessions(cfg.Session.MatchType)
		}
		queue.Run(ctx, cfg.FrameInterval())
		return nil
	}

	m := app.New(coord, game, queue, app.Options{
		MatchType:     cfg.Session.MatchType,
		Settings:      cfg.HostSettings(),
		FrameInterval: cfg.FrameInterval(),
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if err != nil && ctx.Err() != nil {
		// Interrupted by a signal.
		err = nil
	}
	return err
}

// connect picks the session service: the lobby when a URL is configured,
// otherwise an offline in-process platform.
func connect(ctx context.Context, cfg *config.Config, address string, log *zap.Logger) (online.Service, online.PlayerID, error) {
	if cfg.Client.LobbyURL == "" {
		platform := online.NewPlatform(online.WithLogger(log.Named("online")))
		player := online.PlayerID(uuid.NewString())
		return platform.Service(player, cfg.Client.PlayerName, address), player, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.Travel.DialTimeout)
	defer cancel()
	c, err := lobby.Dial(dialCtx, cfg.Client.LobbyURL, lobby.ClientOptions{
		Token:      cfg.Server.Token,
		PlayerName: cfg.Client.PlayerName,
		Address:    address,
		Heartbeat:  cfg.Client.Heartbeat,
		Logger:     log.Named("lobby"),
	})
	if err != nil {
		return nil, "", err
	}
	return c, c.PlayerID(), nil
}

func buildLogger(cfg *config.Config, headless bool) (*zap.Logger, error) {
	switch {
	case headless:
		return logging.New(cfg.Log.Level, cfg.Log.Format)
	case cfg.Client.LogFile != "":
		return logging.ToFile(cfg.Log.Level, cfg.Client.LogFile)
	default:
		return zap.NewNop(), nil
	}
}

func serveMetrics(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn("metrics server", zap.Error(err))
	}
}
