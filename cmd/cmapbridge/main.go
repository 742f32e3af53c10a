package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/muratmustafa/cmap/internal/bridge"
	"github.com/muratmustafa/cmap/internal/config"
	"github.com/muratmustafa/cmap/internal/logging"
	"github.com/muratmustafa/cmap/internal/protocol"
	"github.com/muratmustafa/cmap/internal/store"
	"github.com/muratmustafa/cmap/internal/ws"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "cmapbridge: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger := logging.New("cmapbridge", cfg.Log, os.Stdout)

	st, closeStore := openStore(cfg.Store, logger)
	defer closeStore()

	hub := ws.NewHub(st, ws.Options{
		PanelAuthToken:   cfg.Server.PanelAuthToken,
		SurfaceAuthToken: cfg.Server.SurfaceAuthToken,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		DedupeTTL:        time.Duration(cfg.Store.DedupeTTLSeconds) * time.Second,
	}, logger)

	sink := bridge.MultiSink{
		bridge.LogSink{Logger: logger.With().Str("component", "events").Logger()},
		hub,
		store.Publisher{Store: st, Logger: logger},
	}
	br, err := bridge.New(hub, sink,
		bridge.WithLogger(logger),
		bridge.WithFeatureIDs(&bridge.SequenceIDs{Prefix: cfg.Bridge.FeatureIDPrefix}),
	)
	if err != nil {
		return err
	}
	hub.Attach(br, sink)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           newMux(cfg.Server, hub, st, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.ListenAddr).Str("surface_path", cfg.Server.SurfacePath).Str("panel_path", cfg.Server.PanelPath).Msg("cmapbridge listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func loadConfig(args []string) (config.Config, error) {
	fs := pflag.NewFlagSet("cmapbridge", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", os.Getenv("CMAP_CONFIG"), "config file (.json, .jsonc, .toml, .yaml)")
	listen := fs.StringP("listen", "l", "", "listen address, overrides server.listen_addr")
	redisAddr := fs.String("redis-addr", "", "redis address, overrides store.redis_addr")
	logLevel := fs.String("log-level", "", "log level: trace, debug, info, warn, error, off")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return config.Config{}, err
	}
	if fs.Changed("listen") {
		cfg.Server.ListenAddr = *listen
	}
	if fs.Changed("redis-addr") {
		cfg.Store.RedisAddr = *redisAddr
	}
	if fs.Changed("log-level") {
		if _, ok := logging.ParseLevel(*logLevel); !ok {
			return config.Config{}, fmt.Errorf("invalid --log-level %q", *logLevel)
		}
		cfg.Log.Level = *logLevel
	}
	return cfg, nil
}

func openStore(cfg config.StoreConfig, logger zerolog.Logger) (store.Store, func()) {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("use memory store")
		return store.NewMemoryStore(), func() {}
	}
	rs := store.NewRedisStore(cfg.RedisAddr, cfg.EventsChannel)
	logger.Info().Str("addr", cfg.RedisAddr).Str("events_channel", cfg.EventsChannel).Msg("use redis store")
	return rs, func() { _ = rs.Close() }
}

func newMux(cfg config.ServerConfig, hub *ws.Hub, st store.Store, logger zerolog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.SurfacePath, hub.HandleSurface)
	mux.HandleFunc(cfg.PanelPath, hub.HandlePanel)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/channels", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(protocol.Channels())
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		n := 0
		if raw := r.URL.Query().Get("n"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				http.Error(w, "invalid n", http.StatusBadRequest)
				return
			}
			n = v
		}
		recent, err := st.Recent(r.Context(), n)
		if err != nil {
			logger.Error().Err(err).Msg("read recent events failed")
			http.Error(w, "events unavailable", http.StatusServiceUnavailable)
			return
		}
		out := make([]json.RawMessage, 0, len(recent))
		for _, ev := range recent {
			out = append(out, ev)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	})
	return mux
}
