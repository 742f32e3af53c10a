package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/muratmustafa/cmap/internal/bridge"
	"github.com/muratmustafa/cmap/internal/config"
	"github.com/muratmustafa/cmap/internal/protocol"
	"github.com/muratmustafa/cmap/internal/store"
	"github.com/muratmustafa/cmap/internal/ws"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func TestLoadConfigExampleFile(t *testing.T) {
	t.Setenv("CMAP_CONFIG", "")
	cfg, err := loadConfig([]string{"--config", "ex.config.toml"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.ListenAddr != "127.0.0.1:8090" {
		t.Fatalf("unexpected listen addr: %q", cfg.Server.ListenAddr)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Store.DedupeTTLSeconds != 3600 {
		t.Fatalf("unexpected dedupe ttl: %d", cfg.Store.DedupeTTLSeconds)
	}
	if cfg.Bridge.FeatureIDPrefix != "qt-point" {
		t.Fatalf("unexpected prefix: %q", cfg.Bridge.FeatureIDPrefix)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" || cfg.Log.Timestamp {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
}

func TestLoadConfigFlagsOverride(t *testing.T) {
	t.Setenv("CMAP_CONFIG", "")
	cfg, err := loadConfig([]string{"-c", "ex.config.toml", "--listen", ":9100", "--redis-addr", "redis:6379", "--log-level", "warn"})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Server.ListenAddr != ":9100" || cfg.Store.RedisAddr != "redis:6379" || cfg.Log.Level != "warn" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
}

func TestLoadConfigRejectsBadFlags(t *testing.T) {
	t.Setenv("CMAP_CONFIG", "")
	if _, err := loadConfig([]string{"--log-level", "chatty"}); err == nil {
		t.Fatalf("expected invalid log level error")
	}
	if _, err := loadConfig([]string{"--help"}); !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("expected ErrHelp, got %v", err)
	}
}

func TestMuxHealthAndChannels(t *testing.T) {
	st := store.NewMemoryStore()
	hub := ws.NewHub(st, ws.Options{}, zerolog.Nop())
	srv := httptest.NewServer(newMux(config.Default().Server, hub, st, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected healthz status: %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/channels")
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	defer resp.Body.Close()
	var got []struct {
		Channel   string `json:"channel"`
		Direction string `json:"direction"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode channels: %v", err)
	}
	if len(got) != len(protocol.Channels()) {
		t.Fatalf("unexpected channel list: %+v", got)
	}
	if got[0].Channel != string(protocol.ChannelFeaturePlot) || got[0].Direction != "host_to_surface" {
		t.Fatalf("unexpected first channel: %+v", got[0])
	}
}

func TestMuxRecentEvents(t *testing.T) {
	st := store.NewMemoryStore()
	hub := ws.NewHub(st, ws.Options{}, zerolog.Nop())
	srv := httptest.NewServer(newMux(config.Default().Server, hub, st, zerolog.Nop()))
	defer srv.Close()

	p := store.Publisher{Store: st, Logger: zerolog.Nop()}
	p.Emit(bridge.ClickEvent{Lat: 1, Lon: 2})
	p.Emit(bridge.CompletionEvent{FeatureID: "qt-point-1-1", Status: "ok"})

	resp, err := http.Get(srv.URL + "/events?n=1")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	defer resp.Body.Close()
	var got []protocol.EventPayload
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(got) != 1 || got[0].Kind != bridge.KindCompletion {
		t.Fatalf("unexpected recent events: %+v", got)
	}

	bad, err := http.Get(srv.URL + "/events?n=lots")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status for bad n: %d", bad.StatusCode)
	}
}
