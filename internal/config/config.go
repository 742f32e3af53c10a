package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/muratmustafa/cmap/internal/bridge"
	"github.com/muratmustafa/cmap/internal/logging"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr      = ":8080"
	defaultPanelPath       = "/ws/panel"
	defaultSurfacePath     = "/ws/map"
	defaultEventsChannel   = "cmap:events"
	defaultDedupeTTLSecond = 24 * 60 * 60
)

type Config struct {
	Server ServerConfig   `json:"server" toml:"server" yaml:"server"`
	Store  StoreConfig    `json:"store" toml:"store" yaml:"store"`
	Bridge BridgeConfig   `json:"bridge" toml:"bridge" yaml:"bridge"`
	Log    logging.Config `json:"log" toml:"log" yaml:"log"`
}

type ServerConfig struct {
	ListenAddr       string   `json:"listen_addr" toml:"listen_addr" yaml:"listen_addr"`
	Host             string   `json:"host" toml:"host" yaml:"host"`
	Port             int      `json:"port" toml:"port" yaml:"port"`
	PanelPath        string   `json:"panel_path" toml:"panel_path" yaml:"panel_path"`
	SurfacePath      string   `json:"surface_path" toml:"surface_path" yaml:"surface_path"`
	PanelAuthToken   string   `json:"panel_auth_token" toml:"panel_auth_token" yaml:"panel_auth_token"`
	SurfaceAuthToken string   `json:"surface_auth_token" toml:"surface_auth_token" yaml:"surface_auth_token"`
	AllowedOrigins   []string `json:"allowed_origins" toml:"allowed_origins" yaml:"allowed_origins"`
}

type StoreConfig struct {
	RedisAddr        string `json:"redis_addr" toml:"redis_addr" yaml:"redis_addr"`
	EventsChannel    string `json:"events_channel" toml:"events_channel" yaml:"events_channel"`
	DedupeTTLSeconds int    `json:"dedupe_ttl_seconds" toml:"dedupe_ttl_seconds" yaml:"dedupe_ttl_seconds"`
}

type BridgeConfig struct {
	FeatureIDPrefix string `json:"feature_id_prefix" toml:"feature_id_prefix" yaml:"feature_id_prefix"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:       envOrDefault("CMAP_LISTEN_ADDR", defaultListenAddr),
			PanelPath:        defaultPanelPath,
			SurfacePath:      defaultSurfacePath,
			PanelAuthToken:   os.Getenv("PANEL_AUTH_TOKEN"),
			SurfaceAuthToken: os.Getenv("SURFACE_AUTH_TOKEN"),
		},
		Store: StoreConfig{
			RedisAddr:        os.Getenv("REDIS_ADDR"),
			EventsChannel:    defaultEventsChannel,
			DedupeTTLSeconds: defaultDedupeTTLSecond,
		},
		Bridge: BridgeConfig{
			FeatureIDPrefix: bridge.DefaultFeatureIDPrefix,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load reads path over the defaults. The decoder is picked by extension:
// .toml, .yaml/.yml, anything else is JSON with comments and trailing commas.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config failed: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(content), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config failed: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config failed: %w", err)
		}
	default:
		std, err := hujson.Standardize(content)
		if err != nil {
			return Config{}, fmt.Errorf("parse config failed: %w", err)
		}
		if err := json.Unmarshal(std, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config failed: %w", err)
		}
	}

	cfg.backfill()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) backfill() {
	if c.Server.PanelPath == "" {
		c.Server.PanelPath = defaultPanelPath
	}
	if c.Server.SurfacePath == "" {
		c.Server.SurfacePath = defaultSurfacePath
	}
	if c.Server.ListenAddr == "" {
		if c.Server.Host != "" && c.Server.Port > 0 {
			c.Server.ListenAddr = fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
		} else {
			c.Server.ListenAddr = defaultListenAddr
		}
	}
	if c.Store.EventsChannel == "" {
		c.Store.EventsChannel = defaultEventsChannel
	}
	if c.Store.DedupeTTLSeconds <= 0 {
		c.Store.DedupeTTLSeconds = defaultDedupeTTLSecond
	}
	if c.Bridge.FeatureIDPrefix == "" {
		c.Bridge.FeatureIDPrefix = bridge.DefaultFeatureIDPrefix
	}
}

func (c Config) Validate() error {
	if c.Server.PanelPath == c.Server.SurfacePath {
		return errors.New("panel_path and surface_path must differ")
	}
	if !strings.HasPrefix(c.Server.PanelPath, "/") || !strings.HasPrefix(c.Server.SurfacePath, "/") {
		return errors.New("panel_path and surface_path must start with /")
	}
	return nil
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
