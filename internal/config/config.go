package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type AppConfig struct {
	ServerWSURL  string `yaml:"server-ws-url" env:"SERVER_WS_URL" env-default:"ws://localhost:8080/ws"`
	ServerAPIURL string `yaml:"server-api-url" env:"SERVER_API_URL" env-default:"http://localhost:8080"`
	AnalyticsURL string `yaml:"analytics-url" env:"ANALYTICS_URL" env-default:"http://localhost:8081"`

	PlayerName string `yaml:"player-name" env:"PLAYER_NAME"`
	ClientName string `yaml:"client-name" env:"CLIENT_NAME" env-default:"connect4-client"`

	MoveHighlightMS int `yaml:"move-highlight-ms" env:"MOVE_HIGHLIGHT_MS" env-default:"500"`
	DialTimeoutMS   int `yaml:"dial-timeout-ms" env:"DIAL_TIMEOUT_MS" env-default:"10000"`
	PingIntervalSec int `yaml:"ping-interval-sec" env:"PING_INTERVAL_SEC" env-default:"0"`
	HTTPTimeoutMS   int `yaml:"http-timeout-ms" env:"HTTP_TIMEOUT_MS" env-default:"5000"`

	RedisURL     string `yaml:"redis-url" env:"REDIS_URL"`
	DatabaseURL  string `yaml:"database-url" env:"DATABASE_URL"`
	HistoryLimit int    `yaml:"history-limit" env:"HISTORY_LIMIT" env-default:"20"`

	MessagesDir string `yaml:"messages-dir" env:"MESSAGES_DIR"`
}

// Load reads the environment, or CONFIG_FILE (yaml) overlaid by the environment when set.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	cfg.ServerWSURL = strings.TrimSpace(cfg.ServerWSURL)
	cfg.ServerAPIURL = strings.TrimSpace(cfg.ServerAPIURL)
	cfg.AnalyticsURL = strings.TrimSpace(cfg.AnalyticsURL)
	cfg.PlayerName = strings.TrimSpace(cfg.PlayerName)
	cfg.ClientName = strings.TrimSpace(cfg.ClientName)
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if err := checkURL("SERVER_WS_URL", c.ServerWSURL, "ws", "wss"); err != nil {
		return err
	}
	if err := checkURL("SERVER_API_URL", c.ServerAPIURL, "http", "https"); err != nil {
		return err
	}
	if err := checkURL("ANALYTICS_URL", c.AnalyticsURL, "http", "https"); err != nil {
		return err
	}
	if c.MoveHighlightMS <= 0 {
		return errors.New("MOVE_HIGHLIGHT_MS must be positive")
	}
	if c.DialTimeoutMS <= 0 {
		return errors.New("DIAL_TIMEOUT_MS must be positive")
	}
	if c.PingIntervalSec < 0 {
		return errors.New("PING_INTERVAL_SEC must not be negative")
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 20
	}
	return nil
}

func checkURL(name, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s URL, got %q", name, strings.Join(schemes, "/"), raw)
}

// RequestHeaders identifies this client on REST calls and the websocket handshake.
func (c *AppConfig) RequestHeaders() map[string]string {
	if c.ClientName == "" {
		return nil
	}
	return map[string]string{"User-Agent": c.ClientName}
}

func (c *AppConfig) MoveHighlight() time.Duration {
	return time.Duration(c.MoveHighlightMS) * time.Millisecond
}

func (c *AppConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMS) * time.Millisecond
}

func (c *AppConfig) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSec) * time.Second
}

func (c *AppConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}
