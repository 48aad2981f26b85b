// Package config loads the YAML configuration shared by dogd and dogctl.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ev3-dog/codec"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Legs   LegsConfig   `yaml:"legs"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Listen    string  `yaml:"listen"`    // TCP address, e.g. ":9000"
	WebSocket string  `yaml:"websocket"` // HTTP address for WebSocket sessions, empty disables
	Rate      float64 `yaml:"rate"`      // Calls per second, 0 disables pacing
	Burst     int     `yaml:"burst"`
}

type ClientConfig struct {
	Address   string        `yaml:"address"` // host:port, or a ws:// URL
	Codec     string        `yaml:"codec"`   // json, binary or proto
	Heartbeat time.Duration `yaml:"heartbeat"`
}

type LegsConfig struct {
	TimeScale float64 `yaml:"time_scale"` // 1 is real time, 0 moves instantly
	Speed     float64 `yaml:"speed"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

func Default() Config {
	return Config{
		Server: ServerConfig{Listen: ":9000", Rate: 20, Burst: 5},
		Client: ClientConfig{Address: "localhost:9000", Codec: "json", Heartbeat: 5 * time.Second},
		Legs:   LegsConfig{TimeScale: 1, Speed: 62.5},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. Unknown keys are an error.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Default(), fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Listen == "" && c.Server.WebSocket == "" {
		errs = append(errs, errors.New("server: listen or websocket address required"))
	}
	if c.Server.Rate < 0 {
		errs = append(errs, fmt.Errorf("server: rate must not be negative, got %g", c.Server.Rate))
	}
	if c.Server.Rate > 0 && c.Server.Burst < 1 {
		errs = append(errs, fmt.Errorf("server: burst must be at least 1 when rate is set, got %d", c.Server.Burst))
	}
	if c.Client.Address == "" {
		errs = append(errs, errors.New("client: address required"))
	}
	if _, err := c.Client.CodecType(); err != nil {
		errs = append(errs, fmt.Errorf("client: %w", err))
	}
	if c.Client.Heartbeat < 0 {
		errs = append(errs, errors.New("client: heartbeat must not be negative"))
	}
	if c.Legs.TimeScale < 0 {
		errs = append(errs, errors.New("legs: time_scale must not be negative"))
	}
	if c.Legs.Speed <= 0 {
		errs = append(errs, fmt.Errorf("legs: speed must be positive, got %g", c.Legs.Speed))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c ClientConfig) CodecType() (codec.CodecType, error) {
	return codec.ParseCodecType(c.Codec)
}

// IsWebSocket reports whether the address is a WebSocket URL.
func (c ClientConfig) IsWebSocket() bool {
	return strings.HasPrefix(c.Address, "ws://") || strings.HasPrefix(c.Address, "wss://")
}

func (c LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return level, fmt.Errorf("log: %w", err)
	}
	return level, nil
}

// Logger builds the process logger writing to w.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
