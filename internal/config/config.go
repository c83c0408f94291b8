package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Network  NetworkConfig  `toml:"network"`
	Medium   MediumConfig   `toml:"medium"`
	Display  DisplayConfig  `toml:"display"`
	Playback PlaybackConfig `toml:"playback"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type NetworkConfig struct {
	BindAddress  string        `toml:"bind_address"`
	IdleTimeout  time.Duration `toml:"idle_timeout"` // 0 disables
	OutQueueSize int           `toml:"out_queue_size"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

type MediumConfig struct {
	Path      string `toml:"path"` // empty keeps frames in memory only
	Size      int64  `toml:"size"`
	BlockSize int    `toml:"block_size"`
	Sync      bool   `toml:"sync"` // fsync after every erase and program
}

type DisplayConfig struct {
	Brightness   string   `toml:"brightness"` // "full", "half", "quarter", "eighth"
	Sinks        []string `toml:"sinks"`      // any of "term", "serial"
	SerialPort   string   `toml:"serial_port"`
	BaudRate     int      `toml:"baud_rate"`
	ChannelOrder string   `toml:"channel_order"` // "grb" or "rgb"
}

type PlaybackConfig struct {
	Autostart  bool `toml:"autostart"`
	Begin      int  `toml:"begin"`
	End        int  `toml:"end"`
	IntervalMs int  `toml:"interval_ms"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json", "console" or "plain" (console without color)
	Output string `toml:"output"` // file path; empty logs to stderr
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Server.StartTime = time.Now().Unix()
	return cfg, nil
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	cfg := defaults()
	cfg.Server.StartTime = time.Now().Unix()
	return cfg
}

func (c *Config) validate() error {
	if c.Medium.BlockSize <= 0 || c.Medium.BlockSize%4 != 0 {
		return fmt.Errorf("medium.block_size %d must be a positive multiple of 4", c.Medium.BlockSize)
	}
	if c.Medium.Size <= 0 || c.Medium.Size%int64(c.Medium.BlockSize) != 0 {
		return fmt.Errorf("medium.size %d must be a positive multiple of block_size", c.Medium.Size)
	}
	if c.Playback.Autostart && (c.Playback.Begin > c.Playback.End || c.Playback.IntervalMs <= 0) {
		return fmt.Errorf("playback autostart window %d..%d every %dms is invalid",
			c.Playback.Begin, c.Playback.End, c.Playback.IntervalMs)
	}
	for _, s := range c.Display.Sinks {
		if s != "term" && s != "serial" {
			return fmt.Errorf("unknown display sink %q", s)
		}
	}
	switch c.Logging.Format {
	case "json", "console", "plain":
	default:
		return fmt.Errorf("logging.format %q must be json, console or plain", c.Logging.Format)
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "pixelwall",
		},
		Network: NetworkConfig{
			BindAddress:  "0.0.0.0:4242",
			IdleTimeout:  8 * time.Second,
			OutQueueSize: 64,
			WriteTimeout: 5 * time.Second,
		},
		Medium: MediumConfig{
			Path:      "data/frames.img",
			Size:      1280 * 1024, // 1280 frames
			BlockSize: 4096,
		},
		Display: DisplayConfig{
			Brightness:   "half",
			BaudRate:     1000000,
			ChannelOrder: "grb",
		},
		Playback: PlaybackConfig{
			Begin:      0,
			End:        0,
			IntervalMs: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
