package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Lobby   LobbyConfig   `yaml:"lobby"`
	Session SessionConfig `yaml:"session"`
	Travel  TravelConfig  `yaml:"travel"`
	Client  ClientConfig  `yaml:"client"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	Token          string   `yaml:"token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LobbyConfig struct {
	SessionTTL       time.Duration         `yaml:"session_ttl"`
	SweepInterval    time.Duration         `yaml:"sweep_interval"`
	MaxSearchResults int                   `yaml:"max_search_results"`
	Privacy          session.PrivacyFilter `yaml:"privacy"`
}

// SessionConfig is what the menu client advertises when hosting and filters
// on when joining.
type SessionConfig struct {
	Name      string           `yaml:"name"`
	MatchType string           `yaml:"match_type"`
	Settings  session.Settings `yaml:"settings"`
}

type TravelConfig struct {
	LobbyMap      string        `yaml:"lobby_map"`
	ListenPort    int           `yaml:"listen_port"`
	AdvertiseHost string        `yaml:"advertise_host"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
}

type ClientConfig struct {
	// LobbyURL selects the lobby service. Empty runs against an in-process
	// platform.
	LobbyURL   string        `yaml:"lobby_url"`
	PlayerName string        `yaml:"player_name"`
	FrameRate  int           `yaml:"frame_rate"`
	Heartbeat  time.Duration `yaml:"heartbeat"`
	LogFile    string        `yaml:"log_file"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
		Lobby: LobbyConfig{
			SessionTTL:       30 * time.Second,
			SweepInterval:    5 * time.Second,
			MaxSearchResults: 10000,
		},
		Session: SessionConfig{
			Name:      session.DefaultName,
			MatchType: "FreeForAll",
			Settings:  session.DefaultSettings(),
		},
		Travel: TravelConfig{
			LobbyMap:    "/Game/ThirdPerson/Maps/Lobby?listen",
			ListenPort:  7777,
			DialTimeout: 10 * time.Second,
		},
		Client: ClientConfig{
			PlayerName: "Player",
			FrameRate:  30,
			Heartbeat:  10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultConfig(), nil
	}
	return cfg, err
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Travel.ListenPort < 0 || c.Travel.ListenPort > 65535 {
		return fmt.Errorf("travel.listen_port %d out of range", c.Travel.ListenPort)
	}
	if c.Session.Name == "" {
		return errors.New("session.name is empty")
	}
	if c.Client.FrameRate <= 0 {
		return fmt.Errorf("client.frame_rate must be positive, got %d", c.Client.FrameRate)
	}
	if err := c.Session.Settings.Validate(); err != nil {
		return fmt.Errorf("session.settings: %w", err)
	}
	return nil
}

// FrameInterval is the time between frames at the configured frame rate.
func (c *Config) FrameInterval() time.Duration {
	if c.Client.FrameRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.Client.FrameRate)
}

// HostSettings returns the settings to advertise, tagged with the configured
// match type.
func (c *Config) HostSettings() session.Settings {
	s := c.Session.Settings.Clone()
	if c.Session.MatchType != "" {
		s.Set(session.MatchTypeKey, c.Session.MatchType)
	}
	return s
}
