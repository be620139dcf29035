package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AlbertWijaya1/MultiPlayer/internal/session"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: "0.0.0.0"
  token: secret
  allowed_origins:
    - "http://localhost:3000"
lobby:
  session_ttl: 1m
  privacy:
    mask_host_addresses: true
    hidden_match_types:
      - "Test*"
session:
  match_type: TeamDeathmatch
  settings:
    num_public_connections: 8
travel:
  listen_port: 7778
client:
  lobby_url: ws://lobby.example:9090/ws
  player_name: Alice
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Token != "secret" {
		t.Errorf("Server.Token = %q, want %q", cfg.Server.Token, "secret")
	}
	if len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("Server.AllowedOrigins = %v, want one entry", cfg.Server.AllowedOrigins)
	}
	if cfg.Lobby.SessionTTL != time.Minute {
		t.Errorf("Lobby.SessionTTL = %v, want 1m", cfg.Lobby.SessionTTL)
	}
	if !cfg.Lobby.Privacy.MaskHostAddresses {
		t.Error("Lobby.Privacy.MaskHostAddresses = false, want true")
	}
	if cfg.Lobby.Privacy.IsAllowed("TestMatch") {
		t.Error("TestMatch should be hidden")
	}
	if cfg.Session.Settings.NumPublicConnections != 8 {
		t.Errorf("NumPublicConnections = %d, want 8", cfg.Session.Settings.NumPublicConnections)
	}
	if cfg.Travel.ListenPort != 7778 {
		t.Errorf("Travel.ListenPort = %d, want 7778", cfg.Travel.ListenPort)
	}
	if cfg.Client.PlayerName != "Alice" {
		t.Errorf("Client.PlayerName = %q, want Alice", cfg.Client.PlayerName)
	}

	// Defaults should still be applied for unspecified fields.
	if cfg.Lobby.SweepInterval != 5*time.Second {
		t.Errorf("Lobby.SweepInterval = %v, want default 5s", cfg.Lobby.SweepInterval)
	}
	if !cfg.Session.Settings.AllowJoinInProgress {
		t.Error("Session.Settings.AllowJoinInProgress lost its default")
	}
	if cfg.Travel.LobbyMap != "/Game/ThirdPerson/Maps/Lobby?listen" {
		t.Errorf("Travel.LobbyMap = %q", cfg.Travel.LobbyMap)
	}
	if cfg.Client.FrameRate != 30 {
		t.Errorf("Client.FrameRate = %d, want default 30", cfg.Client.FrameRate)
	}

	if got, _ := cfg.HostSettings().Get(session.MatchTypeKey); got != "TeamDeathmatch" {
		t.Errorf("HostSettings MatchType = %q, want TeamDeathmatch", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() on missing file should return error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadOrDefault() error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Session.Name != session.DefaultName {
		t.Errorf("Session.Name = %q, want %q", cfg.Session.Name, session.DefaultName)
	}
	if cfg.Session.Settings.NumPublicConnections != 4 {
		t.Errorf("NumPublicConnections = %d, want 4", cfg.Session.Settings.NumPublicConnections)
	}
	if got, _ := cfg.HostSettings().Get(session.MatchTypeKey); got != "FreeForAll" {
		t.Errorf("HostSettings MatchType = %q, want FreeForAll", got)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, ":::not valid yaml")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() with invalid YAML should return error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"listen port any", func(c *Config) { c.Travel.ListenPort = 0 }, false},
		{"empty session name", func(c *Config) { c.Session.Name = "" }, true},
		{"no frame rate", func(c *Config) { c.Client.FrameRate = 0 }, true},
		{"no capacity", func(c *Config) { c.Session.Settings.NumPublicConnections = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFrameInterval(t *testing.T) {
	cfg := Default()
	cfg.Client.FrameRate = 50
	if got := cfg.FrameInterval(); got != 20*time.Millisecond {
		t.Errorf("FrameInterval() = %v, want 20ms", got)
	}
}
