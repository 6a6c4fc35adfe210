package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadReadsSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  port: "9090"
  client_origin: "https://trivia.example"
  secure_cookies: true
redis:
  addr: "localhost:6379"
  ttl: "30m"
tmdb:
  api_key: "file-key"
  language: "en-US"
hall_of_fame:
  capacity: 20
sessions:
  max_age: "2h"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || !cfg.Server.SecureCookies || cfg.Server.ClientOrigin != "https://trivia.example" {
		t.Fatalf("unexpected server section: %+v", cfg.Server)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.TMDB.Language != "en-US" || cfg.HallOfFame.Capacity != 20 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.TMDB.APIKey != "file-key" {
		t.Fatalf("empty env must not override file value, got %q", cfg.TMDB.APIKey)
	}
	if got := TTLDuration(cfg.Sessions.MaxAge, time.Hour); got != 2*time.Hour {
		t.Fatalf("expected 2h max age, got %s", got)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "env-key")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.TMDB.APIKey != "env-key" || cfg.Auth.JWTSecret != "env-secret" {
		t.Fatalf("expected env secrets, got %+v %+v", cfg.TMDB, cfg.Auth)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("empty should fall back, got %s", got)
	}
	if got := TTLDuration("nonsense", time.Minute); got != time.Minute {
		t.Fatalf("invalid should fall back, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
