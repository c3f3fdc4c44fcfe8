package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const jsonConfig = `{
  "telegram": {"token": "123:abc", "poll_timeout": "5s"},
  "server": {"addr": "127.0.0.1:8080", "auth_token": "s3cret"},
  "storage": {"path": "./subcast.db", "maintain_spec": "0 4 * * *"},
  "dispatch": {"workers": 4, "rate_per_sec": 20},
  "logging": {"level": "debug", "console": true}
}`

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", jsonConfig)
	m := NewManager(path, zerolog.Nop())
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" || cfg.Server.AuthToken != "s3cret" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Dispatch.Workers != 4 || cfg.Dispatch.RatePerSec != 20 {
		t.Errorf("dispatch = %+v", cfg.Dispatch)
	}
	if cfg.Storage.MaintainSpec != "0 4 * * *" {
		t.Errorf("maintain_spec = %q", cfg.Storage.MaintainSpec)
	}
	if m.Current() != cfg {
		t.Error("Current() does not return the committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
telegram:
  token: "123:abc"
server:
  addr: "0.0.0.0:9000"
storage:
  path: ./subcast.db
logging:
  level: warn
`)
	cfg, err := NewManager(path, zerolog.Nop()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" || cfg.Logging.Level != "warn" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "config.json", `{"server": {"adress": ":8080"}}`)
	if _, err := NewManager(path, zerolog.Nop()).Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadRejectsTrailingData(t *testing.T) {
	path := writeFile(t, "config.json", `{"server": {"addr": ":8080"}} {"extra": 1}`)
	if _, err := NewManager(path, zerolog.Nop()).Load(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv(envTelegramToken, "env-token")
	t.Setenv(envAuthToken, "env-auth")

	path := writeFile(t, "config.json", `{"server": {"addr": ":8080"}, "storage": {"path": "x.db"}, "telegram": {}}`)
	cfg, err := NewManager(path, zerolog.Nop()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" || cfg.Server.AuthToken != "env-auth" {
		t.Fatalf("env fallbacks not applied: %+v", cfg)
	}
}

func TestEnvDoesNotOverrideFile(t *testing.T) {
	t.Setenv(envTelegramToken, "env-token")
	path := writeFile(t, "config.json", `{"telegram": {"token": "file-token"}}`)
	cfg, err := NewManager(path, zerolog.Nop()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "file-token" {
		t.Fatalf("token = %q, want file value", cfg.Telegram.Token)
	}
}

func TestDuration(t *testing.T) {
	t.Parallel()
	d, err := Duration("x", "", 7*time.Second)
	if err != nil || d != 7*time.Second {
		t.Fatalf("empty = (%v, %v)", d, err)
	}
	d, err = Duration("x", "250ms", time.Second)
	if err != nil || d != 250*time.Millisecond {
		t.Fatalf("parse = (%v, %v)", d, err)
	}
	if _, err = Duration("x", "nope", time.Second); err == nil || !strings.Contains(err.Error(), "x") {
		t.Fatalf("invalid duration error = %v, want field name in it", err)
	}
}

func TestReloadCommitsAndPublishes(t *testing.T) {
	path := writeFile(t, "config.json", `{"logging": {"level": "info"}}`)
	m := NewManager(path, zerolog.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	sub := m.Subscribe()

	if err := os.WriteFile(path, []byte(`{"logging": {"level": "debug"}}`), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	m.reload()

	select {
	case cfg := <-sub:
		if cfg.Logging.Level != "debug" {
			t.Fatalf("published level = %q", cfg.Logging.Level)
		}
	default:
		t.Fatal("no config published after reload")
	}

	// A reload with identical content publishes nothing.
	m.reload()
	select {
	case <-sub:
		t.Fatal("unchanged config was republished")
	default:
	}

	// A broken edit keeps the previous config.
	if err := os.WriteFile(path, []byte(`{"logging": `), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	m.reload()
	if m.Current().Logging.Level != "debug" {
		t.Fatal("invalid reload clobbered the committed config")
	}
}
