package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, "log_level: info\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.Snapshot.TTL != DefaultSnapshotTTL {
		t.Errorf("snapshot.ttl: got %v, want %v", cfg.Server.Snapshot.TTL, DefaultSnapshotTTL)
	}
	if cfg.Refresh.Interval != DefaultRefreshInterval {
		t.Errorf("refresh.interval: got %v, want %v", cfg.Refresh.Interval, DefaultRefreshInterval)
	}
	if cfg.Server.TopN != DefaultTopN {
		t.Errorf("top_n: got %d, want %d", cfg.Server.TopN, DefaultTopN)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Type != "stub" {
		t.Errorf("sources: got %+v, want one stub source", cfg.Sources)
	}
	if cfg.Theme.Name != "dark" || cfg.Theme.Colors["bg"] != "#0f172a" {
		t.Errorf("theme: got %q bg=%q, want dark #0f172a", cfg.Theme.Name, cfg.Theme.Colors["bg"])
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `log_level: debug
server:
  http_port: 9091
  broadcast_interval: 2s
  top_n: 3
  auth:
    mode: apikey
    key_env: MY_KEY
    header: x-board-key
  snapshot:
    ttl: 10m
refresh:
  interval: 15m
sources:
  - id: feed
    type: prometheus
    endpoint: http://exporter:9100/metrics
  - id: archive
    type: csv
    path: /data/registrations.csv
alerts:
  rules:
    - name: qoq-drop
      condition: qoq_growth < -10
      severity: critical
      cooldown: 1h
  webhooks:
    - type: slack
      url_env: SLACK_URL
theme:
  name: custom
  colors:
    bg: "#000000"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel: got %v, want debug", cfg.SlogLevel())
	}
	if cfg.Server.HTTPPort != 9091 {
		t.Errorf("http_port: got %d, want 9091", cfg.Server.HTTPPort)
	}
	if cfg.Server.BroadcastInterval != 2*time.Second {
		t.Errorf("broadcast_interval: got %v, want 2s", cfg.Server.BroadcastInterval)
	}
	if cfg.Server.Auth.EffectiveHeader() != "x-board-key" {
		t.Errorf("header: got %q, want x-board-key", cfg.Server.Auth.EffectiveHeader())
	}
	if cfg.Refresh.Interval != 15*time.Minute {
		t.Errorf("refresh.interval: got %v, want 15m", cfg.Refresh.Interval)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("sources: got %d, want 2", len(cfg.Sources))
	}
	if cfg.Sources[0].Metric != DefaultMetric {
		t.Errorf("sources[0].metric: got %q, want %q", cfg.Sources[0].Metric, DefaultMetric)
	}
	if len(cfg.Alerts.Rules) != 1 || cfg.Alerts.Rules[0].Cooldown != time.Hour {
		t.Errorf("alerts.rules: got %+v", cfg.Alerts.Rules)
	}
	if cfg.Theme.Colors["bg"] != "#000000" {
		t.Errorf("theme bg: got %q, want #000000", cfg.Theme.Colors["bg"])
	}
	if cfg.Theme.Colors["primary"] != "#60a5fa" {
		t.Errorf("theme primary: got %q, want default #60a5fa", cfg.Theme.Colors["primary"])
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_EnvResolution(t *testing.T) {
	t.Setenv("TEST_BOARD_KEY", "supersecret")
	t.Setenv("TEST_SRC_TOKEN", "tok")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_BOARD_KEY
sources:
  - id: feed
    type: prometheus
    endpoint: http://x/metrics
    auth:
      mode: bearer
      token_env: TEST_SRC_TOKEN
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
	if tok := cfg.Sources[0].Auth.Token(); tok != "tok" {
		t.Errorf("Token(): got %q, want tok", tok)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"unknown auth mode": "server:\n  auth:\n    mode: oauth2\n",
		"bad port":          "server:\n  http_port: 70000\n",
		"zero refresh":      "refresh:\n  interval: 0s\n",
		"unknown type":      "sources:\n  - id: a\n    type: ftp\n",
		"missing id":        "sources:\n  - type: stub\n",
		"duplicate id":      "sources:\n  - id: a\n    type: stub\n  - id: a\n    type: stub\n",
		"missing endpoint":  "sources:\n  - id: a\n    type: prometheus\n",
		"missing path":      "sources:\n  - id: a\n    type: csv\n",
		"bad condition":     "alerts:\n  rules:\n    - name: r\n      condition: qoq_growth\n",
		"bad source auth":   "sources:\n  - id: a\n    type: stub\n    auth:\n      mode: kerberos\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	p := writeConfig(t, "server:\n  top_n: 5\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A rewrite can surface as several events (truncate, then write), so
	// only the final content is forwarded.
	got := make(chan *Config, 1)
	go Watch(ctx, p, func(c *Config) { //nolint:errcheck
		if c.Server.TopN != 7 {
			return
		}
		select {
		case got <- c:
		default:
		}
	})

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(p, []byte("server:\n  top_n: 7\n"), 0o600); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case c := <-got:
		if c.Server.TopN != 7 {
			t.Errorf("reloaded top_n: got %d, want 7", c.Server.TopN)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Load example: %v", err)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Type != "stub" || cfg.Sources[0].Seed != 42 {
		t.Errorf("sources: got %+v", cfg.Sources)
	}
	if len(cfg.Alerts.Rules) != 2 {
		t.Errorf("alert rules: got %d, want 2", len(cfg.Alerts.Rules))
	}
	if cfg.Alerts.Rules[0].Cooldown != 6*time.Hour {
		t.Errorf("cooldown: got %v, want 6h", cfg.Alerts.Rules[0].Cooldown)
	}
	if cfg.Theme.Colors["primary"] == "" {
		t.Error("theme: palette defaults not applied")
	}
}
