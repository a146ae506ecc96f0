package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort          = 8080
	DefaultSnapshotTTL       = 24 * time.Hour
	DefaultRefreshInterval   = time.Hour
	DefaultBroadcastInterval = 5 * time.Second
	DefaultTopN              = 5
	DefaultMetric            = "vahan_registrations"
	DefaultLogLevel          = "info"
	DefaultThemeName         = "dark"
)

// Config is the top-level configuration parsed from config.yaml.
type Config struct {
	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	Server  ServerConfig  `yaml:"server"`
	Refresh RefreshConfig `yaml:"refresh"`

	// Sources is the list of registration data providers. When empty a single
	// stub source is configured.
	Sources []Source `yaml:"sources"`

	Alerts AlertsConfig `yaml:"alerts"`
	Theme  ThemeConfig  `yaml:"theme"`
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on (default 8080).
	HTTPPort int `yaml:"http_port"`

	// BroadcastInterval controls how often the WebSocket hub pushes the overview.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// TopN is the default number of manufacturers in the top-manufacturers view.
	TopN int `yaml:"top_n"`

	// UIDir, when set, serves a pre-built presentation layer from this directory.
	UIDir string `yaml:"ui_dir"`

	Auth     AuthConfig     `yaml:"auth"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// AuthConfig controls REST API authentication.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected API key.
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "x-api-key".
	Header string `yaml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "x-api-key"
}

// SnapshotConfig controls in-memory dataset retention.
type SnapshotConfig struct {
	// TTL is how long a fetched dataset stays servable without a successful refresh.
	TTL time.Duration `yaml:"ttl"`
}

// RefreshConfig controls how often sources are fetched.
type RefreshConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// Source describes one registration data provider.
type Source struct {
	// ID is a unique, human-readable identifier for this source.
	ID string `yaml:"id"`

	// Type is one of: stub | prometheus | csv | http.
	Type string `yaml:"type"`

	// Endpoint is the URL fetched by the prometheus and http types.
	Endpoint string `yaml:"endpoint"`

	// Path is the local file read by the csv type.
	Path string `yaml:"path"`

	// Metric is the metric family read by the prometheus type.
	Metric string `yaml:"metric"`

	// Seed makes the stub generator deterministic. Zero seeds from the clock.
	Seed int64 `yaml:"seed"`

	Auth SourceAuth `yaml:"auth"`
	TLS  TLSConfig  `yaml:"tls"`
}

// SourceAuth specifies how the server authenticates to a remote source.
type SourceAuth struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// Header is the HTTP header name for apikey mode.
	Header string `yaml:"header"`
	KeyEnv string `yaml:"key_env"`

	TokenEnv string `yaml:"token_env"`

	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// Key returns the API key value resolved from the environment.
func (a SourceAuth) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a SourceAuth) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a SourceAuth) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds per-source TLS dial options.
type TLSConfig struct {
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "qoq_growth < -10", "yoy_growth > 50",
	// "total_registrations < 1000", "state == no_data".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// ThemeConfig is the palette handed to the presentation layer.
type ThemeConfig struct {
	Name   string            `yaml:"name"`
	Colors map[string]string `yaml:"colors"`
}

// DarkPalette is the default dashboard palette.
func DarkPalette() map[string]string {
	return map[string]string{
		"bg":             "#0f172a",
		"card":           "#1e293b",
		"text":           "#f8fafc",
		"text_secondary": "#94a3b8",
		"border":         "#334155",
		"primary":        "#60a5fa",
		"positive":       "#4ade80",
		"negative":       "#f87171",
		"widget_bg":      "#1e293b",
		"axis_title":     "#f8fafc",
		"axis_text":      "#cbd5e1",
		"grid_color":     "#334155",
		"expand_icon":    "#94a3b8",
		"legend_bg":      "#1e293b",
		"legend_text":    "#f8fafc",
	}
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values map to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML document into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			BroadcastInterval: DefaultBroadcastInterval,
			TopN:              DefaultTopN,
			Snapshot: SnapshotConfig{
				TTL: DefaultSnapshotTTL,
			},
		},
		Refresh: RefreshConfig{
			Interval: DefaultRefreshInterval,
		},
		Theme: ThemeConfig{
			Name:   DefaultThemeName,
			Colors: DarkPalette(),
		},
	}
}

// applyDefaults fills defaults that yaml cannot pre-populate: entries inside
// the sources list and palette keys the file leaves out.
func applyDefaults(cfg *Config) {
	if len(cfg.Sources) == 0 {
		cfg.Sources = []Source{{ID: "vahan", Type: "stub"}}
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Type == "prometheus" && cfg.Sources[i].Metric == "" {
			cfg.Sources[i].Metric = DefaultMetric
		}
	}
	if cfg.Theme.Colors == nil {
		cfg.Theme.Colors = make(map[string]string)
	}
	for k, v := range DarkPalette() {
		if _, ok := cfg.Theme.Colors[k]; !ok {
			cfg.Theme.Colors[k] = v
		}
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if cfg.Server.TopN <= 0 {
		return fmt.Errorf("server.top_n must be positive")
	}
	switch cfg.Server.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", cfg.Server.Auth.Mode)
	}
	if cfg.Server.Snapshot.TTL < 0 {
		return fmt.Errorf("server.snapshot.ttl must not be negative")
	}
	if cfg.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive")
	}

	seen := make(map[string]bool, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if seen[src.ID] {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID)
		}
		seen[src.ID] = true

		switch src.Type {
		case "stub":
		case "prometheus", "http":
			if src.Endpoint == "" {
				return fmt.Errorf("sources[%d] %q: endpoint is required", i, src.ID)
			}
		case "csv":
			if src.Path == "" {
				return fmt.Errorf("sources[%d] %q: path is required", i, src.ID)
			}
		default:
			return fmt.Errorf("sources[%d] %q: unknown type %q", i, src.ID, src.Type)
		}
		switch src.Auth.Mode {
		case "mtls", "apikey", "bearer", "basic", "none", "":
		default:
			return fmt.Errorf("sources[%d] %q: unknown auth mode %q", i, src.ID, src.Auth.Mode)
		}
	}

	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if len(strings.Fields(r.Condition)) != 3 {
			return fmt.Errorf("alerts.rules[%d] %q: condition must be \"field op value\"", i, r.Name)
		}
	}
	return nil
}
