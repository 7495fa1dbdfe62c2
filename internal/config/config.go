package config

import (
	"fmt"
	"maps"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for vw.
type Config struct {
	Store        StoreConfig
	Log          LogConfig
	Enrich       EnrichConfig
	Orchestrator OrchestratorConfig
	Sources      []SourceConfig
	Notification NotificationConfig
	Metrics      MetricsConfig
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string // "sqlite" or "postgres"
	Path   string // sqlite database file
	DSN    string // postgres connection string
}

// LogConfig controls where the log funnel writes.
type LogConfig struct {
	File string
}

// MaxEnrichWorkers is the per-source ceiling on concurrent detail fetches.
const MaxEnrichWorkers = 5

// EnrichConfig controls the detail enrichment pool.
type EnrichConfig struct {
	Workers      int
	FetchTimeout time.Duration // per detail fetch, single attempt
	Pause        time.Duration // per-worker pause after every item
}

// Abandon policies for pipelines that outlive the join timeout.
const (
	PolicyAbandon = "abandon" // leave the pipeline running
	PolicyCancel  = "cancel"  // cancel its context cooperatively
)

// OrchestratorConfig controls pipeline joining and log funnel shutdown.
type OrchestratorConfig struct {
	JoinTimeout   time.Duration
	AbandonPolicy string
	FunnelGrace   time.Duration
}

// SourceConfig describes one vacancy source.
type SourceConfig struct {
	Type      string            `yaml:"type"`
	Enabled   bool              `yaml:"enabled"`
	ListURL   string            `yaml:"list_url"`
	DetailURL string            `yaml:"detail_url"` // API base for sources with a machine detail endpoint
	Region    string            `yaml:"region"`
	Headers   map[string]string `yaml:"headers"`
	PageRate  float64           `yaml:"page_rate"` // listing pages per second, 0 = unlimited
}

// NotificationConfig selects an extra sink next to the table: a log summary or Slack.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "", "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// MetricsConfig controls the end-of-run metrics textfile.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// Worker is the per-pipeline configuration handed to an isolated worker.
// It is built with WorkerFor and holds no references shared with Config.
type Worker struct {
	Source     SourceConfig
	Enrich     EnrichConfig
	Store      StoreConfig
	WindowDays int
	RunDate    time.Time
}

// WorkerFor copies everything one pipeline needs out of cfg.
func (c *Config) WorkerFor(src SourceConfig, windowDays int, runDate time.Time) Worker {
	src.Headers = maps.Clone(src.Headers)
	return Worker{
		Source:     src,
		Enrich:     c.Enrich,
		Store:      c.Store,
		WindowDays: windowDays,
		RunDate:    runDate,
	}
}

// EnabledSources returns the sources switched on in the config.
func (c *Config) EnabledSources() []SourceConfig {
	var out []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/67.0.3396.87 Safari/537.36"

	defaultHHListURL = "https://kirov.hh.ru/search/vacancy?area=49&enable_snippets=true&ored_clusters=true" +
		"&professional_role=156&professional_role=160&professional_role=10&professional_role=12" +
		"&professional_role=150&professional_role=25&professional_role=165&professional_role=34" +
		"&professional_role=36&professional_role=73&professional_role=155&professional_role=96" +
		"&professional_role=164&professional_role=104&professional_role=157&professional_role=107" +
		"&professional_role=112&professional_role=113&professional_role=148&professional_role=114" +
		"&professional_role=116&professional_role=121&professional_role=124&professional_role=125" +
		"&professional_role=126"
	defaultTrudvsemListURL   = "https://trudvsem.ru/iblocks/_catalog/flat_filter_prr_search_vacancies/data"
	defaultTrudvsemDetailURL = "http://opendata.trudvsem.ru/api/v1/vacancies/vacancy/"
	defaultSuperjobListURL   = "https://kirov.superjob.ru/vakansii/it-internet-svyaz-telekom/"
	defaultTrudkirovListURL  = "https://trudkirov.ru/vacancy/?WithoutAdditionalLimits=False" +
		"&ActivityScopeNoStandart=True&ActivityScope=97&SearchType=2&Region=43&AreaFiasOktmo=77612" +
		"&HideWithEmptySalary=False&ShowOnlyWithEmployerInfo=False&ShowOnlyWithHousing=False" +
		"&SpecialCategories=False&IsDevelopmentProgram=False"
)

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Store: StoreConfig{Driver: "sqlite", Path: "vacancy.db"},
		Log:   LogConfig{File: "vw.log"},
		Enrich: EnrichConfig{
			Workers:      5,
			FetchTimeout: 20 * time.Second,
			Pause:        200 * time.Millisecond,
		},
		Orchestrator: OrchestratorConfig{
			JoinTimeout:   240 * time.Second,
			AbandonPolicy: PolicyAbandon,
			FunnelGrace:   5 * time.Second,
		},
		Sources: []SourceConfig{
			{
				Type:    "hh",
				Enabled: true,
				ListURL: defaultHHListURL,
				Headers: map[string]string{"user-agent": defaultUserAgent},
			},
			{
				Type:      "trudvsem",
				Enabled:   true,
				ListURL:   defaultTrudvsemListURL,
				DetailURL: defaultTrudvsemDetailURL,
			},
			{
				Type:    "superjob",
				Enabled: true,
				ListURL: defaultSuperjobListURL,
				Region:  "Киров (Кировская область)",
				Headers: map[string]string{"cookie": "forceRemoteWorkDisabled=1", "user-agent": defaultUserAgent},
			},
			{
				Type:    "trudkirov",
				Enabled: true,
				ListURL: defaultTrudkirovListURL,
			},
		},
	}
}

// rawConfig is used for YAML unmarshaling (snake_case fields and durations as strings).
type rawConfig struct {
	Store        rawStoreConfig        `yaml:"store"`
	Log          LogConfig             `yaml:"log"`
	Enrich       rawEnrichConfig       `yaml:"enrich"`
	Orchestrator rawOrchestratorConfig `yaml:"orchestrator"`
	Sources      []SourceConfig        `yaml:"sources"`
	Notification NotificationConfig    `yaml:"notification"`
	Metrics      MetricsConfig         `yaml:"metrics"`
}

type rawStoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type rawEnrichConfig struct {
	Workers      int    `yaml:"workers"`
	FetchTimeout string `yaml:"fetch_timeout"`
	Pause        string `yaml:"pause"`
}

type rawOrchestratorConfig struct {
	JoinTimeout   string `yaml:"join_timeout"`
	AbandonPolicy string `yaml:"abandon_policy"`
	FunnelGrace   string `yaml:"funnel_grace"`
}

// Load reads and parses the YAML config file at path, fills defaults for
// anything left out, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()

	if raw.Store.Driver != "" {
		cfg.Store.Driver = raw.Store.Driver
	}
	if raw.Store.Path != "" {
		cfg.Store.Path = raw.Store.Path
	}
	cfg.Store.DSN = raw.Store.DSN

	if raw.Log.File != "" {
		cfg.Log.File = raw.Log.File
	}

	if raw.Enrich.Workers != 0 {
		cfg.Enrich.Workers = raw.Enrich.Workers
	}
	if err := parseDuration(raw.Enrich.FetchTimeout, "enrich.fetch_timeout", &cfg.Enrich.FetchTimeout); err != nil {
		return nil, err
	}
	if err := parseDuration(raw.Enrich.Pause, "enrich.pause", &cfg.Enrich.Pause); err != nil {
		return nil, err
	}

	if err := parseDuration(raw.Orchestrator.JoinTimeout, "orchestrator.join_timeout", &cfg.Orchestrator.JoinTimeout); err != nil {
		return nil, err
	}
	if err := parseDuration(raw.Orchestrator.FunnelGrace, "orchestrator.funnel_grace", &cfg.Orchestrator.FunnelGrace); err != nil {
		return nil, err
	}
	if raw.Orchestrator.AbandonPolicy != "" {
		cfg.Orchestrator.AbandonPolicy = strings.ToLower(raw.Orchestrator.AbandonPolicy)
	}

	if len(raw.Sources) > 0 {
		cfg.Sources = mergeSources(cfg.Sources, raw.Sources)
	}

	cfg.Notification = raw.Notification
	cfg.Metrics = raw.Metrics

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeSources overlays configured sources onto the defaults by type, so a
// config file only has to mention what it changes.
func mergeSources(defaults, configured []SourceConfig) []SourceConfig {
	byType := make(map[string]SourceConfig, len(defaults))
	for _, d := range defaults {
		byType[d.Type] = d
	}

	out := make([]SourceConfig, 0, len(configured))
	for _, c := range configured {
		c.Type = strings.ToLower(strings.TrimSpace(c.Type))
		d, ok := byType[c.Type]
		if ok {
			if c.ListURL == "" {
				c.ListURL = d.ListURL
			}
			if c.DetailURL == "" {
				c.DetailURL = d.DetailURL
			}
			if c.Region == "" {
				c.Region = d.Region
			}
			if c.Headers == nil {
				c.Headers = maps.Clone(d.Headers)
			}
		}
		out = append(out, c)
	}
	return out
}

func parseDuration(value, key string, dst *time.Duration) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s %q: %w", key, value, err)
	}
	*dst = d
	return nil
}

var knownSources = map[string]bool{"hh": true, "trudvsem": true, "superjob": true, "trudkirov": true}

func validate(cfg *Config) error {
	switch cfg.Store.Driver {
	case "sqlite":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Store.Driver)
	}

	if cfg.Enrich.Workers <= 0 {
		return fmt.Errorf("enrich.workers must be positive, got %d", cfg.Enrich.Workers)
	}
	if cfg.Enrich.Workers > MaxEnrichWorkers {
		return fmt.Errorf("enrich.workers must be at most %d, got %d", MaxEnrichWorkers, cfg.Enrich.Workers)
	}
	if cfg.Enrich.FetchTimeout <= 0 {
		return fmt.Errorf("enrich.fetch_timeout must be positive, got %v", cfg.Enrich.FetchTimeout)
	}
	if cfg.Enrich.Pause < 0 {
		return fmt.Errorf("enrich.pause must not be negative, got %v", cfg.Enrich.Pause)
	}

	if cfg.Orchestrator.JoinTimeout <= 0 {
		return fmt.Errorf("orchestrator.join_timeout must be positive, got %v", cfg.Orchestrator.JoinTimeout)
	}
	if p := cfg.Orchestrator.AbandonPolicy; p != PolicyAbandon && p != PolicyCancel {
		return fmt.Errorf("orchestrator.abandon_policy must be %q or %q, got %q", PolicyAbandon, PolicyCancel, p)
	}

	enabled := 0
	seen := make(map[string]bool)
	for _, s := range cfg.Sources {
		if !knownSources[s.Type] {
			return fmt.Errorf("unknown source type %q", s.Type)
		}
		if seen[s.Type] {
			return fmt.Errorf("source %q configured twice", s.Type)
		}
		seen[s.Type] = true
		if s.PageRate < 0 {
			return fmt.Errorf("sources[%s].page_rate must not be negative", s.Type)
		}
		if s.Enabled {
			if s.ListURL == "" {
				return fmt.Errorf("sources[%s].list_url is required", s.Type)
			}
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source must be enabled")
	}

	switch cfg.Notification.Type {
	case "", "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"\", \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	return nil
}
