// Package config loads and validates chartsync configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/sdvx-chart-sync/internal/chart"
)

// Sink kinds accepted by sink.kind.
const (
	SinkNotion   = "notion"
	SinkCSV      = "csv"
	SinkPostgres = "postgres"
	SinkLog      = "log"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Sink     SinkConfig     `mapstructure:"sink"`
	Notion   NotionConfig   `mapstructure:"notion"`
	CSV      CSVConfig      `mapstructure:"csv"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SourceConfig describes where the sort pages live.
type SourceConfig struct {
	URLTemplate  string        `mapstructure:"url_template"`
	Domain       string        `mapstructure:"domain"`
	MinLevel     int           `mapstructure:"min_level"`
	MaxLevel     int           `mapstructure:"max_level"`
	ScriptSuffix string        `mapstructure:"script_suffix"`
	LevelPause   time.Duration `mapstructure:"level_pause"`
}

// HTTPConfig configures the page fetcher.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// SinkConfig selects the sink.
type SinkConfig struct {
	Kind string `mapstructure:"kind"`
}

// NotionConfig holds Notion API access and schema settings.
type NotionConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	DatabaseID string        `mapstructure:"database_id"`
	BaseURL    string        `mapstructure:"base_url"`
	Version    string        `mapstructure:"version"`
	Throttle   time.Duration `mapstructure:"throttle"`
	Timeout    time.Duration `mapstructure:"timeout"`
	NameProp   string        `mapstructure:"name_property"`
	LevelProp  string        `mapstructure:"level_property"`
	LinkProp   string        `mapstructure:"link_property"`
}

// CSVConfig sets the file sink destination.
type CSVConfig struct {
	Output    string `mapstructure:"output"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PostgresConfig controls access to the relational sink.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// MetricsConfig points at an optional Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// PubSubConfig holds metadata for run notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from an optional .env file, an optional config file
// and the environment.
func Load(path string) (Config, error) {
	return LoadWith(path, nil)
}

// LoadWith is Load with explicit overrides, keyed like the config file
// ("sink.kind"), that take precedence over every other source. The CLI uses
// it for flags.
func LoadWith(path string, overrides map[string]any) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("CHARTSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if err := readConfigFile(v, path); err != nil {
		return Config{}, err
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Sink.Kind = strings.ToLower(strings.TrimSpace(cfg.Sink.Kind))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// readConfigFile reads path when given. Otherwise chartsync.yaml is looked up
// in the working directory and $HOME/.chartsync, and may be absent.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}
	v.SetConfigName("chartsync")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.chartsync")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.url_template", "https://sdvx.in/sort/sort_{level}.htm")
	v.SetDefault("source.domain", "https://sdvx.in")
	v.SetDefault("source.min_level", chart.MinLevel)
	v.SetDefault("source.max_level", chart.MaxLevel)
	v.SetDefault("source.script_suffix", "sort.js")
	v.SetDefault("source.level_pause", time.Second)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.user_agent", "chartsync/1.0 (+https://github.com/JakeFAU/sdvx-chart-sync)")
	v.SetDefault("sink.kind", SinkNotion)
	v.SetDefault("notion.base_url", "https://api.notion.com/v1")
	v.SetDefault("notion.version", "2022-06-28")
	v.SetDefault("notion.throttle", 500*time.Millisecond)
	v.SetDefault("notion.timeout", 30*time.Second)
	v.SetDefault("notion.name_property", "Name")
	v.SetDefault("notion.level_property", "Level")
	v.SetDefault("notion.link_property", "Link")
	v.SetDefault("csv.output", "sdvx_charts.csv")
	v.SetDefault("csv.gcs_bucket", "")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "chart_entries")
	v.SetDefault("postgres.max_conns", 2)
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "chartsync")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("logging.development", true)
}

// bindLegacyEnv keeps the NOTION_API_KEY / DATABASE_ID names used by the
// deployment secrets working alongside the prefixed variables.
func bindLegacyEnv(v *viper.Viper) error {
	if err := v.BindEnv("notion.api_key", "CHARTSYNC_NOTION_API_KEY", "NOTION_API_KEY"); err != nil {
		return fmt.Errorf("bind notion.api_key: %w", err)
	}
	if err := v.BindEnv("notion.database_id", "CHARTSYNC_NOTION_DATABASE_ID", "DATABASE_ID"); err != nil {
		return fmt.Errorf("bind notion.database_id: %w", err)
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.MinLevel < chart.MinLevel || c.Source.MaxLevel > chart.MaxLevel {
		return fmt.Errorf("source levels must be within [%d,%d]", chart.MinLevel, chart.MaxLevel)
	}
	if c.Source.MinLevel > c.Source.MaxLevel {
		return fmt.Errorf("source.min_level must be <= source.max_level")
	}
	if !strings.Contains(c.Source.URLTemplate, "{level}") {
		return fmt.Errorf("source.url_template must contain {level}")
	}
	if strings.TrimSpace(c.Source.Domain) == "" {
		return fmt.Errorf("source.domain is required")
	}
	if c.Source.ScriptSuffix == "" {
		return fmt.Errorf("source.script_suffix is required")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	switch c.Sink.Kind {
	case SinkNotion:
		if c.Notion.APIKey == "" || c.Notion.DatabaseID == "" {
			return fmt.Errorf("NOTION_API_KEY and DATABASE_ID must both be set for the notion sink")
		}
	case SinkCSV:
		if strings.TrimSpace(c.CSV.Output) == "" {
			return fmt.Errorf("csv.output is required for the csv sink")
		}
	case SinkPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn is required for the postgres sink")
		}
	case SinkLog:
	default:
		return fmt.Errorf("unknown sink.kind %q", c.Sink.Kind)
	}
	return nil
}
