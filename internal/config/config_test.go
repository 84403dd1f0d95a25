package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Setenv("NOTION_API_KEY", "")
	t.Setenv("DATABASE_ID", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
source:
  min_level: 3
  max_level: 5
  level_pause: 250ms
http:
  timeout: 5s
  user_agent: test-agent
sink:
  kind: CSV
csv:
  output: out/charts.csv
  gcs_bucket: bucket
notion:
  throttle: 0s
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.MinLevel != 3 || cfg.Source.MaxLevel != 5 {
		t.Fatalf("expected level range 3..5, got %d..%d", cfg.Source.MinLevel, cfg.Source.MaxLevel)
	}
	if cfg.Source.LevelPause != 250*time.Millisecond {
		t.Fatalf("expected level pause 250ms, got %v", cfg.Source.LevelPause)
	}
	if cfg.HTTP.Timeout != 5*time.Second || cfg.HTTP.UserAgent != "test-agent" {
		t.Fatalf("expected http overrides to apply: %+v", cfg.HTTP)
	}
	if cfg.Sink.Kind != SinkCSV {
		t.Fatalf("expected sink kind to be normalized to csv, got %q", cfg.Sink.Kind)
	}
	if cfg.CSV.Output != "out/charts.csv" || cfg.CSV.GCSBucket != "bucket" {
		t.Fatalf("expected csv overrides to apply: %+v", cfg.CSV)
	}
	if cfg.Notion.Throttle != 0 {
		t.Fatalf("expected throttle override, got %v", cfg.Notion.Throttle)
	}
	if cfg.Logging.Development {
		t.Fatal("expected production logging")
	}
	if cfg.Source.URLTemplate != "https://sdvx.in/sort/sort_{level}.htm" {
		t.Fatalf("expected default url template, got %q", cfg.Source.URLTemplate)
	}
}

func TestLoadReadsLegacyNotionEnv(t *testing.T) {
	t.Setenv("CHARTSYNC_NOTION_API_KEY", "")
	t.Setenv("CHARTSYNC_NOTION_DATABASE_ID", "")
	t.Setenv("NOTION_API_KEY", "secret_abc")
	t.Setenv("DATABASE_ID", "db-123")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sink.Kind != SinkNotion {
		t.Fatalf("expected default sink notion, got %q", cfg.Sink.Kind)
	}
	if cfg.Notion.APIKey != "secret_abc" || cfg.Notion.DatabaseID != "db-123" {
		t.Fatalf("expected legacy env to populate notion config: %+v", cfg.Notion)
	}
	if cfg.Notion.Throttle != 500*time.Millisecond {
		t.Fatalf("expected default throttle 500ms, got %v", cfg.Notion.Throttle)
	}
	if cfg.Source.MinLevel != 1 || cfg.Source.MaxLevel != 20 {
		t.Fatalf("expected default level range, got %d..%d", cfg.Source.MinLevel, cfg.Source.MaxLevel)
	}
}

func TestLoadFailsWithoutNotionCredentials(t *testing.T) {
	t.Setenv("NOTION_API_KEY", "")
	t.Setenv("DATABASE_ID", "")
	t.Setenv("CHARTSYNC_NOTION_API_KEY", "")
	t.Setenv("CHARTSYNC_NOTION_DATABASE_ID", "")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "NOTION_API_KEY") {
		t.Fatalf("expected missing credential error, got %v", err)
	}
}

func TestLoadWithOverridesWinOverEnv(t *testing.T) {
	t.Setenv("NOTION_API_KEY", "")
	t.Setenv("DATABASE_ID", "")
	t.Setenv("CHARTSYNC_NOTION_API_KEY", "")
	t.Setenv("CHARTSYNC_NOTION_DATABASE_ID", "")
	t.Setenv("CHARTSYNC_SINK_KIND", "notion")

	cfg, err := LoadWith("", map[string]any{
		"sink.kind":        "log",
		"source.min_level": 4,
		"source.max_level": 6,
	})
	if err != nil {
		t.Fatalf("LoadWith() error = %v", err)
	}
	if cfg.Sink.Kind != SinkLog {
		t.Fatalf("expected flag override to select log sink, got %q", cfg.Sink.Kind)
	}
	if cfg.Source.MinLevel != 4 || cfg.Source.MaxLevel != 6 {
		t.Fatalf("expected level range 4..6, got %d..%d", cfg.Source.MinLevel, cfg.Source.MaxLevel)
	}
}

func TestLoadReadsPrefixedEnvForOptionalKeys(t *testing.T) {
	t.Setenv("NOTION_API_KEY", "")
	t.Setenv("DATABASE_ID", "")
	t.Setenv("CHARTSYNC_SINK_KIND", "postgres")
	t.Setenv("CHARTSYNC_POSTGRES_DSN", "postgres://u:p@localhost/db")
	t.Setenv("CHARTSYNC_CSV_GCS_BUCKET", "bkt")
	t.Setenv("CHARTSYNC_PUBSUB_PROJECT_ID", "proj")
	t.Setenv("CHARTSYNC_PUBSUB_TOPIC", "topic")
	t.Setenv("CHARTSYNC_METRICS_PUSHGATEWAY_URL", "http://pg")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sink.Kind != SinkPostgres || cfg.Postgres.DSN != "postgres://u:p@localhost/db" {
		t.Fatalf("expected postgres sink from env, got %q dsn=%q", cfg.Sink.Kind, cfg.Postgres.DSN)
	}
	if cfg.CSV.GCSBucket != "bkt" {
		t.Fatalf("expected gcs bucket from env, got %q", cfg.CSV.GCSBucket)
	}
	if cfg.PubSub.ProjectID != "proj" || cfg.PubSub.Topic != "topic" {
		t.Fatalf("expected pubsub from env, got %+v", cfg.PubSub)
	}
	if cfg.Metrics.PushgatewayURL != "http://pg" {
		t.Fatalf("expected pushgateway from env, got %q", cfg.Metrics.PushgatewayURL)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("expected read config error, got %v", err)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Source: SourceConfig{
			URLTemplate:  "https://sdvx.in/sort/sort_{level}.htm",
			Domain:       "https://sdvx.in",
			MinLevel:     1,
			MaxLevel:     20,
			ScriptSuffix: "sort.js",
		},
		HTTP: HTTPConfig{Timeout: time.Second},
		Sink: SinkConfig{Kind: SinkLog},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected base config to validate, got %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "level out of range",
			cfg: func() Config {
				c := base
				c.Source.MaxLevel = 21
				return c
			}(),
			want: "source levels",
		},
		{
			name: "inverted range",
			cfg: func() Config {
				c := base
				c.Source.MinLevel = 10
				c.Source.MaxLevel = 2
				return c
			}(),
			want: "source.min_level",
		},
		{
			name: "template without placeholder",
			cfg: func() Config {
				c := base
				c.Source.URLTemplate = "https://sdvx.in/sort/sort.htm"
				return c
			}(),
			want: "{level}",
		},
		{
			name: "invalid timeout",
			cfg: func() Config {
				c := base
				c.HTTP.Timeout = 0
				return c
			}(),
			want: "http.timeout",
		},
		{
			name: "notion missing database",
			cfg: func() Config {
				c := base
				c.Sink.Kind = SinkNotion
				c.Notion.APIKey = "secret"
				return c
			}(),
			want: "DATABASE_ID",
		},
		{
			name: "postgres missing dsn",
			cfg: func() Config {
				c := base
				c.Sink.Kind = SinkPostgres
				return c
			}(),
			want: "postgres.dsn",
		},
		{
			name: "unknown sink",
			cfg: func() Config {
				c := base
				c.Sink.Kind = "s3"
				return c
			}(),
			want: "unknown sink.kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
