// Package app builds the services a run needs from configuration and owns
// their lifetime.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/JakeFAU/sdvx-chart-sync/internal/chart"
	"github.com/JakeFAU/sdvx-chart-sync/internal/clock/system"
	"github.com/JakeFAU/sdvx-chart-sync/internal/config"
	"github.com/JakeFAU/sdvx-chart-sync/internal/extract"
	collyfetcher "github.com/JakeFAU/sdvx-chart-sync/internal/fetcher/colly"
	"github.com/JakeFAU/sdvx-chart-sync/internal/id/uuid"
	"github.com/JakeFAU/sdvx-chart-sync/internal/metrics"
	"github.com/JakeFAU/sdvx-chart-sync/internal/notion"
	"github.com/JakeFAU/sdvx-chart-sync/internal/pipeline"
	pubsubpublisher "github.com/JakeFAU/sdvx-chart-sync/internal/publisher/pubsub"
	csvsink "github.com/JakeFAU/sdvx-chart-sync/internal/sink/csvfile"
	"github.com/JakeFAU/sdvx-chart-sync/internal/sink/logsink"
	notionsink "github.com/JakeFAU/sdvx-chart-sync/internal/sink/notion"
	postgressink "github.com/JakeFAU/sdvx-chart-sync/internal/sink/postgres"
	"github.com/JakeFAU/sdvx-chart-sync/internal/storage"
	"github.com/JakeFAU/sdvx-chart-sync/internal/storage/gcs"
	"github.com/JakeFAU/sdvx-chart-sync/internal/storage/local"
)

// App holds the wired runner and everything that must be closed after it.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	runner   *pipeline.Runner
	recorder *metrics.Recorder
	closers  []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

// New wires a runner for cfg. cfg must already be validated; nothing here
// touches the network except GCS bucket and Pub/Sub client setup.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		recorder: metrics.New(),
	}

	sink, err := a.buildSink(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var publisher chart.Publisher
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.Topic != "" {
		p, err := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("init pubsub: %w", err)
		}
		a.closers = append(a.closers, namedCloser{"pubsub", p.Close})
		publisher = p
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		URLTemplate: cfg.Source.URLTemplate,
		UserAgent:   cfg.HTTP.UserAgent,
		Timeout:     cfg.HTTP.Timeout,
	}, logger)

	a.runner = pipeline.New(
		fetcher,
		extract.New(cfg.Source.Domain, cfg.Source.ScriptSuffix, logger),
		sink,
		publisher,
		a.recorder,
		system.New(),
		uuid.New(),
		pipeline.Config{
			MinLevel:   cfg.Source.MinLevel,
			MaxLevel:   cfg.Source.MaxLevel,
			LevelPause: cfg.Source.LevelPause,
			Topic:      cfg.PubSub.Topic,
			SinkName:   cfg.Sink.Kind,
		},
		logger,
	)
	return a, nil
}

func (a *App) buildSink(ctx context.Context) (chart.Sink, error) {
	cfg := a.cfg
	switch cfg.Sink.Kind {
	case config.SinkNotion:
		client, err := notion.NewClient(notion.Config{
			Token:   cfg.Notion.APIKey,
			BaseURL: cfg.Notion.BaseURL,
			Version: cfg.Notion.Version,
			Timeout: cfg.Notion.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init notion client: %w", err)
		}
		s, err := notionsink.New(client, notionsink.Config{
			DatabaseID: cfg.Notion.DatabaseID,
			Properties: notionsink.PropertyNames{
				Name:  cfg.Notion.NameProp,
				Level: cfg.Notion.LevelProp,
				Link:  cfg.Notion.LinkProp,
			},
			Throttle: cfg.Notion.Throttle,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init notion sink: %w", err)
		}
		return s, nil
	case config.SinkCSV:
		store, path, err := a.buildBlobStore(ctx)
		if err != nil {
			return nil, err
		}
		s, err := csvsink.New(store, path, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init csv sink: %w", err)
		}
		return s, nil
	case config.SinkPostgres:
		s, err := postgressink.New(ctx, postgressink.Config{
			DSN:      cfg.Postgres.DSN,
			Table:    cfg.Postgres.Table,
			MaxConns: cfg.Postgres.MaxConns,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init postgres sink: %w", err)
		}
		a.closers = append(a.closers, namedCloser{"postgres", s.Close})
		return s, nil
	case config.SinkLog:
		return logsink.New(a.logger), nil
	default:
		return nil, fmt.Errorf("unknown sink.kind %q", cfg.Sink.Kind)
	}
}

// buildBlobStore picks GCS when a bucket is configured and the local
// filesystem otherwise. The returned path is relative to the store.
func (a *App) buildBlobStore(ctx context.Context) (storage.BlobStore, string, error) {
	out := a.cfg.CSV.Output
	if bucket := a.cfg.CSV.GCSBucket; bucket != "" {
		store, err := gcs.Dial(ctx, gcs.Config{Bucket: bucket})
		if err != nil {
			return nil, "", fmt.Errorf("init gcs store: %w", err)
		}
		a.closers = append(a.closers, namedCloser{"gcs", store.Close})
		return store, filepath.ToSlash(out), nil
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return nil, "", fmt.Errorf("resolve csv.output: %w", err)
	}
	store, err := local.New(local.Config{BaseDir: filepath.Dir(abs)})
	if err != nil {
		return nil, "", fmt.Errorf("init local store: %w", err)
	}
	return store, filepath.Base(abs), nil
}

// Run executes one run and pushes metrics when a Pushgateway is configured.
func (a *App) Run(ctx context.Context) (pipeline.Summary, error) {
	summary, err := a.runner.Run(ctx)
	if url := a.cfg.Metrics.PushgatewayURL; url != "" {
		if perr := a.recorder.Push(ctx, url, a.cfg.Metrics.Job); perr != nil {
			a.logger.Warn("metrics push failed", zap.String("url", url), zap.Error(perr))
		}
	}
	return summary, err
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Close releases clients in reverse construction order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.logger.Warn("close failed", zap.String("component", c.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
