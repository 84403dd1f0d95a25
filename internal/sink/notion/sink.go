// Package notionsink upserts chart entries into a Notion database keyed by
// the entry link.
package notionsink

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sdvx-chart-sync/internal/chart"
	"github.com/JakeFAU/sdvx-chart-sync/internal/logging"
	"github.com/JakeFAU/sdvx-chart-sync/internal/notion"
)

// Store is the slice of the Notion API the sink uses.
type Store interface {
	QueryByURL(ctx context.Context, databaseID, property, value string) ([]notion.Page, error)
	CreatePage(ctx context.Context, databaseID string, props notion.Properties) (notion.Page, error)
	UpdatePage(ctx context.Context, pageID string, props notion.Properties) (notion.Page, error)
}

// PropertyNames maps entry fields to database property names.
type PropertyNames struct {
	Name  string
	Level string
	Link  string
}

// DefaultPropertyNames matches the chart database schema.
var DefaultPropertyNames = PropertyNames{Name: "Name", Level: "Level", Link: "Link"}

// Config controls the sink.
type Config struct {
	DatabaseID string
	Properties PropertyNames
	// Throttle is slept after every upsert attempt, successful or not.
	Throttle time.Duration
}

// Outcome is the result of one upsert.
type Outcome string

// Upsert outcomes.
const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeFailed  Outcome = "failed"
)

// Counts tallies upsert outcomes over a run.
type Counts struct {
	Created int
	Updated int
	Failed  int
}

// Sink implements chart.Sink against a Notion database.
type Sink struct {
	store  Store
	cfg    Config
	sleep  func(context.Context, time.Duration) error
	counts Counts
	logger *zap.Logger
}

var _ chart.Sink = (*Sink)(nil)

// New builds a Sink.
func New(store Store, cfg Config, logger *zap.Logger) (*Sink, error) {
	if store == nil {
		return nil, fmt.Errorf("notion store is required")
	}
	if cfg.DatabaseID == "" {
		return nil, fmt.Errorf("database id is required")
	}
	if cfg.Properties == (PropertyNames{}) {
		cfg.Properties = DefaultPropertyNames
	}
	return &Sink{
		store:  store,
		cfg:    cfg,
		sleep:  sleepContext,
		logger: logging.Named(logger, "sink.notion"),
	}, nil
}

// Accept upserts entry and then waits out the throttle.
func (s *Sink) Accept(ctx context.Context, entry chart.Entry) error {
	outcome, err := s.Upsert(ctx, entry)
	switch outcome {
	case OutcomeCreated:
		s.counts.Created++
	case OutcomeUpdated:
		s.counts.Updated++
	default:
		s.counts.Failed++
	}
	if err == nil {
		s.logger.Info("notion "+string(outcome),
			zap.String("name", entry.Name),
			zap.String("level", entry.Level),
		)
	}
	if sleepErr := s.sleep(ctx, s.cfg.Throttle); sleepErr != nil && err == nil {
		err = sleepErr
	}
	return err
}

// Upsert updates the first page whose link matches entry.Link, or creates a
// page when none does. Query and write are separate calls; two concurrent
// runs can both create a page for the same link.
func (s *Sink) Upsert(ctx context.Context, entry chart.Entry) (Outcome, error) {
	props := EntryProperties(entry, s.cfg.Properties)

	pages, err := s.store.QueryByURL(ctx, s.cfg.DatabaseID, s.cfg.Properties.Link, entry.Link)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("lookup %s: %w", entry.Link, err)
	}
	if len(pages) > 0 {
		if _, err := s.store.UpdatePage(ctx, pages[0].ID, props); err != nil {
			return OutcomeFailed, fmt.Errorf("update %s: %w", entry.Link, err)
		}
		return OutcomeUpdated, nil
	}
	if _, err := s.store.CreatePage(ctx, s.cfg.DatabaseID, props); err != nil {
		return OutcomeFailed, fmt.Errorf("create %s: %w", entry.Link, err)
	}
	return OutcomeCreated, nil
}

// Finalize logs the outcome tally; records are already written.
func (s *Sink) Finalize(context.Context) error {
	s.logger.Info("notion sync complete",
		zap.Int("created", s.counts.Created),
		zap.Int("updated", s.counts.Updated),
		zap.Int("failed", s.counts.Failed),
	)
	return nil
}

// Counts returns the outcome tally so far.
func (s *Sink) Counts() Counts {
	return s.counts
}

// EntryProperties renders entry as Notion properties: the name as the title,
// the level as rich text and the link as a url.
func EntryProperties(entry chart.Entry, names PropertyNames) notion.Properties {
	return notion.Properties{
		names.Name:  notion.TitleValue(entry.Name),
		names.Level: notion.RichTextValue(entry.Level),
		names.Link:  notion.URLValue(entry.Link),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("throttle interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
