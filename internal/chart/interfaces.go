package chart

import (
	"context"
	"time"
)

// Fetcher returns the raw HTML of one level's sort page.
type Fetcher interface {
	FetchLevel(ctx context.Context, level int) ([]byte, error)
}

// Sink records extracted entries. Finalize is called once after the last
// Accept; per-record sinks implement it as a no-op.
type Sink interface {
	Accept(ctx context.Context, entry Entry) error
	Finalize(ctx context.Context) error
}

// Publisher pushes run notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time and waits between levels (useful for testing).
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
