package scrape

import (
	"context"
	"time"
)

// Extractor drives a browser session against the directory and per-category
// pages. The session is exclusively owned by one call at a time and must be
// released on every exit path.
type Extractor interface {
	// Categories scrapes the directory listing. A wait timeout yields
	// ErrPageLoadTimeout and an empty slice; the caller treats that as
	// "nothing to scrape this cycle".
	Categories(ctx context.Context) ([]CategorySnapshot, error)

	// Streams scrapes per-category stream listings for at most the first
	// CategoryCap entries of names. Per-category failures are logged and
	// skipped; the combined slice across all processed categories is
	// returned.
	Streams(ctx context.Context, names []string) ([]StreamSnapshot, error)
}

// SnapshotStore appends immutable snapshots. Each call stamps created_at
// with the current instant and performs a single bulk insert; empty input is
// a logged no-op.
type SnapshotStore interface {
	AppendCategories(ctx context.Context, recs []CategorySnapshot) error
	AppendStreams(ctx context.Context, recs []StreamSnapshot) error
}

// SnapshotReader serves the latest-per-key and history views consumed by the
// HTTP read layer.
type SnapshotReader interface {
	LatestCategories(ctx context.Context, limit int) ([]CategorySnapshot, error)
	LatestStreams(ctx context.Context, category string, limit int) ([]StreamSnapshot, error)
	CategoryHistory(ctx context.Context, hours int) ([]HistoryBucket, error)
	StreamHistory(ctx context.Context, category string, hours int) ([]HistoryBucket, error)
}

// Publisher pushes cycle summaries to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Archiver stores raw rendered page artifacts and returns a URI.
type Archiver interface {
	Save(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock abstracts time.Now for deterministic tests.
type Clock interface {
	Now() time.Time
}
