package scrape

import "time"

// TimestampLayout is the human-facing capture label format. It is a display
// label only; created_at is the sort/filter key for every time-range and
// latest query.
const TimestampLayout = "2006-01-02 15:04:05"

// Placeholder values used when a card is missing an element.
const (
	NoTags  = "No Tags"
	NoImage = "No Image"
)

// CategorySnapshot is one immutable observation of a directory category.
// Rows are append-only; they are never updated or deleted by this service.
type CategorySnapshot struct {
	Category  string    `json:"category"`
	Viewers   int       `json:"viewers"`
	Tags      string    `json:"tags"`
	ImageURL  string    `json:"image_url"`
	Timestamp string    `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// StreamSnapshot is one immutable observation of a live stream within a
// category.
type StreamSnapshot struct {
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Channel   string    `json:"channel"`
	Viewers   int       `json:"viewers"`
	Tags      string    `json:"tags"`
	Timestamp string    `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryBucket aggregates all snapshots that fall into the same
// (key, hour, day, month) slot within the queried window. The bucket key
// deliberately omits the year: buckets alias across years, which is accepted
// given the bounded 1..168 hour lookback.
type HistoryBucket struct {
	Key        string  `json:"-"`
	Hour       int     `json:"hour"`
	Day        int     `json:"day"`
	Month      int     `json:"month"`
	AvgViewers float64 `json:"avg_viewers"`
	MaxViewers int     `json:"max_viewers"`
	MinViewers int     `json:"min_viewers"`
	Count      int     `json:"count"`
}

// CycleSummary aggregates per-unit outcomes of one scrape cycle. The runner
// reports counts instead of unwinding on the first failure.
type CycleSummary struct {
	CycleID             string        `json:"cycle_id"`
	StartedAt           time.Time     `json:"started_at"`
	Duration            time.Duration `json:"-"`
	DurationMs          int64         `json:"duration_ms"`
	CategoriesScraped   int           `json:"categories_scraped"`
	CategoriesPersisted int           `json:"categories_persisted"`
	StreamsScraped      int           `json:"streams_scraped"`
	StreamsPersisted    int           `json:"streams_persisted"`
	Failed              bool          `json:"failed"`
	ErrorText           string        `json:"error_text,omitempty"`
}
