package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/streamlens/streamlens/internal/scrape"
)

// LatestCategories returns one row per distinct category, namely the most
// recently created snapshot for it, re-ranked by viewers descending and
// capped at limit. The recency-group pass runs on created_at, never on the
// display timestamp.
func (s *Store) LatestCategories(ctx context.Context, limit int) ([]scrape.CategorySnapshot, error) {
	query := fmt.Sprintf(`
SELECT category, viewers, tags, image_url, "timestamp", created_at
FROM (
	SELECT DISTINCT ON (category) category, viewers, tags, image_url, "timestamp", created_at
	FROM %s
	ORDER BY category, created_at DESC
) latest
ORDER BY viewers DESC
LIMIT $1`, s.categoriesTable)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: latest categories: %v", scrape.ErrStorageRead, err)
	}
	defer rows.Close()

	var out []scrape.CategorySnapshot
	for rows.Next() {
		var rec scrape.CategorySnapshot
		if err := rows.Scan(&rec.Category, &rec.Viewers, &rec.Tags, &rec.ImageURL, &rec.Timestamp, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan category row: %v", scrape.ErrStorageRead, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: latest categories rows: %v", scrape.ErrStorageRead, err)
	}
	return out, nil
}

// LatestStreams returns stream snapshots ranked by viewers descending. With
// a category filter it returns rows within that category; without one it
// deduplicates to the most recent snapshot per channel first.
func (s *Store) LatestStreams(ctx context.Context, category string, limit int) ([]scrape.StreamSnapshot, error) {
	var (
		query string
		args  []any
	)
	if category != "" {
		query = fmt.Sprintf(`
SELECT category, title, channel, viewers, tags, "timestamp", created_at
FROM %s
WHERE category = $1
ORDER BY viewers DESC
LIMIT $2`, s.streamsTable)
		args = []any{category, limit}
	} else {
		query = fmt.Sprintf(`
SELECT category, title, channel, viewers, tags, "timestamp", created_at
FROM (
	SELECT DISTINCT ON (channel) category, title, channel, viewers, tags, "timestamp", created_at
	FROM %s
	ORDER BY channel, created_at DESC
) latest
ORDER BY viewers DESC
LIMIT $1`, s.streamsTable)
		args = []any{limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: latest streams: %v", scrape.ErrStorageRead, err)
	}
	defer rows.Close()

	return scanStreams(rows)
}

// CategoryHistory aggregates category snapshots created after now-hours into
// (category, hour, day, month) buckets with avg/max/min viewer stats.
func (s *Store) CategoryHistory(ctx context.Context, hours int) ([]scrape.HistoryBucket, error) {
	query := fmt.Sprintf(historyQuery, "category", s.categoriesTable, "")
	cutoff := s.clock.Now().Add(-time.Duration(hours) * time.Hour)

	rows, err := s.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("%w: category history: %v", scrape.ErrStorageRead, err)
	}
	defer rows.Close()

	return scanBuckets(rows)
}

// StreamHistory aggregates stream snapshots into (channel, hour, day, month)
// buckets, optionally restricted to one category.
func (s *Store) StreamHistory(ctx context.Context, category string, hours int) ([]scrape.HistoryBucket, error) {
	cutoff := s.clock.Now().Add(-time.Duration(hours) * time.Hour)

	var (
		query string
		args  []any
	)
	if category != "" {
		query = fmt.Sprintf(historyQuery, "channel", s.streamsTable, "AND category = $2")
		args = []any{cutoff, category}
	} else {
		query = fmt.Sprintf(historyQuery, "channel", s.streamsTable, "")
		args = []any{cutoff}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: stream history: %v", scrape.ErrStorageRead, err)
	}
	defer rows.Close()

	return scanBuckets(rows)
}

// historyQuery buckets rows by (key, hour, day, month). The bucket key has
// no year component on purpose: buckets alias across years, accepted for the
// bounded 1..168 hour window.
const historyQuery = `
SELECT %[1]s,
	EXTRACT(HOUR FROM created_at)::int,
	EXTRACT(DAY FROM created_at)::int,
	EXTRACT(MONTH FROM created_at)::int,
	AVG(viewers)::float8,
	MAX(viewers),
	MIN(viewers),
	COUNT(*)
FROM %[2]s
WHERE created_at > $1 %[3]s
GROUP BY 1, 2, 3, 4
ORDER BY 4 ASC, 3 ASC, 2 ASC`

func scanStreams(rows pgx.Rows) ([]scrape.StreamSnapshot, error) {
	var out []scrape.StreamSnapshot
	for rows.Next() {
		var rec scrape.StreamSnapshot
		if err := rows.Scan(&rec.Category, &rec.Title, &rec.Channel, &rec.Viewers, &rec.Tags, &rec.Timestamp, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan stream row: %v", scrape.ErrStorageRead, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: stream rows: %v", scrape.ErrStorageRead, err)
	}
	return out, nil
}

func scanBuckets(rows pgx.Rows) ([]scrape.HistoryBucket, error) {
	var out []scrape.HistoryBucket
	for rows.Next() {
		var b scrape.HistoryBucket
		if err := rows.Scan(&b.Key, &b.Hour, &b.Day, &b.Month, &b.AvgViewers, &b.MaxViewers, &b.MinViewers, &b.Count); err != nil {
			return nil, fmt.Errorf("%w: scan history bucket: %v", scrape.ErrStorageRead, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: history rows: %v", scrape.ErrStorageRead, err)
	}
	return out, nil
}
