package postgres

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/streamlens/streamlens/internal/metrics"
	"github.com/streamlens/streamlens/internal/scrape"
)

// AppendCategories stamps every record with the current instant and performs
// a single bulk insert. Empty input is a logged no-op.
func (s *Store) AppendCategories(ctx context.Context, recs []scrape.CategorySnapshot) error {
	if len(recs) == 0 {
		s.logger.Warn("no category snapshots to persist")
		return nil
	}

	now := s.clock.Now()
	query := fmt.Sprintf(
		`INSERT INTO %s (category, viewers, tags, image_url, "timestamp", created_at) VALUES %s`,
		s.categoriesTable, placeholders(len(recs), 6),
	)
	args := make([]any, 0, len(recs)*6)
	for _, rec := range recs {
		args = append(args, rec.Category, rec.Viewers, rec.Tags, rec.ImageURL, rec.Timestamp, now)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		metrics.ObserveWriteFailure(s.categoriesTable)
		return fmt.Errorf("%w: insert categories: %v", scrape.ErrStorageWrite, err)
	}
	metrics.ObservePersisted(s.categoriesTable, len(recs))
	s.logger.Info("category snapshots persisted", zap.Int("count", len(recs)))
	return nil
}

// AppendStreams stamps every record with the current instant and performs a
// single bulk insert. Empty input is a logged no-op.
func (s *Store) AppendStreams(ctx context.Context, recs []scrape.StreamSnapshot) error {
	if len(recs) == 0 {
		s.logger.Warn("no stream snapshots to persist")
		return nil
	}

	now := s.clock.Now()
	query := fmt.Sprintf(
		`INSERT INTO %s (category, title, channel, viewers, tags, "timestamp", created_at) VALUES %s`,
		s.streamsTable, placeholders(len(recs), 7),
	)
	args := make([]any, 0, len(recs)*7)
	for _, rec := range recs {
		args = append(args, rec.Category, rec.Title, rec.Channel, rec.Viewers, rec.Tags, rec.Timestamp, now)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		metrics.ObserveWriteFailure(s.streamsTable)
		return fmt.Errorf("%w: insert streams: %v", scrape.ErrStorageWrite, err)
	}
	metrics.ObservePersisted(s.streamsTable, len(recs))
	s.logger.Info("stream snapshots persisted", zap.Int("count", len(recs)))
	return nil
}

// placeholders renders ($1,..,$w),($w+1,..) value groups for a bulk insert.
func placeholders(rows, width int) string {
	var b strings.Builder
	arg := 1
	for row := 0; row < rows; row++ {
		if row > 0 {
			b.WriteString(",")
		}
		b.WriteString("(")
		for col := 0; col < width; col++ {
			if col > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, "$%d", arg)
			arg++
		}
		b.WriteString(")")
	}
	return b.String()
}
