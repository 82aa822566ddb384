package extract

import (
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/internal/metrics"
	"github.com/streamlens/streamlens/internal/normalize"
	"github.com/streamlens/streamlens/internal/scrape"
)

// rawCategory is one directory card as extracted in the page context.
type rawCategory struct {
	Name    string   `json:"name"`
	Viewers string   `json:"viewers"`
	Tags    []string `json:"tags"`
	Image   string   `json:"image"`
}

// rawStream is one stream preview card as extracted in the page context.
type rawStream struct {
	Title   string   `json:"title"`
	Channel string   `json:"channel"`
	Viewers string   `json:"viewers"`
	Tags    []string `json:"tags"`
}

// streamGroups holds the four sibling element groups from the fallback
// extraction path. Lengths are not guaranteed to match.
type streamGroups struct {
	Titles   []string `json:"titles"`
	Channels []string `json:"channels"`
	Viewers  []string `json:"viewers"`
	Tags     []string `json:"tags"`
}

// buildCategorySnapshots converts raw directory cards into snapshot records.
// Cards that failed extraction, have no usable name, or report zero viewers
// are dropped and counted.
func buildCategorySnapshots(raw []*rawCategory, label string, logger *zap.Logger) []scrape.CategorySnapshot {
	out := make([]scrape.CategorySnapshot, 0, len(raw))
	skipped := 0
	for _, card := range raw {
		if card == nil {
			skipped++
			metrics.ObserveCardSkipped("directory")
			continue
		}
		name := card.Name
		if name == "" {
			name = "Unknown"
		}
		viewers := normalize.ViewerCount(card.Viewers)
		if name == "Unknown" || viewers == 0 {
			skipped++
			metrics.ObserveCardSkipped("directory")
			continue
		}
		image := card.Image
		if image == "" {
			image = scrape.NoImage
		}
		out = append(out, scrape.CategorySnapshot{
			Category:  name,
			Viewers:   viewers,
			Tags:      normalize.JoinTags(card.Tags),
			ImageURL:  image,
			Timestamp: label,
		})
	}
	if skipped > 0 {
		logger.Debug("directory cards skipped", zap.Int("skipped", skipped), zap.Int("kept", len(out)))
	}
	return out
}

// buildStreamSnapshots converts per-card stream extractions into snapshot
// records for one category.
func buildStreamSnapshots(raw []*rawStream, category, label string, logger *zap.Logger) []scrape.StreamSnapshot {
	out := make([]scrape.StreamSnapshot, 0, len(raw))
	skipped := 0
	for _, card := range raw {
		if card == nil || (card.Title == "" && card.Channel == "") {
			skipped++
			metrics.ObserveCardSkipped("category")
			continue
		}
		title := card.Title
		if title == "" {
			title = "Unknown"
		}
		channel := card.Channel
		if channel == "" {
			channel = "Unknown"
		}
		out = append(out, scrape.StreamSnapshot{
			Title:     title,
			Channel:   channel,
			Category:  category,
			Viewers:   normalize.ViewerCount(card.Viewers),
			Tags:      normalize.JoinTags(card.Tags),
			Timestamp: label,
		})
	}
	if skipped > 0 {
		logger.Debug("stream cards skipped",
			zap.String("category", category),
			zap.Int("skipped", skipped),
			zap.Int("kept", len(out)),
		)
	}
	return out
}

// pairStreamGroups zips the fallback element groups by index. Pairing stops
// at the shortest of titles, channels, and viewers; a length mismatch is
// counted and logged because trailing entries beyond the shortest group
// cannot be attributed to a stream with confidence.
func pairStreamGroups(groups streamGroups, category, label string, logger *zap.Logger) []scrape.StreamSnapshot {
	n := len(groups.Titles)
	if len(groups.Channels) < n {
		n = len(groups.Channels)
	}
	if len(groups.Viewers) < n {
		n = len(groups.Viewers)
	}
	if n != len(groups.Titles) || n != len(groups.Channels) || n != len(groups.Viewers) {
		metrics.ObserveStreamGroupMismatch()
		logger.Warn("stream element groups have mismatched lengths",
			zap.String("category", category),
			zap.Int("titles", len(groups.Titles)),
			zap.Int("channels", len(groups.Channels)),
			zap.Int("viewers", len(groups.Viewers)),
		)
	}

	out := make([]scrape.StreamSnapshot, 0, n)
	for i := 0; i < n; i++ {
		tags := scrape.NoTags
		if i < len(groups.Tags) && groups.Tags[i] != "" {
			tags = groups.Tags[i]
		}
		out = append(out, scrape.StreamSnapshot{
			Title:     groups.Titles[i],
			Channel:   groups.Channels[i],
			Category:  category,
			Viewers:   normalize.ViewerCount(groups.Viewers[i]),
			Tags:      tags,
			Timestamp: label,
		})
	}
	return out
}
