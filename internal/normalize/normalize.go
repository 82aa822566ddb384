// Package normalize converts raw page tokens into typed values.
package normalize

import (
	"strconv"
	"strings"

	"github.com/streamlens/streamlens/internal/metrics"
	"github.com/streamlens/streamlens/internal/scrape"
)

// ViewerCount converts a viewer-count token as rendered by the directory
// page ("1,234 viewers", "12.3K") into a non-negative integer. It never
// returns an error: any token it cannot make sense of yields 0 and bumps the
// malformed-token counter.
//
// A bare decimal such as "2.5" is treated as a thousands abbreviation and
// yields 2500. That carries over the source site's ambiguous formatting and
// is relied on downstream; do not "fix" it here.
func ViewerCount(text string) int {
	token := strings.ReplaceAll(text, " viewers", "")
	token = strings.ReplaceAll(token, ",", "")
	token = strings.TrimSpace(token)

	if token == "" {
		return 0
	}

	if strings.Contains(token, "K") {
		f, err := strconv.ParseFloat(strings.ReplaceAll(token, "K", ""), 64)
		if err != nil {
			metrics.ObserveMalformedViewerToken()
			return 0
		}
		return clamp(int(f * 1000))
	}

	if strings.Contains(token, ".") {
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			metrics.ObserveMalformedViewerToken()
			return 0
		}
		return clamp(int(f * 1000))
	}

	if isDigits(token) {
		n, err := strconv.Atoi(token)
		if err != nil {
			metrics.ObserveMalformedViewerToken()
			return 0
		}
		return n
	}

	metrics.ObserveMalformedViewerToken()
	return 0
}

// Slug converts a category name into its URL path form: lowercased, spaces
// replaced with hyphens.
func Slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// JoinTags joins non-empty tag tokens with ", ". An empty set yields the
// "No Tags" placeholder.
func JoinTags(tags []string) string {
	kept := make([]string, 0, len(tags))
	for _, tag := range tags {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	if len(kept) == 0 {
		return scrape.NoTags
	}
	return strings.Join(kept, ", ")
}

// clamp keeps counts non-negative; a negative token is still malformed input.
func clamp(n int) int {
	if n < 0 {
		metrics.ObserveMalformedViewerToken()
		return 0
	}
	return n
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
