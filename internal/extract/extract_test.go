package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/internal/scrape"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestNewValidation(t *testing.T) {
	clock := fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}

	_, err := New(Config{CategoryURLTemplate: "https://example.com/%s"}, clock, nil, zap.NewNop())
	assert.ErrorContains(t, err, "directory URL")

	_, err = New(Config{DirectoryURL: "https://example.com/directory"}, clock, nil, zap.NewNop())
	assert.ErrorContains(t, err, "category URL template")

	_, err = New(Config{
		DirectoryURL:        "https://example.com/directory",
		CategoryURLTemplate: "https://example.com/%s",
	}, nil, nil, zap.NewNop())
	assert.ErrorContains(t, err, "clock")
}

func TestStreamsSurviveOneCategoryFailing(t *testing.T) {
	clock := fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	ex, err := New(Config{
		DirectoryURL:        "https://example.com/directory",
		CategoryURLTemplate: "https://example.com/%s",
	}, clock, nil, zap.NewNop())
	require.NoError(t, err)
	defer ex.Close()

	ex.fetchStreams = func(_ context.Context, name string) ([]scrape.StreamSnapshot, error) {
		if name == "Broken Category" {
			return nil, errors.New("wait for title: timed out")
		}
		return []scrape.StreamSnapshot{
			{Title: "still here", Channel: "survivor", Category: name, Viewers: 100},
		}, nil
	}

	got, err := ex.Streams(context.Background(), []string{"Broken Category", "Minecraft", "Just Chatting"})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "Minecraft", got[0].Category)
	assert.Equal(t, "Just Chatting", got[1].Category)
}

func TestStreamsCapsCategories(t *testing.T) {
	clock := fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	ex, err := New(Config{
		DirectoryURL:        "https://example.com/directory",
		CategoryURLTemplate: "https://example.com/%s",
		CategoryCap:         2,
	}, clock, nil, zap.NewNop())
	require.NoError(t, err)
	defer ex.Close()

	var fetched []string
	ex.fetchStreams = func(_ context.Context, name string) ([]scrape.StreamSnapshot, error) {
		fetched = append(fetched, name)
		return nil, nil
	}

	_, err = ex.Streams(context.Background(), []string{"a", "b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, fetched)
}

func TestStreamsEmptyNames(t *testing.T) {
	clock := fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}
	ex, err := New(Config{
		DirectoryURL:        "https://example.com/directory",
		CategoryURLTemplate: "https://example.com/%s",
	}, clock, nil, zap.NewNop())
	require.NoError(t, err)
	defer ex.Close()

	got, err := ex.Streams(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewDefaults(t *testing.T) {
	clock := fixedClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}

	ex, err := New(Config{
		DirectoryURL:        "https://example.com/directory",
		CategoryURLTemplate: "https://example.com/%s",
	}, clock, nil, zap.NewNop())
	require.NoError(t, err)
	defer ex.Close()

	assert.Equal(t, 20, ex.cfg.CategoryCap)
	assert.Equal(t, 8, ex.cfg.DirectoryScrollMax)
	assert.Equal(t, 3, ex.cfg.CategoryScrollMax)
	assert.Equal(t, 3*time.Second, ex.cfg.ScrollPause)
	assert.Equal(t, 10*time.Second, ex.cfg.WaitTimeout)
}
