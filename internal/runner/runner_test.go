package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/internal/publish"
	"github.com/streamlens/streamlens/internal/scrape"
)

type fakeExtractor struct {
	categories    []scrape.CategorySnapshot
	categoriesErr error
	streams       []scrape.StreamSnapshot
	streamsErr    error
	streamNames   []string
	panicOnCats   bool
}

func (f *fakeExtractor) Categories(context.Context) ([]scrape.CategorySnapshot, error) {
	if f.panicOnCats {
		panic("browser exploded")
	}
	return f.categories, f.categoriesErr
}

func (f *fakeExtractor) Streams(_ context.Context, names []string) ([]scrape.StreamSnapshot, error) {
	f.streamNames = names
	return f.streams, f.streamsErr
}

type fakeStore struct {
	mu            sync.Mutex
	categories    [][]scrape.CategorySnapshot
	streams       [][]scrape.StreamSnapshot
	categoriesErr error
	streamsErr    error
}

func (f *fakeStore) AppendCategories(_ context.Context, recs []scrape.CategorySnapshot) error {
	if f.categoriesErr != nil {
		return f.categoriesErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories = append(f.categories, recs)
	return nil
}

func (f *fakeStore) AppendStreams(_ context.Context, recs []scrape.StreamSnapshot) error {
	if f.streamsErr != nil {
		return f.streamsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams = append(f.streams, recs)
	return nil
}

func (f *fakeStore) categoryBatches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.categories)
}

type fakeProber struct{ err error }

func (f *fakeProber) Check(context.Context, string) error { return f.err }

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeIDs struct{ n int }

func (f *fakeIDs) NewID() (string, error) {
	f.n++
	return "cycle-1", nil
}

func sampleCategories() []scrape.CategorySnapshot {
	return []scrape.CategorySnapshot{
		{Category: "Just Chatting", Viewers: 123000},
		{Category: "Minecraft", Viewers: 45000},
	}
}

func sampleStreams() []scrape.StreamSnapshot {
	return []scrape.StreamSnapshot{
		{Title: "a", Channel: "ch1", Category: "Just Chatting", Viewers: 9000},
	}
}

func newTestRunner(t *testing.T, ex *fakeExtractor, st *fakeStore, cfg Config) (*Runner, *publish.Memory) {
	t.Helper()
	pub := publish.NewMemory()
	if cfg.Topic == "" {
		cfg.Topic = "cycles"
	}
	r, err := New(ex, st, pub, nil, &fakeClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}, &fakeIDs{}, cfg, zap.NewNop())
	require.NoError(t, err)
	return r, pub
}

func TestNewValidation(t *testing.T) {
	clock := &fakeClock{}
	ids := &fakeIDs{}

	_, err := New(nil, &fakeStore{}, nil, nil, clock, ids, Config{}, zap.NewNop())
	assert.ErrorContains(t, err, "extractor")

	_, err = New(&fakeExtractor{}, nil, nil, nil, clock, ids, Config{}, zap.NewNop())
	assert.ErrorContains(t, err, "store")

	_, err = New(&fakeExtractor{}, &fakeStore{}, nil, nil, nil, ids, Config{}, zap.NewNop())
	assert.ErrorContains(t, err, "clock")

	_, err = New(&fakeExtractor{}, &fakeStore{}, nil, nil, clock, nil, Config{}, zap.NewNop())
	assert.ErrorContains(t, err, "id source")
}

func TestNewBackoffNeverShorterThanInterval(t *testing.T) {
	r, err := New(&fakeExtractor{}, &fakeStore{}, nil, nil, &fakeClock{}, &fakeIDs{},
		Config{Interval: time.Hour, Backoff: time.Minute}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, time.Hour, r.cfg.Backoff)
}

func TestCycleSuccess(t *testing.T) {
	ex := &fakeExtractor{categories: sampleCategories(), streams: sampleStreams()}
	st := &fakeStore{}
	r, pub := newTestRunner(t, ex, st, Config{})

	summary := r.Cycle(context.Background())

	assert.False(t, summary.Failed)
	assert.Equal(t, "cycle-1", summary.CycleID)
	assert.Equal(t, 2, summary.CategoriesScraped)
	assert.Equal(t, 2, summary.CategoriesPersisted)
	assert.Equal(t, 1, summary.StreamsScraped)
	assert.Equal(t, 1, summary.StreamsPersisted)
	assert.Positive(t, summary.DurationMs)

	assert.Equal(t, []string{"Just Chatting", "Minecraft"}, ex.streamNames)
	require.Len(t, st.categories, 1)
	require.Len(t, st.streams, 1)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	got, ok := msgs[0].Payload.(scrape.CycleSummary)
	require.True(t, ok)
	assert.Equal(t, "cycle-1", got.CycleID)
}

func TestCycleCategoriesExtractionFails(t *testing.T) {
	ex := &fakeExtractor{categoriesErr: errors.New("chrome crashed")}
	st := &fakeStore{}
	r, _ := newTestRunner(t, ex, st, Config{})

	summary := r.Cycle(context.Background())

	assert.True(t, summary.Failed)
	assert.Contains(t, summary.ErrorText, "scrape categories")
	assert.Empty(t, st.categories)
	assert.Empty(t, st.streams)
}

func TestCycleDirectoryTimeoutKeepsNormalCadence(t *testing.T) {
	ex := &fakeExtractor{
		categoriesErr: fmt.Errorf("%w: %q not present within 10s", scrape.ErrPageLoadTimeout, "div"),
	}
	st := &fakeStore{}
	r, pub := newTestRunner(t, ex, st, Config{})

	summary := r.Cycle(context.Background())

	assert.False(t, summary.Failed)
	assert.Empty(t, summary.ErrorText)
	assert.Zero(t, summary.CategoriesScraped)
	assert.Empty(t, st.categories)
	require.Len(t, pub.Messages(), 1)
}

func TestCycleCategoriesPersistedWhenStreamsFail(t *testing.T) {
	ex := &fakeExtractor{categories: sampleCategories(), streamsErr: errors.New("tab closed")}
	st := &fakeStore{}
	r, _ := newTestRunner(t, ex, st, Config{})

	summary := r.Cycle(context.Background())

	assert.True(t, summary.Failed)
	assert.Contains(t, summary.ErrorText, "scrape streams")
	assert.Equal(t, 2, summary.CategoriesPersisted)
	require.Len(t, st.categories, 1)
	assert.Empty(t, st.streams)
}

func TestCycleCategoryPersistFails(t *testing.T) {
	ex := &fakeExtractor{categories: sampleCategories(), streams: sampleStreams()}
	st := &fakeStore{categoriesErr: scrape.ErrStorageWrite}
	r, _ := newTestRunner(t, ex, st, Config{})

	summary := r.Cycle(context.Background())

	assert.True(t, summary.Failed)
	assert.Contains(t, summary.ErrorText, "persist categories")
	assert.Zero(t, summary.CategoriesPersisted)
	assert.Nil(t, ex.streamNames)
}

func TestCycleStreamPersistFails(t *testing.T) {
	ex := &fakeExtractor{categories: sampleCategories(), streams: sampleStreams()}
	st := &fakeStore{streamsErr: scrape.ErrStorageWrite}
	r, _ := newTestRunner(t, ex, st, Config{})

	summary := r.Cycle(context.Background())

	assert.True(t, summary.Failed)
	assert.Contains(t, summary.ErrorText, "persist streams")
	assert.Equal(t, 2, summary.CategoriesPersisted)
	assert.Equal(t, 1, summary.StreamsScraped)
	assert.Zero(t, summary.StreamsPersisted)
}

func TestCycleNoCategoriesIsNotFailure(t *testing.T) {
	ex := &fakeExtractor{}
	st := &fakeStore{}
	r, _ := newTestRunner(t, ex, st, Config{})

	summary := r.Cycle(context.Background())

	assert.False(t, summary.Failed)
	assert.Zero(t, summary.CategoriesScraped)
	assert.Empty(t, st.categories)
}

func TestCycleRecoversPanic(t *testing.T) {
	ex := &fakeExtractor{panicOnCats: true}
	st := &fakeStore{}
	r, pub := newTestRunner(t, ex, st, Config{})

	summary := r.Cycle(context.Background())

	assert.True(t, summary.Failed)
	assert.Contains(t, summary.ErrorText, "cycle panic")
	assert.Len(t, pub.Messages(), 1)
}

func TestCycleProbeFailure(t *testing.T) {
	ex := &fakeExtractor{categories: sampleCategories()}
	st := &fakeStore{}
	pub := publish.NewMemory()
	r, err := New(ex, st, pub, &fakeProber{err: errors.New("connection refused")},
		&fakeClock{now: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)}, &fakeIDs{},
		Config{ProbeURL: "https://www.twitch.tv"}, zap.NewNop())
	require.NoError(t, err)

	summary := r.Cycle(context.Background())

	assert.True(t, summary.Failed)
	assert.Contains(t, summary.ErrorText, "probe")
	assert.Empty(t, st.categories)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ex := &fakeExtractor{categories: sampleCategories(), streams: sampleStreams()}
	st := &fakeStore{}
	r, _ := newTestRunner(t, ex, st, Config{Interval: time.Hour, Backoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	// The immediate first cycle persists before the hour-long wait begins.
	require.Eventually(t, func() bool {
		return st.categoryBatches() > 0
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}
