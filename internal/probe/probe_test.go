package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(Config{Timeout: 2 * time.Second})
	require.NoError(t, p.Check(context.Background(), srv.URL))
}

func TestCheckClientErrorStillCountsAsUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := New(Config{Timeout: 2 * time.Second})
	assert.NoError(t, p.Check(context.Background(), srv.URL))
}

func TestCheckServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(Config{Timeout: 2 * time.Second})
	assert.Error(t, p.Check(context.Background(), srv.URL))
}

func TestCheckUnreachable(t *testing.T) {
	p := New(Config{Timeout: 500 * time.Millisecond})
	assert.Error(t, p.Check(context.Background(), "http://127.0.0.1:1"))
}

func TestCheckUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(Config{UserAgent: "streamlens-probe/1.0", Timeout: 2 * time.Second})
	require.NoError(t, p.Check(context.Background(), srv.URL))
	assert.Equal(t, "streamlens-probe/1.0", got)
}
