package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", "UCtest", timeout).WithBaseURL(srv.URL)
}

func TestProbeLive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "live", r.URL.Query().Get("eventType"))
		assert.Equal(t, "UCtest", r.URL.Query().Get("channelId"))
		w.Write([]byte(`{"items":[{"id":{"videoId":"abc123"}}]}`))
	}, time.Second)

	status, err := c.Probe(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Live)
	assert.Equal(t, "abc123", status.StreamID)
}

func TestProbeNotLive(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}, time.Second)

	status, err := c.Probe(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Live)
	assert.Empty(t, status.StreamID)
}

func TestProbeUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}, time.Second)

	_, err := c.Probe(context.Background())
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusForbidden, ue.Status)
}

func TestProbeParseError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": not json`))
	}, time.Second)

	_, err := c.Probe(context.Background())
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestProbeTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"items":[]}`))
	}, 50*time.Millisecond)

	_, err := c.Probe(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "expected ErrTimeout, got %v", err)
}

func TestWatchURL(t *testing.T) {
	c := NewClient("k", "UCtest", time.Second)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", c.WatchURL("abc"))
	assert.Equal(t, "https://www.youtube.com/channel/UCtest/live", c.WatchURL(""))
}

func TestIsConfigured(t *testing.T) {
	assert.False(t, NewClient("", "UCtest", time.Second).IsConfigured())
	assert.True(t, NewClient("k", "UCtest", time.Second).IsConfigured())
}
