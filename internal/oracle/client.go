// Package oracle answers one question: is the channel currently live?
//
// It is a pure I/O boundary over the YouTube Data API v3 search endpoint
// (eventType=live). One round trip per probe, a hard timeout, typed
// failures, and no retries — retry policy belongs to the caller.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultTimeout = 10 * time.Second

	// YouTube search quota is the scarce resource; one probe every couple
	// of seconds is far more than the monitor ever asks for.
	probesPerMinute = 30
)

// LiveStatus is the result of a single probe. Never cached across probes.
type LiveStatus struct {
	Live     bool   `json:"live"`
	StreamID string `json:"streamId,omitempty"`
}

// ErrTimeout reports that the probe exceeded its hard deadline.
var ErrTimeout = errors.New("oracle: probe timed out")

// UpstreamError reports a non-2xx response from the API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("oracle: upstream returned %d: %s", e.Status, e.Body)
}

// ParseError reports a malformed response payload.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("oracle: parse response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Client probes the live-status oracle for a single channel.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	channelID  string
	limiter    *rate.Limiter
}

// NewClient creates a rate-limited probe client. An empty apiKey is
// allowed; IsConfigured lets callers skip probing in that case.
func NewClient(apiKey, channelID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		channelID:  channelID,
		limiter:    rate.NewLimiter(rate.Limit(float64(probesPerMinute)/60.0), 1),
	}
}

// WithBaseURL overrides the API endpoint. Used by tests.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// IsConfigured reports whether an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// searchResponse is the subset of the search payload the probe needs.
type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

// Probe performs one round trip against the search endpoint. A non-empty
// item list means the channel is live; the first item's video ID is the
// opaque stream identifier.
func (c *Client) Probe(ctx context.Context) (LiveStatus, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return LiveStatus{}, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", c.channelID)
	params.Set("eventType", "live")
	params.Set("type", "video")
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return LiveStatus{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return LiveStatus{}, ErrTimeout
		}
		return LiveStatus{}, fmt.Errorf("probe request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return LiveStatus{}, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return LiveStatus{}, &UpstreamError{Status: resp.StatusCode, Body: truncate(body, 200)}
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return LiveStatus{}, &ParseError{Err: err}
	}

	if len(result.Items) == 0 {
		return LiveStatus{Live: false}, nil
	}
	return LiveStatus{Live: true, StreamID: result.Items[0].ID.VideoID}, nil
}

// WatchURL is the external-viewer escape hatch: a direct video URL when a
// stream ID is known, otherwise the channel's live page.
func (c *Client) WatchURL(streamID string) string {
	if streamID != "" {
		return "https://www.youtube.com/watch?v=" + streamID
	}
	return "https://www.youtube.com/channel/" + c.channelID + "/live"
}

func isClientTimeout(err error) bool {
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
