package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"talaria/internal/venue"
)

// SnapshotFetcher is the injected port for the one-shot REST book
// snapshot. HTTPSnapshotFetcher is the default implementation.
type SnapshotFetcher interface {
	Fetch(ctx context.Context) (venue.SnapshotMessage, error)
}

// HTTPSnapshotFetcher fetches the snapshot over HTTP, wrapped in a
// circuit breaker so a venue outage trips instead of every new session
// hammering the endpoint with a doomed request.
type HTTPSnapshotFetcher struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[venue.SnapshotMessage]
}

// NewHTTPSnapshotFetcher builds a fetcher for the given snapshot URL.
func NewHTTPSnapshotFetcher(url string, client *http.Client) *HTTPSnapshotFetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	settings := gobreaker.Settings{
		Name:        "snapshot-fetch",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &HTTPSnapshotFetcher{
		url:     url,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[venue.SnapshotMessage](settings),
	}
}

func (f *HTTPSnapshotFetcher) Fetch(ctx context.Context) (venue.SnapshotMessage, error) {
	return f.breaker.Execute(func() (venue.SnapshotMessage, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
		if err != nil {
			return venue.SnapshotMessage{}, fmt.Errorf("%w: %v", ErrSnapshotFetch, err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return venue.SnapshotMessage{}, fmt.Errorf("%w: %v", ErrSnapshotFetch, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return venue.SnapshotMessage{}, fmt.Errorf("%w: status %d", ErrSnapshotFetch, resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return venue.SnapshotMessage{}, fmt.Errorf("%w: %v", ErrSnapshotFetch, err)
		}
		var msg venue.SnapshotMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			return venue.SnapshotMessage{}, fmt.Errorf("%w: decode: %v", ErrSnapshotFetch, err)
		}
		return msg, nil
	})
}
