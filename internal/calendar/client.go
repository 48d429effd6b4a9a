package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ncarvajal/casita/backend/internal/domain"
)

// FetchError wraps a feed-unreachable failure after retries are exhausted.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string { return fmt.Sprintf("fetch feed %s: %v", e.URL, e.Err) }
func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches and parses the external calendar feed.
type Client struct {
	httpClient *http.Client
	feedURL    string
	loc        *time.Location
}

// NewClient constructs a feed client for feedURL, normalizing event dates
// into loc. Pass nil for httpClient to use a 30-second-timeout default.
func NewClient(httpClient *http.Client, feedURL string, loc *time.Location) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{httpClient: httpClient, feedURL: feedURL, loc: loc}
}

// Fetch downloads and parses the feed, returning events in feed order.
// The GET is idempotent and read-only, so it is the one network call in the
// system that gets retried: bounded fibonacci backoff, then a *FetchError.
// Parse failures are not retried — a malformed body will not fix itself.
func (c *Client) Fetch(ctx context.Context) ([]domain.ExternalBookingEvent, error) {
	var events []domain.ExternalBookingEvent

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
		if err != nil {
			return err // malformed URL, retrying is pointless
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("unexpected status %d", resp.StatusCode)
			if resp.StatusCode >= 500 {
				return retry.RetryableError(err)
			}
			return err
		}

		events, err = Parse(resp.Body, c.loc)
		return err
	})
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, perr
		}
		return nil, &FetchError{URL: c.feedURL, Err: err}
	}

	return events, nil
}
