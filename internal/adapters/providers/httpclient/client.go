package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	// DefaultTimeout bounds every outbound provider request
	DefaultTimeout = 10 * time.Second

	defaultTripAfter   = 5
	defaultOpenTimeout = time.Minute
	maxBodyBytes       = 4 << 20
)

// StatusError is returned for non-2xx provider responses
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Provider, e.StatusCode)
}

// Options tune a Client
type Options struct {
	HTTPClient *http.Client
	// TripAfter consecutive failures open the breaker
	TripAfter uint32
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
}

// Client performs JSON GET requests against one provider behind a circuit
// breaker. An open breaker fails fast with gobreaker.ErrOpenState.
type Client struct {
	name string
	http *http.Client
	cb   *gobreaker.CircuitBreaker[[]byte]
}

// New creates a client for the named provider
func New(name string, opts Options) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.TripAfter == 0 {
		opts.TripAfter = defaultTripAfter
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}
	tripAfter := opts.TripAfter

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return &Client{name: name, http: opts.HTTPClient, cb: cb}
}

// State reports the breaker state
func (c *Client) State() gobreaker.State {
	return c.cb.State()
}

// GetJSON fetches rawURL and decodes the JSON body into out
func (c *Client) GetJSON(ctx context.Context, rawURL string, out interface{}) error {
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.get(ctx, rawURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s unavailable: %w", c.name, err)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.name, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &StatusError{Provider: c.name, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", c.name, err)
	}
	return body, nil
}
