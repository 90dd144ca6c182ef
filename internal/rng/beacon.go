package rng

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// BeaconClient fetches seeds from a drand-style public randomness beacon
// over HTTP. Each roll consumes the latest published round.
type BeaconClient struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
	retryMax       int
}

// Round is one published beacon output.
type Round struct {
	Round      uint64 `json:"round"`
	Randomness string `json:"randomness"`
	Signature  string `json:"signature"`
}

type Option func(*BeaconClient)

func WithTimeout(d time.Duration) Option {
	return func(c *BeaconClient) { c.defaultTimeout = d }
}

func WithRetry(max int) Option {
	return func(c *BeaconClient) { c.retryMax = max }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *BeaconClient) { c.http.MaxConnsPerHost = n }
}

func NewBeaconClient(baseURL string, opts ...Option) *BeaconClient {
	c := &BeaconClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 32},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Seed returns the randomness of the latest beacon round as raw bytes.
func (c *BeaconClient) Seed(ctx context.Context) ([]byte, error) {
	r, err := c.LatestRound(ctx)
	if err != nil {
		return nil, err
	}
	seed, err := hex.DecodeString(strings.TrimSpace(r.Randomness))
	if err != nil {
		return nil, fmt.Errorf("decode beacon randomness: %w", err)
	}
	if len(seed) == 0 {
		return nil, errors.New("beacon returned empty randomness")
	}
	return seed, nil
}

// LatestRound fetches the most recent published round.
func (c *BeaconClient) LatestRound(ctx context.Context) (*Round, error) {
	var r Round
	if err := c.getJSON(ctx, "/public/latest", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *BeaconClient) getJSON(ctx context.Context, path string, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + path)

	attempts := c.retryMax
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("beacon request failed: %w", err)
			if attempt == attempts {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("beacon api error: status=%d body=%s", status, truncate(string(resp.Body()), 256))
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode beacon response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func (c *BeaconClient) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
