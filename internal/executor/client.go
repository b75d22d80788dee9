// Package executor is the Execution Engine (spec §4.4): a shared HTTP
// client with a global in-flight semaphore, baseline-first-per-endpoint
// scheduling, response body capping, and cooperative cancellation.
// Grounded on the teacher's SiteContextManager's stopChan/ticker
// cancellation shape, rebuilt around golang.org/x/sync for the actual
// concurrency primitives.
package executor

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/abendrothj/doppel/internal/fingerprint"
	"github.com/abendrothj/doppel/internal/model"
)

const userAgent = "doppel/1.0 (+BOLA-scanner)"

// Client wraps the shared *http.Client used for every request in a
// scan — one connection pool, one timeout policy, redirects disabled
// because a redirect is itself an observable signal a Finding may want
// to reason about.
type Client struct {
	http *http.Client
}

// ClientOptions configures the shared client (spec §4.4/§5).
type ClientOptions struct {
	Timeout        time.Duration // default 30s
	ConnectTimeout time.Duration // default 10s
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{Timeout: 30 * time.Second, ConnectTimeout: 10 * time.Second}
}

func NewClient(opts ClientOptions) *Client {
	dialer := &net.Dialer{Timeout: opts.ConnectTimeout}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Do sends one TestCase and returns its ResponseRecord. A network
// error, context cancellation, or timeout is not a Go error return —
// it is captured on the record itself (Err) so callers can fold it
// straight into an ERROR verdict without special-casing transport
// failures.
func (c *Client) Do(ctx context.Context, tc model.TestCase) *model.ResponseRecord {
	start := time.Now()

	var bodyReader io.Reader
	if len(tc.Body) > 0 {
		bodyReader = bytes.NewReader(tc.Body)
	}

	req, err := http.NewRequestWithContext(ctx, string(tc.Method), tc.URL, bodyReader)
	if err != nil {
		return &model.ResponseRecord{Err: err, Duration: time.Since(start)}
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range tc.Headers {
		req.Header.Set(k, v)
	}
	if len(tc.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &model.ResponseRecord{Err: err, Duration: time.Since(start)}
	}
	defer resp.Body.Close()

	body, truncated, err := readCapped(resp.Body, model.MaxBodyBytes)
	if err != nil {
		return &model.ResponseRecord{Err: err, Duration: time.Since(start)}
	}

	return &model.ResponseRecord{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
		Duration:    time.Since(start),
		Fingerprint: fingerprint.Of(body),
	}
}

func readCapped(r io.Reader, max int) ([]byte, bool, error) {
	limited := io.LimitReader(r, int64(max)+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, false, err
	}
	if len(data) > max {
		return data[:max], true, nil
	}
	return data, false, nil
}
