// Package network provides the session-aware HTTP transport used by every provider-facing component.
package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anigrab-cli/anigrab/constant"
	"github.com/anigrab-cli/anigrab/filesystem"
	"github.com/anigrab-cli/anigrab/key"
	"github.com/anigrab-cli/anigrab/log"
	"github.com/spf13/viper"
)

// ErrNetwork marks a transfer that failed after exhausting every retry attempt.
var ErrNetwork = errors.New("network failure")

// FetchOptions tunes a single logical transfer.
// Zero values fall back to the configured defaults.
type FetchOptions struct {
	// Headers are attached on top of the uniform session headers.
	Headers map[string]string
	// Retries is the maximum number of retry attempts after the first failure.
	Retries int
	// Delay is the initial backoff delay. It doubles on every subsequent attempt.
	Delay time.Duration
	// NoRetry disables the retry loop entirely; the first failure is final.
	NoRetry bool
}

func (o FetchOptions) retries() int {
	if o.NoRetry {
		return 0
	}
	if o.Retries > 0 {
		return o.Retries
	}
	return viper.GetInt(key.DownloadRetries)
}

func (o FetchOptions) delay() time.Duration {
	if o.Delay > 0 {
		return o.Delay
	}
	return time.Duration(viper.GetInt(key.DownloadRetryDelay)) * time.Second
}

// Fetch retrieves the body at url, attaching the session cookie and referer uniformly.
// Non-2xx statuses and transport errors are retried with exponential backoff until
// the retry budget is exhausted, after which ErrNetwork is returned wrapped with context.
func Fetch(ctx context.Context, session Session, url string, opts FetchOptions) ([]byte, error) {
	var lastErr error

	delay := opts.delay()
	for attempt := 0; attempt <= opts.retries(); attempt++ {
		if attempt > 0 {
			log.Debugf("retrying %s in %s (attempt %d)", url, delay, attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		body, err := request(ctx, session, url, opts.Headers)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: fetch %s: %s", ErrNetwork, url, lastErr)
}

// DownloadToFile retrieves url into path through the active filesystem backend.
// A zero-byte result after a reported-success transfer is treated as a failed
// attempt requiring retry: a resetting remote can truncate output while the
// transport still reports success.
func DownloadToFile(ctx context.Context, session Session, url, path string, opts FetchOptions) error {
	var lastErr error

	delay := opts.delay()
	for attempt := 0; attempt <= opts.retries(); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		body, err := request(ctx, session, url, opts.Headers)
		if err != nil {
			lastErr = err
			continue
		}

		if len(body) == 0 {
			lastErr = errors.New("empty body")
			continue
		}

		if err := filesystem.API().WriteFile(path, body, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}

		return nil
	}

	return fmt.Errorf("%w: download %s: %s", ErrNetwork, url, lastErr)
}

// request performs one attempt. HTTPS destinations go through the Chrome-fingerprinted
// transports (H2 first, H1 fallback); plain HTTP uses the shared pooled client.
func request(ctx context.Context, session Session, url string, headers map[string]string) ([]byte, error) {
	build := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("User-Agent", constant.UserAgent)
		if session.Cookie != "" {
			req.Header.Set("Cookie", session.Cookie)
		}
		if session.Referer != "" {
			req.Header.Set("Referer", session.Referer)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}

	req, err := build()
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	if strings.HasPrefix(url, "https://") {
		resp, err = (&http.Client{Timeout: time.Minute, Transport: getH2Transport()}).Do(req)
		if err != nil {
			// Servers that refuse the h2 handshake get a forced HTTP/1.1 retry.
			req, err = build()
			if err != nil {
				return nil, err
			}
			resp, err = (&http.Client{Timeout: time.Minute, Transport: h1Transport}).Do(req)
		}
	} else {
		resp, err = Client.Do(req)
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
