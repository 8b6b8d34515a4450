package online

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/claimcheck/internal/util"
)

const maxFetchAttempts = 3

// fetchSleepFunc is replaced in tests
var fetchSleepFunc = time.Sleep

// Fetcher performs bounded GET requests for feeds, search APIs and articles
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a Fetcher. Proxy settings fall back to the environment
// when empty.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := util.NewTransport(httpProxy, httpsProxy, noProxy)
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// Transport exposes the underlying round tripper so robots.txt lookups share
// proxy settings
func (f *Fetcher) Transport() http.RoundTripper {
	return f.httpClient.Transport
}

// FetchResult contains the fetched body and metadata
type FetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    string
}

// Fetch performs one GET. header overrides the default Accept header and
// may add others such as API keys.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, header http.Header) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, vals := range header {
		req.Header.Del(k)
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
	}, nil
}

// FetchWithRetry retries transient failures (5xx, 429, connection errors)
// with exponential backoff, up to three attempts
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string, header http.Header) (*FetchResult, error) {
	var lastErr error
	backoff := 500 * time.Millisecond

	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		result, err := f.Fetch(ctx, rawURL, header)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryableFetchError(err) {
			return nil, err
		}
		if attempt < maxFetchAttempts {
			fetchSleepFunc(backoff)
			backoff *= 2
		}
	}

	return nil, lastErr
}

func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, "unexpected status: "); ok {
		code, convErr := strconv.Atoi(strings.Fields(rest + " ")[0])
		if convErr != nil {
			return false
		}
		return code >= 500 || code == http.StatusTooManyRequests
	}

	return strings.HasPrefix(msg, "fetch: ")
}
