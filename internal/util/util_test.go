package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProxyFunc(t *testing.T) {
	fn := NewProxyFunc("http://proxy.local:3128", "", "internal.example.com")

	req := &http.Request{URL: &url.URL{Scheme: "https", Host: "www.reuters.com"}}
	u, err := fn(req)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "proxy.local:3128", u.Host)

	req = &http.Request{URL: &url.URL{Scheme: "http", Host: "internal.example.com"}}
	u, err = fn(req)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestNormalizeUserAgent(t *testing.T) {
	assert.Equal(t, "claimcheck", NormalizeUserAgent("claimcheck/0.1 (+https://example.com)"))
	assert.Equal(t, "", NormalizeUserAgent(""))
}

func TestRobotsChecker(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits.Add(1)
			_, _ = w.Write([]byte("User-agent: claimcheck\nDisallow: /private\nCrawl-delay: 2\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rc := NewRobotsChecker("claimcheck/0.1", 5*time.Second, nil)
	ctx := context.Background()

	allowed, delay, err := rc.CanFetch(ctx, server.URL+"/news/article")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2*time.Second, delay)

	allowed, _, err = rc.CanFetch(ctx, server.URL+"/private/doc")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int32(1), hits.Load(), "robots.txt should be cached")
}

func TestRobotsChecker_Unreachable(t *testing.T) {
	rc := NewRobotsChecker("claimcheck", 200*time.Millisecond, nil)
	allowed, delay, err := rc.CanFetch(context.Background(), "http://127.0.0.1:1/x")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, delay)

	_, _, err = rc.CanFetch(context.Background(), "not a url\x7f")
	assert.Error(t, err)
}
