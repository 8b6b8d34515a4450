package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://example.com/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://reuters.com"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "/relative/path"); err == nil {
		t.Error("expected error for URL without host")
	}
}

// tryWait reports whether a token for rawURL is available within d
func tryWait(l *Limiter, rawURL string, d time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return l.Wait(ctx, rawURL) == nil
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	url := "http://example.com"

	if !tryWait(limiter, url, 50*time.Millisecond) {
		t.Error("first request should pass")
	}
	if tryWait(limiter, url, 50*time.Millisecond) {
		t.Error("expected Wait to fail when the deadline precedes the next token")
	}
	if !tryWait(limiter, "http://EXAMPLE.org:8080/x", 50*time.Millisecond) {
		t.Error("expected other host to pass")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 20; i++ {
		if !tryWait(limiter, "http://example.com", 10*time.Millisecond) {
			t.Fatalf("request %d rejected by unlimited limiter", i)
		}
	}
}

func TestLimiter_SetCrawlDelay(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetCrawlDelay("https://slow.com/robots.txt", 10*time.Second)

	if !tryWait(limiter, "http://slow.com/a", 50*time.Millisecond) {
		t.Error("first request should pass")
	}
	if tryWait(limiter, "http://slow.com/b", 50*time.Millisecond) {
		t.Error("second request should wait for the crawl delay")
	}
	if !tryWait(limiter, "http://fast.com", 50*time.Millisecond) {
		t.Error("other host should pass")
	}

	// a shorter delay never speeds the host back up
	limiter.SetCrawlDelay("http://slow.com", time.Millisecond)
	if tryWait(limiter, "http://slow.com/c", 50*time.Millisecond) {
		t.Error("crawl delay should not be relaxed")
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("http://WWW.Example.com:8080/foo")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "www.example.com" {
		t.Errorf("expected www.example.com, got %s", host)
	}

	if _, err := extractHost("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
