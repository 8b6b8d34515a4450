package online

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// RSSSource reads a fixed list of RSS/Atom feeds. Feeds are fetched in
// parallel; one broken feed does not fail the others.
type RSSSource struct {
	feeds       []string
	fetcher     *Fetcher
	concurrency int
	logger      *zap.Logger
}

// NewRSSSource creates a feed source. It returns nil when feeds is empty.
func NewRSSSource(feeds []string, fetcher *Fetcher, concurrency int, logger *zap.Logger) *RSSSource {
	if len(feeds) == 0 {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RSSSource{
		feeds:       feeds,
		fetcher:     fetcher,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (s *RSSSource) Name() string { return "rss" }

type feedJob struct {
	url     string
	perFeed int
	source  *RSSSource
}

type feedResult struct {
	url      string
	articles []Article
	err      error
}

func (r *feedResult) GetError() error { return r.err }

func (j *feedJob) Execute(ctx context.Context) worker.Result {
	articles, err := j.source.fetchFeed(ctx, j.url, j.perFeed)
	return &feedResult{url: j.url, articles: articles, err: err}
}

// Search returns recent items from every feed. The query is not sent
// anywhere; relevance ranking happens in the connector.
func (s *RSSSource) Search(ctx context.Context, q Query) ([]Article, error) {
	perFeed := 0
	if q.MaxItems > 0 {
		perFeed = q.MaxItems/len(s.feeds) + 1
	}

	pool := worker.NewPool(ctx, s.concurrency)
	pool.Start()
	for _, feed := range s.feeds {
		pool.Submit(&feedJob{url: feed, perFeed: perFeed, source: s})
	}

	var articles []Article
	var errs []error
	for _, r := range pool.Wait() {
		fr := r.(*feedResult)
		if fr.err != nil {
			metrics.OnlineSourceErrors.WithLabelValues("rss_feed").Inc()
			s.logger.Debug("feed unavailable", zap.String("feed", fr.url), zap.Error(fr.err))
			errs = append(errs, fr.err)
			continue
		}
		articles = append(articles, fr.articles...)
	}

	if len(articles) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("rss: all feeds failed: %w", errors.Join(errs...))
	}
	if q.MaxItems > 0 && len(articles) > q.MaxItems {
		articles = articles[:q.MaxItems]
	}
	return articles, nil
}

func (s *RSSSource) fetchFeed(ctx context.Context, feedURL string, limit int) ([]Article, error) {
	header := http.Header{}
	header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	res, err := s.fetcher.FetchWithRetry(ctx, feedURL, header)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(res.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	var articles []Article
	for _, item := range feed.Items {
		if item == nil || item.Title == "" || item.Link == "" {
			continue
		}
		body := item.Content
		if strings.TrimSpace(body) == "" {
			body = item.Description
		}
		art := Article{
			Title:  strings.TrimSpace(item.Title),
			URL:    strings.TrimSpace(item.Link),
			Source: hostOf(item.Link),
			Text:   StripHTML(body),
		}
		switch {
		case item.PublishedParsed != nil:
			ts := *item.PublishedParsed
			art.Published = &ts
		case item.UpdatedParsed != nil:
			ts := *item.UpdatedParsed
			art.Published = &ts
		}
		articles = append(articles, art)
		if limit > 0 && len(articles) == limit {
			break
		}
	}
	return articles, nil
}
