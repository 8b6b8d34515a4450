// Package online supplements local evidence with live news lookups.
// Expansion is best-effort: every failure degrades to fewer or no chunks.
package online

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/embed"
	"github.com/ppiankov/claimcheck/internal/index"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/ppiankov/claimcheck/internal/worker"
)

// shorter bodies trigger a full-text fetch
const minBodyChars = 200

// placeholder scores used when similarity cannot be computed; all are
// below the best attainable local score of 1.0
var placeholderScores = map[model.AuthorityTier]float64{
	model.TierPrimary:   0.5,
	model.TierSecondary: 0.45,
	model.TierTertiary:  0.4,
	model.TierUnknown:   0.4,
}

// Options configures a Connector
type Options struct {
	Sources       []Source
	Fetcher       *Fetcher
	Robots        *util.RobotsChecker
	Limiter       *worker.Limiter
	Embedder      embed.Embedder
	Cache         cache.Cache
	Classifier    *AuthorityClassifier
	AllowList     *DomainAllowList
	Days          int
	TopK          int
	Timeout       time.Duration
	MaxItems      int
	MaxTextChars  int
	FetchFullText bool
	Concurrency   int
	CacheTTL      time.Duration
	Logger        *zap.Logger
}

// Connector fetches, filters and ranks live articles as evidence
type Connector struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// New creates a connector. A connector without sources always returns
// an empty expansion.
func New(opts Options) *Connector {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Classifier == nil {
		opts.Classifier = NewAuthorityClassifier(nil, nil)
	}
	if opts.AllowList == nil {
		opts.AllowList = NewDomainAllowList(nil)
	}
	if opts.Days <= 0 {
		opts.Days = 14
	}
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 6 * time.Second
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = opts.TopK * 4
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Connector{
		opts:   opts,
		logger: opts.Logger.With(zap.String("component", "online")),
		now:    time.Now,
	}
}

// FromConfig wires a connector from application configuration. It returns
// nil when online expansion is disabled.
func FromConfig(cfg model.Config, e embed.Embedder, c cache.Cache, logger *zap.Logger) (*Connector, error) {
	if !cfg.Online.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := model.Seconds(cfg.Online.Timeout)
	fetcher := NewFetcher(timeout, cfg.HTTP.UserAgent, cfg.HTTP.MaxBytes, cfg.HTTP.InsecureTLS,
		cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)

	var sources []Source
	if s := NewNewsAPISource(cfg.Online.NewsAPIURL, cfg.Online.NewsAPIKey, fetcher); s != nil {
		sources = append(sources, s)
	}

	feeds := append([]string(nil), cfg.Online.Feeds...)
	if cfg.Online.FeedsFile != "" {
		fromFile, err := LoadFeeds(cfg.Online.FeedsFile)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, fromFile...)
	}
	if s := NewRSSSource(feeds, fetcher, cfg.Online.Concurrency, logger); s != nil {
		sources = append(sources, s)
	}

	var robots *util.RobotsChecker
	if cfg.Online.RespectRobots {
		robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, timeout, fetcher.Transport())
	}

	return New(Options{
		Sources:       sources,
		Fetcher:       fetcher,
		Robots:        robots,
		Limiter:       worker.NewLimiter(cfg.Online.RatePerDomain, 1),
		Embedder:      e,
		Cache:         c,
		AllowList:     NewDomainAllowList(cfg.Online.AllowDomains),
		Days:          cfg.Online.Days,
		TopK:          cfg.Online.TopK,
		Timeout:       timeout,
		MaxItems:      cfg.Online.MaxItems,
		MaxTextChars:  cfg.Online.MaxTextChars,
		FetchFullText: cfg.Online.FetchFullText,
		Concurrency:   cfg.Online.Concurrency,
		CacheTTL:      model.Seconds(cfg.Online.CacheTTL),
		Logger:        logger,
	}), nil
}

// Enabled reports whether the connector can return anything at all
func (c *Connector) Enabled() bool {
	return c != nil && len(c.opts.Sources) > 0
}

// Expand returns at most TopK online chunks for query, best first. It never
// fails: unreachable sources, timeouts and cancellation all yield fewer or
// no chunks. days <= 0 uses the configured window.
func (c *Connector) Expand(ctx context.Context, query string, keywords []string, days int) []model.EvidenceChunk {
	if !c.Enabled() {
		metrics.OnlineExpansions.WithLabelValues("disabled").Inc()
		return []model.EvidenceChunk{}
	}
	if days <= 0 {
		days = c.opts.Days
	}

	key := cache.Key("online", query, strings.Join(keywords, "\x1f"), strconv.Itoa(days))
	if chunks, ok := c.cached(key); ok {
		metrics.OnlineExpansions.WithLabelValues("cached").Inc()
		return chunks
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	articles, err := c.gather(ctx, Query{Text: query, Keywords: keywords, Days: days, MaxItems: c.opts.MaxItems})
	if err != nil {
		metrics.OnlineExpansions.WithLabelValues("unavailable").Inc()
		c.logger.Warn("online expansion unavailable",
			zap.String("code", string(model.CodeOnlineExpansionUnavailable)),
			zap.Error(err),
		)
		return []model.EvidenceChunk{}
	}

	articles = c.filter(articles, days)
	if len(articles) == 0 {
		metrics.OnlineExpansions.WithLabelValues("empty").Inc()
		return []model.EvidenceChunk{}
	}

	if c.opts.FetchFullText && c.opts.Fetcher != nil {
		articles = c.fillFullText(ctx, articles)
	}

	chunks := c.rank(ctx, query, articles)
	if len(chunks) == 0 {
		metrics.OnlineExpansions.WithLabelValues("empty").Inc()
		return []model.EvidenceChunk{}
	}

	metrics.OnlineExpansions.WithLabelValues("ok").Inc()
	c.store(key, chunks)
	c.logger.Debug("online expansion", zap.Int("candidates", len(articles)), zap.Int("returned", len(chunks)))
	return chunks
}

type sourceJob struct {
	source Source
	query  Query
}

type sourceResult struct {
	name     string
	articles []Article
	err      error
}

func (r *sourceResult) GetError() error { return r.err }

func (j *sourceJob) Execute(ctx context.Context) worker.Result {
	articles, err := j.source.Search(ctx, j.query)
	return &sourceResult{name: j.source.Name(), articles: articles, err: err}
}

// gather queries every source concurrently. It fails only when every
// source failed or the context expired.
func (c *Connector) gather(ctx context.Context, q Query) ([]Article, error) {
	pool := worker.NewPool(ctx, len(c.opts.Sources))
	pool.Start()
	for _, s := range c.opts.Sources {
		pool.Submit(&sourceJob{source: s, query: q})
	}

	var articles []Article
	var errs []error
	for _, r := range pool.Wait() {
		sr := r.(*sourceResult)
		if sr.err != nil {
			metrics.OnlineSourceErrors.WithLabelValues(sr.name).Inc()
			c.logger.Warn("online source failed", zap.String("source", sr.name), zap.Error(sr.err))
			errs = append(errs, fmt.Errorf("%s: %w", sr.name, sr.err))
			continue
		}
		articles = append(articles, sr.articles...)
	}

	if err := ctx.Err(); err != nil && len(articles) == 0 {
		return nil, err
	}
	if len(articles) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return articles, nil
}

// filter applies the allow-list and recency window, dedupes by URL and
// caps the candidate count
func (c *Connector) filter(articles []Article, days int) []Article {
	cutoff := c.now().AddDate(0, 0, -days)
	seen := make(map[string]bool)
	out := make([]Article, 0, len(articles))

	for _, a := range articles {
		if a.URL == "" || (a.Title == "" && a.Text == "") {
			continue
		}
		if !c.opts.AllowList.Allowed(a.URL) {
			continue
		}
		if a.Published != nil && a.Published.Before(cutoff) {
			continue
		}
		key := strings.TrimRight(strings.ToLower(a.URL), "/")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
		if len(out) == c.opts.MaxItems {
			break
		}
	}
	return out
}

type fullTextJob struct {
	index   int
	article Article
	conn    *Connector
}

type fullTextResult struct {
	index int
	text  string
	err   error
}

func (r *fullTextResult) GetError() error { return r.err }

func (j *fullTextJob) Execute(ctx context.Context) worker.Result {
	text, err := j.conn.fetchArticle(ctx, j.article.URL)
	return &fullTextResult{index: j.index, text: text, err: err}
}

// fillFullText fetches article pages for items with short bodies
func (c *Connector) fillFullText(ctx context.Context, articles []Article) []Article {
	pool := worker.NewPool(ctx, c.opts.Concurrency)
	pool.Start()
	for i, a := range articles {
		if len([]rune(a.Text)) >= minBodyChars {
			continue
		}
		pool.Submit(&fullTextJob{index: i, article: a, conn: c})
	}

	for _, r := range pool.Wait() {
		fr := r.(*fullTextResult)
		if fr.err != nil {
			c.logger.Debug("full text unavailable", zap.String("url", articles[fr.index].URL), zap.Error(fr.err))
			continue
		}
		if len(fr.text) > len(articles[fr.index].Text) {
			articles[fr.index].Text = fr.text
		}
	}
	return articles
}

func (c *Connector) fetchArticle(ctx context.Context, rawURL string) (string, error) {
	if c.opts.Robots != nil {
		allowed, delay, err := c.opts.Robots.CanFetch(ctx, rawURL)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", fmt.Errorf("disallowed by robots.txt")
		}
		if c.opts.Limiter != nil {
			c.opts.Limiter.SetCrawlDelay(rawURL, delay)
		}
	}
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx, rawURL); err != nil {
			return "", err
		}
	}

	res, err := c.opts.Fetcher.FetchWithRetry(ctx, rawURL, nil)
	if err != nil {
		return "", err
	}
	_, text := ExtractArticle(string(res.Body))
	return text, nil
}

// rank scores articles in the local embedding space and returns the top K
func (c *Connector) rank(ctx context.Context, query string, articles []Article) []model.EvidenceChunk {
	var qvec []float32
	if c.opts.Embedder != nil {
		v, err := c.opts.Embedder.Embed(ctx, query)
		if err != nil {
			c.logger.Warn("query embedding failed, using placeholder scores", zap.Error(err))
		} else {
			qvec = v
		}
	}

	chunks := make([]model.EvidenceChunk, 0, len(articles))
	for _, a := range articles {
		payload := strings.TrimSpace(a.Title + "\n\n" + a.Text)
		payload = truncateRunes(payload, c.opts.MaxTextChars)
		if payload == "" {
			continue
		}

		tier := c.opts.Classifier.Classify(a.URL)
		score := placeholderScores[tier]
		if qvec != nil {
			if v, err := c.opts.Embedder.Embed(ctx, payload); err == nil {
				score = clampScore(float64(index.CosineSimilarity(qvec, v)))
			}
		}

		source := a.Source
		if source == "" {
			source = hostOf(a.URL)
		}
		chunk := model.EvidenceChunk{
			Text:      payload,
			Source:    source,
			Score:     score,
			URL:       a.URL,
			Title:     a.Title,
			Origin:    model.OriginOnline,
			Authority: tier,
		}
		if a.Published != nil {
			ts := *a.Published
			chunk.Published = &ts
		}
		chunks = append(chunks, chunk)
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return tierRank(chunks[i].Authority) < tierRank(chunks[j].Authority)
	})
	if len(chunks) > c.opts.TopK {
		chunks = chunks[:c.opts.TopK]
	}
	return chunks
}

func tierRank(t model.AuthorityTier) int {
	if t == model.TierUnknown {
		return math.MaxInt
	}
	return int(t)
}

func clampScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

func (c *Connector) cached(key string) ([]model.EvidenceChunk, bool) {
	if c.opts.Cache == nil {
		return nil, false
	}
	data, ok := c.opts.Cache.Get(key)
	if !ok {
		return nil, false
	}
	var chunks []model.EvidenceChunk
	if err := json.Unmarshal(data, &chunks); err != nil || len(chunks) == 0 {
		return nil, false
	}
	for i := range chunks {
		chunks[i].Origin = model.OriginOnline
	}
	return chunks, true
}

func (c *Connector) store(key string, chunks []model.EvidenceChunk) {
	if c.opts.Cache == nil {
		return
	}
	data, err := json.Marshal(chunks)
	if err != nil {
		return
	}
	if err := c.opts.Cache.Set(key, data, c.opts.CacheTTL); err != nil {
		c.logger.Debug("online cache write failed", zap.Error(err))
	}
}
