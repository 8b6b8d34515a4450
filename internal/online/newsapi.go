package online

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// NewsAPI appends "[+1234 chars]" to truncated content
var newsAPITruncation = regexp.MustCompile(`\s*…?\s*\[\+\d+ chars\]\s*$`)

// NewsAPISource searches the NewsAPI /v2/everything endpoint
type NewsAPISource struct {
	endpoint string
	apiKey   string
	fetcher  *Fetcher
	now      func() time.Time
}

// NewNewsAPISource creates a source. It returns nil without an API key.
func NewNewsAPISource(endpoint, apiKey string, fetcher *Fetcher) *NewsAPISource {
	if apiKey == "" {
		return nil
	}
	if endpoint == "" {
		endpoint = "https://newsapi.org/v2/everything"
	}
	return &NewsAPISource{
		endpoint: endpoint,
		apiKey:   apiKey,
		fetcher:  fetcher,
		now:      time.Now,
	}
}

func (s *NewsAPISource) Name() string { return "newsapi" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Description string `json:"description"`
		Content     string `json:"content"`
	} `json:"articles"`
}

// Search queries by keywords when present, otherwise by the query text
func (s *NewsAPISource) Search(ctx context.Context, q Query) ([]Article, error) {
	term := strings.Join(q.Keywords, " ")
	if term == "" {
		term = q.Text
	}
	if strings.TrimSpace(term) == "" {
		return nil, errors.New("newsapi: empty query")
	}

	pageSize := q.MaxItems
	if pageSize <= 0 || pageSize > 50 {
		pageSize = 50
	}
	to := s.now().UTC()
	from := to.AddDate(0, 0, -max(q.Days, 1))

	params := url.Values{}
	params.Set("q", term)
	params.Set("from", from.Format("2006-01-02"))
	params.Set("to", to.Format("2006-01-02"))
	params.Set("language", "en")
	params.Set("sortBy", "relevancy")
	params.Set("pageSize", strconv.Itoa(pageSize))

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("X-Api-Key", s.apiKey)

	res, err := s.fetcher.FetchWithRetry(ctx, s.endpoint+"?"+params.Encode(), header)
	if err != nil {
		return nil, fmt.Errorf("newsapi: %w", err)
	}

	var body newsAPIResponse
	if err := json.Unmarshal(res.Body, &body); err != nil {
		return nil, fmt.Errorf("newsapi: decode response: %w", err)
	}
	if body.Status != "" && body.Status != "ok" {
		return nil, fmt.Errorf("newsapi: %s: %s", body.Code, body.Message)
	}

	articles := make([]Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		if a.Title == "" || a.URL == "" {
			continue
		}
		text := strings.TrimSpace(newsAPITruncation.ReplaceAllString(a.Content, ""))
		if text == "" {
			text = strings.TrimSpace(a.Description)
		}
		source := a.Source.Name
		if source == "" {
			source = hostOf(a.URL)
		}
		art := Article{
			Title:  a.Title,
			URL:    a.URL,
			Source: source,
			Text:   StripHTML(text),
		}
		if ts, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			art.Published = &ts
		}
		articles = append(articles, art)
		if len(articles) == pageSize {
			break
		}
	}
	return articles, nil
}
