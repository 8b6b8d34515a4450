package online

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Article is one raw document returned by a source
type Article struct {
	Title     string
	URL       string
	Source    string
	Published *time.Time
	Text      string
}

// Query is what a source searches for
type Query struct {
	Text     string
	Keywords []string
	Days     int
	MaxItems int
}

// Source is a live document provider
type Source interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Article, error)
}

// LoadFeeds reads feed URLs, one per line. Blank lines and # comments are skipped.
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feeds: %w", err)
	}
	defer func() { _ = f.Close() }()

	var feeds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		feeds = append(feeds, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read feeds: %w", err)
	}
	return feeds, nil
}
