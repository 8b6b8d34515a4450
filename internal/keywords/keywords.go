// Package keywords derives short search hints from finance questions.
// Extraction is pure: no I/O after construction, no failure modes.
package keywords

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DefaultMax caps the number of keywords returned
const DefaultMax = 6

var tokenPattern = regexp.MustCompile(`(?i:\bq[1-4]\b)|(?i:\b\d+(?:\.\d+)?\s?(?:bps|basis\s+points?)\b)|\b\d{4}\b|\d+(?:\.\d+)?%|\b[A-Za-z]+\b`)

var (
	quarterPattern = regexp.MustCompile(`^(?i:q[1-4])$`)
	yearPattern    = regexp.MustCompile(`^(19|20)\d{2}$`)
	upperPattern   = regexp.MustCompile(`^[A-Z]+$`)
	properPattern  = regexp.MustCompile(`^[A-Z][a-z]{2,}$`)
	// 25bps, 25 bps, 40 basis points
	basisPattern = regexp.MustCompile(`^(?i)(\d+(?:\.\d+)?)\s?(?:bps|basis\s+points?)$`)
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "to": true,
	"of": true, "in": true, "on": true, "by": true, "for": true, "with": true,
	"at": true, "from": true, "is": true, "are": true, "was": true, "were": true,
	"this": true, "that": true, "it": true, "as": true, "about": true,
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"why": true, "how": true, "did": true, "does": true, "has": true,
	"have": true, "had": true, "can": true, "could": true, "will": true,
	"would": true, "should": true, "tell": true, "please": true, "any": true,
	"there": true, "their": true, "they": true, "its": true, "also": true,
	"claim": true, "verdict": true, "evidence": true,
}

// all-caps words that are never tickers
var nonTickers = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "BUT": true, "NOT": true,
	"ARE": true, "WAS": true, "HAS": true, "IS": true, "IT": true,
	"OF": true, "TO": true, "IN": true, "ON": true, "OR": true,
}

// Extractor holds the optional symbol list and the output cap
type Extractor struct {
	symbols map[string]bool
	max     int
}

// New creates an extractor. symbols may be nil; max <= 0 uses DefaultMax.
func New(symbols map[string]bool, max int) *Extractor {
	if max <= 0 {
		max = DefaultMax
	}
	if symbols == nil {
		symbols = map[string]bool{}
	}
	return &Extractor{symbols: symbols, max: max}
}

var defaultExtractor = New(nil, DefaultMax)

// Extract runs the default extractor
func Extract(text, context string) []string {
	return defaultExtractor.Extract(text, context)
}

// Extract returns keywords from text then context in first-seen order,
// deduplicated case-insensitively. The result is never nil.
func (e *Extractor) Extract(text, context string) []string {
	out := make([]string, 0, e.max)
	seen := make(map[string]bool)

	for _, src := range []string{text, context} {
		for _, tok := range tokenPattern.FindAllString(src, -1) {
			kw, ok := e.classify(tok)
			if !ok {
				continue
			}
			key := strings.ToUpper(kw)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, kw)
			if len(out) == e.max {
				return out
			}
		}
	}
	return out
}

func (e *Extractor) classify(tok string) (string, bool) {
	switch {
	case quarterPattern.MatchString(tok):
		return strings.ToUpper(tok), true
	case basisPattern.MatchString(tok):
		return basisPattern.FindStringSubmatch(tok)[1] + "bps", true
	case strings.HasSuffix(tok, "%"):
		return tok, true
	case yearPattern.MatchString(tok):
		return tok, true
	case tok[0] >= '0' && tok[0] <= '9':
		return "", false
	}

	lower := strings.ToLower(tok)
	if lower == "bps" || lower == "yoy" {
		return tok, true
	}

	if upperPattern.MatchString(tok) {
		if e.symbols[tok] && len(tok) <= 6 {
			return tok, true
		}
		if len(tok) >= 2 && len(tok) <= 5 && !nonTickers[tok] {
			return tok, true
		}
		return "", false
	}

	if properPattern.MatchString(tok) && !stopwords[lower] {
		return tok, true
	}
	return "", false
}

// LoadSymbols reads one ticker per line. Blank lines and # comments are
// skipped, as are entries that are not 1-6 letters.
func LoadSymbols(path string) (map[string]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open symbols: %w", err)
	}
	defer func() { _ = f.Close() }()

	symbols := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		s := strings.ToUpper(line)
		if len(s) < 1 || len(s) > 6 || !upperPattern.MatchString(s) {
			continue
		}
		symbols[s] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read symbols: %w", err)
	}
	return symbols, nil
}

// Normalize cleans caller-supplied keywords: trims, drops empties,
// deduplicates case-insensitively and caps the list at max
func Normalize(list []string, max int) []string {
	if max <= 0 {
		max = DefaultMax
	}
	out := make([]string, 0, min(len(list), max))
	seen := make(map[string]bool)
	for _, kw := range list {
		kw = strings.TrimSpace(kw)
		key := strings.ToUpper(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
		if len(out) == max {
			break
		}
	}
	return out
}

// Max returns the output cap
func (e *Extractor) Max() int { return e.max }
