package reason

import (
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// grounder resolves model-provided citations against the evidence that was
// actually supplied for one call
type grounder struct {
	bySource map[string]model.EvidenceChunk
	byURL    map[string]model.EvidenceChunk
}

func newGrounder(evidence []model.EvidenceChunk) *grounder {
	g := &grounder{
		bySource: make(map[string]model.EvidenceChunk, len(evidence)),
		byURL:    make(map[string]model.EvidenceChunk, len(evidence)),
	}
	// evidence arrives best first; keep the first chunk per key
	for _, c := range evidence {
		if k := normalizeRef(c.Source); k != "" {
			if _, ok := g.bySource[k]; !ok {
				g.bySource[k] = c
			}
		}
		if k := normalizeURL(c.URL); k != "" {
			if _, ok := g.byURL[k]; !ok {
				g.byURL[k] = c
			}
		}
	}
	return g
}

// resolve maps raw citations onto supplied evidence. Unmatched citations are
// returned separately; duplicates collapse.
func (g *grounder) resolve(raw []rawCitation) (valid []model.Citation, dropped []string) {
	valid = []model.Citation{}
	seen := make(map[model.Citation]bool)
	for _, rc := range raw {
		chunk, ok := g.match(rc)
		if !ok {
			label := rc.Source
			if label == "" {
				label = rc.URL
			}
			dropped = append(dropped, label)
			continue
		}
		c := model.Citation{Source: chunk.Source, URL: chunk.URL}
		if seen[c] {
			continue
		}
		seen[c] = true
		valid = append(valid, c)
	}
	return valid, dropped
}

func (g *grounder) match(rc rawCitation) (model.EvidenceChunk, bool) {
	if c, ok := g.byURL[normalizeURL(rc.URL)]; ok && rc.URL != "" {
		return c, true
	}
	ref := normalizeRef(rc.Source)
	if ref == "" {
		return model.EvidenceChunk{}, false
	}
	if c, ok := g.bySource[ref]; ok {
		return c, true
	}
	if c, ok := g.byURL[normalizeURL(rc.Source)]; ok {
		return c, true
	}
	return model.EvidenceChunk{}, false
}

func normalizeRef(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "source:") {
		s = strings.TrimSpace(s[len("source:"):])
	}
	s = strings.Trim(s, "\"'`[]()")
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	u = strings.TrimRight(u, "/.,;")
	return u
}
