package online

import (
	"net/url"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

var (
	defaultPrimaryDomains   = []string{"sec.gov", "federalreserve.gov", "investor.*", "ir.*"}
	defaultSecondaryDomains = []string{"reuters.com", "apnews.com", "wsj.com", "bloomberg.com", "ft.com"}
)

// AuthorityClassifier sorts publishers into authority tiers. Primary covers
// regulators and issuer investor-relations sites; secondary covers wire
// services and the financial press.
type AuthorityClassifier struct {
	primary   []string
	secondary []string
}

// NewAuthorityClassifier creates a classifier. Nil lists use the defaults.
func NewAuthorityClassifier(primary, secondary []string) *AuthorityClassifier {
	if primary == nil {
		primary = defaultPrimaryDomains
	}
	if secondary == nil {
		secondary = defaultSecondaryDomains
	}
	return &AuthorityClassifier{primary: primary, secondary: secondary}
}

// Classify classifies a URL into an authority tier
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	host := hostOf(rawURL)
	if host == "" {
		return model.TierUnknown
	}

	if matchAny(host, a.primary) {
		return model.TierPrimary
	}
	if matchAny(host, a.secondary) {
		return model.TierSecondary
	}

	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".gov.uk") {
		return model.TierPrimary
	}

	return model.TierTertiary
}

// DomainAllowList admits URLs whose host matches one of its patterns.
// An empty list admits everything.
type DomainAllowList struct {
	patterns []string
}

// NewDomainAllowList normalises patterns such as "reuters.com" or "investor.*"
func NewDomainAllowList(patterns []string) *DomainAllowList {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		p = strings.TrimPrefix(strings.TrimPrefix(p, "https://"), "http://")
		p = strings.TrimPrefix(p, "www.")
		if p != "" {
			out = append(out, p)
		}
	}
	return &DomainAllowList{patterns: out}
}

// Allowed reports whether rawURL may be used as online evidence
func (l *DomainAllowList) Allowed(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	if len(l.patterns) == 0 {
		return true
	}
	return matchAny(host, l.patterns)
}

func matchAny(host string, patterns []string) bool {
	for _, p := range patterns {
		if matchDomain(host, p) {
			return true
		}
	}
	return false
}

// matchDomain matches host against "example.com" (the domain or any
// subdomain) or "label.*" (any host whose leading label, or any label, is
// label)
func matchDomain(host, pattern string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(host, prefix) || strings.Contains(host, "."+prefix)
	}
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}

// hostOf returns the lowercased host of rawURL without port or "www."
func hostOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
