package online

import (
	"testing"

	"github.com/ppiankov/claimcheck/internal/model"
)

func TestAuthorityClassifier_Classify(t *testing.T) {
	c := NewAuthorityClassifier(nil, nil)

	tests := []struct {
		url  string
		want model.AuthorityTier
	}{
		{"https://www.sec.gov/Archives/edgar/data/320193/0000320193-24-000123.htm", model.TierPrimary},
		{"https://investor.apple.com/news/default.aspx", model.TierPrimary},
		{"https://ir.tesla.com/press-release/q3", model.TierPrimary},
		{"https://www.bls.gov/news.release/cpi.nr0.htm", model.TierPrimary},
		{"https://www.reuters.com/markets/us/", model.TierSecondary},
		{"https://apnews.com/article/x", model.TierSecondary},
		{"https://markets.ft.com/data", model.TierSecondary},
		{"https://someblog.example.com/post", model.TierTertiary},
		{"not a url", model.TierUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := c.Classify(tt.url); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestAuthorityClassifier_Custom(t *testing.T) {
	c := NewAuthorityClassifier([]string{"ecb.europa.eu"}, []string{"cnbc.com"})
	if got := c.Classify("https://www.ecb.europa.eu/press"); got != model.TierPrimary {
		t.Errorf("expected primary, got %v", got)
	}
	if got := c.Classify("https://www.cnbc.com/x"); got != model.TierSecondary {
		t.Errorf("expected secondary, got %v", got)
	}
	if got := c.Classify("https://www.reuters.com/x"); got != model.TierTertiary {
		t.Errorf("expected tertiary for reuters with custom lists, got %v", got)
	}
}

func TestDomainAllowList(t *testing.T) {
	l := NewDomainAllowList([]string{"reuters.com", " APNews.com ", "investor.*", "https://www.sec.gov"})

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.reuters.com/markets/x", true},
		{"https://apnews.com/article/y", true},
		{"https://investor.nvidia.com/news", true},
		{"https://www.sec.gov/cgi-bin/browse-edgar", true},
		{"https://notreuters.com/x", false},
		{"https://reuters.com.evil.io/x", false},
		{"https://example.com/investor.html", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := l.Allowed(tt.url); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}

	if !NewDomainAllowList(nil).Allowed("https://anything.example/x") {
		t.Error("empty allow list should admit every host")
	}
}
