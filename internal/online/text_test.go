package online

import (
	"strings"
	"testing"
)

func TestExtractArticle_PrefersArticleElement(t *testing.T) {
	page := `<html><head><title>Fallback title</title>
<meta property="og:title" content="Company X beats estimates">
<script>var tracking = "ignore me";</script></head>
<body>
<nav>Markets | Tech | Opinion</nav>
<article>
<h1>Company X beats estimates</h1>
<p>Company X said revenue grew 12% in the third quarter.</p>
<aside>Related: other stories</aside>
<p>Shares rose   2% after hours.</p>
</article>
<footer>Copyright</footer>
</body></html>`

	title, text := ExtractArticle(page)
	if title != "Company X beats estimates" {
		t.Errorf("unexpected title %q", title)
	}
	if !strings.Contains(text, "revenue grew 12% in the third quarter") {
		t.Errorf("missing body text: %q", text)
	}
	if !strings.Contains(text, "Shares rose 2% after hours.") {
		t.Errorf("whitespace not collapsed: %q", text)
	}
	for _, unwanted := range []string{"ignore me", "Markets | Tech", "Related:", "Copyright"} {
		if strings.Contains(text, unwanted) {
			t.Errorf("text contains %q: %q", unwanted, text)
		}
	}
}

func TestExtractArticle_BodyFallback(t *testing.T) {
	title, text := ExtractArticle(`<html><head><title> Fed statement </title></head><body><p>The Committee decided to maintain the target range.</p></body></html>`)
	if title != "Fed statement" {
		t.Errorf("unexpected title %q", title)
	}
	if text != "The Committee decided to maintain the target range." {
		t.Errorf("unexpected text %q", text)
	}
}

func TestStripHTML(t *testing.T) {
	if got := StripHTML(`<p>Apple &amp; Tesla <b>rallied</b></p>`); got != "Apple & Tesla rallied" {
		t.Errorf("unexpected %q", got)
	}
	if got := StripHTML("  plain   text "); got != "plain text" {
		t.Errorf("unexpected %q", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo world", 5); got != "héllo..." {
		t.Errorf("unexpected %q", got)
	}
	if got := truncateRunes("short", 0); got != "short" {
		t.Errorf("unexpected %q", got)
	}
}
