package online

import (
	"strings"

	"golang.org/x/net/html"
)

// skipped entirely when walking for article text
var invisibleElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"nav": true, "header": true, "footer": true, "aside": true,
	"form": true, "svg": true, "button": true, "figure": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "br": true, "section": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "blockquote": true, "tr": true,
}

// ExtractArticle returns the page title and readable body text. The body
// comes from the first <article> element when present, otherwise <body>.
func ExtractArticle(htmlContent string) (title, text string) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", ""
	}

	title = findTitle(doc)

	root := findElement(doc, "article")
	if root == nil {
		root = findElement(doc, "body")
	}
	if root == nil {
		root = doc
	}
	return title, extractVisibleText(root)
}

// StripHTML flattens an HTML fragment, such as an RSS description, to text
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapseSpace(fragment)
	}
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return collapseSpace(fragment)
	}
	return extractVisibleText(doc)
}

// extractVisibleText walks text nodes, skipping page chrome and scripts
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && invisibleElements[n.Data] {
			return
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] {
			buf.WriteString("\n")
		}
	}

	walk(n)
	return collapseSpace(buf.String())
}

func findTitle(doc *html.Node) string {
	if meta := findMeta(doc, "og:title"); meta != "" {
		return meta
	}
	if t := findElement(doc, "title"); t != nil && t.FirstChild != nil {
		return strings.TrimSpace(t.FirstChild.Data)
	}
	if h := findElement(doc, "h1"); h != nil {
		return extractVisibleText(h)
	}
	return ""
}

func findMeta(n *html.Node, property string) string {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var prop, content string
		for _, a := range n.Attr {
			switch a.Key {
			case "property", "name":
				prop = a.Val
			case "content":
				content = a.Val
			}
		}
		if prop == property {
			return strings.TrimSpace(content)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if v := findMeta(c, property); v != "" {
			return v
		}
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// collapseSpace joins lines, collapsing runs of blanks inside each line and
// dropping empty lines
func collapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
