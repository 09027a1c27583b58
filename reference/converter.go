// Package reference distills an inspiration URL into readable markdown that
// the visual specialist can plan from.
package reference

import (
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// Converter turns extracted article HTML into markdown.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates an HTML to markdown converter.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Converter{converter: converter}
}

// Convert transforms article HTML to cleaned markdown.
func (c *Converter) Convert(articleHTML string) (string, error) {
	markdown, err := c.converter.ConvertString(articleHTML)
	if err != nil {
		return "", err
	}
	return cleanMarkdown(markdown), nil
}

// cleanMarkdown collapses runaway blank lines and trims the result.
func cleanMarkdown(markdown string) string {
	markdown = excessiveLinesRe.ReplaceAllString(markdown, "\n\n\n")
	return strings.TrimSpace(markdown)
}

// extractHTMLTitle extracts the <title> from raw HTML. Used as a fallback
// when the readability pass doesn't surface one.
func extractHTMLTitle(content []byte) string {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return ""
	}

	var title string
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title != "" {
				return
			}
			extract(c)
		}
	}
	extract(doc)

	return title
}
