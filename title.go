package analyzer

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var titleClassPattern = regexp.MustCompile(`(?i)(title|headline)`)

// locateTitle finds the best headline for the page.
// Priority: og:title meta > h1 with a title/headline class hint (>10 chars) >
// any h1 > title tag. Returns empty string when nothing matches.
func locateTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if t := strings.TrimSpace(og); t != "" {
			return t
		}
	}

	var hinted string
	doc.Find("h1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if len(text) <= 10 {
			return true
		}
		if class, ok := s.Attr("class"); ok && titleClassPattern.MatchString(class) {
			hinted = text
			return false
		}
		return true
	})
	if hinted != "" {
		return hinted
	}

	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}

	return strings.TrimSpace(doc.Find("title").First().Text())
}
