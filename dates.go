package analyzer

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// metaDateProps are meta tag names/properties commonly carrying the
// publication date, checked in order.
var metaDateProps = []string{
	"article:published_time",
	"og:published_time",
	"publication_date",
	"date",
	"datePublished",
	"publish_date",
}

const monthNames = `January|February|March|April|May|June|July|August|September|October|November|December`

// datePatterns match absolute dates in free text, tried in order.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`\d{1,2}\s+(?:` + monthNames + `)\s+\d{4}`),
	regexp.MustCompile(`(?:` + monthNames + `)\s+\d{1,2},?\s+\d{4}`),
	regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`),
}

// dateFormats are the input layouts standardizeDate accepts. Slash dates are
// ambiguous; month-first is tried before day-first.
var dateFormats = []string{
	"2006-01-02",
	"January 2, 2006",
	"2 January 2006",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
}

// standardizeDate converts a date string in any supported layout to
// YYYY-MM-DD. Returns "" when no layout matches; never panics.
func standardizeDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// locateDate extracts the publication date: meta tags, then JSON-LD
// structured data, then <time> elements, then a regex scan of the whole
// document. Every candidate goes through standardizeDate; "" means no
// parseable signal was found.
func locateDate(doc *goquery.Document) string {
	for _, prop := range metaDateProps {
		sel := doc.Find(`meta[property="` + prop + `"]`)
		if sel.Length() == 0 {
			sel = doc.Find(`meta[name="` + prop + `"]`)
		}
		if content, ok := sel.First().Attr("content"); ok && content != "" {
			if d := standardizeDate(dropTimePart(content)); d != "" {
				return d
			}
		}
	}

	var fromLD string
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data map[string]interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		for _, key := range []string{"datePublished", "dateCreated"} {
			if v, ok := data[key].(string); ok && v != "" {
				if d := standardizeDate(dropTimePart(v)); d != "" {
					fromLD = d
					return false
				}
			}
		}
		return true
	})
	if fromLD != "" {
		return fromLD
	}

	timeSel := doc.Find("time").First()
	for _, attr := range []string{"datetime", "content"} {
		if v, ok := timeSel.Attr(attr); ok && v != "" {
			if d := standardizeDate(dropTimePart(v)); d != "" {
				return d
			}
		}
	}

	if html, err := doc.Html(); err == nil {
		for _, pattern := range datePatterns {
			if m := pattern.FindString(html); m != "" {
				if d := standardizeDate(m); d != "" {
					return d
				}
			}
		}
	}

	return ""
}

// dropTimePart strips the time component from an ISO-8601 timestamp.
func dropTimePart(s string) string {
	if idx := strings.Index(s, "T"); idx != -1 {
		return s[:idx]
	}
	return s
}
