package analyzer

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Content locator candidate patterns, tried in priority order. Restricted to
// the container tags real publishers use for article bodies.
var (
	contentIDPattern    = regexp.MustCompile(`(?i)(content|main|article|primary|body)`)
	contentClassPattern = regexp.MustCompile(`(?i)(content|main|article|primary|body|post|entry)`)
	sectionClassPattern = regexp.MustCompile(`(?i)(article|content|post)`)
)

// locateContent picks the DOM subtree most likely to hold the article body.
// Strategies are tried left to right, short-circuiting on the first that
// qualifies; returns nil only when the document has no body at all.
func locateContent(doc *goquery.Document) *goquery.Selection {
	type candidate struct {
		selector string
		attr     string
		pattern  *regexp.Regexp
	}
	candidates := []candidate{
		{selector: "article"},
		{selector: "main"},
		{selector: "div", attr: "id", pattern: contentIDPattern},
		{selector: "div", attr: "class", pattern: contentClassPattern},
		{selector: "section", attr: "class", pattern: sectionClassPattern},
	}

	for _, c := range candidates {
		var found *goquery.Selection
		doc.Find(c.selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if c.pattern != nil {
				v, ok := s.Attr(c.attr)
				if !ok || !c.pattern.MatchString(v) {
					return true
				}
			}
			// Require real paragraph structure so a matching but empty
			// wrapper does not shadow the actual content container.
			if s.Find("p").Length() > 3 {
				found = s
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}

	// Text-density fallback: chars of stripped text weighted by paragraph
	// count, minimum 300 chars of text to qualify.
	var best *goquery.Selection
	bestScore := 0
	doc.Find("div").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) <= 300 {
			return
		}
		score := len(text) * s.Find("p").Length()
		if score > bestScore {
			bestScore = score
			best = s
		}
	})
	if best != nil {
		return best
	}

	// Paragraph aggregation: treat every substantial paragraph on the page
	// as one synthetic content block.
	paras := doc.Find("p").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return len(strings.TrimSpace(s.Text())) > 50
	})
	if paras.Length() > 0 {
		return paras
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return nil
	}
	return body.First()
}

// paragraphsUnder returns the paragraphs contained in the selection,
// including nodes of the selection that are themselves paragraphs (the
// aggregation fallback yields a selection of bare <p> nodes).
func paragraphsUnder(root *goquery.Selection) *goquery.Selection {
	return root.Filter("p").AddSelection(root.Find("p"))
}

// cleanContent assembles plain article text from the qualifying paragraphs
// under the content root: stripped text longer than 20 chars, joined with
// blank lines. Empty string when nothing qualifies.
func cleanContent(root *goquery.Selection) string {
	if root == nil {
		return ""
	}
	var parts []string
	paragraphsUnder(root).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len(text) > 20 {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

// containsSentinel reports whether text contains any known block-page or
// extraction-failure phrase.
func containsSentinel(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range sentinelPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
