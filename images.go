package analyzer

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/checkmate/analyzer/models"
)

var imageClassPattern = regexp.MustCompile(`(?i)(image|photo)`)

// extractImages collects article images under the content root using three
// independent discovery strategies, unioned and deduplicated by resolved
// absolute src. Resolved URLs keep their query strings, so two sources
// differing only by query are distinct entries.
func extractImages(root *goquery.Selection, base *url.URL, minDimension int) []models.ImageRef {
	images := []models.ImageRef{}
	if root == nil {
		return images
	}

	imgs := root.Filter("img").AddSelection(root.Find("img"))
	strategies := []*goquery.Selection{
		imgs.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.AttrOr("src", "") != ""
		}),
		imgs.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return imageClassPattern.MatchString(s.AttrOr("class", ""))
		}),
		imgs.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.AttrOr("src", ""), "/")
		}),
	}

	seen := make(map[string]bool)
	for _, found := range strategies {
		found.Each(func(_ int, s *goquery.Selection) {
			ref := processImageElement(s, base, minDimension)
			if ref != nil && !seen[ref.Src] {
				seen[ref.Src] = true
				images = append(images, *ref)
			}
		})
	}

	return images
}

// processImageElement turns one img node into an ImageRef, or nil when the
// source is unusable or the image fails the article-image filter.
func processImageElement(s *goquery.Selection, base *url.URL, minDimension int) *models.ImageRef {
	src := s.AttrOr("src", "")
	if !usableSrc(src) {
		src = ""
		for _, attr := range lazySrcAttrs {
			if v := s.AttrOr(attr, ""); v != "" {
				src = v
				break
			}
		}
		if !usableSrc(src) {
			return nil
		}
	}

	resolved := resolveURL(base, src)
	if resolved == "" {
		return nil
	}

	if !isValidArticleImage(s, minDimension) {
		return nil
	}

	return &models.ImageRef{
		Src:    resolved,
		Alt:    s.AttrOr("alt", ""),
		Title:  s.AttrOr("title", ""),
		Width:  s.AttrOr("width", ""),
		Height: s.AttrOr("height", ""),
	}
}

// usableSrc rejects empty sources and inline data/blob URIs.
func usableSrc(src string) bool {
	return src != "" && !strings.HasPrefix(src, "data:") && !strings.HasPrefix(src, "blob:")
}

// isValidArticleImage classifies an img element as article content rather
// than advertisement or decoration. Any single rejection rule is final.
func isValidArticleImage(s *goquery.Selection, minDimension int) bool {
	// Declared dimensions below the minimum. Non-numeric values are
	// ignored, not rejected.
	for _, attr := range []string{"width", "height"} {
		v := strings.TrimSpace(strings.TrimSuffix(s.AttrOr(attr, ""), "px"))
		if v == "" {
			continue
		}
		if n, err := strconv.Atoi(v); err == nil && n < minDimension {
			return false
		}
	}

	srcText := strings.ToLower(s.AttrOr("src", ""))
	for _, attr := range lazySrcAttrs {
		srcText += " " + strings.ToLower(s.AttrOr(attr, ""))
	}
	for _, kw := range adSrcKeywords {
		if strings.Contains(srcText, kw) {
			return false
		}
	}

	altTitle := strings.ToLower(s.AttrOr("alt", "") + " " + s.AttrOr("title", ""))
	for _, kw := range adTextKeywords {
		if strings.Contains(altTitle, kw) {
			return false
		}
	}

	// Walk the full ancestor chain, accumulate every class/id token (and
	// href for anchors), then test the combined string once.
	var tokens []string
	s.Parents().Each(func(_ int, p *goquery.Selection) {
		if v := p.AttrOr("class", ""); v != "" {
			tokens = append(tokens, v)
		}
		if v := p.AttrOr("id", ""); v != "" {
			tokens = append(tokens, v)
		}
		if goquery.NodeName(p) == "a" {
			if v := p.AttrOr("href", ""); v != "" {
				tokens = append(tokens, v)
			}
		}
	})
	combined := strings.ToLower(strings.Join(tokens, " "))
	for _, kw := range skipAncestorKeywords {
		if strings.Contains(combined, kw) {
			return false
		}
	}

	return true
}

// resolveURL resolves a possibly relative reference against the page base.
// Already-absolute URLs pass through unchanged; "" on unparseable input.
func resolveURL(base *url.URL, href string) string {
	parsed, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		if parsed.IsAbs() {
			return parsed.String()
		}
		return ""
	}
	return base.ResolveReference(parsed).String()
}
