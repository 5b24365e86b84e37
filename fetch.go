package analyzer

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/checkmate/analyzer/models"
)

// fetchStatic is the lightweight extraction tier: one HTTP GET and a static
// parse, no script execution. Returns nil (no error) when the page parsed
// but yielded too little content or a block-page sentinel, signalling the
// caller to fall back to the rendering tier.
func (a *Analyzer) fetchStatic(ctx context.Context, targetURL string) (*models.ArticleRecord, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("URL must be http or https")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", a.config.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Resolve relative references against the final URL after redirects.
	base := resp.Request.URL

	rec := a.buildRecord(doc, targetURL, base)
	if len(rec.Content) < a.config.MinContentLength {
		log.Printf("Static fetch of %s yielded %d chars, below minimum %d", targetURL, len(rec.Content), a.config.MinContentLength)
		return nil, nil
	}
	if containsSentinel(rec.Content) {
		log.Printf("Static fetch of %s hit a block page", targetURL)
		return nil, nil
	}

	return rec, nil
}

// buildRecord applies the shared extraction heuristics to a parsed document.
// Both fetch tiers funnel through here so they can never diverge.
func (a *Analyzer) buildRecord(doc *goquery.Document, targetURL string, base *url.URL) *models.ArticleRecord {
	rec := models.NewArticleRecord(targetURL)
	rec.Title = locateTitle(doc)
	rec.Date = locateDate(doc)
	if root := locateContent(doc); root != nil {
		rec.Content = cleanContent(root)
		rec.Images = extractImages(root, base, a.config.MinImageDimension)
	}
	if html, err := doc.Html(); err == nil {
		rec.RawHTML = html
	}
	return rec
}
