package analyzer

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/checkmate/analyzer/models"
)

// stealthScript masks the usual headless-automation fingerprints before any
// page script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {
    get: () => undefined,
});
window.chrome = {
    runtime: {},
    loadTimes: function() {},
    csi: function() {},
    app: {},
};
Object.defineProperty(navigator, 'languages', {
    get: () => ['en-US', 'en'],
});
Object.defineProperty(navigator, 'plugins', {
    get: () => [
        { name: 'Chrome PDF Plugin', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
        { name: 'Chrome PDF Viewer', filename: 'mhjfbmdgcfjbbpaeojofohoefgiehjai', description: '' },
    ],
});
`

// fetchRendered is the heavyweight extraction tier: a sandboxed headless
// browser executes the page's scripts and the fully rendered HTML goes
// through the same heuristics as the static tier. It never returns nil; on
// failure the record carries the extraction-failure sentinel as content so
// downstream validation filters it out.
func (a *Analyzer) fetchRendered(ctx context.Context, targetURL string) *models.ArticleRecord {
	html, err := a.renderPage(ctx, targetURL)
	if err != nil {
		log.Printf("Browser fetch failed for %s: %v", targetURL, err)
		rec := models.NewArticleRecord(targetURL)
		rec.Content = failureSentinel
		return rec
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Printf("Failed to parse rendered HTML for %s: %v", targetURL, err)
		rec := models.NewArticleRecord(targetURL)
		rec.Content = failureSentinel
		return rec
	}

	base, err := url.Parse(targetURL)
	if err != nil {
		base = nil
	}

	rec := a.buildRecord(doc, targetURL, base)
	if rec.Content == "" {
		rec.Content = failureSentinel
	}
	return rec
}

// renderPage owns exactly one browser session for its lifetime: allocator
// and browser context are both cancelled on every exit path.
func (a *Analyzer) renderPage(ctx context.Context, targetURL string) (string, error) {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("accept-lang", "en-US,en"),
		chromedp.UserAgent(a.config.UserAgent),
		// Randomized viewport; a fixed size is itself a fingerprint.
		chromedp.WindowSize(1050+rand.Intn(870), 800+rand.Intn(280)),
	}
	if a.config.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(a.config.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var lastErr error
	for attempt := 1; attempt <= a.config.BrowserAttempts; attempt++ {
		html, err := a.navigate(browserCtx, targetURL)
		if err == nil {
			return html, nil
		}
		lastErr = err
		log.Printf("Navigation attempt %d/%d failed for %s: %v", attempt, a.config.BrowserAttempts, targetURL, err)
	}
	return "", fmt.Errorf("navigation failed after %d attempts: %w", a.config.BrowserAttempts, lastErr)
}

// navigate performs one bounded page load, scrolls to the page midpoint to
// provoke lazy-loaded content, and snapshots the rendered HTML.
func (a *Analyzer) navigate(browserCtx context.Context, targetURL string) (string, error) {
	navCtx, cancel := context.WithTimeout(browserCtx, a.config.PageLoadTimeout)
	defer cancel()

	var html string
	err := chromedp.Run(navCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		network.ClearBrowserCookies(),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight/2);`, nil),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}
