package analyzer

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/checkmate/analyzer/domainutil"
	"github.com/checkmate/analyzer/models"
)

// collectSimilar searches for coverage of the same story on other publishers,
// extracts each candidate in parallel and returns the survivors ordered by
// descending similarity to main. Failures here never fail the analysis; the
// worst case is an empty slice.
func (a *Analyzer) collectSimilar(ctx context.Context, main *models.ArticleRecord) []*models.ArticleRecord {
	links, err := a.search.Search(ctx, main.Title, a.config.MaxSearchResults)
	if err != nil {
		log.Printf("Similar article search failed for %q: %v", main.Title, err)
		return nil
	}

	candidates := dedupByDomain(links, domainutil.Normalize(main.URL))
	if len(candidates) == 0 {
		return nil
	}

	workers := a.config.SimilarWorkers
	if workers > len(candidates) {
		workers = len(candidates)
	}

	jobs := make(chan models.SearchResultLink, len(candidates))
	results := make(chan *models.ArticleRecord, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range jobs {
				rec, _ := a.extractHybrid(ctx, link.URL, main)
				if rec == nil || !validateArticle(rec) {
					log.Printf("Dropping similar article candidate %s: extraction failed", link.URL)
					continue
				}
				rec.ProviderTitle = link.ProviderTitle
				results <- rec
			}
		}()
	}

	for _, link := range candidates {
		similarDispatchedTotal.Inc()
		jobs <- link
	}
	close(jobs)
	wg.Wait()
	close(results)

	similar := make([]*models.ArticleRecord, 0, len(candidates))
	for rec := range results {
		similar = append(similar, rec)
	}

	sortBySimilarity(similar)
	return similar
}

// sortBySimilarity orders records by descending similarity. Records whose
// score could not be computed sort as neutral rather than last.
func sortBySimilarity(recs []*models.ArticleRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		return sortScore(recs[i]) > sortScore(recs[j])
	})
}

// dedupByDomain keeps the first link per registrable domain and drops links
// from the primary article's own publisher, so the comparison set spans
// independent outlets.
func dedupByDomain(links []models.SearchResultLink, mainDomain string) []models.SearchResultLink {
	seen := map[string]bool{mainDomain: true}
	kept := make([]models.SearchResultLink, 0, len(links))
	for _, link := range links {
		domain := domainutil.Normalize(link.URL)
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true
		kept = append(kept, link)
	}
	return kept
}

func sortScore(rec *models.ArticleRecord) float64 {
	if rec.SimilarityScore < 0 {
		return 0.5
	}
	return rec.SimilarityScore
}
