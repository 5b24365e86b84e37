// Package analyzer implements the article analysis pipeline: hybrid
// two-tier extraction (static fetch with browser-rendering fallback),
// heuristic content/title/date/image location, ML enrichment, and parallel
// collection of cross-publisher comparison articles.
package analyzer

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/checkmate/analyzer/domainutil"
	"github.com/checkmate/analyzer/mlclient"
	"github.com/checkmate/analyzer/models"
	"github.com/checkmate/analyzer/search"
	"github.com/checkmate/analyzer/vision"
)

// CredibilityStore resolves a normalized domain to its credibility rating.
type CredibilityStore interface {
	CredibilityScore(domain string) (string, error)
}

// ExtractionError is returned when the primary article cannot be extracted
// or fails validation. It is fatal for that URL; callers must not confuse it
// with a successful analysis that found no comparable articles.
type ExtractionError struct {
	URL    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("article extraction failed for %s: %s", e.URL, e.Reason)
}

// Analyzer runs the full analysis pipeline.
type Analyzer struct {
	config     Config
	httpClient *http.Client
	ml         *mlclient.Client
	search     *search.Client
	vision     *vision.Client
	store      CredibilityStore
	spell      *spellChecker

	// renderer indirects the heavyweight tier so tests can substitute a
	// fake instead of launching a browser. Defaults to fetchRendered.
	renderer func(ctx context.Context, targetURL string) *models.ArticleRecord
}

// New creates an Analyzer. store may be nil when no credibility database is
// available; the credibility signal then degrades to Unknown.
func New(config Config, store CredibilityStore) *Analyzer {
	a := &Analyzer{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.HTTPTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		ml: mlclient.New(config.MLBaseURL, config.MLTimeout),
		search: search.New(search.Config{
			BaseURL: config.SearchBaseURL,
			APIKey:  config.SearchAPIKey,
			CX:      config.SearchCX,
		}),
		store: store,
		spell: newSpellChecker(),
	}
	if config.VisionAPIKey != "" {
		a.vision = vision.New(config.VisionBaseURL, config.VisionAPIKey)
	}
	a.renderer = a.fetchRendered
	return a
}

// Analyze extracts the article at targetURL, enriches it, gathers
// cross-publisher comparison articles and computes the aggregate reliability
// score. Returns *ExtractionError when the primary article cannot be
// extracted or validated.
func (a *Analyzer) Analyze(ctx context.Context, targetURL string) (*models.AnalysisResult, error) {
	start := time.Now()
	defer func() {
		analyzeDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, span := otel.Tracer("analyzer").Start(ctx, "Analyze")
	defer span.End()

	parsed, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("URL must be http or https")
	}

	main, warnings := a.extractHybrid(ctx, targetURL, nil)
	if main == nil {
		return nil, &ExtractionError{URL: targetURL, Reason: "both fetch tiers produced no usable content"}
	}
	if !validateArticle(main) {
		return nil, &ExtractionError{URL: targetURL, Reason: "extracted record failed validation"}
	}

	credibility := models.BiasUnknown
	if a.store != nil {
		score, err := a.store.CredibilityScore(domainutil.Normalize(targetURL))
		if err != nil {
			log.Printf("Credibility lookup failed for %s: %v", targetURL, err)
			warnings = append(warnings, "credibility lookup unavailable")
		} else {
			credibility = score
		}
	}

	similar := a.collectSimilar(ctx, main)

	var simScores []float64
	for _, s := range similar {
		if s.SimilarityScore >= 0 {
			simScores = append(simScores, s.SimilarityScore)
		}
	}

	reliability := float64(models.ScoreUnknown)
	if main.BiasProbabilities == nil || main.ObjectivityScore < 0 || len(simScores) == 0 {
		warnings = append(warnings, "insufficient signals for reliability scoring")
	} else {
		// An unrated domain scores with a neutral credibility prior; the
		// response still reports Unknown.
		cred := credibility
		if cred == models.BiasUnknown {
			cred = "mixed"
		}
		score, err := a.ml.Reliability(ctx, mlclient.ReliabilityRequest{
			BiasProbs:            main.BiasProbabilities,
			ObjectivityScore:     main.ObjectivityScore,
			CredibilityScore:     cred,
			SimilarityScores:     simScores,
			TitleObjectivity:     main.TitleObjectivityScore,
			GrammaticalErrorRate: main.MisspellRate,
		})
		if err != nil {
			log.Printf("Reliability scoring failed for %s: %v", targetURL, err)
			warnings = append(warnings, "reliability scoring unavailable")
		} else {
			reliability = clamp01(score)
		}
	}

	return &models.AnalysisResult{
		ID:               uuid.New().String(),
		Article:          main,
		SimilarArticles:  similar,
		CredibilityScore: credibility,
		ReliabilityScore: reliability,
		ImagesData:       a.imagesData(ctx, main),
		AnalyzedAt:       time.Now(),
		ProcessingTime:   time.Since(start).Seconds(),
		Warnings:         warnings,
	}, nil
}

// extractHybrid runs the two-tier fetch. A record from the static tier is
// authoritative; the rendering tier runs only when the static tier produced
// nothing usable. When main is nil the record is the primary article and is
// enriched; otherwise it is a comparison article and only the similarity
// score against main is computed. Returns nil when both tiers failed.
func (a *Analyzer) extractHybrid(ctx context.Context, targetURL string, main *models.ArticleRecord) (*models.ArticleRecord, []string) {
	rec, err := a.fetchStatic(ctx, targetURL)
	if err != nil {
		log.Printf("Static fetch failed for %s: %v", targetURL, err)
	}
	if rec != nil {
		fetchTierTotal.WithLabelValues("static", "ok").Inc()
	} else {
		fetchTierTotal.WithLabelValues("static", "failed").Inc()
		rendered := a.renderer(ctx, targetURL)
		if containsSentinel(rendered.Content) || len(rendered.Content) < a.config.MinContentLength {
			fetchTierTotal.WithLabelValues("rendered", "failed").Inc()
			return nil, nil
		}
		fetchTierTotal.WithLabelValues("rendered", "ok").Inc()
		rec = rendered
	}

	if main == nil {
		return rec, a.enrich(ctx, rec)
	}

	score, err := a.ml.Similarity(ctx, collapseWhitespace(rec.Content), collapseWhitespace(main.Content))
	if err != nil {
		log.Printf("Similarity scoring failed for %s: %v", targetURL, err)
	} else {
		rec.SimilarityScore = clamp01(score)
	}
	return rec, nil
}

// enrich attaches the externally computed signals to the primary article.
// Every failure degrades to a sentinel value and a warning; enrichment never
// aborts an otherwise successful extraction.
func (a *Analyzer) enrich(ctx context.Context, rec *models.ArticleRecord) []string {
	var warnings []string
	body := collapseWhitespace(rec.Content)

	if score, err := a.ml.Objectivity(ctx, body); err != nil {
		log.Printf("Objectivity scoring failed for %s: %v", rec.URL, err)
		warnings = append(warnings, "objectivity scoring unavailable")
	} else {
		rec.ObjectivityScore = clamp01(score)
	}

	if score, err := a.ml.TitleObjectivity(ctx, rec.Title); err != nil {
		log.Printf("Title objectivity scoring failed for %s: %v", rec.URL, err)
		warnings = append(warnings, "title objectivity scoring unavailable")
	} else {
		rec.TitleObjectivityScore = clamp01(score)
	}

	if prediction, probs, err := a.ml.PoliticalBias(ctx, body); err != nil {
		log.Printf("Bias classification failed for %s: %v", rec.URL, err)
		rec.BiasPrediction = models.BiasUnknown
		warnings = append(warnings, "bias classification unavailable")
	} else {
		rec.BiasPrediction = prediction
		rec.BiasProbabilities = probs
	}

	rec.MisspelledWords, rec.MisspellRate = a.spell.Check(rec.Content)

	return warnings
}

// imagesData runs web detection over the primary article's images. Failures
// for individual images yield no entry; a disabled oracle yields nil.
func (a *Analyzer) imagesData(ctx context.Context, rec *models.ArticleRecord) []*models.WebDetection {
	if a.vision == nil {
		return nil
	}
	var data []*models.WebDetection
	for _, img := range rec.Images {
		detection, err := a.vision.WebDetection(ctx, img.Src)
		if err != nil {
			log.Printf("Web detection failed for %s: %v", img.Src, err)
			continue
		}
		if detection != nil {
			data = append(data, detection)
		}
	}
	return data
}

// validateArticle is the final gate a record must pass before leaving the
// orchestrator: identifying fields present, a real headline, and body text
// with at least two substantial paragraphs and no block-page sentinel.
func validateArticle(rec *models.ArticleRecord) bool {
	if rec == nil || rec.URL == "" || rec.Title == "" || rec.Content == "" {
		return false
	}
	if len(rec.Title) < 5 {
		return false
	}
	if containsSentinel(rec.Content) {
		return false
	}
	substantial := 0
	for _, p := range strings.Split(rec.Content, "\n\n") {
		if len(strings.TrimSpace(p)) > 40 {
			substantial++
		}
	}
	return substantial >= 2
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
