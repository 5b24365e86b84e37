package models

import "time"

// ArticleRecord is the result of one extraction attempt. It is built once by
// a fetcher and never restructured afterwards; only the derived score fields
// are attached later by enrichment.
type ArticleRecord struct {
	URL     string     `json:"url"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Date    string     `json:"date,omitempty"` // YYYY-MM-DD, empty when no parseable date signal was found
	Images  []ImageRef `json:"images"`

	// Derived fields. Scores default to ScoreUnknown until enrichment runs;
	// enrichment failures leave the sentinel in place rather than aborting.
	ObjectivityScore      float64            `json:"objectivity_score"`
	TitleObjectivityScore float64            `json:"title_objectivity_score"`
	BiasPrediction        string             `json:"bias_prediction,omitempty"`
	BiasProbabilities     map[string]float64 `json:"bias_probabilities,omitempty"`
	SimilarityScore       float64            `json:"similarity_score"`
	MisspelledWords       int                `json:"misspelled_words"`
	MisspellRate          float64            `json:"misspell_rate"`

	// ProviderTitle is the display title reported by the search provider for
	// comparison articles, kept separate from the extracted Title.
	ProviderTitle string `json:"provider_title,omitempty"`

	// RawHTML is the document the record was extracted from, kept only for
	// snapshot archiving and never serialized.
	RawHTML string `json:"-"`
}

// ScoreUnknown marks a derived score that could not be computed.
const ScoreUnknown = -1

// BiasUnknown marks a political bias classification that could not be computed.
const BiasUnknown = "Unknown"

// NewArticleRecord returns a record with all derived scores unset.
func NewArticleRecord(url string) *ArticleRecord {
	return &ArticleRecord{
		URL:                   url,
		Images:                []ImageRef{},
		ObjectivityScore:      ScoreUnknown,
		TitleObjectivityScore: ScoreUnknown,
		SimilarityScore:       ScoreUnknown,
	}
}

// ImageRef describes one image found in article content. Width and Height
// hold raw attribute values and may be empty; they are filter inputs, not
// true dimensions.
type ImageRef struct {
	Src    string `json:"src"` // absolute URL
	Alt    string `json:"alt"`
	Title  string `json:"title"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// SearchResultLink is one raw item from the search provider, before
// domain deduplication.
type SearchResultLink struct {
	URL           string `json:"url"`
	ProviderTitle string `json:"title"`
}

// WebDetection holds the image-matching oracle's response for one image.
type WebDetection struct {
	ImageURL                string        `json:"image_url"`
	Entities                []interface{} `json:"entities"`
	PagesWithMatchingImages []interface{} `json:"pages_with_matching_images"`
	FullMatchingImages      []interface{} `json:"full_matching_images"`
	PartialMatchingImages   []interface{} `json:"partial_matching_images"`
}

// AnalysisResult is the complete output of analyzing one article URL.
type AnalysisResult struct {
	ID               string           `json:"id"`
	Article          *ArticleRecord   `json:"article"`
	SimilarArticles  []*ArticleRecord `json:"similar_articles"`
	CredibilityScore string           `json:"credibility_score"` // credible, mixed, uncredible or Unknown
	ReliabilityScore float64          `json:"reliability_score"` // [0,1], ScoreUnknown on enrichment failure
	ImagesData       []*WebDetection  `json:"images_data,omitempty"`
	SnapshotPath     string           `json:"snapshot_path,omitempty"` // archive key of the fetched HTML
	AnalyzedAt       time.Time        `json:"analyzed_at"`
	ProcessingTime   float64          `json:"processing_time_seconds"`
	Cached           bool             `json:"cached"`
	Warnings         []string         `json:"warnings,omitempty"` // non-fatal enrichment issues
}

// AnalyzeRequest is the API request to analyze a URL.
type AnalyzeRequest struct {
	URL   string `json:"url"`
	Force bool   `json:"force"` // re-analyze even if a stored result exists
}

// CredibilityResponse is the API response for a domain credibility lookup.
type CredibilityResponse struct {
	Website          string `json:"website"`
	CredibilityScore string `json:"credibility_score"`
}
