package analyzer

import "time"

// Config contains analyzer configuration
type Config struct {
	HTTPTimeout     time.Duration // timeout for the lightweight static fetch
	PageLoadTimeout time.Duration // browser navigation timeout per attempt
	BrowserAttempts int           // navigation attempts before giving up
	ChromePath      string        // path to Chrome binary (empty = auto-detect)
	UserAgent       string

	MLBaseURL string        // ML enrichment service base URL
	MLTimeout time.Duration // timeout for ML enrichment calls

	SearchBaseURL string // search provider endpoint
	SearchAPIKey  string
	SearchCX      string

	VisionBaseURL string // image-matching oracle endpoint (empty = disabled)
	VisionAPIKey  string

	MinContentLength  int // characters below which extracted content is rejected
	MinImageDimension int // declared width/height below which an image is rejected
	MaxSearchResults  int // similar-article candidates requested from search
	SimilarWorkers    int // parallel extraction workers for similar articles
}

// DefaultConfig returns default analyzer configuration
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:       10 * time.Second,
		PageLoadTimeout:   40 * time.Second,
		BrowserAttempts:   2,
		UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		MLBaseURL:         "http://localhost:8000",
		MLTimeout:         120 * time.Second,
		SearchBaseURL:     "https://www.googleapis.com/customsearch/v1",
		VisionBaseURL:     "https://vision.googleapis.com/v1/images:annotate",
		MinContentLength:  300,
		MinImageDimension: 300,
		MaxSearchResults:  10,
		SimilarWorkers:    4,
	}
}
