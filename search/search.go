// Package search wraps the external search provider used to find candidate
// comparison articles for a headline.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/checkmate/analyzer/models"
)

// Config contains search provider configuration
type Config struct {
	BaseURL string
	APIKey  string
	CX      string // search engine identifier
	Timeout time.Duration
}

// Client queries the search provider.
type Client struct {
	config     Config
	httpClient *http.Client
}

// New creates a search client. A zero Timeout defaults to 10s.
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type searchItem struct {
	Link  string `json:"link"`
	Title string `json:"title"`
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

// Search returns up to n ranked result links for the query. An empty result
// list is not an error.
func (c *Client) Search(ctx context.Context, query string, n int) ([]models.SearchResultLink, error) {
	params := url.Values{}
	params.Set("key", c.config.APIKey)
	params.Set("cx", c.config.CX)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(n))

	req, err := http.NewRequestWithContext(ctx, "GET", c.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search provider error: %d %s", resp.StatusCode, resp.Status)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	links := make([]models.SearchResultLink, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}
		links = append(links, models.SearchResultLink{URL: item.Link, ProviderTitle: item.Title})
		if len(links) == n {
			break
		}
	}
	return links, nil
}
