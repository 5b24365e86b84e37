// Package vision wraps the external web-detection oracle that reports where
// else on the web an article image appears.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/checkmate/analyzer/models"
)

// Client queries the web-detection API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a vision client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image   imageSource `json:"image"`
	Features []feature  `json:"features"`
}

type imageSource struct {
	Source sourceURI `json:"source"`
}

type sourceURI struct {
	ImageURI string `json:"imageUri"`
}

type feature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []struct {
		WebDetection *struct {
			WebEntities             []interface{} `json:"webEntities"`
			PagesWithMatchingImages []interface{} `json:"pagesWithMatchingImages"`
			FullMatchingImages      []interface{} `json:"fullMatchingImages"`
			PartialMatchingImages   []interface{} `json:"partialMatchingImages"`
		} `json:"webDetection"`
	} `json:"responses"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// WebDetection reports matching pages and entities for one image URL.
// Returns nil (no error) when the oracle has no detection results.
func (c *Client) WebDetection(ctx context.Context, imageURL string) (*models.WebDetection, error) {
	payload := annotateRequest{
		Requests: []imageRequest{{
			Image:    imageSource{Source: sourceURI{ImageURI: imageURL}},
			Features: []feature{{Type: "WEB_DETECTION"}},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"?key="+c.apiKey, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision API error: %d %s", resp.StatusCode, resp.Status)
	}

	var parsed annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode vision response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("vision API error: %s", parsed.Error.Message)
	}
	if len(parsed.Responses) == 0 || parsed.Responses[0].WebDetection == nil {
		return nil, nil
	}

	wd := parsed.Responses[0].WebDetection
	return &models.WebDetection{
		ImageURL:                imageURL,
		Entities:                wd.WebEntities,
		PagesWithMatchingImages: wd.PagesWithMatchingImages,
		FullMatchingImages:      wd.FullMatchingImages,
		PartialMatchingImages:   wd.PartialMatchingImages,
	}, nil
}
