// Package mlclient wraps the external ML enrichment service: subjectivity,
// political bias, embedding similarity and reliability scoring.
package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client talks to the ML enrichment service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the service at baseURL. Model inference can be
// slow; timeout bounds every call.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type subjectivityResponse struct {
	ObjectivityProb float64 `json:"objectivity_prob"`
}

// Objectivity scores how objective the body text is, in [0,1].
func (c *Client) Objectivity(ctx context.Context, text string) (float64, error) {
	var resp subjectivityResponse
	if err := c.post(ctx, "/subjectivity", textRequest{Text: text}, &resp); err != nil {
		return 0, err
	}
	return resp.ObjectivityProb, nil
}

// TitleObjectivity scores how objective the headline is, in [0,1].
func (c *Client) TitleObjectivity(ctx context.Context, text string) (float64, error) {
	var resp subjectivityResponse
	if err := c.post(ctx, "/titleSubjectivity", textRequest{Text: text}, &resp); err != nil {
		return 0, err
	}
	return resp.ObjectivityProb, nil
}

type politicalResponse struct {
	Prediction    string             `json:"prediction"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// PoliticalBias classifies the text as Left/Center/Right with class
// probabilities.
func (c *Client) PoliticalBias(ctx context.Context, text string) (string, map[string]float64, error) {
	var resp politicalResponse
	if err := c.post(ctx, "/political", textRequest{Text: text}, &resp); err != nil {
		return "", nil, err
	}
	if resp.Prediction == "" {
		return "", nil, fmt.Errorf("political bias response missing prediction")
	}
	return resp.Prediction, resp.Probabilities, nil
}

type similarityRequest struct {
	Text1 string `json:"text1"`
	Text2 string `json:"text2"`
}

type similarityResponse struct {
	Similarity float64 `json:"similarity"`
}

// Similarity returns the embedding cosine similarity of two texts in [0,1].
func (c *Client) Similarity(ctx context.Context, text1, text2 string) (float64, error) {
	var resp similarityResponse
	if err := c.post(ctx, "/similarity", similarityRequest{Text1: text1, Text2: text2}, &resp); err != nil {
		return 0, err
	}
	return resp.Similarity, nil
}

// ReliabilityRequest carries the aggregated signals for reliability scoring.
type ReliabilityRequest struct {
	BiasProbs            map[string]float64 `json:"bias_probs"`
	ObjectivityScore     float64            `json:"objectivity_score"`
	CredibilityScore     string             `json:"credibility_score"` // credible, mixed, uncredible
	SimilarityScores     []float64          `json:"similarity_scores"`
	TitleObjectivity     float64            `json:"title_objectivity"`
	GrammaticalErrorRate float64            `json:"grammatical_error_rate"`
}

type reliabilityResponse struct {
	Reliability float64 `json:"reliability"`
}

// Reliability combines all enrichment signals into a single [0,1] score.
func (c *Client) Reliability(ctx context.Context, req ReliabilityRequest) (float64, error) {
	var resp reliabilityResponse
	if err := c.post(ctx, "/reliability", req, &resp); err != nil {
		return 0, err
	}
	return resp.Reliability, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ML service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ML service error: %d %s", resp.StatusCode, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode ML response: %w", err)
	}
	return nil
}
