package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/checkmate/analyzer"
	"github.com/checkmate/analyzer/models"
	"github.com/checkmate/analyzer/storage"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	byID        map[string]*models.AnalysisResult
	byURL       map[string]*models.AnalysisResult
	order       []string
	credibility map[string]string
	saveErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byID:        make(map[string]*models.AnalysisResult),
		byURL:       make(map[string]*models.AnalysisResult),
		credibility: make(map[string]string),
	}
}

func (f *fakeStore) SaveAnalysis(result *models.AnalysisResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.byID[result.ID]; !ok {
		f.order = append(f.order, result.ID)
	}
	f.byID[result.ID] = result
	f.byURL[result.Article.URL] = result
	return nil
}

func (f *fakeStore) DeleteAnalysisByID(id string) error {
	result, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("no analysis found with id: %s", id)
	}
	delete(f.byID, id)
	delete(f.byURL, result.Article.URL)
	for i, storedID := range f.order {
		if storedID == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) ListAnalyses(limit, offset int) ([]*models.AnalysisResult, error) {
	if offset >= len(f.order) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.order) {
		end = len(f.order)
	}
	var results []*models.AnalysisResult
	for _, id := range f.order[offset:end] {
		results = append(results, f.byID[id])
	}
	return results, nil
}

func (f *fakeStore) GetAnalysisByID(id string) (*models.AnalysisResult, error) {
	return f.byID[id], nil
}

func (f *fakeStore) GetAnalysisByURL(url string) (*models.AnalysisResult, error) {
	return f.byURL[url], nil
}

func (f *fakeStore) CountAnalyses() (int, error) {
	return len(f.byID), nil
}

func (f *fakeStore) CredibilityScore(domain string) (string, error) {
	if score, ok := f.credibility[domain]; ok {
		return score, nil
	}
	return models.BiasUnknown, nil
}

// fakeEngine returns a canned result or error per URL.
type fakeEngine struct {
	results map[string]*models.AnalysisResult
	errs    map[string]error
	calls   int
}

func (f *fakeEngine) Analyze(ctx context.Context, url string) (*models.AnalysisResult, error) {
	f.calls++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if result, ok := f.results[url]; ok {
		return result, nil
	}
	return nil, fmt.Errorf("unexpected url %s", url)
}

func testResult(id, url string) *models.AnalysisResult {
	article := models.NewArticleRecord(url)
	article.Title = "Senate Passes Budget Bill"
	article.Content = "The senate passed the budget bill on Tuesday after a lengthy debate.\n\nOpposition members criticised several provisions in the final text."
	article.RawHTML = "<html><body><p>archived</p></body></html>"
	return &models.AnalysisResult{
		ID:               id,
		Article:          article,
		SimilarArticles:  []*models.ArticleRecord{},
		CredibilityScore: "credible",
		ReliabilityScore: 0.8,
		AnalyzedAt:       time.Now(),
	}
}

func setupTestServer(t *testing.T) (*Server, *fakeStore, *fakeEngine) {
	t.Helper()

	store := newFakeStore()
	engine := &fakeEngine{
		results: make(map[string]*models.AnalysisResult),
		errs:    make(map[string]error),
	}

	snapshots, err := storage.New(storage.Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create snapshot storage: %v", err)
	}

	server := NewServerWith(Config{Addr: ":0", CORSEnabled: false}, store, engine, snapshots)
	return server, store, engine
}

func postJSON(t *testing.T, server *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var bodyBytes []byte
	if str, ok := body.(string); ok {
		bodyBytes = []byte(str)
	} else if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleAnalyze(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		wantStatusCode int
		wantErrMsg     string
	}{
		{
			name:           "valid request",
			body:           models.AnalyzeRequest{URL: "https://news.example.com/story"},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing URL",
			body:           models.AnalyzeRequest{URL: ""},
			wantStatusCode: http.StatusBadRequest,
			wantErrMsg:     "url is required",
		},
		{
			name:           "invalid JSON",
			body:           "{invalid json}",
			wantStatusCode: http.StatusBadRequest,
			wantErrMsg:     "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, _, engine := setupTestServer(t)
			engine.results["https://news.example.com/story"] = testResult("id-1", "https://news.example.com/story")

			w := postJSON(t, server, "/api/analyze", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatusCode)
			}

			if tt.wantErrMsg != "" {
				var errResp map[string]string
				if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
					t.Fatalf("Failed to decode error response: %v", err)
				}
				if errResp["error"] != tt.wantErrMsg {
					t.Errorf("Error message = %q, want %q", errResp["error"], tt.wantErrMsg)
				}
			}
		})
	}
}

func TestHandleAnalyzeMethodNotAllowed(t *testing.T) {
	server, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/analyze", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleAnalyzeExtractionFailure(t *testing.T) {
	server, _, engine := setupTestServer(t)
	engine.errs["https://blocked.example.com/story"] = &analyzer.ExtractionError{
		URL:    "https://blocked.example.com/story",
		Reason: "both fetch tiers produced no usable content",
	}

	w := postJSON(t, server, "/api/analyze", models.AnalyzeRequest{URL: "https://blocked.example.com/story"})

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusUnprocessableEntity)
	}

	var errResp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if errResp["error"] == "" {
		t.Error("Expected error message for extraction failure")
	}
}

func TestHandleAnalyzeCaching(t *testing.T) {
	server, store, engine := setupTestServer(t)
	url := "https://news.example.com/story"
	engine.results[url] = testResult("id-1", url)

	// First request runs the pipeline and persists the result
	w := postJSON(t, server, "/api/analyze", models.AnalyzeRequest{URL: url})
	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if engine.calls != 1 {
		t.Fatalf("Expected 1 engine call, got %d", engine.calls)
	}
	if len(store.byURL) != 1 {
		t.Fatalf("Expected result to be saved")
	}

	// Second request is served from the store
	w = postJSON(t, server, "/api/analyze", models.AnalyzeRequest{URL: url})
	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if engine.calls != 1 {
		t.Errorf("Expected cached response, engine called %d times", engine.calls)
	}

	var resp models.AnalysisResult
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Cached {
		t.Error("Expected cached flag on stored result")
	}

	// Force re-runs the pipeline
	w = postJSON(t, server, "/api/analyze", models.AnalyzeRequest{URL: url, Force: true})
	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if engine.calls != 2 {
		t.Errorf("Expected force to re-run pipeline, engine called %d times", engine.calls)
	}
}

func TestHandleAnalyzeArchivesSnapshot(t *testing.T) {
	server, store, engine := setupTestServer(t)
	url := "https://news.example.com/story"
	engine.results[url] = testResult("id-1", url)

	w := postJSON(t, server, "/api/analyze", models.AnalyzeRequest{URL: url})
	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", w.Code, http.StatusOK)
	}

	saved := store.byID["id-1"]
	if saved == nil {
		t.Fatal("Expected analysis to be saved")
	}
	if saved.SnapshotPath == "" {
		t.Fatal("Expected snapshot path on saved analysis")
	}

	// The archived HTML is served back via the snapshot route
	req := httptest.NewRequest(http.MethodGet, "/api/analyses/id-1/snapshot", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != saved.Article.RawHTML {
		t.Error("Snapshot body does not match archived HTML")
	}
}

func TestHandleGetAnalysis(t *testing.T) {
	server, store, _ := setupTestServer(t)
	result := testResult("id-1", "https://news.example.com/story")
	if err := store.SaveAnalysis(result); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/analyses/id-1", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", w.Code, http.StatusOK)
	}

	var resp models.AnalysisResult
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.ID != "id-1" {
		t.Errorf("ID = %q, want %q", resp.ID, "id-1")
	}
	if !resp.Cached {
		t.Error("Expected cached flag on stored result")
	}

	// Unknown ID
	req = httptest.NewRequest(http.MethodGet, "/api/analyses/missing", nil)
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestHandleListAnalyses(t *testing.T) {
	server, store, _ := setupTestServer(t)
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("id-%d", i)
		url := fmt.Sprintf("https://news.example.com/story-%d", i)
		if err := store.SaveAnalysis(testResult(id, url)); err != nil {
			t.Fatalf("Failed to seed store: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/analyses?limit=2", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", w.Code, http.StatusOK)
	}

	var resp struct {
		Analyses []*models.AnalysisResult `json:"analyses"`
		Total    int                      `json:"total"`
		Limit    int                      `json:"limit"`
		Offset   int                      `json:"offset"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Analyses) != 2 {
		t.Errorf("Expected 2 analyses, got %d", len(resp.Analyses))
	}
	if resp.Total != 3 {
		t.Errorf("Total = %d, want 3", resp.Total)
	}

	// Second page
	req = httptest.NewRequest(http.MethodGet, "/api/analyses?limit=2&offset=2", nil)
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Analyses) != 1 {
		t.Errorf("Expected 1 analysis on second page, got %d", len(resp.Analyses))
	}

	// Bad pagination parameters
	req = httptest.NewRequest(http.MethodGet, "/api/analyses?limit=zero", nil)
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestHandleDeleteAnalysis(t *testing.T) {
	store := newFakeStore()
	engine := &fakeEngine{
		results: make(map[string]*models.AnalysisResult),
		errs:    make(map[string]error),
	}
	snapshots, err := storage.New(storage.Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("Failed to create snapshot storage: %v", err)
	}
	server := NewServerWith(Config{Addr: ":0", CORSEnabled: false}, store, engine, snapshots)

	url := "https://news.example.com/story"
	engine.results[url] = testResult("id-1", url)

	// Analyze to persist the result with its archived snapshot
	w := postJSON(t, server, "/api/analyze", models.AnalyzeRequest{URL: url})
	if w.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	snapshotPath := store.byID["id-1"].SnapshotPath
	if snapshotPath == "" {
		t.Fatal("Expected snapshot path on saved analysis")
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/analyses/id-1", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}
	if store.byID["id-1"] != nil {
		t.Error("Expected analysis to be removed from the store")
	}
	if _, err := snapshots.ReadSnapshot(snapshotPath); err == nil {
		t.Error("Expected archived snapshot to be removed with the analysis")
	}

	// Deleting again is a 404
	req = httptest.NewRequest(http.MethodDelete, "/api/analyses/id-1", nil)
	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleCredibility(t *testing.T) {
	server, store, _ := setupTestServer(t)
	store.credibility["bbc"] = "credible"

	tests := []struct {
		name           string
		query          string
		wantStatusCode int
		wantWebsite    string
		wantScore      string
	}{
		{
			name:           "rated domain",
			query:          "?url=https://www.bbc.com/news/article",
			wantStatusCode: http.StatusOK,
			wantWebsite:    "bbc",
			wantScore:      "credible",
		},
		{
			name:           "subdomain normalizes to same rating",
			query:          "?url=https://sports.bbc.co.uk/story",
			wantStatusCode: http.StatusOK,
			wantWebsite:    "bbc",
			wantScore:      "credible",
		},
		{
			name:           "unrated domain",
			query:          "?url=https://unknown-site.example.com/page",
			wantStatusCode: http.StatusOK,
			wantWebsite:    "example",
			wantScore:      models.BiasUnknown,
		},
		{
			name:           "missing url parameter",
			query:          "",
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/credibility"+tt.query, nil)
			w := httptest.NewRecorder()
			server.Handler().ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("Status code = %d, want %d", w.Code, tt.wantStatusCode)
			}
			if tt.wantStatusCode != http.StatusOK {
				return
			}

			var resp models.CredibilityResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Website != tt.wantWebsite {
				t.Errorf("Website = %q, want %q", resp.Website, tt.wantWebsite)
			}
			if resp.CredibilityScore != tt.wantScore {
				t.Errorf("CredibilityScore = %q, want %q", resp.CredibilityScore, tt.wantScore)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	server, _, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Status = %q, want %q", resp["status"], "healthy")
	}
}
