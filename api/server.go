// Package api exposes the article analysis pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/checkmate/analyzer"
	"github.com/checkmate/analyzer/db"
	"github.com/checkmate/analyzer/domainutil"
	"github.com/checkmate/analyzer/models"
	"github.com/checkmate/analyzer/slug"
	"github.com/checkmate/analyzer/storage"
)

// Engine runs the analysis pipeline for one URL.
type Engine interface {
	Analyze(ctx context.Context, url string) (*models.AnalysisResult, error)
}

// Store is the persistence surface the server needs.
type Store interface {
	SaveAnalysis(result *models.AnalysisResult) error
	GetAnalysisByID(id string) (*models.AnalysisResult, error)
	GetAnalysisByURL(url string) (*models.AnalysisResult, error)
	DeleteAnalysisByID(id string) error
	ListAnalyses(limit, offset int) ([]*models.AnalysisResult, error)
	CountAnalyses() (int, error)
	CredibilityScore(domain string) (string, error)
}

// Server represents the API server
type Server struct {
	db          Store
	engine      Engine
	snapshots   storage.Snapshotter
	addr        string
	server      *http.Server
	mux         *http.ServeMux
	corsEnabled bool
}

// Config contains server configuration
type Config struct {
	Addr           string
	DBConfig       db.Config
	AnalyzerConfig analyzer.Config
	StoragePath    string
	CORSEnabled    bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:           ":8080",
		AnalyzerConfig: analyzer.DefaultConfig(),
		StoragePath:    "./storage",
		CORSEnabled:    true,
	}
}

// NewServer creates a new API server with real database, storage and
// analyzer instances.
func NewServer(config Config) (*Server, error) {
	database, err := db.New(config.DBConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	snapshots, err := storage.New(storage.Config{BasePath: config.StoragePath})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	engine := analyzer.New(config.AnalyzerConfig, database)

	return NewServerWith(config, database, engine, snapshots), nil
}

// NewServerWith wires a server from explicit collaborators.
func NewServerWith(config Config, store Store, engine Engine, snapshots storage.Snapshotter) *Server {
	s := &Server{
		db:          store,
		engine:      engine,
		snapshots:   snapshots,
		addr:        config.Addr,
		mux:         http.NewServeMux(),
		corsEnabled: config.CORSEnabled,
	}

	// Register routes
	s.registerRoutes()

	// Create HTTP server
	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.middleware(s.mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 15 * time.Minute, // Allow time for long-running analyses
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/credibility", s.handleCredibility)
	s.mux.HandleFunc("/api/analyses", s.handleListAnalyses)
	s.mux.HandleFunc("/api/analyses/", s.handleAnalysis) // Handles /api/analyses/{id} and /api/analyses/{id}/snapshot
	s.mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the server's root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.middleware(s.mux)
}

// Start starts the API server
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	return s.server.Shutdown(ctx)
}

// middleware applies common middleware to all routes
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS headers
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		// Logging (skip health checks to reduce noise)
		start := time.Now()
		if r.URL.Path != "/health" {
			log.Printf("%s %s", r.Method, r.URL.Path)
		}

		next.ServeHTTP(w, r)

		if r.URL.Path != "/health" {
			log.Printf("%s %s - completed in %v", r.Method, r.URL.Path, time.Since(start))
		}
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	count, err := s.db.CountAnalyses()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get count")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"count":  count,
		"time":   time.Now(),
	})
}

// handleAnalyze runs the full pipeline for one article URL
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	// Serve the stored result when one exists (unless force is true)
	if !req.Force {
		existing, err := s.db.GetAnalysisByURL(req.URL)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "database error")
			return
		}
		if existing != nil {
			existing.Cached = true
			respondJSON(w, http.StatusOK, existing)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	result, err := s.engine.Analyze(ctx, req.URL)
	if err != nil {
		// An extraction failure is a property of the target page, not a
		// server fault.
		var extractionErr *analyzer.ExtractionError
		if errors.As(err, &extractionErr) {
			respondError(w, http.StatusUnprocessableEntity, extractionErr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("analysis failed: %v", err))
		return
	}

	s.archiveSnapshot(result)

	if err := s.db.SaveAnalysis(result); err != nil {
		log.Printf("Failed to save analysis: %v", err)
		// Still return the result even if save fails
	}

	respondJSON(w, http.StatusOK, result)
}

// archiveSnapshot stores the fetched HTML so the analysis can be audited
// later. Best effort; the result is returned either way.
func (s *Server) archiveSnapshot(result *models.AnalysisResult) {
	if s.snapshots == nil || result.Article == nil || result.Article.RawHTML == "" {
		return
	}

	key, err := s.snapshots.SaveSnapshot(
		result.Article.RawHTML,
		slug.FromArticle(result.Article.Title, result.Article.URL),
	)
	if err != nil {
		log.Printf("Failed to archive snapshot for %s: %v", result.Article.URL, err)
		return
	}
	result.SnapshotPath = key
}

// handleCredibility looks up the stored credibility rating for a domain
func (s *Server) handleCredibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		respondError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	domain := domainutil.Normalize(rawURL)
	if domain == "" {
		respondError(w, http.StatusBadRequest, "could not determine domain from url")
		return
	}

	score, err := s.db.CredibilityScore(domain)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	respondJSON(w, http.StatusOK, models.CredibilityResponse{
		Website:          domain,
		CredibilityScore: score,
	})
}

// handleListAnalyses handles GET /api/analyses with limit/offset pagination
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		offset = n
	}

	analyses, err := s.db.ListAnalyses(limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	total, err := s.db.CountAnalyses()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	if analyses == nil {
		analyses = []*models.AnalysisResult{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"analyses": analyses,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// handleAnalysis handles GET /api/analyses/{id}, DELETE /api/analyses/{id}
// and GET /api/analyses/{id}/snapshot
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/analyses/")
	if path == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	if strings.HasSuffix(path, "/snapshot") {
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleServeSnapshot(w, r, strings.TrimSuffix(path, "/snapshot"))
		return
	}

	switch r.Method {
	case http.MethodGet:
	case http.MethodDelete:
		s.handleDeleteAnalysis(w, r, path)
		return
	default:
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	result, err := s.db.GetAnalysisByID(path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	if result == nil {
		respondError(w, http.StatusNotFound, "analysis not found")
		return
	}

	// Mark as cached since it's from database
	result.Cached = true
	respondJSON(w, http.StatusOK, result)
}

// handleDeleteAnalysis removes a stored analysis and its archived snapshot
func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request, id string) {
	result, err := s.db.GetAnalysisByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	if result == nil {
		respondError(w, http.StatusNotFound, "analysis not found")
		return
	}

	if s.snapshots != nil && result.SnapshotPath != "" {
		if err := s.snapshots.DeleteSnapshot(result.SnapshotPath); err != nil {
			log.Printf("Failed to delete snapshot %s: %v", result.SnapshotPath, err)
		}
	}

	if err := s.db.DeleteAnalysisByID(id); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete analysis")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// handleServeSnapshot serves the archived HTML for a stored analysis
func (s *Server) handleServeSnapshot(w http.ResponseWriter, r *http.Request, id string) {
	result, err := s.db.GetAnalysisByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	if result == nil {
		respondError(w, http.StatusNotFound, "analysis not found")
		return
	}

	if s.snapshots == nil || result.SnapshotPath == "" {
		respondError(w, http.StatusNotFound, "snapshot not available")
		return
	}

	html, err := s.snapshots.ReadSnapshot(result.SnapshotPath)
	if err != nil {
		log.Printf("Failed to read snapshot %s: %v", result.SnapshotPath, err)
		respondError(w, http.StatusInternalServerError, "failed to read snapshot")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
