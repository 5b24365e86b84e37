package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/checkmate/analyzer/models"
)

// DB wraps the database connection and provides data access methods
type DB struct {
	conn *sql.DB
}

// Config contains database configuration
type Config struct {
	DSN string // PostgreSQL connection string
}

// New creates a new database connection and brings the schema up to date
func New(config Config) (*DB, error) {
	conn, err := Connect(config)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}

	if err := Migrate(conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Connect opens and pings a connection without running migrations. Admin
// commands (status, rollback) use this directly.
func Connect(config Config) (*sql.DB, error) {
	conn, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return conn, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// DB returns the underlying database connection for metrics collection
func (db *DB) DB() *sql.DB {
	return db.conn
}

// SaveAnalysis saves a completed analysis result. Re-analyzing the same URL
// replaces the stored row.
func (db *DB) SaveAnalysis(result *models.AnalysisResult) error {
	jsonData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	query := `
		INSERT INTO analyses (id, url, data, reliability_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT(url) DO UPDATE SET
			id = excluded.id,
			data = excluded.data,
			reliability_score = excluded.reliability_score,
			updated_at = excluded.updated_at
	`

	_, err = db.conn.Exec(
		query,
		result.ID,
		result.Article.URL,
		string(jsonData),
		result.ReliabilityScore,
		result.AnalyzedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	return nil
}

// GetAnalysisByID retrieves a stored analysis by ID. Returns nil, nil when
// no row exists.
func (db *DB) GetAnalysisByID(id string) (*models.AnalysisResult, error) {
	return db.getAnalysis("SELECT data FROM analyses WHERE id = $1", id)
}

// GetAnalysisByURL retrieves a stored analysis by article URL. Returns
// nil, nil when no row exists.
func (db *DB) GetAnalysisByURL(url string) (*models.AnalysisResult, error) {
	return db.getAnalysis("SELECT data FROM analyses WHERE url = $1", url)
}

func (db *DB) getAnalysis(query string, arg interface{}) (*models.AnalysisResult, error) {
	var jsonData string
	err := db.conn.QueryRow(query, arg).Scan(&jsonData)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(jsonData), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}

	return &result, nil
}

// DeleteAnalysisByID deletes a stored analysis by ID
func (db *DB) DeleteAnalysisByID(id string) error {
	result, err := db.conn.Exec("DELETE FROM analyses WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("no analysis found with id: %s", id)
	}

	return nil
}

// ListAnalyses returns stored analyses newest-first with pagination
func (db *DB) ListAnalyses(limit, offset int) ([]*models.AnalysisResult, error) {
	query := `
		SELECT data FROM analyses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var results []*models.AnalysisResult
	for rows.Next() {
		var jsonData string
		if err := rows.Scan(&jsonData); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		var result models.AnalysisResult
		if err := json.Unmarshal([]byte(jsonData), &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
		}

		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// CountAnalyses returns the total number of stored analyses
func (db *DB) CountAnalyses() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM analyses").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return count, nil
}

// CredibilityScore maps a registrable domain to its rating. The numeric
// column in trusted_websites encodes 0 = uncredible, 1 = mixed, 2 = credible;
// an unrated domain yields Unknown, not an error.
func (db *DB) CredibilityScore(domain string) (string, error) {
	var score int
	query := "SELECT credibility FROM trusted_websites WHERE domain = $1"
	err := db.conn.QueryRow(query, domain).Scan(&score)
	if err == sql.ErrNoRows {
		return models.BiasUnknown, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query credibility: %w", err)
	}

	switch score {
	case 0:
		return "uncredible", nil
	case 1:
		return "mixed", nil
	case 2:
		return "credible", nil
	default:
		return models.BiasUnknown, nil
	}
}

// UpsertTrustedWebsite records or updates the rating for a domain
func (db *DB) UpsertTrustedWebsite(domain string, credibility int) error {
	if credibility < 0 || credibility > 2 {
		return fmt.Errorf("credibility must be 0, 1 or 2, got %d", credibility)
	}

	query := `
		INSERT INTO trusted_websites (domain, credibility, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT(domain) DO UPDATE SET
			credibility = excluded.credibility,
			updated_at = excluded.updated_at
	`
	_, err := db.conn.Exec(query, domain, credibility, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert trusted website: %w", err)
	}
	return nil
}
