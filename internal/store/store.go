// Package store persists articles, triage results and digests in a local
// SQLite database so separate CLI invocations share pipeline state. All
// writes happen on a single goroutine after any parallel work completes.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cardiobrief/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// Store represents the SQLite-backed pipeline state.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a store instance with a SQLite database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "cardiobrief.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	articlesTable := `
	CREATE TABLE IF NOT EXISTS articles (
		url TEXT PRIMARY KEY,
		id TEXT,
		title TEXT,
		abstract TEXT,
		journal TEXT,
		authors TEXT,
		doi TEXT,
		published DATETIME,
		tier INTEGER,
		date_fetched DATETIME,
		classification TEXT,
		confidence INTEGER,
		reasoning TEXT,
		angle TEXT,
		generated_content TEXT
	);`

	digestsTable := `
	CREATE TABLE IF NOT EXISTS digests (
		id TEXT PRIMARY KEY,
		subject TEXT,
		html TEXT,
		article_urls TEXT,
		date_generated DATETIME
	);`

	tables := []string{articlesTable, digestsTable}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveArticle inserts or updates an article, including any triage and
// generation fields already written onto it.
func (s *Store) SaveArticle(article *core.Article) error {
	authors, _ := json.Marshal(article.Authors)

	query := `
	INSERT OR REPLACE INTO articles
	(url, id, title, abstract, journal, authors, doi, published, tier, date_fetched,
	 classification, confidence, reasoning, angle, generated_content)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		article.URL,
		article.ID,
		article.Title,
		article.Abstract,
		article.Journal,
		string(authors),
		article.DOI,
		article.Published,
		article.Tier,
		article.DateFetched,
		article.Classification,
		article.Confidence,
		article.Reasoning,
		article.Angle,
		article.GeneratedContent,
	)

	return err
}

// HasArticle reports whether an article with this URL is already stored.
func (s *Store) HasArticle(url string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM articles WHERE url = ?`, url).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check article: %w", err)
	}
	return count > 0, nil
}

// GetArticleByURL retrieves one article, or nil when absent.
func (s *Store) GetArticleByURL(url string) (*core.Article, error) {
	row := s.db.QueryRow(selectColumns+` FROM articles WHERE url = ?`, url)
	article, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return article, err
}

// ListPending returns articles that have not been triaged yet, highest tier
// first, newest first within a tier.
func (s *Store) ListPending(limit int) ([]*core.Article, error) {
	query := selectColumns + `
	FROM articles
	WHERE classification = '' OR classification IS NULL
	ORDER BY tier ASC, published DESC`
	return s.queryArticles(query, limit)
}

// ListClassified returns articles carrying the given classification that do
// not have generated content yet.
func (s *Store) ListClassified(classification string, limit int) ([]*core.Article, error) {
	query := selectColumns + `
	FROM articles
	WHERE classification = ? AND (generated_content = '' OR generated_content IS NULL)
	ORDER BY confidence DESC, published DESC`
	return s.queryArticles(query, limit, classification)
}

// ListGenerated returns articles with non-empty generated content for the
// given classification.
func (s *Store) ListGenerated(classification string, limit int) ([]*core.Article, error) {
	query := selectColumns + `
	FROM articles
	WHERE classification = ? AND generated_content != '' AND generated_content IS NOT NULL
	ORDER BY confidence DESC, published DESC`
	return s.queryArticles(query, limit, classification)
}

// ListTriaged returns all triaged articles when retriage is requested.
func (s *Store) ListTriaged(limit int) ([]*core.Article, error) {
	query := selectColumns + `
	FROM articles
	WHERE classification != '' AND classification IS NOT NULL
	ORDER BY tier ASC, published DESC`
	return s.queryArticles(query, limit)
}

// SaveDigest stores one rendered digest.
func (s *Store) SaveDigest(digest *core.Digest) error {
	urls, _ := json.Marshal(digest.ArticleURLs)

	query := `
	INSERT OR REPLACE INTO digests (id, subject, html, article_urls, date_generated)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		digest.ID,
		digest.Subject,
		digest.HTML,
		string(urls),
		digest.DateGenerated,
	)
	return err
}

const selectColumns = `
	SELECT url, id, title, abstract, journal, authors, doi, published, tier,
	       date_fetched, classification, confidence, reasoning, angle, generated_content`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (*core.Article, error) {
	var article core.Article
	var authors string
	var published, fetched sql.NullTime

	err := row.Scan(
		&article.URL,
		&article.ID,
		&article.Title,
		&article.Abstract,
		&article.Journal,
		&authors,
		&article.DOI,
		&published,
		&article.Tier,
		&fetched,
		&article.Classification,
		&article.Confidence,
		&article.Reasoning,
		&article.Angle,
		&article.GeneratedContent,
	)
	if err != nil {
		return nil, err
	}

	if authors != "" {
		_ = json.Unmarshal([]byte(authors), &article.Authors)
	}
	if published.Valid {
		article.Published = published.Time
	}
	if fetched.Valid {
		article.DateFetched = fetched.Time
	}
	return &article, nil
}

func (s *Store) queryArticles(query string, limit int, args ...any) ([]*core.Article, error) {
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(strings.TrimSpace(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []*core.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// Stats summarizes the stored pipeline state.
type Stats struct {
	Total      int       `json:"total"`
	Pending    int       `json:"pending"`
	B2C        int       `json:"b2c"`
	B2B        int       `json:"b2b"`
	Skipped    int       `json:"skipped"`
	Generated  int       `json:"generated"`
	Digests    int       `json:"digests"`
	LastUpdate time.Time `json:"last_update"`
}

// GetStats returns counts across the pipeline stages.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	counts := map[string]*int{
		`SELECT COUNT(*) FROM articles`: &stats.Total,
		`SELECT COUNT(*) FROM articles WHERE classification = '' OR classification IS NULL`:                 &stats.Pending,
		`SELECT COUNT(*) FROM articles WHERE classification = 'B2C'`:                                        &stats.B2C,
		`SELECT COUNT(*) FROM articles WHERE classification = 'B2B'`:                                        &stats.B2B,
		`SELECT COUNT(*) FROM articles WHERE classification = 'SKIP'`:                                       &stats.Skipped,
		`SELECT COUNT(*) FROM articles WHERE generated_content != '' AND generated_content IS NOT NULL`:     &stats.Generated,
		`SELECT COUNT(*) FROM digests`: &stats.Digests,
	}

	for query, dest := range counts {
		if err := s.db.QueryRow(query).Scan(dest); err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}

	var last sql.NullTime
	if err := s.db.QueryRow(`SELECT MAX(date_fetched) FROM articles`).Scan(&last); err == nil && last.Valid {
		stats.LastUpdate = last.Time
	}

	return stats, nil
}
