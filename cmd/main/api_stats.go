package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const statsSchema = `
CREATE TABLE IF NOT EXISTS page_stats (
    page          TEXT PRIMARY KEY,
    total_hits    INTEGER NOT NULL DEFAULT 1,
    error_hits    INTEGER NOT NULL DEFAULT 0,
    last_status   INTEGER NOT NULL,
    first_seen    DATETIME NOT NULL,
    last_seen     DATETIME NOT NULL
);
`

// PageStats is one row of page_stats.
type PageStats struct {
	Page       string    `json:"page"`
	TotalHits  int64     `json:"total_hits"`
	ErrorHits  int64     `json:"error_hits"`
	LastStatus int       `json:"last_status"`
	FirstSeen  time.Time `json:"first_seen"`
	LastSeen   time.Time `json:"last_seen"`
}

// GlobalStatsSummary provides a high-level overview of all collected stats.
type GlobalStatsSummary struct {
	TotalRequests int64 `json:"total_requests"`
	UniquePages   int64 `json:"unique_pages"`
	ErrorRequests int64 `json:"error_requests"`
}

// StatsAPI records page hits and serves the statistics handlers.
type StatsAPI struct {
	db     *sql.DB
	logger *slog.Logger
}

func setupStatsSchema(db *sql.DB) error {
	_, err := db.Exec(statsSchema)
	return err
}

func NewStatsAPI(db *sql.DB, logger *slog.Logger) *StatsAPI {
	return &StatsAPI{
		db:     db,
		logger: logger,
	}
}

func (s *StatsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/stats/summary", requireScope(scopeStatsRead, scopeStatsRead, s.handleSummary))
	mux.HandleFunc("/api/stats/top_pages", requireScope(scopeStatsRead, scopeStatsRead, s.handleTopPages))
}

// RecordHit counts one request for page, answered with status. Any status
// of 400 or above also counts as an error hit.
func (s *StatsAPI) RecordHit(ctx context.Context, page string, status int) error {
	now := time.Now()
	errHit := 0
	if status >= http.StatusBadRequest {
		errHit = 1
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO page_stats (page, error_hits, last_status, first_seen, last_seen) VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(page) DO UPDATE SET total_hits = total_hits + 1, error_hits = error_hits + ?, last_status = ?, last_seen = ?
    `, page, errHit, status, now, now, errHit, status, now)
	if err != nil {
		return fmt.Errorf("failed to upsert page_stats: %w", err)
	}
	return nil
}

func (s *StatsAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var summary GlobalStatsSummary
	err := s.db.QueryRowContext(r.Context(),
		"SELECT COALESCE(SUM(total_hits), 0), COUNT(*), COALESCE(SUM(error_hits), 0) FROM page_stats",
	).Scan(&summary.TotalRequests, &summary.UniquePages, &summary.ErrorRequests)
	if err != nil {
		s.logger.Error("Failed to query stats summary", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (s *StatsAPI) handleTopPages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	rows, err := s.db.QueryContext(r.Context(), "SELECT page, total_hits, error_hits, last_status, first_seen, last_seen FROM page_stats ORDER BY total_hits DESC, page LIMIT 100")
	if err != nil {
		s.logger.Error("Failed to query top pages", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	results := []PageStats{}
	for rows.Next() {
		var p PageStats
		if err = rows.Scan(&p.Page, &p.TotalHits, &p.ErrorHits, &p.LastStatus, &p.FirstSeen, &p.LastSeen); err != nil {
			s.logger.Error("Failed to scan top pages", "error", err)
			continue
		}
		results = append(results, p)
	}
	respondWithJSON(w, http.StatusOK, results)
}
