package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/ragplus/backend/internal/models"
	"github.com/ragplus/backend/pkg/logger"
)

// Client owns the tabular corpus and the query history tables.
type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("sqlite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metric_points (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		metric TEXT NOT NULL,
		segment TEXT NOT NULL,
		value REAL NOT NULL,
		UNIQUE(date, metric, segment)
	);
	CREATE INDEX IF NOT EXISTS idx_points_metric ON metric_points(metric);
	CREATE INDEX IF NOT EXISTS idx_points_segment ON metric_points(segment);
	CREATE INDEX IF NOT EXISTS idx_points_date ON metric_points(date);

	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		query_text TEXT NOT NULL,
		intent TEXT,
		answer TEXT,
		confidence_level TEXT,
		overall_confidence REAL,
		evidence_count INTEGER,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_created ON query_history(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("sqlite schema initialized")
	return nil
}

func (c *Client) InsertPoints(points []models.MetricPoint) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO metric_points (date, metric, segment, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, metric, segment) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err := stmt.Exec(p.Date, p.Metric, p.Segment, p.Value); err != nil {
			return fmt.Errorf("failed to insert point: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit points: %w", err)
	}

	logger.Info("metric points inserted", zap.Int("count", len(points)))
	return nil
}

func (c *Client) CountPoints() (int, error) {
	var count int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM metric_points`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return count, nil
}

// Series returns the points for a metric ordered by date. An empty segment
// matches every segment; from/to bound the date range when non-zero.
func (c *Client) Series(metric, segment string, from, to time.Time) ([]models.MetricPoint, error) {
	query := `SELECT date, metric, segment, value FROM metric_points WHERE metric = ?`
	args := []any{metric}

	if segment != "" {
		query += ` AND segment = ?`
		args = append(args, segment)
	}
	if !from.IsZero() {
		query += ` AND date >= ?`
		args = append(args, from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		query += ` AND date <= ?`
		args = append(args, to.Format("2006-01-02"))
	}
	query += ` ORDER BY date ASC, segment ASC`

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	var points []models.MetricPoint
	for rows.Next() {
		var p models.MetricPoint
		if err := rows.Scan(&p.Date, &p.Metric, &p.Segment, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (c *Client) Metrics() ([]string, error) {
	return c.distinct(`SELECT DISTINCT metric FROM metric_points ORDER BY metric`)
}

func (c *Client) Segments(metric string) ([]string, error) {
	rows, err := c.db.Query(`SELECT DISTINCT segment FROM metric_points WHERE metric = ? ORDER BY segment`, metric)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// LatestDate returns the most recent date present in the corpus. Time
// windows resolve relative to this date so a fixed corpus always yields
// the same ranges.
func (c *Client) LatestDate() (time.Time, error) {
	var date sql.NullString
	if err := c.db.QueryRow(`SELECT MAX(date) FROM metric_points`).Scan(&date); err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest date: %w", err)
	}
	if !date.Valid {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", date.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date in corpus: %w", err)
	}
	return t, nil
}

func (c *Client) InsertQueryRecord(record *models.QueryRecord) error {
	query := `
		INSERT INTO query_history (id, query_text, intent, answer, confidence_level,
			overall_confidence, evidence_count, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		record.ID,
		record.QueryText,
		record.Intent,
		record.Answer,
		string(record.ConfidenceLevel),
		record.Overall,
		record.EvidenceCount,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	logger.Debug("query recorded",
		zap.String("query_id", record.ID),
		zap.String("confidence", string(record.ConfidenceLevel)))

	return nil
}

func (c *Client) GetQueryHistory(limit int) ([]models.QueryRecord, error) {
	query := `
		SELECT id, query_text, intent, answer, confidence_level,
			overall_confidence, evidence_count, latency_ms, created_at
		FROM query_history
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		var level string
		var createdAt int64

		err := rows.Scan(&r.ID, &r.QueryText, &r.Intent, &r.Answer, &level,
			&r.Overall, &r.EvidenceCount, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		r.ConfidenceLevel = models.ConfidenceLevel(level)
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (c *Client) distinct(query string) ([]string, error) {
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
