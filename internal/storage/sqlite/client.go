package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/adgraph/backend/internal/rag"
	"github.com/adgraph/backend/internal/storage/models"
	"github.com/adgraph/backend/pkg/logger"
)

// Client is the relational side of the system: query history, answer
// sources, and user feedback. The graph stays the source of truth for
// advertising data; this database only records what was asked and answered.
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

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		session_id TEXT,
		query_text TEXT NOT NULL,
		answer TEXT,
		confidence REAL,
		confidence_level TEXT,
		source_count INTEGER,
		refused INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_client ON query_history(client_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_history_session ON query_history(session_id);

	CREATE TABLE IF NOT EXISTS query_sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		entity_type TEXT,
		entity_id TEXT,
		entity_name TEXT,
		date_range TEXT,
		FOREIGN KEY (query_id) REFERENCES query_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_sources_query ON query_sources(query_id);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		helpful INTEGER NOT NULL,
		issue_category TEXT,
		comment TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (query_id) REFERENCES query_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_query ON feedback(query_id);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// RecordQuery persists one answered or refused query with its sources.
func (c *Client) RecordQuery(ctx context.Context, clientID, sessionID string, result *rag.QueryResult) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	refused := 0
	if result.Confidence.Level == rag.ConfidenceInsufficient {
		refused = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO query_history
		(id, client_id, session_id, query_text, answer, confidence, confidence_level, source_count, refused, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.QueryID, clientID, sessionID, result.Query, result.Answer,
		result.Confidence.Overall, string(result.Confidence.Level),
		len(result.Sources), refused, result.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	for _, source := range result.Sources {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO query_sources (query_id, entity_type, entity_id, entity_name, date_range)
			VALUES (?, ?, ?, ?, ?)`,
			result.QueryID, source.EntityType, source.EntityID, source.EntityName, source.DateRange,
		)
		if err != nil {
			return fmt.Errorf("failed to insert query source: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit query record: %w", err)
	}

	logger.Debug("Query recorded", zap.String("query_id", result.QueryID))
	return nil
}

// QueryHistory returns a client's recent queries, newest first.
func (c *Client) QueryHistory(ctx context.Context, clientID string, limit int) ([]models.QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, client_id, session_id, query_text, answer, confidence, confidence_level, source_count, refused, created_at
		FROM query_history
		WHERE client_id = ?
		ORDER BY created_at DESC
		LIMIT ?`,
		clientID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var rec models.QueryRecord
		var sessionID, answer, level sql.NullString
		var confidence sql.NullFloat64
		var sourceCount sql.NullInt64
		var refused int
		var createdAt int64

		err := rows.Scan(&rec.ID, &rec.ClientID, &sessionID, &rec.QueryText, &answer,
			&confidence, &level, &sourceCount, &refused, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query record: %w", err)
		}

		rec.SessionID = sessionID.String
		rec.Answer = answer.String
		rec.Confidence = confidence.Float64
		rec.ConfidenceLevel = level.String
		rec.SourceCount = int(sourceCount.Int64)
		rec.Refused = refused != 0
		rec.CreatedAt = time.Unix(createdAt, 0).UTC()

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return records, nil
}

// QuerySources returns the sources recorded for one query.
func (c *Client) QuerySources(ctx context.Context, queryID string) ([]models.QuerySource, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, query_id, entity_type, entity_id, entity_name, date_range
		FROM query_sources
		WHERE query_id = ?
		ORDER BY id`,
		queryID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	var sources []models.QuerySource
	for rows.Next() {
		var src models.QuerySource
		var entityType, entityID, entityName, dateRange sql.NullString

		if err := rows.Scan(&src.ID, &src.QueryID, &entityType, &entityID, &entityName, &dateRange); err != nil {
			return nil, fmt.Errorf("failed to scan query source: %w", err)
		}

		src.EntityType = entityType.String
		src.EntityID = entityID.String
		src.EntityName = entityName.String
		src.DateRange = dateRange.String

		sources = append(sources, src)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sources: %w", err)
	}

	return sources, nil
}

// SaveFeedback stores user feedback on an answered query. The query must
// exist; the foreign key rejects feedback for unknown ids.
func (c *Client) SaveFeedback(ctx context.Context, fb models.Feedback) error {
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO feedback (query_id, helpful, issue_category, comment, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		fb.QueryID, fb.Helpful, fb.IssueCategory, fb.Comment, fb.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}

	logger.Debug("Feedback saved", zap.String("query_id", fb.QueryID), zap.Bool("helpful", fb.Helpful))
	return nil
}
