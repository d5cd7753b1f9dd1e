// Package sqlite provides the SQLite cycle store.
//
// SQLite is file-based and needs no server, which makes it the default
// backend for local development and single-process deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deepagent/selfloop-go/pkg/storage"
)

const defaultTable = "improvement_cycles"

// Config contains configuration for the SQLite cycle store.
type Config struct {
	// DBPath is the path to the SQLite database file. Parent directories
	// are created as needed.
	DBPath string

	// Table is the table name. Defaults to "improvement_cycles".
	Table string
}

// Client implements storage.CycleStore on SQLite.
type Client struct {
	db    *sql.DB
	table string
}

// NewClient opens (or creates) the database at cfg.DBPath and ensures the
// cycle table exists.
func NewClient(cfg *Config) (*Client, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = defaultTable
	}
	c := &Client{db: db, table: table}
	if err := c.initTable(context.Background()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) initTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			agent_id TEXT NOT NULL,
			updated INTEGER NOT NULL,
			priority TEXT,
			reason TEXT,
			timestamp DATETIME NOT NULL,
			payload TEXT
		)
	`, c.table)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("sqlite: init table: %w", err)
	}

	indexQuery := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_%s_agent ON %s(agent_id, timestamp)
	`, c.table, c.table)
	if _, err := c.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("sqlite: init index: %w", err)
	}
	return nil
}

// SaveCycle appends one record.
func (c *Client) SaveCycle(ctx context.Context, rec *storage.CycleRecord) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, agent_id, updated, priority, reason, timestamp, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.table)
	_, err := c.db.ExecContext(ctx, query,
		rec.ID, rec.AgentID, rec.Updated, rec.Priority, rec.Reason,
		rec.Timestamp, string(rec.Payload))
	if err != nil {
		return fmt.Errorf("sqlite: save cycle: %w", err)
	}
	return nil
}

// RecentCycles returns up to limit records, newest first.
func (c *Client) RecentCycles(ctx context.Context, limit int) ([]*storage.CycleRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, agent_id, updated, priority, reason, timestamp, payload
		FROM %s ORDER BY id DESC LIMIT ?
	`, c.table)
	rows, err := c.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent cycles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.CycleRecord
	for rows.Next() {
		var rec storage.CycleRecord
		var payload string
		if err := rows.Scan(&rec.ID, &rec.AgentID, &rec.Updated, &rec.Priority,
			&rec.Reason, &rec.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("sqlite: scan cycle: %w", err)
		}
		rec.Payload = []byte(payload)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: recent cycles: %w", err)
	}
	return records, nil
}

// CountCycles returns the number of stored records.
func (c *Client) CountCycles(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table)
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: count cycles: %w", err)
	}
	return count, nil
}

// PruneCycles deletes all but the newest keep records.
func (c *Client) PruneCycles(ctx context.Context, keep int) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %s WHERE id NOT IN (
			SELECT id FROM %s ORDER BY id DESC LIMIT ?
		)
	`, c.table, c.table)
	res, err := c.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune cycles: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune cycles: %w", err)
	}
	return deleted, nil
}

// Close closes the database handle.
func (c *Client) Close() error {
	return c.db.Close()
}
