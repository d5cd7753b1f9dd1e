// Package mysql provides the MySQL cycle store.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/deepagent/selfloop-go/pkg/storage"
)

const defaultTable = "improvement_cycles"

// Config contains configuration for the MySQL cycle store.
type Config struct {
	// DSN is the go-sql-driver connection string, e.g.
	// "user:pass@tcp(localhost:3306)/selfloop?parseTime=true". parseTime
	// must be enabled so timestamps scan into time.Time.
	DSN string

	// Table is the table name. Defaults to "improvement_cycles".
	Table string
}

// Client implements storage.CycleStore on MySQL.
type Client struct {
	db    *sql.DB
	table string
}

// NewClient connects to MySQL and ensures the cycle table exists.
func NewClient(cfg *Config) (*Client, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("mysql: ping: %w", err)
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
			id BIGINT PRIMARY KEY,
			agent_id VARCHAR(64) NOT NULL,
			updated BOOLEAN NOT NULL,
			priority VARCHAR(16),
			reason TEXT,
			timestamp DATETIME(6) NOT NULL,
			payload JSON,
			INDEX idx_agent (agent_id, timestamp)
		)
	`, c.table)
	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("mysql: init table: %w", err)
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
		return fmt.Errorf("mysql: save cycle: %w", err)
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
		return nil, fmt.Errorf("mysql: recent cycles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*storage.CycleRecord
	for rows.Next() {
		var rec storage.CycleRecord
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.AgentID, &rec.Updated, &rec.Priority,
			&rec.Reason, &rec.Timestamp, &payload); err != nil {
			return nil, fmt.Errorf("mysql: scan cycle: %w", err)
		}
		rec.Payload = payload
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql: recent cycles: %w", err)
	}
	return records, nil
}

// CountCycles returns the number of stored records.
func (c *Client) CountCycles(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table)
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("mysql: count cycles: %w", err)
	}
	return count, nil
}

// PruneCycles deletes all but the newest keep records. MySQL cannot delete
// from a table referenced in a subquery, so the cutoff id is read first.
func (c *Client) PruneCycles(ctx context.Context, keep int) (int64, error) {
	var cutoff sql.NullInt64
	cutoffQuery := fmt.Sprintf(`
		SELECT MIN(id) FROM (
			SELECT id FROM %s ORDER BY id DESC LIMIT ?
		) AS newest
	`, c.table)
	if err := c.db.QueryRowContext(ctx, cutoffQuery, keep).Scan(&cutoff); err != nil {
		return 0, fmt.Errorf("mysql: prune cycles: %w", err)
	}
	if !cutoff.Valid {
		return 0, nil
	}

	res, err := c.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id < ?", c.table), cutoff.Int64)
	if err != nil {
		return 0, fmt.Errorf("mysql: prune cycles: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mysql: prune cycles: %w", err)
	}
	return deleted, nil
}

// Close closes the database handle.
func (c *Client) Close() error {
	return c.db.Close()
}
