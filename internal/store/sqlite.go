package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

var _ core.LogStore = (*SQLite)(nil)

// SQLiteConfig is decoded from the inline store configuration.
type SQLiteConfig struct {
	// Path of the database file. ":memory:" keeps the database in memory.
	Path string `mapstructure:"path"`
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	group_id TEXT NOT NULL,
	actor_id TEXT NOT NULL,
	actor_display_name TEXT NOT NULL DEFAULT '',
	target_id TEXT NOT NULL DEFAULT '',
	event_type TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	data TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at, id);
CREATE INDEX IF NOT EXISTS idx_audit_logs_actor ON audit_logs(actor_id, created_at);
CREATE INDEX IF NOT EXISTS idx_audit_logs_target ON audit_logs(target_id, created_at);
CREATE INDEX IF NOT EXISTS idx_audit_logs_event ON audit_logs(event_type, created_at);
`

const (
	insertAuditLog = `INSERT OR IGNORE INTO audit_logs ` +
		`(id, created_at, group_id, actor_id, actor_display_name, target_id, event_type, description, data) ` +
		`VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectAuditLogs = `SELECT id, created_at, group_id, actor_id, actor_display_name, target_id, event_type, description, data ` +
		`FROM audit_logs`
)

// SQLite is a LogStore backed by a single SQLite database file.
// created_at is stored as unix nanoseconds.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store requires a path")
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite has a single writer, and an in-memory database is private to its connection
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Insert(ctx context.Context, entry core.AuditLogEntry) (bool, error) {
	var data sql.NullString
	if len(entry.Data) > 0 {
		data = sql.NullString{String: string(entry.Data), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, insertAuditLog,
		entry.ID,
		entry.CreatedAt.UnixNano(),
		entry.GroupID,
		entry.ActorID,
		entry.ActorDisplayName,
		entry.TargetID,
		string(entry.EventType),
		entry.Description,
		data,
	)
	if err != nil {
		return false, fmt.Errorf("%w: inserting %s: %w", core.ErrStoreWrite, entry.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: inserting %s: %w", core.ErrStoreWrite, entry.ID, err)
	}
	return n == 1, nil
}

func (s *SQLite) ByTarget(ctx context.Context, targetID string, limit int) ([]core.AuditLogEntry, error) {
	return s.query(ctx, selectAuditLogs+` WHERE target_id = ? ORDER BY created_at DESC, id DESC`+limitClause(limit), targetID)
}

func (s *SQLite) ByActor(ctx context.Context, actorID string, limit int) ([]core.AuditLogEntry, error) {
	return s.query(ctx, selectAuditLogs+` WHERE actor_id = ? ORDER BY created_at DESC, id DESC`+limitClause(limit), actorID)
}

func (s *SQLite) ByEvent(ctx context.Context, eventType core.EventType, limit int) ([]core.AuditLogEntry, error) {
	return s.query(ctx, selectAuditLogs+` WHERE event_type = ? ORDER BY created_at DESC, id DESC`+limitClause(limit), string(eventType))
}

func (s *SQLite) Recent(ctx context.Context, limit int) ([]core.AuditLogEntry, error) {
	return s.query(ctx, selectAuditLogs+` ORDER BY created_at DESC, id DESC`+limitClause(limit))
}

func (s *SQLite) Window(ctx context.Context, since time.Time) ([]core.AuditLogEntry, error) {
	if since.IsZero() {
		return s.query(ctx, selectAuditLogs+` ORDER BY created_at ASC, id ASC`)
	}
	return s.query(ctx, selectAuditLogs+` WHERE created_at >= ? ORDER BY created_at ASC, id ASC`, since.UnixNano())
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

func (s *SQLite) query(ctx context.Context, query string, args ...any) ([]core.AuditLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	res := make([]core.AuditLogEntry, 0)
	for rows.Next() {
		var (
			e         core.AuditLogEntry
			createdAt int64
			eventType string
			data      sql.NullString
		)
		if err := rows.Scan(
			&e.ID,
			&createdAt,
			&e.GroupID,
			&e.ActorID,
			&e.ActorDisplayName,
			&e.TargetID,
			&eventType,
			&e.Description,
			&data,
		); err != nil {
			return nil, fmt.Errorf("scanning audit log: %w", err)
		}
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		e.EventType = core.EventType(eventType)
		if data.Valid {
			e.Data = json.RawMessage(data.String)
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit logs: %w", err)
	}
	return res, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
