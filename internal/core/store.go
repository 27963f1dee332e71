package core

import (
	"context"
	"time"
)

// LogStore is the durable copy of the remote audit log.
type LogStore interface {
	// Insert stores the entry unless an entry with the same ID already exists.
	// It reports whether the entry was newly inserted. Duplicates are not an error.
	Insert(ctx context.Context, entry AuditLogEntry) (bool, error)

	// ByTarget returns the entries acted upon targetID, newest first.
	ByTarget(ctx context.Context, targetID string, limit int) ([]AuditLogEntry, error)

	// ByActor returns the entries performed by actorID, newest first.
	ByActor(ctx context.Context, actorID string, limit int) ([]AuditLogEntry, error)

	// ByEvent returns the entries of eventType, newest first.
	ByEvent(ctx context.Context, eventType EventType, limit int) ([]AuditLogEntry, error)

	// Recent returns the newest entries, newest first.
	Recent(ctx context.Context, limit int) ([]AuditLogEntry, error)

	// Window returns all entries created at or after since, oldest first.
	// A zero since returns the full history.
	Window(ctx context.Context, since time.Time) ([]AuditLogEntry, error)

	Close() error
}

// SessionStore persists the token set of the session manager.
type SessionStore interface {
	// LoadSession returns the last persisted session, or a zero session if there is none.
	LoadSession() (Session, error)

	// SaveSession persists the session, replacing the previous one.
	SaveSession(sess Session) error
}
