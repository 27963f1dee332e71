package core

import "context"

// Remote is the typed façade over the platform API used by ingestion and moderation.
// Implementations surface transport and authorization failures as typed errors and never retry.
type Remote interface {
	// AuditLogs fetches one page of the group's audit log, newest first.
	AuditLogs(ctx context.Context, groupID string, offset, limit int) (AuditLogPage, error)

	// Member fetches the membership (and ban status) of a user. Returns ErrNotFound if there is none.
	Member(ctx context.Context, groupID, userID string) (*Member, error)

	// Ban bans the user from the group. Banning an already banned user is not an error.
	Ban(ctx context.Context, groupID, userID string) error

	// Unban lifts the user's ban. Unbanning a user who is not banned is not an error.
	Unban(ctx context.Context, groupID, userID string) error

	// User fetches a user profile.
	User(ctx context.Context, userID string) (*User, error)

	// SearchUsers searches user profiles by display name.
	SearchUsers(ctx context.Context, query string, limit int) ([]User, error)
}

// AuditLogSource is the part of Remote needed for ingestion.
type AuditLogSource interface {
	AuditLogs(ctx context.Context, groupID string, offset, limit int) (AuditLogPage, error)
}
