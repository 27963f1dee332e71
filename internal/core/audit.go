package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the remote identifier of a group audit log event.
type EventType string

const (
	EventBan     EventType = "group.user.ban"
	EventUnban   EventType = "group.user.unban"
	EventKick    EventType = "group.instance.kick"
	EventWarning EventType = "group.instance.warn"
)

// Tracked reports whether the event type takes part in leaderboard aggregation.
func (e EventType) Tracked() bool {
	switch e {
	case EventBan, EventUnban, EventKick, EventWarning:
		return true
	}
	return false
}

// AuditLogEntry is one moderation-relevant action in the group, as assigned by the remote service.
// Entries are immutable once ingested.
type AuditLogEntry struct {
	// ID is globally unique and assigned by the remote service.
	ID string `json:"id"`

	// CreatedAt is the time the action happened.
	CreatedAt time.Time `json:"created_at"`

	// GroupID is the group the action happened in.
	GroupID string `json:"group_id"`

	// ActorID identifies who performed the action.
	ActorID string `json:"actor_id"`

	// ActorDisplayName is the actor's display name at the time of the action, if known.
	ActorDisplayName string `json:"actor_display_name,omitempty"`

	// TargetID identifies who was acted upon. Empty if the event has no target.
	TargetID string `json:"target_id,omitempty"`

	EventType   EventType `json:"event_type"`
	Description string    `json:"description"`

	// Data is the opaque structured payload of the event.
	Data json.RawMessage `json:"data,omitempty"`
}

// AuditLogRecord is an audit log entry as sent over the wire.
// Every field is optional there, Entry enforces the required ones.
type AuditLogRecord struct {
	ID               *string         `json:"id"`
	CreatedAt        *time.Time      `json:"created_at"`
	GroupID          *string         `json:"groupId"`
	ActorID          *string         `json:"actorId"`
	ActorDisplayName *string         `json:"actorDisplayName"`
	TargetID         *string         `json:"targetId"`
	EventType        *string         `json:"eventType"`
	Description      *string         `json:"description"`
	Data             json.RawMessage `json:"data"`
}

// Entry converts the record into an AuditLogEntry.
// It fails with ErrMalformedRecord if a required field is absent.
func (r AuditLogRecord) Entry() (AuditLogEntry, error) {
	missing := func(field string) (AuditLogEntry, error) {
		id := "(unknown)"
		if r.ID != nil {
			id = *r.ID
		}
		return AuditLogEntry{}, fmt.Errorf("%w: record %s has no %s", ErrMalformedRecord, id, field)
	}
	switch {
	case r.ID == nil || *r.ID == "":
		return missing("id")
	case r.CreatedAt == nil || r.CreatedAt.IsZero():
		return missing("created_at")
	case r.GroupID == nil:
		return missing("groupId")
	case r.ActorID == nil || *r.ActorID == "":
		return missing("actorId")
	case r.EventType == nil || *r.EventType == "":
		return missing("eventType")
	}

	entry := AuditLogEntry{
		ID:        *r.ID,
		CreatedAt: r.CreatedAt.UTC(),
		GroupID:   *r.GroupID,
		ActorID:   *r.ActorID,
		EventType: EventType(*r.EventType),
		Data:      r.Data,
	}
	if r.ActorDisplayName != nil {
		entry.ActorDisplayName = *r.ActorDisplayName
	}
	if r.TargetID != nil {
		entry.TargetID = *r.TargetID
	}
	if r.Description != nil {
		entry.Description = *r.Description
	}
	return entry, nil
}

// AuditLogPage is one page of the remote audit log.
type AuditLogPage struct {
	Records    []AuditLogRecord `json:"results"`
	TotalCount int              `json:"totalCount"`
	HasNext    bool             `json:"hasNext"`
}

// OperatorAction records a moderation action issued through this system (not ingested from remote).
type OperatorAction struct {
	// ID is a locally generated unique identifier.
	ID string `json:"id"`

	Time time.Time `json:"time"`

	// Action describing what happened (e.g. "member.ban", "member.unban")
	Action string `json:"action"`

	// Operator identifies who requested the action (CLI user or API token subject).
	Operator string `json:"operator"`

	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Auditor records operator actions.
type Auditor interface {
	Log(action OperatorAction) error
	GetRecent(limit int) ([]OperatorAction, error)
	Find(filter func(action OperatorAction) bool, limit int) ([]OperatorAction, error)
	Close() error
}
