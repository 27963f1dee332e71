package core

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func ptr[T any](v T) *T {
	return &v
}

func TestAuditLogRecord_Entry(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	full := AuditLogRecord{
		ID:               ptr("gaud_1"),
		CreatedAt:        &created,
		GroupID:          ptr("grp_1"),
		ActorID:          ptr("usr_a"),
		ActorDisplayName: ptr("Alice"),
		TargetID:         ptr("usr_t"),
		EventType:        ptr(string(EventBan)),
		Description:      ptr("Alice banned T"),
	}

	tests := []struct {
		name    string
		mutate  func(r *AuditLogRecord)
		wantErr bool
	}{
		{name: "Complete", mutate: func(r *AuditLogRecord) {}},
		{name: "No Target", mutate: func(r *AuditLogRecord) { r.TargetID = nil }},
		{name: "No Description", mutate: func(r *AuditLogRecord) { r.Description = nil }},
		{name: "Missing ID", mutate: func(r *AuditLogRecord) { r.ID = nil }, wantErr: true},
		{name: "Missing CreatedAt", mutate: func(r *AuditLogRecord) { r.CreatedAt = nil }, wantErr: true},
		{name: "Missing Actor", mutate: func(r *AuditLogRecord) { r.ActorID = ptr("") }, wantErr: true},
		{name: "Missing EventType", mutate: func(r *AuditLogRecord) { r.EventType = nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := full
			tt.mutate(&rec)

			got, err := rec.Entry()
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedRecord) {
					t.Fatalf("Entry() error = %v, want ErrMalformedRecord", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Entry() unexpected error: %v", err)
			}
			if got.ID != "gaud_1" || got.ActorID != "usr_a" || got.EventType != EventBan {
				t.Errorf("Entry() = %+v", got)
			}
			if got.CreatedAt.Location() != time.UTC || !got.CreatedAt.Equal(created) {
				t.Errorf("Entry() created_at = %v, want %v in UTC", got.CreatedAt, created)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindUnknown},
		{errors.New("boom"), KindUnknown},
		{fmt.Errorf("login: %w", ErrAuthRejected), KindAuthRejected},
		{fmt.Errorf("verify: %w", ErrSecondFactorFailed), KindSecondFactorFailed},
		{fmt.Errorf("fetching page: %w", ErrUnauthorized), KindUnauthorized},
		{&TransientError{Op: "GET /auditLogs", Err: errors.New("i/o timeout")}, KindTransient},
		{fmt.Errorf("page 2: %w", &TransientError{Op: "GET", Err: errors.New("reset")}), KindTransient},
		{fmt.Errorf("%w: disk full", ErrStoreWrite), KindStoreWrite},
		{fmt.Errorf("%w: no id", ErrMalformedRecord), KindMalformedRecord},
		{ErrNotFound, KindNotFound},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
