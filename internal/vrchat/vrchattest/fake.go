// Package vrchattest provides an in-memory stand-in for the remote platform API.
package vrchattest

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/session"
	"github.com/ShayBox/VRC-BAN/internal/vrchat"
)

var (
	_ core.Remote           = (*Fake)(nil)
	_ session.Authenticator = (*Fake)(nil)
)

// Fake serves a group audit log from memory and mimics the authentication flow.
// The zero value is not usable, use New.
type Fake struct {
	mu sync.Mutex

	groupID string

	// records are kept newest first, as the remote service returns them
	records []core.AuditLogRecord
	members map[string]*core.Member
	users   map[string]core.User

	password   string
	totpSecret string
	now        func() time.Time

	tokens   map[string]bool
	sessions vrchat.SessionSource

	pageRequests int
	logins       int
	auditErrs    []error
	banErrs      []error
}

type Option func(f *Fake)

// WithLogin makes the fake accept exactly these credentials.
// If totpSecret is set, a second factor is required.
func WithLogin(password, totpSecret string) Option {
	return func(f *Fake) {
		f.password = password
		f.totpSecret = totpSecret
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Fake) {
		f.now = now
	}
}

// WithSessions enforces that API calls carry a session issued by the fake.
func WithSessions(src vrchat.SessionSource) Option {
	return func(f *Fake) {
		f.sessions = src
	}
}

func New(groupID string, opts ...Option) *Fake {
	f := &Fake{
		groupID: groupID,
		members: make(map[string]*core.Member),
		users:   make(map[string]core.User),
		tokens:  make(map[string]bool),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetSessions binds the fake to a session source after construction.
func (f *Fake) SetSessions(src vrchat.SessionSource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = src
}

// Entry builds a well formed audit log record with a random id.
func (f *Fake) Entry(createdAt time.Time, eventType core.EventType, actorID, targetID string) core.AuditLogRecord {
	id := "gaud_" + uuid.NewString()
	groupID := f.groupID
	kind := string(eventType)
	desc := fmt.Sprintf("%s %s %s", actorID, eventType, targetID)
	created := createdAt.UTC()
	rec := core.AuditLogRecord{
		ID:          &id,
		CreatedAt:   &created,
		GroupID:     &groupID,
		ActorID:     &actorID,
		EventType:   &kind,
		Description: &desc,
		Data:        json.RawMessage(`{}`),
	}
	if targetID != "" {
		rec.TargetID = &targetID
	}
	return rec
}

// Publish adds records to the head of the log. Records are given oldest first.
func (f *Fake) Publish(records ...core.AuditLogRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range records {
		f.records = slices.Insert(f.records, 0, rec)
	}
}

// PageRequests returns the number of audit log pages served so far.
func (f *Fake) PageRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pageRequests
}

func (f *Fake) ResetPageRequests() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageRequests = 0
}

func (f *Fake) Logins() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

// FailAuditLogs makes the next audit log requests fail with errs, in order.
func (f *Fake) FailAuditLogs(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auditErrs = append(f.auditErrs, errs...)
}

// FailBans makes the next ban or unban requests fail with errs, in order.
func (f *Fake) FailBans(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banErrs = append(f.banErrs, errs...)
}

// ExpireSessions invalidates every issued session.
func (f *Fake) ExpireSessions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.tokens)
}

func (f *Fake) AddUser(user core.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	if _, ok := f.members[user.ID]; !ok {
		f.members[user.ID] = &core.Member{UserID: user.ID}
	}
}

// Banned reports whether the fake considers userID banned.
func (f *Fake) Banned(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	return ok && m.Banned()
}

func (f *Fake) Probe(_ context.Context, sess core.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tokens[sess.AuthToken] {
		return core.ErrUnauthorized
	}
	if f.totpSecret != "" && !f.tokens[sess.SecondFactorToken] {
		return core.ErrUnauthorized
	}
	return nil
}

func (f *Fake) Login(_ context.Context, creds core.Credentials, userAgent string) (session.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if creds.Password != f.password {
		return session.LoginResult{}, core.ErrAuthRejected
	}
	token := "authcookie_" + uuid.NewString()
	f.tokens[token] = true
	return session.LoginResult{
		Session:              core.Session{AuthToken: token, UserAgent: userAgent},
		RequiresSecondFactor: f.totpSecret != "",
	}, nil
}

func (f *Fake) VerifyTOTP(_ context.Context, sess core.Session, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.tokens[sess.AuthToken] {
		return "", core.ErrSecondFactorFailed
	}
	want, err := session.GenerateCode(f.totpSecret, f.now())
	if err != nil || code != want {
		return "", core.ErrSecondFactorFailed
	}
	token := "2fa_" + uuid.NewString()
	f.tokens[token] = true
	return token, nil
}

// authorized must be called with f.mu held.
func (f *Fake) authorized() error {
	if f.sessions == nil {
		return nil
	}
	if !f.tokens[f.sessions.Session().AuthToken] {
		return fmt.Errorf("fake: %w", core.ErrUnauthorized)
	}
	return nil
}

func (f *Fake) AuditLogs(ctx context.Context, groupID string, offset, limit int) (core.AuditLogPage, error) {
	if err := ctx.Err(); err != nil {
		return core.AuditLogPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pageRequests++
	if len(f.auditErrs) > 0 {
		err := f.auditErrs[0]
		f.auditErrs = f.auditErrs[1:]
		return core.AuditLogPage{}, err
	}
	if err := f.authorized(); err != nil {
		return core.AuditLogPage{}, err
	}
	if groupID != f.groupID {
		return core.AuditLogPage{}, fmt.Errorf("fake: group %s: %w", groupID, core.ErrNotFound)
	}

	total := len(f.records)
	start := min(offset, total)
	end := min(offset+limit, total)
	return core.AuditLogPage{
		Records:    slices.Clone(f.records[start:end]),
		TotalCount: total,
		HasNext:    end < total,
	}, nil
}

func (f *Fake) Member(_ context.Context, groupID, userID string) (*core.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.authorized(); err != nil {
		return nil, err
	}
	m, ok := f.members[userID]
	if !ok || groupID != f.groupID {
		return nil, fmt.Errorf("fake: member %s: %w", userID, core.ErrNotFound)
	}
	cpy := *m
	return &cpy, nil
}

func (f *Fake) nextBanErr() error {
	if len(f.banErrs) == 0 {
		return nil
	}
	err := f.banErrs[0]
	f.banErrs = f.banErrs[1:]
	return err
}

func (f *Fake) Ban(_ context.Context, _ string, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextBanErr(); err != nil {
		return err
	}
	if err := f.authorized(); err != nil {
		return err
	}
	m, ok := f.members[userID]
	if !ok {
		m = &core.Member{UserID: userID}
		f.members[userID] = m
	}
	if m.BannedAt == nil {
		at := f.now().UTC()
		m.BannedAt = &at
	}
	return nil
}

func (f *Fake) Unban(_ context.Context, _ string, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.nextBanErr(); err != nil {
		return err
	}
	if err := f.authorized(); err != nil {
		return err
	}
	if m, ok := f.members[userID]; ok {
		m.BannedAt = nil
	}
	return nil
}

func (f *Fake) User(_ context.Context, userID string) (*core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.authorized(); err != nil {
		return nil, err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("fake: user %s: %w", userID, core.ErrNotFound)
	}
	return &u, nil
}

func (f *Fake) SearchUsers(_ context.Context, query string, limit int) ([]core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.authorized(); err != nil {
		return nil, err
	}
	var res []core.User
	for _, u := range f.users {
		if strings.Contains(strings.ToLower(u.DisplayName), strings.ToLower(query)) {
			res = append(res, u)
		}
	}
	slices.SortFunc(res, func(a, b core.User) int {
		return strings.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}
