package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

// LoginResult is the outcome of a primary (username/password) login.
type LoginResult struct {
	Session core.Session

	// RequiresSecondFactor is set if the session is unusable until a TOTP code was verified.
	RequiresSecondFactor bool
}

// Authenticator performs the authentication round trips against the remote service.
type Authenticator interface {
	// Probe checks whether the session is still accepted. Returns core.ErrUnauthorized if it is not.
	Probe(ctx context.Context, sess core.Session) error

	// Login authenticates with username and password. Returns core.ErrAuthRejected for bad credentials.
	Login(ctx context.Context, creds core.Credentials, userAgent string) (LoginResult, error)

	// VerifyTOTP completes the second factor challenge and returns the second factor token.
	// Returns core.ErrSecondFactorFailed if the code was not accepted.
	VerifyTOTP(ctx context.Context, sess core.Session, code string) (string, error)
}

type Option func(m *Manager)

func WithUserAgent(userAgent string) Option {
	return func(m *Manager) {
		m.userAgent = userAgent
	}
}

// WithClock overrides the time source used for TOTP codes.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager turns credentials into a usable session and owns it for the lifetime of the process.
// The session is read concurrently through Session, but only written by Acquire and Renew.
type Manager struct {
	auth      Authenticator
	store     core.SessionStore
	creds     core.Credentials
	userAgent string
	now       func() time.Time
	logger    zerolog.Logger

	// acquireMu serializes login flows
	acquireMu sync.Mutex

	mu      sync.RWMutex
	state   core.SessionState
	session core.Session
}

func NewManager(auth Authenticator, store core.SessionStore, creds core.Credentials, opts ...Option) *Manager {
	m := &Manager{
		auth:   auth,
		store:  store,
		creds:  creds,
		now:    time.Now,
		logger: log.With().Str("component", "session").Logger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Session returns the current token set. It is zero unless the manager is authenticated.
func (m *Manager) Session() core.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

func (m *Manager) State() core.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Acquire returns a usable session. It first tries the persisted token set and falls back to a fresh login.
func (m *Manager) Acquire(ctx context.Context) (core.Session, error) {
	m.acquireMu.Lock()
	defer m.acquireMu.Unlock()

	switch m.State() {
	case core.Authenticated:
		return m.Session(), nil
	case core.Rejected:
		return core.Session{}, fmt.Errorf("refusing to retry rejected credentials: %w", core.ErrAuthRejected)
	}
	return m.acquire(ctx, true)
}

// Renew replaces stale, the session a request failed with, by a fresh login.
// If the manager already holds a different valid session, that one is returned without logging in again.
func (m *Manager) Renew(ctx context.Context, stale core.Session) (core.Session, error) {
	m.acquireMu.Lock()
	defer m.acquireMu.Unlock()

	switch m.State() {
	case core.Rejected:
		return core.Session{}, fmt.Errorf("refusing to retry rejected credentials: %w", core.ErrAuthRejected)
	case core.Authenticated:
		if cur := m.Session(); cur.AuthToken != stale.AuthToken {
			m.logger.Debug().Msg("session was already renewed")
			return cur, nil
		}
	}
	m.set(core.Unauthenticated, core.Session{})
	return m.acquire(ctx, false)
}

func (m *Manager) acquire(ctx context.Context, allowStored bool) (core.Session, error) {
	if allowStored {
		sess, ok, err := m.fromStore(ctx)
		if err != nil {
			return core.Session{}, err
		}
		if ok {
			m.set(core.Authenticated, sess)
			m.logger.Debug().Msg("reusing persisted session")
			return sess, nil
		}
	}

	m.logger.Info().Str("username", m.creds.Username).Msg("logging in")
	res, err := m.auth.Login(ctx, m.creds, m.userAgent)
	if err != nil {
		if errors.Is(err, core.ErrAuthRejected) {
			m.set(core.Rejected, core.Session{})
		}
		return core.Session{}, fmt.Errorf("logging in: %w", err)
	}
	sess := res.Session
	sess.UserAgent = m.userAgent
	m.persist(sess)

	if res.RequiresSecondFactor {
		m.set(core.AwaitingSecondFactor, core.Session{})

		token, err := m.verifySecondFactor(ctx, sess)
		if err != nil {
			m.set(core.Unauthenticated, core.Session{})
			return core.Session{}, err
		}
		sess.SecondFactorToken = token
		m.persist(sess)
	}

	m.set(core.Authenticated, sess)
	m.logger.Info().Bool("second_factor", sess.SecondFactorToken != "").Msg("session acquired")
	return sess, nil
}

// fromStore probes the persisted session. ok is false if there is none or it was not accepted anymore.
func (m *Manager) fromStore(ctx context.Context) (core.Session, bool, error) {
	stored, err := m.store.LoadSession()
	if err != nil {
		m.logger.Warn().Err(err).Msg("cannot load persisted session")
		return core.Session{}, false, nil
	}
	if stored.IsZero() {
		return core.Session{}, false, nil
	}
	if stored.UserAgent == "" {
		stored.UserAgent = m.userAgent
	}
	if stored.UserAgent != m.userAgent {
		m.logger.Info().Str("stored", stored.UserAgent).Str("current", m.userAgent).
			Msg("persisted session was obtained with another user agent")
		return core.Session{}, false, nil
	}

	if err := m.auth.Probe(ctx, stored); err != nil {
		if core.KindOf(err) == core.KindTransient {
			return core.Session{}, false, fmt.Errorf("probing persisted session: %w", err)
		}
		m.logger.Info().Err(err).Msg("persisted session is no longer valid")
		return core.Session{}, false, nil
	}
	return stored, true, nil
}

func (m *Manager) verifySecondFactor(ctx context.Context, sess core.Session) (string, error) {
	if m.creds.TOTPSecret == "" {
		return "", fmt.Errorf("%w: second factor required but no totp secret configured", core.ErrSecondFactorFailed)
	}
	now := m.now()
	code, err := GenerateCode(m.creds.TOTPSecret, now)
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrSecondFactorFailed, err)
	}

	m.logger.Debug().Dur("valid_for", CodeValidFor(now)).Msg("verifying totp code")
	token, err := m.auth.VerifyTOTP(ctx, sess, code)
	if err != nil {
		return "", fmt.Errorf("verifying second factor: %w", err)
	}
	return token, nil
}

// persist saves the session. Failing to do so only costs a login after the next restart.
func (m *Manager) persist(sess core.Session) {
	if err := m.store.SaveSession(sess); err != nil {
		m.logger.Warn().Err(err).Msg("session acquired but could not be persisted")
	}
}

func (m *Manager) set(state core.SessionState, sess core.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.session = sess
}
