package vrchat

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ShayBox/VRC-BAN/internal/buildinfo"
	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/session"
)

const DefaultBaseURL = "https://api.vrchat.cloud/api/1"

const (
	authCookie         = "auth"
	secondFactorCookie = "twoFactorAuth"
)

// SessionSource provides the session used for authenticated calls.
type SessionSource interface {
	Session() core.Session
}

var (
	_ core.Remote           = (*Client)(nil)
	_ session.Authenticator = (*Client)(nil)
)

// Client is the HTTP implementation of core.Remote and session.Authenticator.
// Errors are classified (see core.KindOf) and never retried here.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	sessions   SessionSource
	logger     zerolog.Logger
}

type Option func(c *Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

func WithSessions(src SessionSource) Option {
	return func(c *Client) {
		c.sessions = src
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  DefaultUserAgent(),
		logger:     log.With().Str("component", "vrchat").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind returns a copy of the client that authenticates with the sessions of src.
// The copy shares the HTTP transport with c.
func (c *Client) Bind(src SessionSource) *Client {
	cpy := *c
	cpy.sessions = src
	return &cpy
}

func (c *Client) UserAgent() string {
	return c.userAgent
}

// DefaultUserAgent identifies this tool towards the platform, as requested by its API terms.
func DefaultUserAgent() string {
	return "vrcban/" + buildinfo.Version + " (" + buildinfo.GetBuildInfo().About + ")"
}

func (c *Client) currentSession() core.Session {
	if c.sessions == nil {
		return core.Session{}
	}
	return c.sessions.Session()
}
