package api

import (
	"net/http"

	"github.com/ShayBox/VRC-BAN/internal/api/middleware"
	"github.com/ShayBox/VRC-BAN/internal/audit"
	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/ingest"
	"github.com/ShayBox/VRC-BAN/internal/service"
	"github.com/ShayBox/VRC-BAN/internal/tasks"
)

// SessionStater reports the state of the platform session.
type SessionStater interface {
	State() core.SessionState
}

type Server struct {
	moderation   *service.Moderation
	leaderboards *service.Leaderboards
	store        core.LogStore
	taskManager  *tasks.Manager
	auditor      core.Auditor
	sessions     SessionStater
	loop         *ingest.Loop
}

type Option func(s *Server)

func WithAuditor(auditor core.Auditor) Option {
	return func(s *Server) {
		s.auditor = auditor
	}
}

// WithStatus exposes the session state and the last ingest cycle on the status route.
func WithStatus(sessions SessionStater, loop *ingest.Loop) Option {
	return func(s *Server) {
		s.sessions = sessions
		s.loop = loop
	}
}

func NewServer(
	moderation *service.Moderation,
	leaderboards *service.Leaderboards,
	store core.LogStore,
	taskManager *tasks.Manager,
	opts ...Option,
) *Server {
	s := &Server{
		moderation:   moderation,
		leaderboards: leaderboards,
		store:        store,
		taskManager:  taskManager,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.auditor == nil {
		s.auditor = audit.NewNoopAuditor()
	}
	return s
}

// Routes returns the handler of all routes. Admin routes are only served if signingKey is set.
func (s *Server) Routes(signingKey []byte) http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+AboutRoute, s.handleAbout)
	mux.HandleFunc("GET "+StatusRoute, s.handleStatus)

	mux.HandleFunc("GET "+LeaderboardRoute, s.handleLeaderboard)
	mux.HandleFunc("GET "+LogsRoute, s.handleLogs)
	mux.HandleFunc("GET "+MemberRoute, s.handleMember)

	mux.HandleFunc("GET "+ListTasksRoute, s.handleListTasks)
	mux.HandleFunc("POST "+TriggerTaskRoute, s.handleTriggerTask)
	mux.HandleFunc("GET "+LogsForTaskRoute, s.handleLogsForTask)

	// admin routes
	if len(signingKey) > 0 {
		adminMux := http.NewServeMux()
		adminMux.HandleFunc("POST "+BanMemberRoute, s.handleBan)
		adminMux.HandleFunc("POST "+UnbanMemberRoute, s.handleUnban)
		adminMux.HandleFunc("GET "+ListActionsRoute, s.handleListActions)
		adminMux.HandleFunc("GET "+RecentBansRoute, s.handleRecentBans)
		adminMux.HandleFunc("GET "+SearchUsersRoute, s.handleSearchUsers)
		mux.Handle(AdminParent, middleware.AdminAuth(signingKey)(adminMux))
	}

	return middleware.Chain(mux,
		middleware.CorrelationIDMiddleware,
		middleware.LoggingMiddleware,
		middleware.RecoverMiddleware,
	)
}
