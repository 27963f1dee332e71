package api

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/ShayBox/VRC-BAN/internal/api/presenter"
	"github.com/ShayBox/VRC-BAN/internal/buildinfo"
	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/ingest"
	"github.com/ShayBox/VRC-BAN/internal/service"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 1000
)

// handleHealth responds with a simple OK status to indicate the server is healthy.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAbout responds with service information including version and commit hash.
func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, buildinfo.GetBuildInfo(), http.StatusOK)
}

type StatusResponse struct {
	Session   string              `json:"session,omitempty"`
	LastCycle *ingest.CycleStatus `json:"last_cycle,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var resp StatusResponse
	if s.sessions != nil {
		resp.Session = s.sessions.State().String()
	}
	if s.loop != nil {
		if last := s.loop.LastCycle(); !last.Finished.IsZero() {
			resp.LastCycle = &last
		}
	}
	presenter.JSON(w, r, resp, http.StatusOK)
}

// handleLeaderboard responds with the leaderboard of the requested source.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	source, err := service.ParseSource(r.URL.Query().Get("source"))
	if err != nil {
		presenter.Err(w, r, err, "invalid source")
		return
	}
	board, err := s.leaderboards.Get(r.Context(), source)
	if err != nil {
		presenter.Err(w, r, err, "computing leaderboard")
		return
	}
	presenter.JSON(w, r, board, http.StatusOK)
}

func parseLimit(r *http.Request, def, max int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		log.Ctx(r.Context()).Warn().Str("limit", raw).Msg("invalid limit parameter")
		return 0, false
	}
	return min(limit, max), true
}

// handleLogs responds with stored audit log entries, newest first, filtered by actor or target.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.store == nil {
		presenter.Error(w, r, "no log store configured", http.StatusServiceUnavailable)
		return
	}

	limit, ok := parseLimit(r, defaultLogLimit, maxLogLimit)
	if !ok {
		presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	actor, target := q.Get("actor"), q.Get("target")

	var (
		entries []core.AuditLogEntry
		err     error
	)
	switch {
	case actor != "" && target != "":
		presenter.Error(w, r, "actor and target are mutually exclusive", http.StatusBadRequest)
		return
	case actor != "":
		entries, err = s.store.ByActor(ctx, actor, limit)
	case target != "":
		entries, err = s.store.ByTarget(ctx, target, limit)
	default:
		entries, err = s.store.Recent(ctx, limit)
	}
	if err != nil {
		presenter.Err(w, r, err, "reading logs")
		return
	}
	presenter.JSON(w, r, entries, http.StatusOK)
}
