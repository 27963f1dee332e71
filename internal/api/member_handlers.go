package api

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ShayBox/VRC-BAN/internal/api/middleware"
	"github.com/ShayBox/VRC-BAN/internal/api/presenter"
	"github.com/ShayBox/VRC-BAN/internal/core"
)

const defaultActionLimit = 50

// handleMember responds with the ban status of a user.
func (s *Server) handleMember(w http.ResponseWriter, r *http.Request) {
	status, err := s.moderation.Member(r.Context(), r.PathValue("id"))
	if err != nil {
		presenter.Err(w, r, err, "fetching member")
		return
	}
	presenter.JSON(w, r, status, http.StatusOK)
}

type ModerationResponse struct {
	Status string `json:"status"`
	UserID string `json:"user_id"`
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if err := s.moderation.Ban(r.Context(), middleware.Subject(r.Context()), userID); err != nil {
		presenter.Err(w, r, err, "ban failed")
		return
	}
	s.leaderboards.Invalidate()
	presenter.JSON(w, r, ModerationResponse{Status: "banned", UserID: userID}, http.StatusOK)
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if err := s.moderation.Unban(r.Context(), middleware.Subject(r.Context()), userID); err != nil {
		presenter.Err(w, r, err, "unban failed")
		return
	}
	s.leaderboards.Invalidate()
	presenter.JSON(w, r, ModerationResponse{Status: "unbanned", UserID: userID}, http.StatusOK)
}

// handleListActions responds with the recorded operator actions, optionally filtered by user or operator.
func (s *Server) handleListActions(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	limit, ok := parseLimit(r, defaultActionLimit, maxLogLimit)
	if !ok {
		presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	filterUser := q.Get("user_id")
	filterOperator := q.Get("operator")

	var (
		actions []core.OperatorAction
		err     error
	)
	if filterUser != "" || filterOperator != "" {
		logger.Debug().Msg("applying operator action filters")
		actions, err = s.auditor.Find(func(action core.OperatorAction) bool {
			if filterUser != "" && action.UserID != filterUser {
				return false
			}
			if filterOperator != "" && action.Operator != filterOperator {
				return false
			}
			return true
		}, limit)
	} else {
		actions, err = s.auditor.GetRecent(limit)
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to retrieve operator actions")
		presenter.Error(w, r, "failed to retrieve operator actions", http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, actions, http.StatusOK)
}

// handleRecentBans responds with the most recently banned users.
func (s *Server) handleRecentBans(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, 0, maxLogLimit)
	if !ok {
		presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
		return
	}
	bans, err := s.moderation.RecentBans(r.Context(), limit)
	if err != nil {
		presenter.Err(w, r, err, "reading recent bans")
		return
	}
	presenter.JSON(w, r, bans, http.StatusOK)
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, 0, maxLogLimit)
	if !ok {
		presenter.Error(w, r, "invalid limit parameter", http.StatusBadRequest)
		return
	}
	users, err := s.moderation.SearchUsers(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		presenter.Err(w, r, err, "searching users")
		return
	}
	presenter.JSON(w, r, users, http.StatusOK)
}
