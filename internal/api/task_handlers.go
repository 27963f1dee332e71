package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ShayBox/VRC-BAN/internal/api/presenter"
	"github.com/ShayBox/VRC-BAN/internal/tasks"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	presenter.JSON(w, r, s.taskManager.ListStatus(), http.StatusOK)
}

type TriggerTaskResponse struct {
	Status string `json:"status"`
}

func taskErrorStatus(err error) int {
	var notFound tasks.TaskNotFoundError
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.Is(err, tasks.ErrAlreadyRunning):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// handleTriggerTask starts a task in the background, e.g. an ingestion cycle.
func (s *Server) handleTriggerTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.taskManager.Trigger(name); err != nil {
		presenter.Error(w, r, err.Error(), taskErrorStatus(err))
		return
	}
	presenter.JSON(w, r, TriggerTaskResponse{Status: "triggered"}, http.StatusAccepted)
}

// handleLogsForTask responds with the retained log lines of a task.
// With ?run=N only the lines of that run are returned.
func (s *Server) handleLogsForTask(w http.ResponseWriter, r *http.Request) {
	run := 0
	if v := r.URL.Query().Get("run"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			presenter.Error(w, r, "run must be a positive number", http.StatusBadRequest)
			return
		}
		run = n
	}

	logs, err := s.taskManager.GetLogs(r.PathValue("name"))
	if err != nil {
		presenter.Error(w, r, err.Error(), taskErrorStatus(err))
		return
	}
	if run > 0 {
		filtered := logs[:0]
		for _, entry := range logs {
			if entry.Run == run {
				filtered = append(filtered, entry)
			}
		}
		logs = filtered
	}
	if logs == nil {
		logs = []tasks.LogEntry{}
	}
	presenter.JSON(w, r, logs, http.StatusOK)
}
