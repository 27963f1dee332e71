package client

import (
	"context"
	"fmt"

	"github.com/ShayBox/VRC-BAN/internal/api"
	"github.com/ShayBox/VRC-BAN/internal/tasks"
)

func (c *Client) ListTasks(ctx context.Context) ([]tasks.TaskStatus, error) {
	var res []tasks.TaskStatus
	_, err := c.get(ctx, c.url().setPath(api.ListTasksRoute).build(), &res)
	return res, err
}

// TriggerTask starts a run of the task. It fails with a 409 APIError if a run is in progress.
func (c *Client) TriggerTask(ctx context.Context, name string) error {
	var res api.TriggerTaskResponse
	_, err := c.post(ctx, c.url().
		setPath(api.TriggerTaskRoute).
		setPathParam("name", name).
		build(), nil, &res)
	if err != nil {
		return err
	}
	if res.Status != "triggered" {
		return fmt.Errorf("unexpected response status: %s", res.Status)
	}
	return nil
}

// GetTaskLogs retrieves the retained log lines of a task. A run > 0 selects the lines of that run only.
func (c *Client) GetTaskLogs(ctx context.Context, name string, run int) ([]tasks.LogEntry, error) {
	ub := c.url().
		setPath(api.LogsForTaskRoute).
		setPathParam("name", name)
	if run > 0 {
		ub = ub.addQueryParam("run", run)
	}
	var res []tasks.LogEntry
	_, err := c.get(ctx, ub.build(), &res)
	return res, err
}
