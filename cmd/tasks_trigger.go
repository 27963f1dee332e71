package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ShayBox/VRC-BAN/internal/tasks"
	"github.com/ShayBox/VRC-BAN/pkg/client"
)

var tasksTriggerFollow bool

var tasksTriggerCmd = &cobra.Command{
	Use:   "trigger NAME",
	Short: "Manually trigger a background task",
	Long: `Triggers a task of the server, e.g. "ingest" to fetch new audit log records right away.
With --follow, waits for the run to finish and prints its result.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if name == "" {
			return fmt.Errorf("task name cannot be empty")
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		before, err := taskStatus(cmd, cli, name)
		if err != nil {
			return logError(err, "", "failed to get task status")
		}

		log.Debug().Msgf("Triggering task '%s'...", name)
		if err := cli.TriggerTask(cmd.Context(), name); err != nil {
			return logError(err, "", "failed to trigger task")
		}
		logSuccess("triggered task '%s'", bold(name))

		if !tasksTriggerFollow {
			log.Info().Msgf("Run '%s' to see progress.", color.CyanString("vrcban tasks logs "+name))
			return nil
		}

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-ticker.C:
			}
			status, err := taskStatus(cmd, cli, name)
			if err != nil {
				return logError(err, "", "failed to get task status")
			}
			if status.Running || status.Runs == before.Runs {
				continue
			}
			if status.LastResult != "success" {
				log.Error().Msgf("%s task '%s' failed: %s", redCross, name, status.LastResult)
				return BeQuietError{}
			}
			logSuccess("task '%s' finished", bold(name))
			return nil
		}
	},
}

func taskStatus(cmd *cobra.Command, cli *client.Client, name string) (tasks.TaskStatus, error) {
	list, err := cli.ListTasks(cmd.Context())
	if err != nil {
		return tasks.TaskStatus{}, err
	}
	for _, status := range list {
		if status.Name == name {
			return status, nil
		}
	}
	return tasks.TaskStatus{}, tasks.TaskNotFoundError{Name: name}
}

func init() {
	tasksCmd.AddCommand(tasksTriggerCmd)

	tasksTriggerCmd.Flags().BoolVarP(&tasksTriggerFollow, "follow", "f", false, "Wait for the run to finish")
}
