package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var tasksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the background tasks of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving tasks...")
		tasks, err := cli.ListTasks(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Name", "State", "Every", "Runs", "Last Run", "Next Run", "Last Result"})

		for _, task := range tasks {
			state := "idle"
			if task.Running {
				state = color.BlueString("running")
			}

			every := faint("on demand")
			if task.Interval > 0 {
				every = task.Interval.String()
			}

			lastRun := "never"
			if !task.LastRun.IsZero() {
				lastRun = fmt.Sprintf("%s ago %s", time.Since(task.LastRun).Round(time.Second),
					faint("("+task.LastDuration.Round(time.Millisecond).String()+")"))
			}

			nextRun := "n/a"
			if !task.NextRun.IsZero() {
				nextRun = "in " + time.Until(task.NextRun).Round(time.Second).String()
			}

			result := task.LastResult
			switch {
			case result == "success":
				result = greenCheck + " " + result
			case result != "":
				result = redCross + " " + truncate(result, 60)
			}

			t.AppendRow(table.Row{bold(task.Name), state, every, task.Runs, lastRun, nextRun, result})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
}
