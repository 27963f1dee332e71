package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ShayBox/VRC-BAN/internal/tasks"
)

var (
	tasksLogsTail  int
	tasksLogsLevel string
	tasksLogsRun   int
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

var tasksLogsCmd = &cobra.Command{
	Use:   "logs NAME",
	Short: "See the logs of a background task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if name == "" {
			return fmt.Errorf("task name cannot be empty")
		}
		minLevel, ok := levelRank[tasksLogsLevel]
		if !ok {
			return fmt.Errorf("unknown level %q", tasksLogsLevel)
		}

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Retrieving logs for task '%s'...", name)
		logs, err := cli.GetTaskLogs(cmd.Context(), name, tasksLogsRun)
		if err != nil {
			return logError(err, "", "failed to retrieve task logs")
		}

		var shown []tasks.LogEntry
		for _, entry := range logs {
			if levelRank[entry.Level] >= minLevel {
				shown = append(shown, entry)
			}
		}
		if tasksLogsTail > 0 && len(shown) > tasksLogsTail {
			shown = shown[len(shown)-tasksLogsTail:]
		}

		log.Info().Msgf("Logs for task '%s' (%d of %d):", bold(name), len(shown), len(logs))
		fmt.Println("----------------------------------------")
		printTaskLogs(shown)
		return nil
	},
}

func printTaskLogs(logs []tasks.LogEntry) {
	for _, entry := range logs {
		level := entry.Level
		switch entry.Level {
		case "info":
			level = color.GreenString("inf")
		case "warn":
			level = color.YellowString("wrn")
		case "error":
			level = color.RedString("err")
		case "debug":
			level = faint("dbg")
		}
		fmt.Printf("%s | %s | %s | %s\n", entry.Time.Local().Format("15:04:05"), faint(fmt.Sprintf("#%d", entry.Run)), level, entry.Message)
	}
}

func init() {
	tasksCmd.AddCommand(tasksLogsCmd)

	tasksLogsCmd.Flags().IntVarP(&tasksLogsTail, "tail", "n", 0, "Only show the last N lines")
	tasksLogsCmd.Flags().IntVar(&tasksLogsRun, "run", 0, "Only show the lines of this run")
	tasksLogsCmd.Flags().StringVar(&tasksLogsLevel, "level", "debug", "Minimum level (debug, info, warn, error)")
}
