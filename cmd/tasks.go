package cmd

import (
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Background task commands",
	Long:  `List, trigger and inspect the background tasks (ingest, leaderboard) of a running vrcban server. Requires --server.`,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
