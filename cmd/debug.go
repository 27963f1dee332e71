package cmd

import "github.com/spf13/cobra"

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Debugging commands",
	Long:  `Commands for debugging vrcban installations, admin tokens and the second factor`,
}

func init() {
	rootCmd.AddCommand(debugCmd)
}
