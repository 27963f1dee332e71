package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ShayBox/VRC-BAN/internal/api"
	"github.com/ShayBox/VRC-BAN/internal/buildinfo"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about the vrcban installation or server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !f.Remote() {
			return infoLocally(cmd, args)
		}
		return infoRemote(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func infoRemote(cmd *cobra.Command, _ []string) error {
	cli, err := f.GetClient()
	if err != nil {
		return err
	}
	log.Info().Msg("Fetching build info from server...")
	info, correlation, err := cli.Info(cmd.Context())
	if err != nil {
		return logError(err, correlation, "failed to get info from server")
	}
	printInfo(info)

	status, correlation, err := cli.Status(cmd.Context())
	if err != nil {
		return logError(err, correlation, "failed to get status from server")
	}
	printStatus(status)
	return nil
}

func infoLocally(_ *cobra.Command, _ []string) error {
	log.Info().Msg("Showing local build info...")
	info := buildinfo.GetBuildInfo()
	printInfo(&info)
	return nil
}

func printInfo(info *buildinfo.Info) {
	fmt.Println(bold("\n── VRC-BAN Build Information ──"))
	fmt.Printf("  %s:    %s\n", faint("Version"), info.Version)
	fmt.Printf("  %s:     %s\n", faint("Commit"), info.CommitHash)
	if info.GoVersion != "" {
		fmt.Printf("  %s:         %s\n", faint("Go"), info.GoVersion)
	}
}

func printStatus(status *api.StatusResponse) {
	fmt.Println(bold("\n── Server Status ──"))
	session := status.Session
	if session == "" {
		session = "n/a"
	}
	fmt.Printf("  %s:    %s\n", faint("Session"), session)
	if status.LastCycle == nil {
		fmt.Printf("  %s: %s\n", faint("Last ingest"), "never")
		return
	}
	c := status.LastCycle
	result := greenCheck
	if c.Error != "" {
		result = redCross + " " + c.Error
	}
	fmt.Printf("  %s: %s %s\n", faint("Last ingest"), c.Finished.Local().Format("2006-01-02 15:04:05"), result)
	fmt.Printf("  %s:      %d pages, %d fetched, %d new, %d dropped\n",
		faint("Pages"), c.Result.Pages, c.Result.Fetched, c.Result.Inserted, c.Result.Dropped)
}
