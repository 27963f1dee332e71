package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/internal/service"
)

var (
	leaderboardSource string
	leaderboardLimit  int
)

var leaderboardCmd = &cobra.Command{
	Use:     "leaderboard",
	Aliases: []string{"lb", "top"},
	Short:   "Rank the group's moderators by their moderation actions",
	Long: `Shows bans, kicks and warnings per moderator, over the full history and the recent window.
Bans that were later undone by the same moderator are not counted.

The source is either "store" (the local log store) or "remote" (the audit log fetched from VRChat).
Without --server, the default is "remote" if the log store is in memory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if f.Remote() {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			board, correlation, err := cli.Leaderboard(cmd.Context(), leaderboardSource)
			if err != nil {
				return logError(err, correlation, "failed to get leaderboard")
			}
			printLeaderboard(board)
			return nil
		}

		backend, err := f.Backend(cmd.Context())
		if err != nil {
			return err
		}
		defer backend.Close()

		if err := backend.Login(cmd.Context()); err != nil {
			return logError(err, "", "could not log in")
		}

		source := service.Source(leaderboardSource)
		if source == "" && backend.Config.Store.Type == "memory" {
			source = service.SourceRemote
		}
		if source, err = service.ParseSource(string(source)); err != nil {
			return err
		}

		boards, err := backend.Leaderboards(0)
		if err != nil {
			return err
		}
		log.Debug().Msgf("Computing leaderboard from %s...", source)
		board, err := boards.Get(cmd.Context(), source)
		if err != nil {
			return logError(err, "", "failed to compute leaderboard")
		}
		printLeaderboard(&board)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(leaderboardCmd)

	leaderboardCmd.Flags().StringVarP(&leaderboardSource, "source", "s", "", "Source of the audit log (store, remote)")
	leaderboardCmd.Flags().IntVarP(&leaderboardLimit, "limit", "n", 0, "Only show the first N moderators")
}

func counts(c core.ActionCounts) table.Row {
	return table.Row{c.Bans, c.Kicks, c.Warnings}
}

func printLeaderboard(board *core.Leaderboard) {
	if len(board.Entries) == 0 {
		log.Info().Msg("No moderation actions found.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	window := board.Window.String()
	t.AppendHeader(table.Row{"#", "Moderator", "Bans", "Kicks", "Warns", "Bans", "Kicks", "Warns", "Total", "%"}, table.RowConfig{AutoMerge: true})
	t.AppendHeader(table.Row{"", "", "All", "All", "All", window, window, window, "", ""}, table.RowConfig{AutoMerge: true})

	entries := board.Entries
	if leaderboardLimit > 0 && len(entries) > leaderboardLimit {
		entries = entries[:leaderboardLimit]
	}
	for _, e := range entries {
		name := e.DisplayName
		if name == "" {
			name = e.ActorID
		}
		row := table.Row{e.Rank, bold(truncate(name, 32))}
		row = append(row, counts(e.All)...)
		row = append(row, counts(e.Recent)...)
		row = append(row, e.Total, fmt.Sprintf("%.1f", e.Percent))
		t.AppendRow(row)
	}

	footer := table.Row{"", faint("total")}
	footer = append(footer, counts(board.All)...)
	footer = append(footer, counts(board.Recent)...)
	footer = append(footer, board.Total, "")
	t.AppendFooter(footer)

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 10, Align: text.AlignRight},
	})

	applyTableFormat(t)
	t.Render()
	fmt.Println(faint(fmt.Sprintf("generated %s, percent policy %s",
		board.GeneratedAt.Local().Format("2006-01-02 15:04:05"), board.Policy)))
}
