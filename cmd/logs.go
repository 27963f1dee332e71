package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ShayBox/VRC-BAN/internal/core"
	"github.com/ShayBox/VRC-BAN/pkg/client"
)

var (
	logsActor  string
	logsTarget string
	logsLimit  uint
	logsRaw    bool
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show stored audit log records, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if logsActor != "" && logsTarget != "" {
			return errors.New("--actor and --target are mutually exclusive")
		}

		var entries []core.AuditLogEntry
		if f.Remote() {
			cli, err := f.GetClient()
			if err != nil {
				return err
			}
			var correlation string
			entries, correlation, err = cli.Logs(cmd.Context(), client.LogsOpts{
				Actor:  logsActor,
				Target: logsTarget,
				Limit:  logsLimit,
			})
			if err != nil {
				return logError(err, correlation, "failed to get logs")
			}
		} else {
			backend, err := f.Backend(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			limit := int(logsLimit)
			switch {
			case logsActor != "":
				entries, err = backend.Store.ByActor(cmd.Context(), logsActor, limit)
			case logsTarget != "":
				entries, err = backend.Store.ByTarget(cmd.Context(), logsTarget, limit)
			default:
				entries, err = backend.Store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return logError(err, "", "failed to read log store")
			}
		}

		if logsRaw {
			spew.Fdump(os.Stdout, entries)
			return nil
		}
		printEntries(entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsActor, "actor", "", "Only show records of this actor")
	logsCmd.Flags().StringVar(&logsTarget, "target", "", "Only show records about this target")
	logsCmd.Flags().UintVarP(&logsLimit, "limit", "n", 50, "Maximum number of records")
	logsCmd.Flags().BoolVar(&logsRaw, "raw", false, "Dump the records including their payload")
}

func printEntries(entries []core.AuditLogEntry) {
	if len(entries) == 0 {
		fmt.Println(faint("no records"))
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Time", "Event", "Actor", "Target", "Description"})
	for _, e := range entries {
		actor := e.ActorID
		if e.ActorDisplayName != "" {
			actor = e.ActorDisplayName
		}
		event := string(e.EventType)
		switch e.EventType {
		case core.EventBan:
			event = redCross + " " + event
		case core.EventUnban:
			event = greenCheck + " " + event
		}
		t.AppendRow(table.Row{
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			event,
			bold(truncate(actor, 24)),
			e.TargetID,
			faint(truncate(e.Description, 60)),
		})
	}
	applyTableFormat(t)
	t.Render()
}
