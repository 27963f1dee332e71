package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ShayBox/VRC-BAN/internal/logging"
)

var ingestWatch bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch new audit log records into the log store",
	Long: `Pages through the group audit log, newest first, and stores every record
that is not yet known. Paging stops at the first page that contains a known record.
With --watch, a cycle runs once per ingest.interval until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := f.Backend(ctx)
		if err != nil {
			return err
		}
		defer backend.Close()

		if err := backend.Login(ctx); err != nil {
			return logError(err, "", "could not log in")
		}

		loop := backend.Loop()
		if ingestWatch {
			log.Info().Msgf("Ingesting every %s, press Ctrl+C to stop...", loop.Interval())
			if err := loop.Run(ctx); err != nil {
				return logError(err, "", "ingest stopped")
			}
			return nil
		}

		res, err := loop.Cycle(ctx, logging.NewZLogger(log.Logger))
		if err != nil {
			return logError(err, "", "ingest failed")
		}
		logSuccess("fetched %d records in %d pages, %s new", res.Fetched, res.Pages, bold(res.Inserted))
		if res.Dropped > 0 {
			log.Warn().Msgf("dropped %d malformed records", res.Dropped)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "Keep ingesting on an interval")
}
