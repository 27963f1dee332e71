package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ShayBox/VRC-BAN/internal/api"
	"github.com/ShayBox/VRC-BAN/internal/logging"
	"github.com/ShayBox/VRC-BAN/internal/service"
	"github.com/ShayBox/VRC-BAN/internal/tasks"
)

const (
	ingestTaskName      = "ingest"
	leaderboardTaskName = "leaderboard"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the vrcban server",
	Long: `Logs in, keeps the log store in sync with the group audit log
and serves the leaderboard, the stored logs and the moderation routes over HTTP.
Admin routes are only served if api.signing_key is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := f.Backend(ctx)
		if err != nil {
			return err
		}
		defer backend.Close()

		addr := backend.Config.API.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		log.Info().Msg("Logging in...")
		if err := backend.Login(ctx); err != nil {
			return err
		}

		loop := backend.Loop()
		boards, err := backend.Leaderboards(-1)
		if err != nil {
			return fmt.Errorf("building leaderboard: %w", err)
		}

		taskManager := tasks.NewManager()
		taskManager.Register(ingestTaskName, 0, func(ctx context.Context, logger logging.InternalLogger) error {
			res, err := loop.Cycle(ctx, logger)
			if err != nil {
				return err
			}
			logger.Info("fetched %d records in %d pages, %d new", res.Fetched, res.Pages, res.Inserted)
			boards.Invalidate()
			return nil
		})
		if ttl := backend.Config.Leaderboard.CacheTTL; ttl > 0 {
			taskManager.Register(leaderboardTaskName, ttl, func(ctx context.Context, logger logging.InternalLogger) error {
				board, err := boards.Refresh(ctx, service.SourceStore)
				if err != nil {
					return err
				}
				logger.Info("ranked %d moderators", len(board.Entries))
				return nil
			})
		}

		srv := api.NewServer(backend.Moderation(), boards, backend.Store, taskManager,
			api.WithAuditor(backend.Auditor),
			api.WithStatus(backend.Sessions, loop))

		signingKey := []byte(backend.Config.API.SigningKey)
		if len(signingKey) == 0 {
			log.Warn().Msg("api.signing_key is not set, admin routes are disabled")
		}
		server := &http.Server{
			Addr:              addr,
			Handler:           srv.Routes(signingKey),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := loop.Run(gctx); err != nil {
				return fmt.Errorf("ingest loop: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			taskManager.Start(gctx)
			<-gctx.Done()
			taskManager.Wait()
			return nil
		})
		g.Go(func() error {
			log.Info().Msgf("Starting server on %s...", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server crashed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			log.Info().Msg("Shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server forced to shutdown: %w", err)
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Address to listen on (overrides api.addr)")
}
