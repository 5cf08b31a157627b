package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jask/rtic/internal/config"
	"github.com/jask/rtic/internal/database"
	"github.com/jask/rtic/internal/database/repository"
	"github.com/jask/rtic/internal/logging"
	"github.com/jask/rtic/internal/server"
	"github.com/jask/rtic/internal/service"
)

func main() {
	reset := flag.Bool("reset", false, "delete all users and mail, then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.Console("info", "rticd")
		bootLogger.Fatal().Err(err).Msg("config")
	}
	logger := logging.Console(cfg.Log.Level, "rticd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, *reset, logger)
	stop()
	if err != nil {
		logger.Fatal().Err(err).Msg("rticd")
	}
}

// run serves until ctx is cancelled. Resources it opens are released before it
// returns.
func run(ctx context.Context, cfg config.Config, reset bool, logger zerolog.Logger) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0o755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	db, err := database.OpenMigrated(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if reset {
		if err := (&service.MaintenanceService{DB: db}).Reset(ctx); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		logger.Info().Str("db", cfg.Server.DBPath).Msg("database reset")
		return nil
	}
	if cfg.Server.SeedDemo {
		if err := database.SeedDemo(ctx, db); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	srv := server.New(cfg.Server.Addr, server.Deps{
		Accounts:       &service.AccountService{Users: repository.NewUserRepo(db)},
		Mailbox:        &service.MailboxService{Emails: repository.NewEmailRepo(db)},
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Str("db", cfg.Server.DBPath).Msg("listening")
		errCh <- srv.Listen()
	}()

	var listenErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			listenErr = fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	return listenErr
}
