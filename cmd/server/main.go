// Package main implements the entry point for the lexis server, which tracks
// learners' vocabulary progress with spaced repetition and serves it over HTTP.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/lexis/internal/config"
	"github.com/phrazzld/lexis/internal/platform/logger"
	"github.com/phrazzld/lexis/internal/platform/postgres"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		slog.Error("lexis server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// options are the command line flags.
type options struct {
	configPath string
	migrate    string
	seedPath   string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("lexis-server", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to a config file (default: ./config.yaml if present)")
	fs.StringVar(&opts.migrate, "migrate", "", "run a migration command (up, down, reset, status, version) and exit")
	fs.StringVar(&opts.seedPath, "seed", "", "load catalog words from a JSON file before serving")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func loadAppConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// run loads configuration, applies a migration command if one was given,
// and otherwise serves until ctx is canceled or a shutdown signal arrives.
func run(ctx context.Context, args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadAppConfig(opts.configPath)
	if err != nil {
		return err
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("algorithm", cfg.Engine.Algorithm),
		slog.Bool("database", cfg.Database.URL != ""))

	var db *sql.DB
	if cfg.Database.URL != "" {
		db, err = setupAppDatabase(ctx, cfg, log)
		if err != nil {
			return err
		}
	}

	if opts.migrate != "" {
		if db == nil {
			return errors.New("migrations need a database; set LEXIS_DATABASE_URL")
		}
		defer closeDB(db, log)
		return postgres.Migrate(ctx, db, opts.migrate, log)
	}

	app, err := newApplication(cfg, log, db)
	if err != nil {
		closeDB(db, log)
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if opts.seedPath != "" {
		n, err := app.seedWordsFromFile(ctx, opts.seedPath)
		if err != nil {
			app.cleanup()
			return fmt.Errorf("failed to seed words: %w", err)
		}
		log.Info("catalog words seeded", slog.Int("count", n), slog.String("path", opts.seedPath))
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}

func closeDB(db *sql.DB, log *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Error("error closing database connection", slog.String("error", err.Error()))
	}
}
