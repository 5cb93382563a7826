package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/opentracing/opentracing-go"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"github.com/customeros/mailtriage/config"
	"github.com/customeros/mailtriage/internal/database"
	"github.com/customeros/mailtriage/internal/repository"
	"github.com/customeros/mailtriage/internal/tracing"
	"github.com/customeros/mailtriage/server"
)

func main() {
	app := &cli.App{
		Name:  "mailtriage",
		Usage: "ingest, classify and review email",
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Start the HTTP API and scheduled jobs",
				Action: runServer,
			},
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: runMigrate,
			},
			{
				Name:   "fetch",
				Usage:  "Fetch unseen messages from the configured IMAP mailbox once",
				Action: runFetch,
			},
			{
				Name:   "process",
				Usage:  "Run one triage round and write the report",
				Action: runProcess,
			},
			{
				Name:   "review",
				Usage:  "Retag emails awaiting review interactively",
				Action: runReview,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func openStore() (*config.Config, *gorm.DB, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("config initialization failed: %w", err)
	}

	db, err := database.InitTriageDatabase(cfg.DatabaseConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("database initialization failed: %w", err)
	}

	if err := repository.Migrate(db); err != nil {
		database.Close(db)
		return nil, nil, err
	}
	return cfg, db, nil
}

// withServer runs fn against a fully wired server without starting HTTP,
// inside a span named after the command.
func withServer(operation string, fn func(ctx context.Context, srv *server.Server) error) error {
	cfg, db, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close(db)

	srv, err := server.NewServer(cfg, db)
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	span, ctx := opentracing.StartSpanFromContext(ctx, operation)
	defer span.Finish()
	tracing.TagComponentCli(span)
	srv.Logger().Infof("%s started, trace id %s", operation, tracing.GetTraceId(span))

	err = fn(ctx, srv)
	tracing.TraceErr(span, err)
	return err
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runServer(_ *cli.Context) error {
	cfg, db, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close(db)

	srv, err := server.NewServer(cfg, db)
	if err != nil {
		return fmt.Errorf("server setup failed: %w", err)
	}
	return srv.Run()
}

func runMigrate(_ *cli.Context) error {
	_, db, err := openStore()
	if err != nil {
		return err
	}
	defer database.Close(db)

	log.Println("Database migration completed successfully")
	return nil
}

func runFetch(_ *cli.Context) error {
	return withServer("cli.fetch", func(ctx context.Context, srv *server.Server) error {
		result, err := srv.Services().IMAPService.Fetch(ctx)
		if result != nil {
			printJSON(result)
		}
		return err
	})
}

func runProcess(_ *cli.Context) error {
	return withServer("cli.process", func(ctx context.Context, srv *server.Server) error {
		result, err := srv.Services().TriageService.RunRound(ctx)
		if result != nil {
			printJSON(result)
		}
		return err
	})
}

func runReview(_ *cli.Context) error {
	return withServer("cli.review", func(ctx context.Context, srv *server.Server) error {
		updated, err := srv.Services().ReviewService.RunConsole(ctx, os.Stdin, os.Stdout)
		fmt.Printf("%d email(s) updated.\n", updated)
		return err
	})
}
