package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/prepdeck/internal/config"
	"github.com/conorfennell/prepdeck/internal/export"
	"github.com/conorfennell/prepdeck/internal/importer"
	"github.com/conorfennell/prepdeck/internal/storage"
	"github.com/conorfennell/prepdeck/internal/web"
)

const usage = `Usage: prepdeck [flags] [command]

Commands:
  serve             Run the web UI (default)
  import SOURCE     Import markdown decks from a directory or git URL
  export [FILE]     Write every question as CSV to FILE or stdout

Flags:
`

func main() {
	flags := pflag.NewFlagSet("prepdeck", pflag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	config.RegisterFlags(flags)
	flags.Parse(os.Args[1:])

	if err := run(flags); err != nil {
		slog.Error("prepdeck failed", "error", err)
		os.Exit(1)
	}
}

func run(flags *pflag.FlagSet) error {
	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := storage.Open(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Debug("Database opened", "path", cfg.DB.Path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := flags.Args()
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		return serve(ctx, cfg.Server.Addr, db)
	case "import":
		if len(args) != 1 {
			return errors.New("import needs exactly one SOURCE")
		}
		report, err := importer.New(db, cfg.Import.WorkDir).Import(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d of %d questions from %d files (%d duplicates skipped, %d errors).\n",
			report.Inserted, report.Parsed, report.Files, report.Skipped, len(report.Errors))
		for _, e := range report.Errors {
			fmt.Printf("- %s\n", e)
		}
		return nil
	case "export":
		return exportAll(ctx, db, args)
	default:
		flags.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func serve(ctx context.Context, addr string, db *storage.DB) error {
	handler, err := web.NewServer(db)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Serving web UI", "addr", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func exportAll(ctx context.Context, db *storage.DB, args []string) error {
	questions, err := db.List(ctx, storage.Filter{})
	if err != nil {
		return err
	}

	if len(args) == 0 || args[0] == "-" {
		return export.WriteCSV(os.Stdout, questions)
	}

	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[0], err)
	}
	if err := export.WriteCSV(f, questions); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", args[0], err)
	}
	slog.Info("Exported questions", "count", len(questions), "file", args[0])
	return nil
}
