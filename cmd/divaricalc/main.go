// Package main provides a CLI that recalculates divari standings offline,
// against the storage named by the usual DIVARI_* configuration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	app "github.com/okian/divari/internal/app"
	"github.com/okian/divari/internal/config"
	"github.com/okian/divari/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error: read .env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args, recalculates the selected seasons and reports how many.
func run(ctx context.Context, args []string, out io.Writer, opts ...app.Option) error {
	fset := flag.NewFlagSet("divaricalc", flag.ContinueOnError)
	fset.SetOutput(out)
	var (
		date   string
		season int64
	)
	fset.StringVar(&date, "date", "", "recalculate seasons containing this YYYY-MM-DD date (default: all seasons)")
	fset.Int64Var(&season, "season", 0, "recalculate a single season by id")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if date != "" && season != 0 {
		return errors.New("-date and -season are mutually exclusive")
	}

	var day *time.Time
	if date != "" {
		d, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return fmt.Errorf("invalid -date %q: %w", date, err)
		}
		day = &d
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	svc := app.New(append([]app.Option{
		app.WithLogger(logger.Named("divaricalc")),
		app.WithStorage(cfg.StorageDriver, cfg.SQLitePath, cfg.PostgresURL),
		app.WithWorkerCount(1),
		app.WithRecalcConcurrency(cfg.RecalcConcurrency),
	}, opts...)...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	if season != 0 {
		stats, err := svc.CalculateSeason(ctx, season)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "season %d: %d competitions, %d team results, %d season results\n",
			season, stats.Competitions, stats.TeamResults, stats.SeasonResults)
		return err
	}

	n, err := svc.RecalculateSeasons(ctx, day)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "recalculated %d seasons\n", n)
	return err
}
