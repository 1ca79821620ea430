package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/knolvocab/internal/config"
	"github.com/conorfennell/knolvocab/internal/domain"
	"github.com/conorfennell/knolvocab/internal/storage"
	"github.com/conorfennell/knolvocab/internal/study"
	"github.com/conorfennell/knolvocab/internal/sync"
)

const usage = `usage: knolvocab [flags] <command> [args]

commands:
  add-source <path|url.git>              register a deck directory or git repository
  sources                                list registered sources
  remove-source <id>                     forget a source (its cards stay in the log)
  sync                                   reconcile all sources into the card log
  next [exclude-card-id]                 show the card to study next
  review <card-id> <rating> [mode]       record a rating (again, hard, good, easy)
  preview <card-id>                      show the state each rating would produce
  stats                                  summarize the deck
`

func main() {
	if err := run(os.Args[1:], os.Stdout, time.Now); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, clock func() time.Time) error {
	// 1. Load configuration
	cfg, rest, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprint(out, usage)
		}
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	if len(rest) == 0 {
		fmt.Fprint(out, usage)
		return nil
	}

	// 2. Open the database
	db, err := storage.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	slog.Debug("Database opened successfully", "path", cfg.DB)

	svc := study.NewService(db, cfg.SRS.Params(), study.Settings{
		NewCardsPerDay: cfg.Scheduler.NewCardsPerDay,
		LoopMode:       cfg.Scheduler.LoopMode,
		RecentWindow:   cfg.Scheduler.RecentWindow,
	})
	now := clock()

	// 3. Dispatch the command
	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "add-source":
		if len(cmdArgs) != 1 {
			return errors.New("add-source requires exactly one path or url")
		}
		return addSource(db, cmdArgs[0], out)

	case "sources":
		sources, err := db.GetAllSources()
		if err != nil {
			return err
		}
		for _, s := range sources {
			scanned := "never"
			if t := s.LastScannedAt(); !t.IsZero() {
				scanned = t.Local().Format(time.DateTime)
			}
			fmt.Fprintf(out, "%d\t%s\t%s\tlast scanned %s\n", s.ID, s.Type, s.Path, scanned)
		}
		return nil

	case "remove-source":
		if len(cmdArgs) != 1 {
			return errors.New("remove-source requires a source id")
		}
		id, err := strconv.ParseInt(cmdArgs[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid source id %q: %w", cmdArgs[0], err)
		}
		return db.DeleteSource(id)

	case "sync":
		report, err := sync.RunSync(db, cfg.ReposDir, now, os.Stderr)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "added %d, updated %d, restored %d, deleted %d, %d errors\n",
			report.Added, report.Updated, report.Restored, report.Deleted, len(report.Errors))
		for _, e := range report.Errors {
			fmt.Fprintf(out, "- %s\n", e)
		}
		return nil

	case "next":
		var exclude string
		if len(cmdArgs) > 0 {
			exclude = cmdArgs[0]
		}
		card, ok, err := svc.Next(now, exclude)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Nothing to study right now.")
			return nil
		}
		fmt.Fprintf(out, "%s\n\n%s\n\n---\n%s\n", card.ID, card.Front, card.Back)
		return nil

	case "review":
		if len(cmdArgs) < 2 || len(cmdArgs) > 3 {
			return errors.New("review requires a card id, a rating and an optional mode")
		}
		rating, err := domain.ParseRating(cmdArgs[1])
		if err != nil {
			return err
		}
		var mode domain.Mode
		if len(cmdArgs) == 3 {
			if mode, err = domain.ParseMode(cmdArgs[2]); err != nil {
				return err
			}
		}
		state, err := svc.Review(cmdArgs[0], rating, mode, now, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "next review in %d day(s), due %s (ease %.2f)\n",
			state.IntervalDays, state.DueAt.Local().Format(time.DateTime), state.EaseFactor)
		return nil

	case "preview":
		if len(cmdArgs) != 1 {
			return errors.New("preview requires a card id")
		}
		preview, err := svc.Preview(cmdArgs[0], now)
		if err != nil {
			return err
		}
		for _, r := range []domain.Rating{domain.Again, domain.Hard, domain.Good, domain.Easy} {
			s := preview[r]
			fmt.Fprintf(out, "%-5s %4d day(s)  ease %.2f\n", r, s.IntervalDays, s.EaseFactor)
		}
		return nil

	case "stats":
		sum, err := svc.Stats(now)
		if err != nil {
			return err
		}
		today, err := svc.TodayNewCount(now)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "total %d, due %d, new %d, learning %d, mature %d, introduced today %d\n",
			sum.Total, sum.Due, sum.New, sum.Learning, sum.Mature, today)
		return nil
	}

	return fmt.Errorf("unknown command %q", cmd)
}

// addSource registers a deck source, resolving local paths to absolute ones.
func addSource(db *storage.DB, path string, out io.Writer) error {
	sourceType := sync.SourceType(path)
	if sourceType == storage.SourceLocal {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("failed to read source %s: %w", abs, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("source %s is not a directory", abs)
		}
		path = abs
	}

	existing, err := db.FindSourceByPath(path)
	if err != nil {
		return err
	}
	if existing != nil {
		fmt.Fprintf(out, "Source already registered with id %d: %s\n", existing.ID, path)
		return nil
	}

	id, err := db.InsertSource(path, sourceType)
	if err != nil {
		return err
	}
	slog.Info("Added new source", "id", id, "type", sourceType, "path", path)
	fmt.Fprintf(out, "Added source %d: %s\n", id, path)
	return nil
}
