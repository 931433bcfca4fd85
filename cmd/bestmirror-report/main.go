// Command bestmirror-report ranks the mirrors once and writes a markdown report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MrSnakeDoc/bestmirror/internal/app"
	"github.com/MrSnakeDoc/bestmirror/internal/config"
	"github.com/MrSnakeDoc/bestmirror/internal/logger"
	"github.com/MrSnakeDoc/bestmirror/internal/report"
)

func main() {
	cfg := config.Load()

	out := flag.String("out", "index.md", "markdown report path")
	jsonOut := flag.String("json", "", "optional JSON ranking path")
	flag.IntVar(&cfg.ProbeCount, "count", cfg.ProbeCount, "probes per mirror")
	flag.IntVar(&cfg.ProbeMaxFailures, "max-failures", cfg.ProbeMaxFailures, "failures tolerated before a mirror is skipped")
	flag.DurationVar(&cfg.ProbeTimeout, "timeout", cfg.ProbeTimeout, "timeout of a single probe")
	flag.Parse()

	lg := app.NewLogger(cfg)
	err := run(cfg, lg, *out, *jsonOut)
	if err != nil {
		lg.Error("❌ report failed", logger.Error(err))
	}
	_ = lg.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg logger.Logger, out, jsonOut string) error {
	params := cfg.ProbeParams()
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid probe flags: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rk, err := app.NewRanker(cfg, lg, nil)
	if err != nil {
		return fmt.Errorf("failed to create ranker: %w", err)
	}
	defer rk.Close()

	source := app.NewSource(cfg)
	candidates, err := source.Candidates(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch candidates from %s: %w", source.Name(), err)
	}

	ranking, _ := rk.Rank(ctx, candidates, params)
	if err := ctx.Err(); err != nil {
		return errors.Join(errors.New("interrupted before the ranking completed"), err)
	}

	if err := report.WriteFile(out, []byte(report.Markdown(ranking))); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if jsonOut != "" {
		if err := report.WriteFile(jsonOut, report.JSON(ranking)); err != nil {
			return fmt.Errorf("failed to write ranking: %w", err)
		}
	}

	lg.Info("report written",
		logger.String("path", out),
		logger.Int("ranked", len(ranking)),
		logger.Int("candidates", len(candidates)))
	return nil
}
