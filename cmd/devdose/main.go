package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/coding-vasu/devdose-sub000/internal/app"
	"github.com/coding-vasu/devdose-sub000/internal/checkpoint"
	"github.com/coding-vasu/devdose-sub000/internal/config"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
	"github.com/coding-vasu/devdose-sub000/internal/usecase"
)

var stageCommands = map[string]checkpoint.Stage{
	"discover": checkpoint.StageDiscovery,
	"extract":  checkpoint.StageExtraction,
	"process":  checkpoint.StageProcessing,
	"score":    checkpoint.StageScoring,
	"enrich":   checkpoint.StageEnrichment,
	"publish":  checkpoint.StagePublishing,
}

func main() {
	_ = godotenv.Load()

	global := flag.NewFlagSet("devdose", flag.ExitOnError)
	configPath := global.String("config", "", "YAML config path (overrides DEVDOSE_CONFIG)")
	_ = global.Parse(os.Args[1:])
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	if *configPath != "" {
		_ = os.Setenv("DEVDOSE_CONFIG", *configPath)
	}

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)
	err := dispatch(ctx, application, args[0], args[1:])
	if cerr := application.Close(); cerr != nil {
		logger.Warn("close resources", "error", cerr)
	}
	if err != nil {
		logger.Error("command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, a *app.Application, cmd string, args []string) error {
	if stage, ok := stageCommands[cmd]; ok {
		sum, err := a.RunStage(ctx, stage)
		if err != nil {
			return err
		}
		fmt.Println(sum.Message())
		return nil
	}

	switch cmd {
	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		from := fs.String("from", string(checkpoint.StageDiscovery), "stage to resume from")
		_ = fs.Parse(args)

		stage, err := checkpoint.ParseStage(*from)
		if err != nil {
			return err
		}
		sum, err := a.RunFrom(ctx, stage)
		if err != nil {
			return err
		}
		fmt.Println(sum.Message())
		return nil

	case "verify":
		fs := flag.NewFlagSet("verify", flag.ExitOnError)
		limit := fs.Int("limit", 0, "maximum posts to check (0 = all)")
		pageSize := fs.Int("page-size", 20, "posts per store page")
		dryRun := fs.Bool("dry-run", false, "report changes without writing")
		category := fs.String("category", "", "only verify this category")
		_ = fs.Parse(args)

		report, err := a.Verify(ctx, usecase.VerifyOptions{
			PageSize: *pageSize,
			Limit:    *limit,
			DryRun:   *dryRun,
			Filter:   ports.PostFilter{Category: *category},
		})
		if err != nil {
			return err
		}
		fmt.Printf("verified %d posts: %d changed, %d failed\n", report.Checked, report.Changed, report.Failed)
		return nil

	case "schedule":
		return a.Schedule(ctx)

	case "migrate":
		if err := a.Migrate(ctx); err != nil {
			return err
		}
		fmt.Println("schema up to date")
		return nil

	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: devdose [-config path] <command> [flags]

commands:
  run [-from stage]     run the whole pipeline (or resume at a stage)
  discover              search the code host and merge curated sources
  extract               pull snippets from discovered sources
  process               rewrite snippets into posts with the language model
  score                 validate and score processed posts
  enrich                add tags, reading time, prerequisites and related posts
  publish               upsert enriched posts into the store
  verify [flags]        re-check published posts and apply corrections
  schedule              run the pipeline on the configured interval
  migrate               create the database schema`)
}
