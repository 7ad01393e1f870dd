package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/leadscope/lead-qualifier/internal/app"
	"github.com/leadscope/lead-qualifier/internal/config"
	"github.com/leadscope/lead-qualifier/internal/util"
	"github.com/leadscope/lead-qualifier/internal/version"
)

func main() {
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "version", "--version":
		fmt.Println(version.Current)
		return
	case "qualify":
		os.Exit(runQualify(ctx, os.Args[2:], false))
	case "review":
		os.Exit(runQualify(ctx, os.Args[2:], true))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runQualify(ctx context.Context, args []string, review bool) int {
	name := "qualify"
	if review {
		name = "review"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var (
		inputPath   string
		outputPath  string
		configPath  string
		incremental bool
		verbose     bool
	)
	fs.StringVar(&inputPath, "input", "", "Input lead file (.csv or .jsonl)")
	fs.StringVar(&outputPath, "output", "", "Output record file (.csv or .jsonl)")
	fs.StringVar(&configPath, "config", "", "Optional YAML config file (env: QUALIFIER_CONFIG)")
	fs.BoolVar(&incremental, "incremental", false, "Reuse settled records from an existing .jsonl output")
	fs.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if inputPath == "" || outputPath == "" {
		_, _ = fmt.Fprintf(os.Stderr, "%s requires --input and --output\n", name)
		return 2
	}
	if configPath == "" {
		configPath = os.Getenv("QUALIFIER_CONFIG")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", util.RedactSecrets(err.Error()))
		return 2
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	err = app.RunQualify(ctx, cfg, app.Params{
		InputPath:   inputPath,
		OutputPath:  outputPath,
		Incremental: incremental,
		Review:      review,
	}, app.Deps{Logger: logger})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s run failed: %s\n", name, util.RedactSecrets(err.Error()))
		return 1
	}
	return 0
}

func usage(w *os.File) {
	_, _ = fmt.Fprintf(w, `qualifier: lead qualification pipeline (enrich, resolve, score, classify)

Usage:
  qualifier <command> [flags]

Commands:
  qualify  Qualify a batch of leads from a local file
  review   Qualify, then convene the consensus council over marginal leads
  version  Print the release version

Examples:
  qualifier qualify --input leads.csv --output records.csv
  qualifier review --input leads.jsonl --output records.jsonl --config qualifier.yaml

Environment:
  QUALIFIER_CONFIG  Default --config path
  GEMINI_API_KEY    Gemini API key (identity extraction + council agents)
  GEMINI_MODEL      Gemini model name
  GEMINI_BASE_URL   Optional base URL override (proxies/testing)
  REGISTRY_URL      License registry base URL (enables identity resolution)
  REGISTRY_TOKEN    Optional registry bearer token

  MAX_CONCURRENCY, LEAD_TIMEOUT, RATE_LIMIT_RPS, RULE_SET, RULE_SET_FILE,
  COUNCIL_MODE, COUNCIL_SOFT_THRESHOLD, COUNCIL_AGENT_TIMEOUT
`)
}
