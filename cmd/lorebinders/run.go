package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scrypster/lorebinders/internal/agent"
	"github.com/scrypster/lorebinders/internal/config"
	"github.com/scrypster/lorebinders/internal/connections"
	"github.com/scrypster/lorebinders/internal/engine"
	"github.com/scrypster/lorebinders/internal/ingest"
	"github.com/scrypster/lorebinders/internal/llm"
	"github.com/scrypster/lorebinders/internal/logger"
	"github.com/scrypster/lorebinders/internal/report"
	"github.com/scrypster/lorebinders/internal/telemetry"
	"github.com/scrypster/lorebinders/pkg/types"
)

type runOptions struct {
	input  string
	title  string
	author string
	output string

	narratorName string
	thirdPerson  bool
	categories   []string
	traits       []string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run the full pipeline over a manuscript",
	Long: `Runs extraction, analysis, resolution and summarization over the
manuscript. Chapters are separated by lines containing "***". The binder is
written to --output, or to stdout when no output path is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runBook,
}

func init() {
	runCmd.Flags().StringVar(&runOpts.title, "title", "", "book title (default: front matter or file name)")
	runCmd.Flags().StringVar(&runOpts.author, "author", "", "book author (default: front matter or Unknown)")
	runCmd.Flags().StringVarP(&runOpts.output, "output", "o", "", "binder JSON path (default: stdout)")
	runCmd.Flags().StringVar(&runOpts.narratorName, "narrator-name", "", "name of the first-person narrator")
	runCmd.Flags().BoolVar(&runOpts.thirdPerson, "third-person", false, "the book is written in third person")
	runCmd.Flags().StringArrayVar(&runOpts.categories, "category", nil, "extra category to track (repeatable)")
	runCmd.Flags().StringArrayVar(&runOpts.traits, "trait", nil, `extra trait to track, as "Category:Trait" or "Trait" for Characters (repeatable)`)
	rootCmd.AddCommand(runCmd)
}

func runBook(cmd *cobra.Command, args []string) error {
	opts := runOpts
	opts.input = args[0]

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cfg, opts); err != nil {
		return err
	}

	log, logCloser, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		log.WithError(err).Warn("tracing disabled")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.WithError(err).Warn("failed to flush traces")
		}
	}()

	gen, err := llm.NewTextGenerator(cfg.LLM, log)
	if err != nil {
		return err
	}
	if hc, ok := gen.(llm.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("llm health check: %w", err)
		}
	}

	binder, err := runPipeline(ctx, cfg, opts, gen, log, cmd.OutOrStdout())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("interrupted; cached results will be reused on the next run")
		}
		return err
	}
	log.WithField("entities", binder.EntityCount()).Info("binder complete")
	return nil
}

// applyRunFlags layers the pipeline flags over the loaded configuration.
// Categories and traits are added to the configured ones, not substituted.
func applyRunFlags(cfg *config.Config, opts runOptions) error {
	p := &cfg.Pipeline
	if opts.narratorName != "" {
		p.NarratorName = opts.narratorName
	}
	if opts.thirdPerson {
		p.ThirdPerson = true
	}
	for _, c := range opts.categories {
		p.Categories = appendUnique(p.Categories, strings.TrimSpace(c))
	}

	for _, t := range opts.traits {
		category, trait := types.CategoryCharacters, t
		if before, after, ok := strings.Cut(t, ":"); ok {
			category, trait = strings.TrimSpace(before), after
		}
		trait = strings.TrimSpace(trait)
		if category == "" || trait == "" {
			return fmt.Errorf("invalid --trait %q", t)
		}
		if p.Traits == nil {
			p.Traits = make(map[string][]string)
		}
		current := append([]string(nil), p.TraitsFor(category)...)
		p.Traits[category] = appendUnique(current, trait)
		p.Categories = appendUnique(p.Categories, category)
	}
	return cfg.Validate()
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// runPipeline wires the cache, agents and reporter around gen and runs the
// book at opts.input through them.
func runPipeline(ctx context.Context, cfg *config.Config, opts runOptions, gen llm.TextGenerator, log logrus.FieldLogger, out io.Writer) (*types.Binder, error) {
	book, err := ingest.ReadFile(opts.input, opts.title, opts.author)
	if err != nil {
		return nil, err
	}

	conns, err := connections.NewManager(cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	defer conns.Close()

	cache, err := conns.CacheForBook(book.Author, book.Title)
	if err != nil {
		return nil, err
	}

	agentOpts := agent.Options{MaxAttempts: cfg.LLM.MaxRetries, Logger: log}
	reporter := &report.JSONReporter{Path: opts.output}
	if opts.output == "" || opts.output == "-" {
		reporter = &report.JSONReporter{Writer: out}
	}

	pipeline, err := engine.New(cfg.Pipeline, engine.Deps{
		Cache:      cache,
		Extractor:  agent.NewExtractor(gen, cfg.Pipeline.ChunkTokens, agentOpts),
		Analyzer:   agent.NewAnalyzer(gen, agentOpts),
		Summarizer: agent.NewSummarizer(gen, agentOpts),
		Reporter:   reporter,
		Logger:     log,
		Progress:   logProgress(log),
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"title":     book.Title,
		"author":    book.Author,
		"chapters":  len(book.Chapters),
		"workspace": cache.Workspace(),
		"model":     gen.GetModel(),
	}).Info("starting pipeline")

	return pipeline.Run(ctx, book)
}

func logProgress(log logrus.FieldLogger) engine.ProgressFunc {
	return func(p engine.Progress) {
		log.WithFields(logrus.Fields{
			"stage":   p.Stage,
			"current": p.Current,
			"total":   p.Total,
		}).Info(p.Message)
	}
}
