// Package engine drives a book through the LoreBinders stages:
// extraction, sorting, analysis, aggregation, cleaning, resolution,
// summarization and reporting.
//
// Every unit of external work is cache-checked first, so a failed or
// interrupted run can simply be started again and resumes from the last
// completed chapter or entity.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/scrypster/lorebinders/internal/config"
	"github.com/scrypster/lorebinders/internal/logger"
	"github.com/scrypster/lorebinders/internal/refine"
	"github.com/scrypster/lorebinders/internal/storage"
	"github.com/scrypster/lorebinders/internal/telemetry"
	"github.com/scrypster/lorebinders/pkg/types"
)

// ErrStageFailed wraps the first unit failure of a stage. The wrapped error
// names the chapter or entity that failed.
var ErrStageFailed = errors.New("pipeline stage failed")

// Extractor finds entity names per category in one chapter.
type Extractor interface {
	Extract(ctx context.Context, chapter types.Chapter, categories []string, narrator types.NarratorConfig) (types.ChapterEntities, error)
}

// Analyzer describes a batch of entities in one chapter. It may return
// profiles for only part of the batch.
type Analyzer interface {
	Analyze(ctx context.Context, batch []types.CategoryTarget, chapter types.Chapter) ([]types.EntityProfile, error)
}

// Summarizer writes a summary of one entity from its serialized appearances.
type Summarizer interface {
	Summarize(ctx context.Context, name, category, contextData string) (string, error)
}

// Reporter receives the resolved binder at the end of a run.
type Reporter interface {
	Report(ctx context.Context, book *types.Book, binder *types.Binder) error
}

// Deps are the collaborators of a Pipeline. Reporter, Logger, Tracer and
// Progress are optional.
type Deps struct {
	Cache      storage.Cache
	Extractor  Extractor
	Analyzer   Analyzer
	Summarizer Summarizer
	Reporter   Reporter
	Logger     logrus.FieldLogger
	Tracer     trace.Tracer
	Progress   ProgressFunc
}

// Pipeline orchestrates one book at a time. Run may be called repeatedly,
// but not concurrently on the same cache workspace.
type Pipeline struct {
	cfg      config.PipelineConfig
	deps     Deps
	narrator types.NarratorConfig
	resolver *refine.Resolver
	sorter   *refine.Sorter
	cleaner  *refine.Cleaner
}

// New validates deps and builds the name-resolution helpers from cfg.
func New(cfg config.PipelineConfig, deps Deps) (*Pipeline, error) {
	switch {
	case deps.Cache == nil:
		return nil, errors.New("engine: cache is required")
	case deps.Extractor == nil, deps.Analyzer == nil, deps.Summarizer == nil:
		return nil, errors.New("engine: extractor, analyzer and summarizer are required")
	case len(cfg.Categories) == 0:
		return nil, errors.New("engine: at least one category is required")
	}

	titles := refine.DefaultTitles
	if len(cfg.Titles) > 0 {
		titles = cfg.Titles
	}
	vocab, err := refine.NewVocabulary(titles, "", "", "")
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	policy, ok := refine.PolicyByName(cfg.PriorityPolicy)
	if !ok {
		return nil, fmt.Errorf("engine: unknown priority policy %q", cfg.PriorityPolicy)
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.MinSummaryChapters < 1 {
		cfg.MinSummaryChapters = 1
	}
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.Tracer == nil {
		deps.Tracer = telemetry.Tracer()
	}

	resolver := refine.NewResolver(vocab, policy)
	return &Pipeline{
		cfg:      cfg,
		deps:     deps,
		narrator: types.NarratorConfig{Name: cfg.NarratorName, ThirdPerson: cfg.ThirdPerson},
		resolver: resolver,
		sorter:   refine.NewSorter(resolver, cfg.NarratorName),
		cleaner:  refine.NewCleaner(vocab, cfg.NarratorName),
	}, nil
}

// run holds the state of a single Run call.
type run struct {
	*Pipeline
	id    string
	book  *types.Book
	log   logrus.FieldLogger
	stage types.Stage
}

// Run takes book from ingestion to a resolved, summarized Binder.
func (p *Pipeline) Run(ctx context.Context, book *types.Book) (*types.Binder, error) {
	if book == nil {
		return nil, fmt.Errorf("%w: nil book", types.ErrInvalidBook)
	}
	if err := book.Validate(); err != nil {
		return nil, err
	}

	r := &run{Pipeline: p, id: uuid.NewString(), book: book}
	r.log = p.deps.Logger.WithFields(logrus.Fields{
		"run_id":    r.id,
		"workspace": p.deps.Cache.Workspace(),
	})

	ctx, span := p.deps.Tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run.id", r.id),
		attribute.String("book.title", book.Title),
		attribute.String("book.author", book.Author),
		attribute.Int("book.chapters", len(book.Chapters)),
	))
	defer span.End()

	var (
		extractions map[int]types.ChapterEntities
		index       types.EntityIndex
		profiles    []types.EntityProfile
		binder      *types.Binder
	)
	steps := []struct {
		stage types.Stage
		fn    func(context.Context) error
	}{
		{types.StageIngested, func(context.Context) error { return nil }},
		{types.StageExtracted, func(ctx context.Context) (err error) {
			extractions, err = r.extract(ctx)
			return err
		}},
		{types.StageSorted, func(context.Context) error {
			index = p.sorter.Sort(extractions)
			return nil
		}},
		{types.StageAnalyzed, func(ctx context.Context) (err error) {
			profiles, err = r.analyze(ctx, index)
			return err
		}},
		{types.StageAggregated, func(context.Context) error {
			binder = refine.Aggregate(profiles)
			return nil
		}},
		{types.StageCleaned, func(context.Context) (err error) {
			binder, err = p.cleaner.Clean(binder)
			return err
		}},
		{types.StageResolved, func(context.Context) error {
			binder = p.resolver.Deduplicate(binder)
			return nil
		}},
		{types.StageSummarized, func(ctx context.Context) error {
			return r.summarize(ctx, binder)
		}},
		{types.StageReported, func(ctx context.Context) error {
			if p.deps.Reporter == nil {
				return nil
			}
			return p.deps.Reporter.Report(ctx, book, binder)
		}},
	}

	r.log.WithField("chapters", len(book.Chapters)).Info("pipeline started")
	for _, step := range steps {
		if err := r.advance(ctx, step.stage, step.fn); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}
	r.log.WithField("entities", binder.EntityCount()).Info("pipeline finished")
	return binder, nil
}

// advance runs fn inside a span for next and moves the run to next when fn succeeds.
func (r *run) advance(ctx context.Context, next types.Stage, fn func(context.Context) error) error {
	if !types.IsValidStageTransition(r.stage, next) {
		return fmt.Errorf("invalid stage transition %q -> %q", r.stage, next)
	}

	ctx, span := r.deps.Tracer.Start(ctx, "stage."+string(next), trace.WithAttributes(
		attribute.String("run.id", r.id),
		attribute.String("stage", string(next)),
	))
	defer span.End()

	start := time.Now()
	if err := fn(ctx); err != nil {
		err = fmt.Errorf("%w (%s): %w", ErrStageFailed, next, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.WithError(err).WithField("stage", next).Error("stage failed")
		return err
	}

	r.stage = next
	r.log.WithFields(logrus.Fields{
		"stage":       next,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("stage complete")
	return nil
}

func (r *run) progress(stage types.Stage, current, total int, format string, args ...interface{}) {
	if r.deps.Progress == nil {
		return
	}
	r.deps.Progress(Progress{
		Stage:   stage,
		Current: current,
		Total:   total,
		Message: fmt.Sprintf(format, args...),
		At:      time.Now(),
	})
}

// extract runs every chapter through the cache or the extractor. Units already
// running when another fails are allowed to finish; no new ones start.
func (r *run) extract(ctx context.Context) (map[int]types.ChapterEntities, error) {
	chapters := r.book.Chapters
	results := make([]types.ChapterEntities, len(chapters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrency)
	for i := range chapters {
		i, ch := i, chapters[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.progress(types.StageExtracted, i+1, len(chapters), "Extracting chapter %d: %s", ch.Number, ch.Title)
			entities, err := r.extractChapter(ctx, ch)
			if err != nil {
				return fmt.Errorf("chapter %d: %w", ch.Number, err)
			}
			results[i] = entities
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int]types.ChapterEntities, len(chapters))
	for i, ch := range chapters {
		out[ch.Number] = results[i]
	}
	return out, nil
}

func (r *run) extractChapter(ctx context.Context, ch types.Chapter) (types.ChapterEntities, error) {
	log := r.log.WithFields(logrus.Fields{"stage": types.StageExtracted, "chapter": ch.Number})

	cached, err := r.deps.Cache.ExtractionExists(ctx, ch.Number)
	if err != nil {
		return nil, err
	}
	if cached {
		log.Debug("loading cached extraction")
		return r.deps.Cache.LoadExtraction(ctx, ch.Number)
	}

	entities, err := r.deps.Extractor.Extract(ctx, ch, r.cfg.Categories, r.narrator)
	if err != nil {
		log.WithError(err).Error("extraction failed")
		return nil, err
	}
	if err := r.deps.Cache.SaveExtraction(ctx, ch.Number, entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// analyze sends one batch per (chapter, category) to the analyzer, in
// ascending chapter order and sorted category order, one batch at a time.
func (r *run) analyze(ctx context.Context, index types.EntityIndex) ([]types.EntityProfile, error) {
	byChapter := make(map[int]map[string][]string)
	for category, entities := range index {
		for name, chapters := range entities {
			for _, n := range chapters {
				if byChapter[n] == nil {
					byChapter[n] = make(map[string][]string)
				}
				byChapter[n][category] = append(byChapter[n][category], name)
			}
		}
	}

	chapterByNumber := make(map[int]types.Chapter, len(r.book.Chapters))
	for _, ch := range r.book.Chapters {
		chapterByNumber[ch.Number] = ch
	}

	numbers := make([]int, 0, len(byChapter))
	total := 0
	for n, cats := range byChapter {
		if _, ok := chapterByNumber[n]; !ok {
			continue
		}
		numbers = append(numbers, n)
		total += len(cats)
	}
	sort.Ints(numbers)

	var profiles []types.EntityProfile
	current := 0
	for _, n := range numbers {
		ch := chapterByNumber[n]
		categories := make([]string, 0, len(byChapter[n]))
		for c := range byChapter[n] {
			categories = append(categories, c)
		}
		sort.Strings(categories)

		for _, category := range categories {
			names := byChapter[n][category]
			sort.Strings(names)
			current++
			r.progress(types.StageAnalyzed, current, total, "Analyzing %d %s in chapter %d", len(names), category, n)

			got, err := r.analyzeBatch(ctx, ch, category, names)
			if err != nil {
				return nil, fmt.Errorf("chapter %d %s: %w", n, category, err)
			}
			profiles = append(profiles, got...)
		}
	}
	return profiles, nil
}

func (r *run) analyzeBatch(ctx context.Context, ch types.Chapter, category string, names []string) ([]types.EntityProfile, error) {
	log := r.log.WithFields(logrus.Fields{"stage": types.StageAnalyzed, "chapter": ch.Number, "category": category})

	profiles := make([]types.EntityProfile, 0, len(names))
	var missing []string
	for _, name := range names {
		cached, err := r.deps.Cache.ProfileExists(ctx, ch.Number, category, name)
		if err != nil {
			return nil, err
		}
		if !cached {
			missing = append(missing, name)
			continue
		}
		p, err := r.deps.Cache.LoadProfile(ctx, ch.Number, category, name)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	if len(missing) == 0 {
		return profiles, nil
	}

	target := types.CategoryTarget{
		Category: category,
		Entities: missing,
		Traits:   r.cfg.TraitsFor(category),
	}
	results, err := r.deps.Analyzer.Analyze(ctx, []types.CategoryTarget{target}, ch)
	if err != nil {
		log.WithError(err).WithField("entities", len(missing)).Error("analysis failed")
		return nil, err
	}

	matched := r.rekey(category, missing, results)
	for _, name := range missing {
		p, ok := matched[name]
		if !ok {
			// Cached empty so a re-run does not ask again.
			p = types.EntityProfile{Traits: types.Traits{}}
			log.WithField("entity", name).Debug("analyzer returned nothing for entity")
		}
		p.Name, p.Category, p.ChapterNumber = name, category, ch.Number
		if err := r.deps.Cache.SaveProfile(ctx, p); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// rekey maps analyzer results back onto the requested names: exact match,
// then case-insensitive, then the resolver's similarity rules. Results for
// other categories or unknown entities are dropped; several results landing
// on one name have their traits merged.
func (r *run) rekey(category string, requested []string, results []types.EntityProfile) map[string]types.EntityProfile {
	out := make(map[string]types.EntityProfile, len(results))
	for _, res := range results {
		if res.Category != "" && !strings.EqualFold(res.Category, category) {
			continue
		}
		name, ok := r.matchName(res.Name, requested)
		if !ok {
			continue
		}
		if prev, seen := out[name]; seen {
			prev.Traits = refine.MergeTraitMaps(prev.Traits, res.Traits)
			out[name] = prev
			continue
		}
		if res.Traits == nil {
			res.Traits = types.Traits{}
		}
		out[name] = res
	}
	return out
}

func (r *run) matchName(got string, requested []string) (string, bool) {
	got = strings.TrimSpace(got)
	for _, name := range requested {
		if name == got {
			return name, true
		}
	}
	for _, name := range requested {
		if strings.EqualFold(name, got) {
			return name, true
		}
	}
	for _, name := range requested {
		if r.resolver.IsSimilar(name, got) {
			return name, true
		}
	}
	return "", false
}

type summaryUnit struct {
	category string
	record   *types.EntityRecord
}

// summarize fills in summaries for entities seen in at least
// MinSummaryChapters chapters. Others keep an empty summary.
func (r *run) summarize(ctx context.Context, binder *types.Binder) error {
	var units []summaryUnit
	for _, category := range binder.CategoryNames() {
		cat := binder.Categories[category]
		for _, name := range cat.EntityNames() {
			rec := cat.Entities[name]
			if len(rec.Appearances) >= r.cfg.MinSummaryChapters {
				units = append(units, summaryUnit{category: category, record: rec})
			}
		}
	}

	summaries := make([]string, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxConcurrency)
	for i := range units {
		i, u := i, units[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.progress(types.StageSummarized, i+1, len(units), "Summarizing %s: %s", u.category, u.record.Name)
			s, err := r.summarizeEntity(ctx, u)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", u.category, u.record.Name, err)
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, u := range units {
		u.record.Summary = summaries[i]
	}
	return nil
}

func (r *run) summarizeEntity(ctx context.Context, u summaryUnit) (string, error) {
	name := u.record.Name
	log := r.log.WithFields(logrus.Fields{"stage": types.StageSummarized, "category": u.category, "entity": name})

	cached, err := r.deps.Cache.SummaryExists(ctx, u.category, name)
	if err != nil {
		return "", err
	}
	if cached {
		return r.deps.Cache.LoadSummary(ctx, u.category, name)
	}

	contextData, err := AppearanceContext(u.record)
	if err != nil {
		return "", err
	}
	summary, err := r.deps.Summarizer.Summarize(ctx, name, u.category, contextData)
	if err != nil {
		log.WithError(err).Error("summarization failed")
		return "", err
	}
	if err := r.deps.Cache.SaveSummary(ctx, u.category, name, summary); err != nil {
		return "", err
	}
	return summary, nil
}

// AppearanceContext renders an entity's traits by chapter as indented JSON,
// the context handed to the summarizer.
func AppearanceContext(rec *types.EntityRecord) (string, error) {
	byChapter := make(map[int]types.Traits, len(rec.Appearances))
	for n, app := range rec.Appearances {
		byChapter[n] = app.Traits
	}
	data, err := json.MarshalIndent(byChapter, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize appearances of %s: %w", rec.Name, err)
	}
	return string(data), nil
}
