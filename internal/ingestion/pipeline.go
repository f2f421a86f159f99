// Package ingestion provides the documentation generation pipeline for
// schemadoc.
package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Benny93/schemadoc-go/internal/config"
	"github.com/Benny93/schemadoc-go/internal/corpus"
	"github.com/Benny93/schemadoc-go/internal/graph"
	"github.com/Benny93/schemadoc-go/internal/hierarchy"
	"github.com/Benny93/schemadoc-go/internal/metrics"
	"github.com/Benny93/schemadoc-go/internal/parsers"
	"github.com/Benny93/schemadoc-go/internal/rdf"
	"github.com/Benny93/schemadoc-go/internal/render"
	"github.com/Benny93/schemadoc-go/internal/storage"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// Pipeline phases, in run order.
const (
	PhaseDiscover = "Discovering sources"
	PhaseParse    = "Parsing vocabularies"
	PhaseMerge    = "Merging"
	PhaseResolve  = "Resolving hierarchy"
	PhaseSelect   = "Selecting entities"
	PhaseRender   = "Rendering documents"
	PhaseWrite    = "Writing corpus"
	PhaseIndex    = "Indexing"
)

// RDFArtifact is the corpus path of the N-Quads export.
const RDFArtifact = "vocabulary.nq"

// Options configures a pipeline run.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	// Metrics, when set, receives phase timings and the report.
	Metrics *metrics.Metrics

	// Now is the clock used for stamping. Nil uses time.Now.
	Now func() time.Time

	// RunID names the staging directory. Empty generates one.
	RunID string
}

// PipelineResult summarizes a pipeline run.
type PipelineResult struct {
	RunID      string
	Sources    *Sources
	Vocabulary *vocab.ExtendedVocabulary
	Graph      *graph.KnowledgeGraph
	Selection  *Selection
	Report     *corpus.Report
	Phases     map[string]time.Duration
	Duration   time.Duration
}

// ProgressCallback is called with phase name and progress (0.0-1.0).
type ProgressCallback func(phase string, progress float64)

type run struct {
	opts     Options
	cfg      *config.Config
	logger   *slog.Logger
	progress ProgressCallback
	result   *PipelineResult
	issues   []vocab.Warning
}

func (r *run) phase(name string, fn func() error) error {
	if r.progress != nil {
		r.progress(name, 0.0)
	}
	start := time.Now()
	err := fn()
	d := time.Since(start)
	r.result.Phases[name] = d
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObservePhase(name, d)
	}
	if err != nil {
		return err
	}
	if r.progress != nil {
		r.progress(name, 1.0)
	}
	r.logger.Debug("Phase done", slog.String("phase", name), slog.Duration("took", d))
	return nil
}

// warn logs issues and carries them into the report.
func (r *run) warn(issues ...vocab.Warning) {
	r.log(issues)
	r.issues = append(r.issues, issues...)
}

func (r *run) log(issues []vocab.Warning) {
	for _, w := range issues {
		r.logger.Warn("Generation issue",
			slog.String("kind", string(w.Kind)),
			slog.String("entity", w.Entity),
			slog.String("message", w.Message))
	}
}

// RunPipeline runs the full generation pipeline: discover, parse, merge,
// resolve, select, render, write and index. Vocabulary-level failures
// (unreadable base, conflicts, cycles) abort before any output is written.
// A nil store skips indexing.
func RunPipeline(ctx context.Context, opts Options, store storage.Backend, progress ProgressCallback) (*PipelineResult, error) {
	res, err := runPipeline(ctx, opts, store, progress)
	if err != nil && opts.Metrics != nil {
		opts.Metrics.ObserveFailure()
		if opts.Config != nil && opts.Config.MetricsFile != "" {
			_ = opts.Metrics.WriteTextfile(opts.Config.MetricsFile)
		}
	}
	return res, err
}

func runPipeline(ctx context.Context, opts Options, store storage.Backend, progress ProgressCallback) (*PipelineResult, error) {
	start := time.Now()
	r, err := newRun(opts, progress)
	if err != nil {
		return nil, err
	}
	cfg, res := r.cfg, r.result
	profiles, err := render.ProfilesFor(cfg.Formats)
	if err != nil {
		return nil, err
	}

	if err := r.vocabulary(); err != nil {
		return nil, err
	}

	var resolver *hierarchy.Resolver
	if err := r.phase(PhaseResolve, func() error {
		resolver = hierarchy.NewResolver(res.Vocabulary)
		res.Graph = resolver.Graph()
		if err := resolver.Validate(); err != nil {
			return err
		}
		r.warn(graph.DanglingWarnings(res.Graph)...)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := r.phase(PhaseSelect, func() error {
		var err error
		res.Selection, err = Select(cfg.Selection, resolver)
		if err == nil {
			r.warn(res.Selection.Issues...)
		}
		return err
	}); err != nil {
		return nil, err
	}

	var docs []*render.Document
	if err := r.phase(PhaseRender, func() error {
		var err error
		docs, err = r.render(ctx, resolver, res.Selection)
		return err
	}); err != nil {
		return nil, err
	}

	if err := r.phase(PhaseWrite, func() error {
		var err error
		res.Report, res.RunID, err = r.write(ctx, resolver, profiles, docs)
		return err
	}); err != nil {
		return nil, err
	}

	if store != nil {
		if err := r.phase(PhaseIndex, func() error {
			return store.BulkLoad(ctx, res.Graph, IndexDocuments(res.Report.Written))
		}); err != nil {
			return nil, fmt.Errorf("bulk load: %w", err)
		}
	}

	res.Duration = time.Since(start)
	if r.opts.Metrics != nil {
		r.opts.Metrics.ObserveReport(res.Report, r.opts.Now())
		if cfg.MetricsFile != "" {
			if err := r.opts.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				r.logger.Warn("Failed to write metrics", slog.String("path", cfg.MetricsFile), slog.String("error", err.Error()))
			}
		}
	}
	return res, nil
}

// LoadVocabulary discovers, parses and merges the configured sources
// without rendering anything. Recoverable issues are returned alongside.
func LoadVocabulary(opts Options) (*vocab.ExtendedVocabulary, []vocab.Warning, error) {
	r, err := newRun(opts, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := r.vocabulary(); err != nil {
		return nil, nil, err
	}
	return r.result.Vocabulary, r.issues, nil
}

func newRun(opts Options, progress ProgressCallback) (*run, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.RequireSources(); err != nil {
		return nil, err
	}
	return &run{
		opts:     opts,
		cfg:      cfg,
		logger:   opts.Logger,
		progress: progress,
		result:   &PipelineResult{Phases: make(map[string]time.Duration)},
	}, nil
}

// vocabulary runs the discover, parse and merge phases.
func (r *run) vocabulary() error {
	res := r.result
	if err := r.phase(PhaseDiscover, func() error {
		var err error
		res.Sources, err = DiscoverSources(r.cfg.Base, r.cfg.Extensions)
		return err
	}); err != nil {
		return err
	}

	var base, ext *vocab.Vocabulary
	if err := r.phase(PhaseParse, func() error {
		var err error
		base, ext, err = r.load(res.Sources)
		return err
	}); err != nil {
		return err
	}

	return r.phase(PhaseMerge, func() error {
		var err error
		res.Vocabulary, err = vocab.Merge(base, ext, vocab.MergeOptions{
			BaseContext:      r.cfg.BaseContext,
			ExtensionContext: r.cfg.ExtensionContext,
			ConflictStrategy: vocab.ConflictStrategy(r.cfg.ConflictStrategy),
		})
		return err
	})
}

// load parses every source. An unusable base file is fatal; a missing or
// broken extension file is skipped with a parse warning.
func (r *run) load(sources *Sources) (*vocab.Vocabulary, *vocab.Vocabulary, error) {
	loader := vocab.NewLoader(r.logger)

	raw, err := parseSource(sources.Base)
	if err != nil {
		return nil, nil, err
	}
	base, warnings, err := loader.Load(raw, sources.Base.RelPath)
	if err != nil {
		return nil, nil, err
	}
	r.issues = append(r.issues, warnings...)

	if sources.MissingExtensions != "" {
		r.warn(vocab.Warning{
			Kind:    vocab.WarnParse,
			Entity:  sources.MissingExtensions,
			Message: "extension source not found, using base vocabulary only",
		})
	}
	if len(sources.Extensions) == 0 {
		return base, nil, nil
	}

	parts := make([]*vocab.Vocabulary, 0, len(sources.Extensions))
	for _, f := range sources.Extensions {
		raw, err := parseSource(f)
		if err == nil {
			var part *vocab.Vocabulary
			part, warnings, err = loader.Load(raw, f.RelPath)
			if err == nil {
				r.issues = append(r.issues, warnings...)
				parts = append(parts, part)
				continue
			}
		}
		r.warn(vocab.Warning{Kind: vocab.WarnParse, Entity: f.RelPath, Message: err.Error()})
	}

	ext, dups := vocab.Combine(string(vocab.SourceExtension), parts...)
	r.warn(dups...)
	return base, ext, nil
}

func parseSource(f SourceFile) (any, error) {
	p, ok := parsers.ForPath(f.Path)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unsupported file type", vocab.ErrParse, f.Path)
	}
	return p.Parse(f.RelPath, f.Content)
}

type renderJob struct {
	kind vocab.EntityKind
	name string
}

// render builds every selected document on a bounded pool. A failing or
// panicking render is reported and skipped.
func (r *run) render(ctx context.Context, resolver *hierarchy.Resolver, sel *Selection) ([]*render.Document, error) {
	ropts := render.Options{
		Truncate:         r.cfg.Truncate,
		InheritedByLimit: r.cfg.InheritedByLimit,
	}
	if r.cfg.StampGeneratedAt {
		ropts.Now = r.opts.Now
	}
	renderer := render.NewRenderer(resolver, ropts)

	jobs := make([]renderJob, 0, len(sel.Types)+len(sel.Properties))
	for _, name := range sel.Types {
		jobs = append(jobs, renderJob{vocab.KindType, name})
	}
	for _, name := range sel.Properties {
		jobs = append(jobs, renderJob{vocab.KindProperty, name})
	}

	docs := make([]*render.Document, len(jobs))
	var (
		mu     sync.Mutex
		failed []vocab.Warning
		done   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := renderOne(renderer, job)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, vocab.Warning{Kind: vocab.WarnRenderFailure, Entity: job.name, Message: err.Error()})
			} else {
				docs[i] = doc
			}
			done++
			if r.progress != nil {
				r.progress(PhaseRender, float64(done)/float64(len(jobs)))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rendering documents: %w", err)
	}

	r.warn(failed...)
	seen := make(map[vocab.Warning]bool, len(r.issues))
	for _, w := range r.issues {
		seen[w] = true
	}
	out := docs[:0]
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		for _, w := range doc.Warnings {
			if !seen[w] {
				seen[w] = true
				r.log([]vocab.Warning{w})
			}
		}
		out = append(out, doc)
	}
	return out, nil
}

func renderOne(renderer *render.Renderer, job renderJob) (doc *render.Document, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &vocab.RenderError{Entity: job.name, Err: fmt.Errorf("panic: %v", p)}
		}
	}()
	if job.kind == vocab.KindProperty {
		doc, err = renderer.RenderProperty(job.name)
	} else {
		doc, err = renderer.RenderType(job.name)
	}
	if err != nil {
		return nil, &vocab.RenderError{Entity: job.name, Err: err}
	}
	return doc, nil
}

func (r *run) write(ctx context.Context, resolver *hierarchy.Resolver, profiles []render.Profile, docs []*render.Document) (*corpus.Report, string, error) {
	opts := corpus.Options{
		Profiles:    profiles,
		Concurrency: r.cfg.Concurrency,
		Nav:         resolver,
		RunID:       r.opts.RunID,
		Logger:      r.logger,
	}
	if r.cfg.Search.SQLite {
		opts.Sinks = append(opts.Sinks, storage.SQLiteIndex{})
	}

	batch := &corpus.Batch{Documents: docs, Issues: r.issues}
	if r.cfg.RDF {
		v := resolver.Vocabulary()
		batch.Artifacts = append(batch.Artifacts, corpus.Artifact{
			Path:  RDFArtifact,
			Write: func(w io.Writer) error { return rdf.WriteNQuads(w, v) },
		})
	}
	if r.cfg.StampGeneratedAt {
		batch.GeneratedAt = r.opts.Now()
	}

	w := corpus.NewWriter(r.cfg.Output, opts)
	report, err := w.Write(ctx, batch)
	return report, w.RunID(), err
}

// IndexDocuments converts written documents into their index form: the
// node they describe, their corpus path and their Markdown rendering.
func IndexDocuments(docs []*render.Document) []storage.Document {
	md := &render.MarkdownProfile{}
	out := make([]storage.Document, 0, len(docs))
	for _, doc := range docs {
		var buf bytes.Buffer
		if err := md.Encode(&buf, &render.Page{Doc: doc}); err != nil {
			continue
		}
		label := graph.NodeClass
		if doc.Kind == vocab.KindProperty {
			label = graph.NodeProperty
		}
		out = append(out, storage.Document{
			NodeID:   graph.GenerateID(label, doc.Name),
			Path:     doc.Slug(),
			Markdown: buf.String(),
		})
	}
	return out
}
