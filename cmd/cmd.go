// Package cmd provides CLI command implementations for schemadoc.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/schemadoc-go/internal/config"
	"github.com/Benny93/schemadoc-go/internal/graph"
	"github.com/Benny93/schemadoc-go/internal/ingestion"
	"github.com/Benny93/schemadoc-go/internal/metrics"
	"github.com/Benny93/schemadoc-go/internal/rdf"
	"github.com/Benny93/schemadoc-go/internal/storage"
	"github.com/Benny93/schemadoc-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// IndexDir is the per-project directory holding the index.
const IndexDir = ".schemadoc"

// Globals are the flags shared by every command.
type Globals struct {
	Config  string `short:"c" help:"Configuration file (defaults to schemadoc.yaml in the project)" type:"path"`
	Dir     string `short:"C" default:"." help:"Project directory holding the .schemadoc index" type:"path"`
	Verbose bool   `short:"v" help:"Enable verbose output"`
	Quiet   bool   `short:"q" help:"Suppress non-essential output"`

	// Out and Err default to os.Stdout and os.Stderr.
	Out io.Writer `kong:"-"`
	Err io.Writer `kong:"-"`
}

func (g *Globals) stdout() io.Writer {
	if g.Out != nil {
		return g.Out
	}
	return os.Stdout
}

func (g *Globals) stderr() io.Writer {
	if g.Err != nil {
		return g.Err
	}
	return os.Stderr
}

// logger writes to stderr so stdout stays usable for output and the MCP
// stdio transport.
func (g *Globals) logger() *slog.Logger {
	level := slog.LevelInfo
	switch {
	case g.Verbose:
		level = slog.LevelDebug
	case g.Quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(g.stderr(), &slog.HandlerOptions{Level: level}))
}

func (g *Globals) indexPath(elem ...string) string {
	return filepath.Join(append([]string{g.Dir, IndexDir}, elem...)...)
}

// progress returns a single-line progress printer, or nil when quiet.
func (g *Globals) progress() ingestion.ProgressCallback {
	if g.Quiet {
		return nil
	}
	var mu sync.Mutex
	w := g.stderr()
	return func(phase string, pct float64) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "\r\033[K%s (%.0f%%)", phase, pct*100)
	}
}

func (g *Globals) endProgress() {
	if !g.Quiet {
		fmt.Fprint(g.stderr(), "\r\033[K")
	}
}

// SourceFlags locate the vocabulary sources. Unset flags fall back to the
// configuration file.
type SourceFlags struct {
	Base       string `help:"Base vocabulary file (JSON-LD or YAML)" type:"path"`
	Extensions string `help:"Extension file or directory" type:"path"`
	Strategy   string `help:"Conflict strategy: extension-wins, base-wins or error-on-conflict"`
}

// OutputFlags control what is generated and where.
type OutputFlags struct {
	Output         string   `short:"o" help:"Output directory" type:"path"`
	All            bool     `help:"Document every type" xor:"selection"`
	ExtensionsOnly bool     `help:"Document only extension types" xor:"selection"`
	Types          []string `help:"Document types matching these glob patterns" xor:"selection"`
	Format         []string `short:"f" help:"Output formats (mdx, md, json, html)"`
	Concurrency    int      `help:"Number of render workers"`
}

// loadConfig layers the project config, the --config file and the flags.
func loadConfig(g *Globals, logger *slog.Logger, src SourceFlags, out *OutputFlags) (*config.Config, error) {
	cfg, err := config.NewLoader(logger).WithDir(g.Dir).Load(g.Config)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	override := &config.Config{
		Base:             src.Base,
		Extensions:       src.Extensions,
		ConflictStrategy: src.Strategy,
	}
	if out != nil {
		override.Output = out.Output
		override.Formats = out.Format
		override.Concurrency = out.Concurrency
		switch {
		case out.All:
			override.Selection.Mode = config.SelectAll
		case out.ExtensionsOnly:
			override.Selection.Mode = config.SelectExtensions
		case len(out.Types) > 0:
			override.Selection = config.SelectionConfig{Mode: config.SelectTypes, Types: out.Types}
		}
	}
	cfg.Merge(override)

	if cfg.Output != "" && !filepath.IsAbs(cfg.Output) {
		cfg.Output = filepath.Join(g.Dir, cfg.Output)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.RequireSources(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GenerateCmd renders the documentation corpus and refreshes the index.
type GenerateCmd struct {
	Sources SourceFlags `embed:""`
	Outputs OutputFlags `embed:""`
}

// Run executes the generate command.
func (c *GenerateCmd) Run(g *Globals) error {
	ctx, stop := signalContext()
	defer stop()

	logger := g.logger()
	cfg, err := loadConfig(g, logger, c.Sources, &c.Outputs)
	if err != nil {
		return err
	}

	var store storage.Backend
	if cfg.Index {
		st, err := openIndex(g, false)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		store = st
	}

	if !g.Quiet {
		color.New(color.FgGreen).Fprintf(g.stdout(), "Generating documentation into %s\n", cfg.Output)
	}

	result, err := ingestion.RunPipeline(ctx, ingestion.Options{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
	}, store, g.progress())
	g.endProgress()
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	if cfg.Index {
		if err := writeMeta(g, cfg, result); err != nil {
			return err
		}
	}

	printSummary(g, result)
	return nil
}

func printSummary(g *Globals, result *ingestion.PipelineResult) {
	if g.Quiet {
		return
	}
	w := g.stdout()
	r := result.Report
	color.New(color.FgGreen).Fprintln(w, "✓ Generation complete")
	fmt.Fprintf(w, "  Types:          %d\n", r.Types)
	fmt.Fprintf(w, "  Properties:     %d\n", r.Properties)
	fmt.Fprintf(w, "  Files:          %d\n", r.Files)
	if len(r.Issues) > 0 {
		color.New(color.FgYellow).Fprintf(w, "  Issues:         %d (%d skipped)\n", len(r.Issues), r.Skipped)
	}
	fmt.Fprintf(w, "  Duration:       %.2fs\n", result.Duration.Seconds())
}

// indexMeta is stored as .schemadoc/meta.json after every indexed run.
type indexMeta struct {
	Version       string  `json:"version"`
	RunID         string  `json:"runId"`
	Fingerprint   string  `json:"fingerprint"`
	Base          string  `json:"base"`
	Extensions    string  `json:"extensions,omitempty"`
	Output        string  `json:"output"`
	Types         int     `json:"types"`
	Properties    int     `json:"properties"`
	Files         int     `json:"files"`
	Issues        int     `json:"issues"`
	IndexedAt     string  `json:"indexedAt"`
	DurationSecs  float64 `json:"durationSecs"`

	// Graph holds the knowledge graph counts of the run.
	Graph map[string]int `json:"graph"`
}

func writeMeta(g *Globals, cfg *config.Config, result *ingestion.PipelineResult) error {
	meta := indexMeta{
		Version:       Version,
		RunID:         result.RunID,
		Fingerprint:   result.Sources.Fingerprint(),
		Base:          cfg.Base,
		Extensions:    cfg.Extensions,
		Output:        cfg.Output,
		Types:         result.Report.Types,
		Properties:    result.Report.Properties,
		Files:         result.Report.Files,
		Issues:        len(result.Report.Issues),
		IndexedAt:     time.Now().UTC().Format(time.RFC3339),
		DurationSecs:  result.Duration.Seconds(),
		Graph:         result.Graph.Stats(),
	}
	data, err := json.Marshal(meta, jsontext.WithIndent("  "))
	if err != nil {
		return fmt.Errorf("encoding meta.json: %w", err)
	}
	if err := os.WriteFile(g.indexPath("meta.json"), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing meta.json: %w", err)
	}
	return nil
}

func readMeta(g *Globals) (*indexMeta, error) {
	data, err := os.ReadFile(g.indexPath("meta.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no index found at %s. Run 'schemadoc generate' first", g.Dir)
		}
		return nil, fmt.Errorf("reading meta.json: %w", err)
	}
	var meta indexMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing meta.json: %w", err)
	}
	return &meta, nil
}

// QueryCmd searches the index.
type QueryCmd struct {
	Query string `arg:"" help:"Search query"`
	Limit int    `short:"n" default:"20" help:"Maximum results"`
}

// Run executes the query command.
func (c *QueryCmd) Run(g *Globals) error {
	store, err := openIndex(g, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	results, err := store.FTSSearch(context.Background(), c.Query, c.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	w := g.stdout()
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found")
		return nil
	}

	for i, r := range results {
		fmt.Fprintf(w, "\n%d. %s (%s, %s)\n", i+1, r.Name, r.Label, r.Source)
		if r.Path != "" {
			fmt.Fprintf(w, "   Page: %s\n", r.Path)
		}
		fmt.Fprintf(w, "   Score: %.3f\n", r.Score)
		if r.Snippet != "" {
			fmt.Fprintf(w, "   %s\n", r.Snippet)
		}
	}
	return nil
}

// ShowCmd prints the page of one type or property.
type ShowCmd struct {
	Name string `arg:"" help:"Type or property name"`
}

// Run executes the show command.
func (c *ShowCmd) Run(g *Globals) error {
	store, err := openIndex(g, true)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	tool := mcp.ToolType
	if node, err := store.GetNode(ctx, graph.GenerateID(graph.NodeProperty, c.Name)); err != nil {
		return err
	} else if node != nil {
		tool = mcp.ToolProperty
	}

	out, err := mcp.NewServer(store, g.logger()).CallTool(ctx, tool, map[string]any{"name": c.Name})
	if err != nil {
		return err
	}
	fmt.Fprintln(g.stdout(), out)
	return nil
}

// ExportCmd writes the merged vocabulary as N-Quads.
type ExportCmd struct {
	Sources SourceFlags `embed:""`
	Out     string      `help:"Write to this file instead of stdout" type:"path"`
}

// Run executes the export command.
func (c *ExportCmd) Run(g *Globals) error {
	logger := g.logger()
	cfg, err := loadConfig(g, logger, c.Sources, nil)
	if err != nil {
		return err
	}

	v, _, err := ingestion.LoadVocabulary(ingestion.Options{Config: cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("loading vocabulary: %w", err)
	}

	w := g.stdout()
	if c.Out != "" {
		f, err := os.Create(c.Out)
		if err != nil {
			return fmt.Errorf("creating %s: %w", c.Out, err)
		}
		defer f.Close()
		w = f
	}
	if err := rdf.WriteNQuads(w, v); err != nil {
		return fmt.Errorf("writing N-Quads: %w", err)
	}
	if c.Out != "" && !g.Quiet {
		color.New(color.FgGreen).Fprintf(g.stderr(), "Exported %d types and %d properties to %s\n",
			len(v.TypeNames()), len(v.PropertyNames()), c.Out)
	}
	return nil
}

// WatchCmd regenerates whenever the sources change.
type WatchCmd struct {
	Sources  SourceFlags   `embed:""`
	Outputs  OutputFlags   `embed:""`
	Debounce time.Duration `default:"500ms" help:"Quiet period before regenerating"`
}

// Run executes the watch command.
func (c *WatchCmd) Run(g *Globals) error {
	ctx, stop := signalContext()
	defer stop()

	logger := g.logger()
	cfg, err := loadConfig(g, logger, c.Sources, &c.Outputs)
	if err != nil {
		return err
	}
	store, err := openIndex(g, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	w := g.stdout()
	fmt.Fprintln(w, "## Watch Mode")
	fmt.Fprintf(w, "Watching %s for changes (Ctrl+C to stop)\n\n", cfg.Base)

	err = ingestion.WatchSources(ctx, ingestion.WatchOptions{
		Options:  ingestion.Options{Config: cfg, Logger: logger, Metrics: metrics.New()},
		Debounce: c.Debounce,
		Progress: g.progress(),
	}, store, func(result *ingestion.PipelineResult, err error) {
		g.endProgress()
		if err != nil {
			color.New(color.FgRed).Fprintf(g.stderr(), "Generation failed: %v\n", err)
			return
		}
		if err := writeMeta(g, cfg, result); err != nil {
			logger.Warn("Failed to write index metadata", slog.String("error", err.Error()))
		}
		printSummary(g, result)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Fprintln(w, "Watch mode stopped.")
	return nil
}

// ServeCmd starts the MCP server on stdio.
type ServeCmd struct {
	Watch   bool        `short:"w" help:"Regenerate and re-index when sources change"`
	Sources SourceFlags `embed:""`
	Outputs OutputFlags `embed:""`
}

// Run executes the serve command.
func (c *ServeCmd) Run(g *Globals) error {
	ctx, stop := signalContext()
	defer stop()

	logger := g.logger()
	if !c.Watch {
		store, err := openIndex(g, true)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		logger.Info("Starting MCP server")
		return mcp.NewServer(store, logger).Run(ctx, &sdkmcp.StdioTransport{})
	}

	cfg, err := loadConfig(g, logger, c.Sources, &c.Outputs)
	if err != nil {
		return err
	}
	store, err := openIndex(g, false)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		err := ingestion.WatchSources(watchCtx, ingestion.WatchOptions{
			Options: ingestion.Options{Config: cfg, Logger: logger, Metrics: metrics.New()},
		}, store, func(result *ingestion.PipelineResult, err error) {
			if err != nil {
				logger.Error("Generation failed", slog.String("error", err.Error()))
				return
			}
			if err := writeMeta(g, cfg, result); err != nil {
				logger.Warn("Failed to write index metadata", slog.String("error", err.Error()))
			}
			logger.Info("Index refreshed",
				slog.Int("types", result.Report.Types),
				slog.Int("properties", result.Report.Properties))
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Watch error", slog.String("error", err.Error()))
		}
	}()

	logger.Info("Starting MCP server with watch mode")
	return mcp.NewServer(store, logger).Run(ctx, &sdkmcp.StdioTransport{})
}

// StatusCmd reports on the index of the current project.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run(g *Globals) error {
	meta, err := readMeta(g)
	if err != nil {
		return err
	}

	w := g.stdout()
	fmt.Fprintf(w, "Index status for %s\n", g.Dir)
	fmt.Fprintf(w, "  Version:        %s\n", meta.Version)
	fmt.Fprintf(w, "  Last indexed:   %s\n", meta.IndexedAt)
	fmt.Fprintf(w, "  Base:           %s\n", meta.Base)
	if meta.Extensions != "" {
		fmt.Fprintf(w, "  Extensions:     %s\n", meta.Extensions)
	}
	fmt.Fprintf(w, "  Output:         %s\n", meta.Output)
	fmt.Fprintf(w, "  Types:          %d\n", meta.Types)
	fmt.Fprintf(w, "  Properties:     %d\n", meta.Properties)
	fmt.Fprintf(w, "  Files:          %d\n", meta.Files)
	fmt.Fprintf(w, "  Relationships:  %d (%d dangling)\n", meta.Graph["relationships"], meta.Graph["dangling"])
	fmt.Fprintf(w, "  Issues:         %d\n", meta.Issues)

	sources, err := ingestion.DiscoverSources(meta.Base, meta.Extensions)
	switch {
	case err != nil:
		color.New(color.FgRed).Fprintf(w, "  Sources:        unreadable (%v)\n", err)
	case sources.Fingerprint() != meta.Fingerprint:
		color.New(color.FgYellow).Fprintln(w, "  Sources:        changed since last run")
	default:
		color.New(color.FgGreen).Fprintln(w, "  Sources:        up to date")
	}
	return nil
}

// CleanCmd deletes the index of the current project.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation prompt"`
}

// Run executes the clean command.
func (c *CleanCmd) Run(g *Globals) error {
	dir := g.indexPath()
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no index found at %s. Nothing to clean", g.Dir)
	}

	w := g.stdout()
	if !c.Force {
		fmt.Fprintf(w, "Delete index at %s? [y/N] ", dir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(w, "Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting index: %w", err)
	}

	color.New(color.FgGreen).Fprintf(w, "Deleted %s\n", dir)
	return nil
}

// Helper functions

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openIndex opens the project's badger index. Read-only opens require an
// existing index.
func openIndex(g *Globals, readOnly bool) (*storage.BadgerBackend, error) {
	dbPath := g.indexPath("badger")
	if readOnly {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no index found at %s. Run 'schemadoc generate' first", g.Dir)
		}
	} else if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	store := storage.NewBadgerBackend()
	if err := store.Initialize(dbPath, readOnly); err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// CLI is the root Kong command structure.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version information"`

	// Commands
	Generate GenerateCmd `cmd:"" help:"Generate the documentation corpus and index it"`
	Query    QueryCmd    `cmd:"" help:"Search the indexed vocabulary"`
	Show     ShowCmd     `cmd:"" help:"Show the page of a type or property"`
	Export   ExportCmd   `cmd:"" help:"Export the merged vocabulary as N-Quads"`
	Watch    WatchCmd    `cmd:"" help:"Watch mode with live regeneration"`
	Serve    ServeCmd    `cmd:"" help:"Start MCP server (stdio transport)"`
	Setup    SetupCmd    `cmd:"" help:"Configure MCP clients to use schemadoc"`
	Status   StatusCmd   `cmd:"" help:"Show index status for the current project"`
	Clean    CleanCmd    `cmd:"" help:"Delete the index for the current project"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("schemadoc"),
		kong.Description("Documentation generator for Schema.org vocabularies and their extensions"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kongCtx.Run(&c.Globals)
}
