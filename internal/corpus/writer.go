// Package corpus writes rendered documents to disk as a complete,
// self-consistent output tree.
//
// A run writes everything into a staging directory next to the output
// root and swaps it into place only when the run finishes, so an aborted
// run never leaves a half-written corpus behind.
package corpus

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Benny93/schemadoc-go/internal/hierarchy"
	"github.com/Benny93/schemadoc-go/internal/render"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// NavSource supplies navigation data. *hierarchy.Resolver implements it.
type NavSource interface {
	NavTree(current string) []*hierarchy.NavNode
	FullNavTree() []*hierarchy.NavNode
	SidebarMeta() hierarchy.Meta
}

// Artifact is an extra file written into the corpus alongside the
// documents (for example an RDF export).
type Artifact struct {
	// Path is relative to the corpus root, slash-separated.
	Path  string
	Write func(w io.Writer) error
}

// Sink receives the search index once all documents are written.
type Sink interface {
	// File is the output path relative to the corpus root.
	File() string
	WriteIndex(ctx context.Context, path string, entries []SearchEntry) error
}

// Options configures a Writer.
type Options struct {
	Profiles []render.Profile

	// Concurrency bounds the number of documents encoded and written at
	// once. Zero uses GOMAXPROCS.
	Concurrency int

	Nav   NavSource
	Sinks []Sink

	// RunID names the staging directory. Empty generates one.
	RunID  string
	Logger *slog.Logger
}

// Batch is the input of one Write call.
type Batch struct {
	Documents []*render.Document

	// Issues are problems found before writing (parse errors, render
	// failures, missing selections). They are carried into the report.
	Issues []vocab.Warning

	Artifacts []Artifact

	// GeneratedAt is stamped into the report when non-zero.
	GeneratedAt time.Time
}

// Writer persists document batches under a root directory.
type Writer struct {
	root   string
	opts   Options
	logger *slog.Logger
}

// NewWriter creates a writer for the given output root.
func NewWriter(root string, opts Options) *Writer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{root: root, opts: opts, logger: logger}
}

// Root returns the output directory.
func (w *Writer) Root() string { return w.root }

// RunID returns the identifier of this writer's run.
func (w *Writer) RunID() string { return w.opts.RunID }

// Write renders every document through every profile, derives the
// navigation, search and report files, and swaps the result into place.
// Per-document failures are reported, not returned. The returned error is
// non-nil only when the output tree as a whole cannot be produced.
func (w *Writer) Write(ctx context.Context, batch *Batch) (*Report, error) {
	staging := filepath.Clean(w.root) + ".tmp-" + w.opts.RunID
	if err := w.prepare(staging); err != nil {
		return nil, err
	}
	keep := false
	defer func() {
		if !keep {
			_ = os.RemoveAll(staging)
		}
	}()

	var (
		mu      sync.Mutex
		issues  = slices.Clone(batch.Issues)
		failed  = make(map[*render.Document]bool)
		written int
	)
	fail := func(doc *render.Document, kind vocab.WarningKind, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed[doc] = true
		issues = append(issues, vocab.Warning{Kind: kind, Entity: doc.Name, Message: err.Error()})
		w.logger.Warn("Document not written",
			slog.String("entity", doc.Name),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Concurrency)
	for _, doc := range batch.Documents {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			kind, err := w.writeDocument(staging, doc)
			if err != nil {
				fail(doc, kind, err)
				return nil
			}
			mu.Lock()
			written++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("writing documents: %w", err)
	}

	var ok []*render.Document
	for _, doc := range batch.Documents {
		if !failed[doc] {
			ok = append(ok, doc)
			issues = append(issues, doc.Warnings...)
		}
	}

	entries := BuildSearchIndex(ok)
	if err := w.writeAux(ctx, staging, ok, entries, batch.Artifacts); err != nil {
		return nil, err
	}

	report := NewReport(ok, issues, batch.GeneratedAt)
	report.Files = written * len(w.opts.Profiles)
	if err := writeFile(staging, "report.json", func(out io.Writer) error {
		return render.EncodeJSON(out, report)
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", vocab.ErrStorageUnavailable, err)
	}

	if err := w.swap(staging); err != nil {
		return nil, err
	}
	keep = true
	report.Written = ok
	return report, nil
}

func (w *Writer) prepare(staging string) error {
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("%w: clearing staging directory: %v", vocab.ErrStorageUnavailable, err)
	}
	for _, dir := range []string{render.Dir(vocab.KindType), render.Dir(vocab.KindProperty)} {
		if err := os.MkdirAll(filepath.Join(staging, dir), 0o755); err != nil {
			return fmt.Errorf("%w: creating staging directory: %v", vocab.ErrStorageUnavailable, err)
		}
	}
	return nil
}

// writeDocument encodes one document in every profile. All encodings are
// produced before anything is written, and a failed write removes the
// document's other files, so a document is either complete or absent.
func (w *Writer) writeDocument(staging string, doc *render.Document) (vocab.WarningKind, error) {
	if !validName(doc.Name) {
		return vocab.WarnWriteFailure, &vocab.WriteError{Path: doc.Slug(), Err: fmt.Errorf("invalid entity name")}
	}

	encoded := make([][]byte, len(w.opts.Profiles))
	for i, p := range w.opts.Profiles {
		page := &render.Page{Doc: doc}
		if w.opts.Nav != nil && render.NeedsNav(p) {
			page.Nav = w.opts.Nav.NavTree(navCurrent(doc))
		}
		var buf bytes.Buffer
		if err := p.Encode(&buf, page); err != nil {
			return vocab.WarnRenderFailure, &vocab.RenderError{Entity: doc.Name, Err: fmt.Errorf("%s: %w", p.Name(), err)}
		}
		encoded[i] = buf.Bytes()
	}

	written := make([]string, 0, len(w.opts.Profiles))
	for i, p := range w.opts.Profiles {
		rel := doc.Slug() + p.Ext()
		path := filepath.Join(staging, filepath.FromSlash(rel))
		if err := os.WriteFile(path, encoded[i], 0o644); err != nil {
			for _, done := range written {
				_ = os.Remove(done)
			}
			return vocab.WarnWriteFailure, &vocab.WriteError{Path: rel, Err: err}
		}
		written = append(written, path)
	}
	return "", nil
}

func (w *Writer) writeAux(ctx context.Context, staging string, docs []*render.Document, entries []SearchEntry, artifacts []Artifact) error {
	files := []Artifact{{
		Path:  "search.json",
		Write: func(out io.Writer) error { return render.EncodeJSON(out, entries) },
	}}
	if w.opts.Nav != nil {
		files = append(files,
			Artifact{Path: "nav.json", Write: func(out io.Writer) error {
				return render.EncodeJSON(out, w.opts.Nav.FullNavTree())
			}},
			Artifact{Path: "things/meta.json", Write: func(out io.Writer) error {
				return render.EncodeJSON(out, w.opts.Nav.SidebarMeta())
			}},
		)
	}
	for _, p := range w.opts.Profiles {
		if html, ok := p.(*render.HTMLProfile); ok {
			files = append(files, Artifact{Path: "index.html", Write: func(out io.Writer) error {
				return html.EncodeIndex(out, "Types", indexEntries(docs))
			}})
		}
	}
	files = append(files, artifacts...)

	for _, a := range files {
		if err := writeFile(staging, a.Path, a.Write); err != nil {
			return fmt.Errorf("%w: %v", vocab.ErrStorageUnavailable, err)
		}
	}
	for _, sink := range w.opts.Sinks {
		path := filepath.Join(staging, filepath.FromSlash(sink.File()))
		if err := sink.WriteIndex(ctx, path, entries); err != nil {
			return fmt.Errorf("%w: writing %s: %v", vocab.ErrStorageUnavailable, sink.File(), err)
		}
	}
	return nil
}

// swap replaces the output root with the staging directory. The previous
// tree is moved aside first and restored if the final rename fails.
func (w *Writer) swap(staging string) error {
	root := filepath.Clean(w.root)
	if err := os.MkdirAll(filepath.Dir(root), 0o755); err != nil {
		return fmt.Errorf("%w: %v", vocab.ErrStorageUnavailable, err)
	}

	old := root + ".old-" + w.opts.RunID
	hadOld := false
	if _, err := os.Stat(root); err == nil {
		if err := os.Rename(root, old); err != nil {
			return fmt.Errorf("%w: moving previous corpus aside: %v", vocab.ErrStorageUnavailable, err)
		}
		hadOld = true
	}
	if err := os.Rename(staging, root); err != nil {
		if hadOld {
			_ = os.Rename(old, root)
		}
		return fmt.Errorf("%w: installing corpus: %v", vocab.ErrStorageUnavailable, err)
	}
	if hadOld {
		if err := os.RemoveAll(old); err != nil {
			w.logger.Warn("Could not remove previous corpus", slog.String("path", old), slog.String("error", err.Error()))
		}
	}
	return nil
}

func writeFile(dir, rel string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return fmt.Errorf("encoding %s: %w", rel, err)
	}
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// navCurrent is the page whose breadcrumb the sidebar expands. Property
// pages have no place in the type tree and get a collapsed sidebar.
func navCurrent(doc *render.Document) string {
	if doc.Kind == vocab.KindType {
		return doc.Name
	}
	return ""
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
