package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/Benny93/schemadoc-go/internal/parsers"
	"github.com/Benny93/schemadoc-go/internal/vocab"
)

// SourceFile represents a vocabulary file to be loaded.
type SourceFile struct {
	// Path is the absolute file path.
	Path string

	// RelPath is the path relative to the walked root.
	RelPath string

	// Format is the parser format ("jsonld" or "yaml").
	Format string

	// Content is the file content.
	Content []byte

	// SHA256 is the hash of the file content.
	SHA256 string
}

// Sources are the files of one run: a single base file and zero or more
// extension files forming one extension source.
type Sources struct {
	Base       SourceFile
	Extensions []SourceFile

	// MissingExtensions is the configured extension path when it does
	// not exist. The run then uses the base vocabulary alone.
	MissingExtensions string
}

// Paths returns every source path, base first.
func (s *Sources) Paths() []string {
	paths := []string{s.Base.Path}
	for _, f := range s.Extensions {
		paths = append(paths, f.Path)
	}
	return paths
}

// Fingerprint hashes the content hashes of all sources in order.
func (s *Sources) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(s.Base.SHA256))
	for _, f := range s.Extensions {
		h.Write([]byte(f.RelPath))
		h.Write([]byte(f.SHA256))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Default patterns to ignore (in addition to .gitignore).
var defaultIgnorePatterns = []string{
	".git/",
	"node_modules/",
	".schemadoc/",
	".DS_Store",
}

// DiscoverSources reads the base file and the extensions, which may be a
// single file, a directory, or empty. A missing extensions path is not an
// error; it is recorded in MissingExtensions.
func DiscoverSources(base, extensions string) (*Sources, error) {
	baseFile, err := readSource(base, filepath.Base(base))
	if err != nil {
		return nil, fmt.Errorf("reading base vocabulary: %w", err)
	}
	sources := &Sources{Base: *baseFile}

	if extensions == "" {
		return sources, nil
	}
	info, err := os.Stat(extensions)
	if errors.Is(err, fs.ErrNotExist) {
		sources.MissingExtensions = extensions
		return sources, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading extensions: %w", err)
	}
	if !info.IsDir() {
		f, err := readSource(extensions, filepath.Base(extensions))
		if err != nil {
			return nil, fmt.Errorf("reading extensions: %w", err)
		}
		sources.Extensions = []SourceFile{*f}
		return sources, nil
	}

	patterns, err := loadGitignore(extensions)
	if err != nil {
		return nil, fmt.Errorf("reading .gitignore: %w", err)
	}
	sources.Extensions, err = WalkExtensions(extensions, patterns)
	if err != nil {
		return nil, fmt.Errorf("walking extensions: %w", err)
	}
	return sources, nil
}

func readSource(path, rel string) (*SourceFile, error) {
	p, ok := parsers.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unsupported file type (want one of %s)",
			vocab.ErrParse, path, strings.Join(parsers.Extensions(), ", "))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(content)
	return &SourceFile{
		Path:    abs,
		RelPath: filepath.ToSlash(rel),
		Format:  p.Format(),
		Content: content,
		SHA256:  hex.EncodeToString(hash[:]),
	}, nil
}

// WalkExtensions walks root and returns all supported vocabulary files,
// sorted by relative path.
func WalkExtensions(root string, patterns []gitignore.Pattern) ([]SourceFile, error) {
	var entries []SourceFile

	allPatterns := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns))
	for _, p := range defaultIgnorePatterns {
		allPatterns = append(allPatterns, gitignore.ParsePattern(p, nil))
	}
	allPatterns = append(allPatterns, patterns...)
	matcher := gitignore.NewMatcher(allPatterns)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && shouldSkipDir(d.Name(), path, root, matcher) {
				return filepath.SkipDir
			}
			return nil
		}

		if !isSupportedFile(d.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matcher.Match(splitPath(relPath), false) {
			return nil
		}

		f, err := readSource(path, relPath)
		if err != nil {
			return err
		}
		entries = append(entries, *f)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].RelPath < entries[j].RelPath })
	return entries, nil
}

// loadGitignore loads .gitignore patterns from the root directory.
func loadGitignore(root string) ([]gitignore.Pattern, error) {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns, nil
}

// isSupportedFile checks if a file has a parser.
func isSupportedFile(filename string) bool {
	_, ok := parsers.ForPath(filename)
	return ok
}

// shouldSkipDir checks if a directory should be skipped.
func shouldSkipDir(name, path, root string, matcher gitignore.Matcher) bool {
	if name == ".git" {
		return true
	}

	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return matcher.Match(splitPath(relPath), true)
}

// splitPath splits a path into its components.
func splitPath(path string) []string {
	return strings.Split(path, string(filepath.Separator))
}
