package jsonscan

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/esafeeds/devenv/pkg/logger"
	"github.com/esafeeds/devenv/pkg/telemetry"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Pattern selects the files analyzed under the scanned directory
const Pattern = "**/*.json"

// Options configures Scan
type Options struct {
	// Exclude holds globs matched against slash separated paths relative to
	// the scanned directory
	Exclude []string
	// Concurrency of 0 means GOMAXPROCS
	Concurrency int
}

// Warning is a file that could not be analyzed
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return w.Path + ": " + w.Err.Error()
}

// Result is the outcome of Scan
type Result struct {
	Root string
	// Files lists the analyzed files relative to Root, sorted
	Files    []string
	Schema   *Schema
	Warnings []Warning
}

// Scan analyzes every JSON file below root in parallel and merges the
// results. Files that fail to analyze become warnings.
func Scan(ctx context.Context, root string, opts Options) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to access %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", root)
	}

	files, err := Find(root, opts.Exclude)
	if err != nil {
		return nil, err
	}
	logger.G(ctx).WithField("root", root).WithField("files", len(files)).Debug("found JSON files")

	result := &Result{Root: root, Files: files, Schema: NewSchema()}
	err = telemetry.WithSpan(ctx, "jsonscan.scan", func(ctx context.Context) error {
		schemas, warnings, err := analyzeAll(ctx, root, files, opts.Concurrency)
		if err != nil {
			return err
		}
		for _, s := range schemas {
			result.Schema.Merge(s)
		}
		result.Warnings = warnings
		return nil
	}, attribute.String("jsonscan.root", root), attribute.Int("jsonscan.files", len(files)))
	if err != nil {
		return nil, err
	}

	for _, w := range result.Warnings {
		logger.G(ctx).WithError(w.Err).WithField("file", w.Path).Debug("failed to process file")
	}
	return result, nil
}

// Find returns the JSON files below root not matching any exclude glob,
// relative to root with forward slashes and sorted
func Find(root string, exclude []string) ([]string, error) {
	excludes := make([]glob.Glob, 0, len(exclude))
	for _, pattern := range exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid exclude pattern %q", pattern)
		}
		excludes = append(excludes, g)
	}

	matches, err := doublestar.Glob(os.DirFS(root), Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search %s", root)
	}

	files := matches[:0]
	for _, m := range matches {
		if !excluded(m, excludes) {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func excluded(path string, excludes []glob.Glob) bool {
	for _, g := range excludes {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// AnalyzeFile analyzes a single file
func AnalyzeFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Analyze(f)
}

func analyzeAll(ctx context.Context, root string, files []string, concurrency int) ([]*Schema, []Warning, error) {
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	schemas := make([]*Schema, len(files))
	failures := make([]error, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, rel := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			schemas[i], failures[i] = AnalyzeFile(filepath.Join(root, filepath.FromSlash(rel)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "scan interrupted")
	}

	var warnings []Warning
	for i, err := range failures {
		if err != nil {
			warnings = append(warnings, Warning{Path: files[i], Err: err})
		}
	}
	return schemas, warnings, nil
}
