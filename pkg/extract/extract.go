// Package extract saves every historical version of a file tracked in a jj
// repository as its own timestamped file.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/esafeeds/devenv/pkg/jj"
	"github.com/esafeeds/devenv/pkg/logger"
	"github.com/esafeeds/devenv/pkg/telemetry"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Defaults for Options
const (
	DefaultOutputDir   = "/tmp/esa-feeds"
	DefaultFile        = "feed.json"
	DefaultConcurrency = 50
)

// Source is the repository history the versions are read from
type Source interface {
	Log(ctx context.Context, revset string) ([]jj.Commit, error)
	FileShow(ctx context.Context, rev, file string) ([]byte, error)
}

// Options configures Run
type Options struct {
	OutputDir string
	// File is relative to the repository root
	File        string
	Revset      string
	Concurrency int
}

func (o *Options) setDefaults() {
	if o.OutputDir == "" {
		o.OutputDir = DefaultOutputDir
	}
	if o.File == "" {
		o.File = DefaultFile
	}
	if o.Concurrency < 1 {
		o.Concurrency = DefaultConcurrency
	}
}

// Summary reports the outcome of Run
type Summary struct {
	Commits   int
	Succeeded int
	Failed    int
	// Written lists the created files, sorted
	Written []string
}

// FileName is the output name for a commit: <timestamp>_<commit>.json
func FileName(c jj.Commit) string {
	return fmt.Sprintf("%s_%s.json", c.Timestamp, c.ID)
}

// Run extracts opts.File at every commit of opts.Revset into opts.OutputDir.
// All commits are attempted; the returned error aggregates every failed
// extraction and the summary is returned alongside it.
func Run(ctx context.Context, src Source, opts Options) (*Summary, error) {
	opts.setDefaults()
	log := logger.G(ctx).WithFields(logrus.Fields{"output_dir": opts.OutputDir, "file": opts.File})

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory %s", opts.OutputDir)
	}

	commits, err := src.Log(ctx, opts.Revset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch commit history")
	}
	log.WithField("commits", len(commits)).Info("fetched commit history")

	summary := &Summary{Commits: len(commits)}
	var (
		mu     sync.Mutex
		result *multierror.Error
	)

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for _, commit := range commits {
		g.Go(func() error {
			target, err := extractOne(ctx, src, commit, opts)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.WithError(err).WithField("commit", commit.ID).Error("extraction failed")
				result = multierror.Append(result, err)
				summary.Failed++
				return nil
			}
			summary.Succeeded++
			summary.Written = append(summary.Written, target)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(summary.Written)
	log.WithFields(logrus.Fields{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	}).Info("extraction complete")

	if err := result.ErrorOrNil(); err != nil {
		return summary, errors.Wrapf(err, "%d of %d extractions failed", summary.Failed, summary.Commits)
	}
	return summary, nil
}

func extractOne(ctx context.Context, src Source, commit jj.Commit, opts Options) (string, error) {
	target := filepath.Join(opts.OutputDir, FileName(commit))

	err := telemetry.WithSpan(ctx, "extract.commit", func(ctx context.Context) error {
		logger.G(ctx).WithField("commit", commit.ID).WithField("target", target).Debug("extracting file")

		content, err := src.FileShow(ctx, commit.ID, opts.File)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, content, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write %s", target)
		}
		return nil
	}, attribute.String("jj.commit", commit.ID))

	return target, err
}
