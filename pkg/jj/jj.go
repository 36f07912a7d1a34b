// Package jj reads history from a Jujutsu repository through the jj CLI.
package jj

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avast/retry-go/v4"
	"github.com/esafeeds/devenv/pkg/logger"
	"github.com/esafeeds/devenv/pkg/telemetry"
	"github.com/esafeeds/devenv/pkg/toolchain"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultBinary is used when no jj path is configured
	DefaultBinary = "jj"
	// DefaultRevset selects every commit from the root to the working copy
	DefaultRevset = "root()..@"

	logTemplate = `concat(commit_id, " ", self.author().timestamp().format("%s"), "\n")`
)

// ErrInvalidUTF8 is returned when jj output is not valid UTF-8
var ErrInvalidUTF8 = errors.New("output is not valid UTF-8")

// Commit is one entry of `jj log`
type Commit struct {
	ID string
	// Timestamp is the author timestamp in seconds since the epoch, as printed
	Timestamp string
}

// RetryConfig controls retries of commands that hit jj's working copy lock
type RetryConfig struct {
	Attempts     uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryConfig retries lock contention twice with exponential backoff
var DefaultRetryConfig = RetryConfig{
	Attempts:     3,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     2 * time.Second,
}

// Client runs jj commands
type Client struct {
	Binary string
	Runner toolchain.Runner
	Retry  RetryConfig
}

// NewClient creates a client for the jj binary, "jj" when empty
func NewClient(binary string, runner toolchain.Runner) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{Binary: binary, Runner: runner, Retry: DefaultRetryConfig}
}

// Log returns the commits of revset, oldest last as jj prints them
func (c *Client) Log(ctx context.Context, revset string) ([]Commit, error) {
	if revset == "" {
		revset = DefaultRevset
	}

	var commits []Commit
	err := telemetry.WithSpan(ctx, "jj.log", func(ctx context.Context) error {
		out, err := c.run(ctx, "log", "--no-graph", "-r", revset, "-T", logTemplate)
		if err != nil {
			return errors.Wrapf(err, "`%s log` failed", c.Binary)
		}
		if !utf8.Valid(out) {
			return errors.Wrapf(ErrInvalidUTF8, "`%s log`", c.Binary)
		}
		commits = ParseLog(ctx, out)
		return nil
	}, attribute.String("jj.revset", revset))

	return commits, err
}

// FileShow returns the content of file, relative to the repository root, at
// revision rev
func (c *Client) FileShow(ctx context.Context, rev, file string) ([]byte, error) {
	out, err := c.run(ctx, "file", "show", "-r", rev, FileSpec(file))
	if err != nil {
		return nil, errors.Wrapf(err, "`%s file show` failed for commit %s", c.Binary, rev)
	}
	if !utf8.Valid(out) {
		return nil, errors.Wrapf(ErrInvalidUTF8, "content of '%s' for commit %s", file, rev)
	}
	return out, nil
}

// FileSpec builds the fileset selecting exactly file from the repository root
func FileSpec(file string) string {
	return `root-file:"` + file + `"`
}

// ParseLog parses `<commit_id> <timestamp>` lines. Blank lines are skipped and
// malformed lines are logged and skipped.
func ParseLog(ctx context.Context, out []byte) []Commit {
	var commits []Commit
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, ts, ok := strings.Cut(line, " ")
		if !ok {
			logger.G(ctx).WithField("line", line).Warn("skipping malformed jj log line")
			continue
		}
		commits = append(commits, Commit{ID: id, Timestamp: ts})
	}
	return commits
}

func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	attempts := c.Retry.Attempts
	if attempts == 0 {
		attempts = 1
	}

	var out []byte
	err := retry.Do(
		func() error {
			var err error
			out, err = c.Runner.Run(ctx, c.Binary, args...)
			return err
		},
		retry.RetryIf(isLockContention),
		retry.Attempts(attempts),
		retry.Delay(c.Retry.InitialDelay),
		retry.MaxDelay(c.Retry.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Debug("jj repository is locked, retrying")
		}),
	)
	return out, err
}

// isLockContention reports whether err is jj failing on a lock held by a
// concurrent jj process
func isLockContention(err error) bool {
	var exitErr *toolchain.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	stderr := strings.ToLower(exitErr.Stderr)
	return strings.Contains(stderr, "lock") || strings.Contains(stderr, "concurrent")
}
