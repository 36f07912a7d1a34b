package venv

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/esafeeds/devenv/pkg/logger"
	"github.com/esafeeds/devenv/pkg/telemetry"
	"github.com/esafeeds/devenv/pkg/version"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("devenv.venv")

// Result is the outcome of a successful bootstrap
type Result struct {
	Path string
	// Created is true when the creator ran during this invocation
	Created bool
	// Adopted is true when an environment without marker was accepted
	Adopted    bool
	Activation *Activation
	// Message is the confirmation line, e.g. "Activated venv"
	Message string
}

// Bootstrapper ensures an environment exists and activates it
type Bootstrapper struct {
	creator Creator
	opts    CreateOptions
	out     io.Writer
	environ func() []string
	now     func() time.Time
}

// BootstrapOption configures a Bootstrapper
type BootstrapOption func(*Bootstrapper)

// WithOutput sets where the confirmation line goes (default os.Stdout)
func WithOutput(w io.Writer) BootstrapOption {
	return func(b *Bootstrapper) { b.out = w }
}

// WithCreateOptions sets the options passed to the creator
func WithCreateOptions(opts CreateOptions) BootstrapOption {
	return func(b *Bootstrapper) { b.opts = opts }
}

// WithEnviron sets the process environment activation is computed against
// (default os.Environ)
func WithEnviron(fn func() []string) BootstrapOption {
	return func(b *Bootstrapper) { b.environ = fn }
}

// WithClock replaces time.Now for the marker timestamp
func WithClock(now func() time.Time) BootstrapOption {
	return func(b *Bootstrapper) { b.now = now }
}

// New creates a Bootstrapper using creator for environments that are absent
func New(creator Creator, opts ...BootstrapOption) *Bootstrapper {
	b := &Bootstrapper{
		creator: creator,
		out:     os.Stdout,
		environ: os.Environ,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bootstrap is New(creator).Bootstrap(ctx, path)
func Bootstrap(ctx context.Context, path string, creator Creator) (*Result, error) {
	return New(creator).Bootstrap(ctx, path)
}

// Bootstrap creates the environment at path if it is absent or incomplete,
// activates it and prints the confirmation. Creation failures stop before
// activation; nothing is printed for a failed invocation.
func (b *Bootstrapper) Bootstrap(ctx context.Context, path string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "venv.bootstrap")
	defer span.End()
	span.SetAttributes(attribute.String("venv.path", path))

	ctx = logger.WithFields(ctx, logrus.Fields{"path": path})
	result := &Result{Path: path}

	if err := b.ensure(ctx, path, result); err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}

	act, err := Activate(path, b.environ())
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	result.Activation = act
	result.Message = "Activated " + filepath.Base(filepath.Clean(path))

	span.SetAttributes(
		attribute.Bool("venv.created", result.Created),
		attribute.Bool("venv.adopted", result.Adopted),
	)
	span.SetStatus(codes.Ok, "")

	fmt.Fprintln(b.out, result.Message)
	return result, nil
}

func (b *Bootstrapper) ensure(ctx context.Context, path string, result *Result) error {
	status, err := Inspect(path)
	if err != nil {
		return newError(KindCreationFailed, path, err)
	}

	switch status.State {
	case StateComplete:
		logger.G(ctx).Debug("environment present, skipping creation")
		return nil
	case StateAdoptable:
		return b.adopt(ctx, path, status, result)
	case StateInvalid:
		return newError(KindCreationFailed, path, errors.New("path exists and is not a directory"))
	}

	unlock, err := lockCreation(path)
	if err != nil {
		return newError(KindCreationFailed, path, err)
	}
	defer unlock()

	// another session may have finished while we waited for the lock
	status, err = Inspect(path)
	if err != nil {
		return newError(KindCreationFailed, path, err)
	}
	switch status.State {
	case StateComplete:
		return nil
	case StateAdoptable:
		return b.adopt(ctx, path, status, result)
	case StateInvalid:
		return newError(KindCreationFailed, path, errors.New("path exists and is not a directory"))
	}

	return b.create(ctx, path, status.State == StatePartial, result)
}

func (b *Bootstrapper) create(ctx context.Context, path string, partial bool, result *Result) error {
	ctx, span := tracer.Start(ctx, "venv.create")
	defer span.End()

	opts := b.opts
	opts.Clear = partial

	log := logger.G(ctx).WithField("tool", b.creator.Name())
	if partial {
		log.Warn("environment is incomplete, recreating it")
	}
	log.Debug("creating environment")

	if err := b.creator.Create(ctx, path, opts); err != nil {
		telemetry.RecordError(ctx, err)
		return newError(KindCreationFailed, path, err)
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		err = errors.Errorf("%s did not produce an environment directory", b.creator.Name())
		span.SetStatus(codes.Error, err.Error())
		return newError(KindCreationFailed, path, err)
	}

	if err := writeMarker(path, b.marker(path, false)); err != nil {
		return newError(KindCreationFailed, path, err)
	}

	result.Created = true
	span.SetStatus(codes.Ok, "")
	return nil
}

func (b *Bootstrapper) adopt(ctx context.Context, path string, status *Status, result *Result) error {
	m := b.marker(path, true)
	m.Tool, m.ToolVersion = "external", ""
	m.Python = status.PythonVersion
	m.Prompt = status.Prompt
	if err := writeMarker(path, m); err != nil {
		return newError(KindCreationFailed, path, err)
	}

	logger.G(ctx).Debug("adopted existing environment")
	result.Adopted = true
	return nil
}

func (b *Bootstrapper) marker(path string, adopted bool) Marker {
	m := Marker{
		ID:            uuid.NewString(),
		Tool:          b.creator.Name(),
		Python:        b.opts.Python,
		Prompt:        b.opts.Prompt,
		Adopted:       adopted,
		CreatedAt:     b.now().UTC(),
		DevenvVersion: version.Get().Version,
	}
	if v, ok := b.creator.(versioned); ok {
		m.ToolVersion = v.ToolVersion()
	}
	if cfg, err := readPyvenvCfg(path); err == nil {
		if pv := pythonVersion(cfg); pv != "" {
			m.Python = pv
		}
		if m.Prompt == "" {
			m.Prompt = cfg["prompt"]
		}
	}
	return m
}

// lockCreation takes the advisory lock serializing creation of path across
// processes. The lock file sits next to the environment, not inside it, so
// it can be taken before the directory exists. Unlocking removes it again:
// the environment directory is the only state left behind, and a waiter that
// still holds the removed file re-inspects the environment before acting.
func lockCreation(path string) (func(), error) {
	clean := filepath.Clean(path)
	parent := filepath.Dir(clean)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create parent directory")
	}

	lockPath := lockFile(clean)
	unlock, err := lockedfile.MutexAt(lockPath).Lock()
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock environment for creation")
	}
	return func() {
		os.Remove(lockPath)
		unlock()
	}, nil
}

func lockFile(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".lock")
}
