package venv

import (
	"context"
	"strings"
	"sync"

	"github.com/esafeeds/devenv/pkg/logger"
	"github.com/esafeeds/devenv/pkg/toolchain"
	"github.com/pkg/errors"
)

// CreateOptions are passed to a Creator
type CreateOptions struct {
	// Python is the requested interpreter, e.g. "3.12"; empty lets the tool decide
	Python string
	// Prompt overrides the prompt name stored in pyvenv.cfg
	Prompt string
	// Clear is set when the directory exists but holds an incomplete
	// environment that must be overwritten
	Clear bool
}

// Creator creates a virtual environment at a path. It is the capability the
// bootstrapper receives instead of looking tools up itself.
type Creator interface {
	Name() string
	Create(ctx context.Context, path string, opts CreateOptions) error
}

// versioned is implemented by creators that know their tool version
type versioned interface {
	ToolVersion() string
}

// Tool selection values for NewToolCreator
const (
	ToolUV     = "uv"
	ToolPython = "python"
	ToolAuto   = "auto"
)

// UVCreator creates environments with `uv venv`
type UVCreator struct {
	Tool   toolchain.Resolved
	Runner toolchain.Runner
}

// Name returns "uv"
func (c *UVCreator) Name() string { return ToolUV }

// ToolVersion returns the probed uv version, empty when unknown
func (c *UVCreator) ToolVersion() string { return c.Tool.Version }

// Create runs `uv venv` for path
func (c *UVCreator) Create(ctx context.Context, path string, opts CreateOptions) error {
	args := []string{"venv"}
	if opts.Python != "" {
		args = append(args, "--python", opts.Python)
	}
	if opts.Prompt != "" {
		args = append(args, "--prompt", opts.Prompt)
	}
	if opts.Clear {
		args = append(args, "--clear")
	}
	args = append(args, path)

	_, err := c.Runner.Run(ctx, c.Tool.Path, args...)
	return err
}

// PythonCreator creates environments with the interpreter's own venv module
type PythonCreator struct {
	Tool   toolchain.Resolved
	Runner toolchain.Runner
}

// Name returns "python"
func (c *PythonCreator) Name() string { return ToolPython }

// ToolVersion returns the interpreter version, empty when unknown
func (c *PythonCreator) ToolVersion() string { return c.Tool.Version }

// Create runs `python -m venv` for path. A requested Python version the
// interpreter does not match only produces a warning.
func (c *PythonCreator) Create(ctx context.Context, path string, opts CreateOptions) error {
	if opts.Python != "" && c.Tool.Version != "" && !strings.HasPrefix(c.Tool.Version, opts.Python) {
		logger.G(ctx).WithField("requested", opts.Python).WithField("found", c.Tool.Version).
			Warn("python on PATH does not match the requested version")
	}

	args := []string{"-m", "venv"}
	if opts.Prompt != "" {
		args = append(args, "--prompt", opts.Prompt)
	}
	if opts.Clear {
		args = append(args, "--clear")
	}
	args = append(args, path)

	_, err := c.Runner.Run(ctx, c.Tool.Path, args...)
	return err
}

// ToolCreator resolves the configured tool on first use and delegates to
// the matching creator. Resolution is deferred so that an existing
// environment can be activated on hosts where the tool is not installed.
type ToolCreator struct {
	kind     string
	resolver *toolchain.Resolver
	runner   toolchain.Runner

	once     sync.Once
	delegate Creator
	err      error
}

// NewToolCreator validates the tool selection ("uv", "python" or "auto")
func NewToolCreator(kind string, resolver *toolchain.Resolver, runner toolchain.Runner) (*ToolCreator, error) {
	switch kind {
	case ToolUV, ToolPython, ToolAuto:
	case "":
		kind = ToolUV
	default:
		return nil, errors.Errorf("unsupported environment tool %q (supported: uv, python, auto)", kind)
	}
	return &ToolCreator{kind: kind, resolver: resolver, runner: runner}, nil
}

// Name returns the resolved tool, or the configured selection before resolution
func (c *ToolCreator) Name() string {
	if c.delegate != nil {
		return c.delegate.Name()
	}
	return c.kind
}

// ToolVersion returns the resolved tool's version, empty before resolution
func (c *ToolCreator) ToolVersion() string {
	if v, ok := c.delegate.(versioned); ok {
		return v.ToolVersion()
	}
	return ""
}

// Create resolves the tool on first use and delegates to its creator. A
// resolution failure is returned by every later call too.
func (c *ToolCreator) Create(ctx context.Context, path string, opts CreateOptions) error {
	c.once.Do(func() {
		c.delegate, c.err = c.resolve(ctx)
	})
	if c.err != nil {
		return c.err
	}
	return c.delegate.Create(ctx, path, opts)
}

func (c *ToolCreator) resolve(ctx context.Context) (Creator, error) {
	switch c.kind {
	case ToolUV:
		return c.uv(ctx)
	case ToolPython:
		return c.python(ctx)
	}

	creator, err := c.uv(ctx)
	if err == nil {
		return creator, nil
	}
	logger.G(ctx).WithError(err).Debug("uv unavailable, falling back to python -m venv")

	creator, pyErr := c.python(ctx)
	if pyErr != nil {
		return nil, errors.Wrapf(pyErr, "no environment tool available (uv: %v)", err)
	}
	return creator, nil
}

func (c *ToolCreator) uv(ctx context.Context) (Creator, error) {
	resolved, err := c.resolver.Resolve(ctx, toolchain.UV)
	if err != nil {
		return nil, err
	}
	return &UVCreator{Tool: resolved, Runner: c.runner}, nil
}

func (c *ToolCreator) python(ctx context.Context) (Creator, error) {
	resolved, err := c.resolver.Resolve(ctx, toolchain.Python312)
	if err != nil {
		return nil, err
	}
	return &PythonCreator{Tool: resolved, Runner: c.runner}, nil
}
