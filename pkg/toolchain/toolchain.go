// Package toolchain locates the external tools the package provider puts on
// PATH (uv and the Python 3.12 toolchain) and runs them. devenv never
// downloads or installs a tool: a tool that cannot be found is an error for
// whichever operation needed it.
package toolchain

import (
	"context"
	"os/exec"
	"strings"
	"sync"

	"github.com/esafeeds/devenv/pkg/logger"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when none of a tool's binaries is on PATH.
var ErrNotFound = errors.New("tool not found")

// Tool describes an external tool supplied by the package provider
type Tool struct {
	// Name is the provider-side name of the tool, e.g. python312Full
	Name string
	// Binaries lists the executable names to look for, in preference order
	Binaries []string
	// VersionArgs are passed to the binary to print its version
	VersionArgs []string
}

var (
	// UV is the Python package and environment manager.
	UV = Tool{
		Name:        "uv",
		Binaries:    []string{"uv"},
		VersionArgs: []string{"--version"},
	}

	// Python312 is the full Python 3.12 toolchain.
	Python312 = Tool{
		Name:        "python312Full",
		Binaries:    []string{"python3.12", "python3", "python"},
		VersionArgs: []string{"--version"},
	}
)

// Resolved is a tool found on the host
type Resolved struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Version string `json:"version,omitempty"`
}

// PathCache provides thread-safe, compute-once caching of a resolution
type PathCache struct {
	resolved Resolved
	err      error
	once     sync.Once
}

// Get returns the cached resolution, computing it once via the provided function
func (c *PathCache) Get(fn func() (Resolved, error)) (Resolved, error) {
	c.once.Do(func() {
		c.resolved, c.err = fn()
	})
	return c.resolved, c.err
}

// Resolver finds tools and probes their versions. Results are cached per
// tool name for the lifetime of the resolver.
type Resolver struct {
	runner    Runner
	lookPath  func(string) (string, error)
	overrides map[string]string

	mu     sync.Mutex
	caches map[string]*PathCache
}

// Option configures a Resolver
type Option func(*Resolver)

// WithOverride pins a tool to an explicit binary path, skipping PATH lookup.
// An empty path is ignored so unset configuration keys can be passed as is.
func WithOverride(toolName, path string) Option {
	return func(r *Resolver) {
		if path != "" {
			r.overrides[toolName] = path
		}
	}
}

// WithLookPath replaces exec.LookPath, mainly for tests
func WithLookPath(fn func(string) (string, error)) Option {
	return func(r *Resolver) {
		r.lookPath = fn
	}
}

// NewResolver creates a Resolver that probes versions with the given runner
func NewResolver(runner Runner, opts ...Option) *Resolver {
	r := &Resolver{
		runner:    runner,
		lookPath:  exec.LookPath,
		overrides: map[string]string{},
		caches:    map[string]*PathCache{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the location and version of the tool. A failed version
// probe is not fatal: the tool is still usable, only its version is unknown.
func (r *Resolver) Resolve(ctx context.Context, tool Tool) (Resolved, error) {
	r.mu.Lock()
	cache, ok := r.caches[tool.Name]
	if !ok {
		cache = &PathCache{}
		r.caches[tool.Name] = cache
	}
	r.mu.Unlock()

	return cache.Get(func() (Resolved, error) {
		return r.resolve(ctx, tool)
	})
}

func (r *Resolver) resolve(ctx context.Context, tool Tool) (Resolved, error) {
	log := logger.G(ctx).WithField("tool", tool.Name)

	path, err := r.locate(tool)
	if err != nil {
		return Resolved{}, err
	}

	resolved := Resolved{Name: tool.Name, Path: path}
	if len(tool.VersionArgs) > 0 {
		out, err := r.runner.Run(ctx, path, tool.VersionArgs...)
		if err != nil {
			log.WithError(err).Debug("failed to probe tool version")
		} else {
			resolved.Version = ParseVersion(string(out))
		}
	}

	log.WithField("path", resolved.Path).WithField("version", resolved.Version).Debug("resolved tool")
	return resolved, nil
}

func (r *Resolver) locate(tool Tool) (string, error) {
	if path, ok := r.overrides[tool.Name]; ok {
		found, err := r.lookPath(path)
		if err != nil {
			return "", errors.Wrapf(err, "configured %s binary %q is not executable", tool.Name, path)
		}
		return found, nil
	}

	for _, binary := range tool.Binaries {
		if found, err := r.lookPath(binary); err == nil {
			return found, nil
		}
	}
	return "", errors.Wrapf(ErrNotFound, "%s (looked for %s on PATH)", tool.Name, strings.Join(tool.Binaries, ", "))
}

// ParseVersion extracts the version from `--version` output such as
// "uv 0.4.18 (7b55e9790 2024-10-01)" or "Python 3.12.4".
func ParseVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	default:
		return fields[1]
	}
}
