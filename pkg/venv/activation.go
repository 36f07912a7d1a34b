package venv

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/esafeeds/devenv/pkg/shell"
	"github.com/pkg/errors"
)

// Activation is the set of environment changes that activates an environment.
// Nothing is applied by computing it: callers apply it to a child process
// (Apply) or hand it to the calling shell (Script).
type Activation struct {
	// Path is the absolute environment directory
	Path string
	// BinDir is the absolute directory prepended to PATH
	BinDir string
	// Prompt is the name shown in the shell prompt
	Prompt string
	// PromptPrefix is prepended to PS1, empty when VIRTUAL_ENV_DISABLE_PROMPT is set
	PromptPrefix string
	// StalePrefix is the prompt prefix of the environment being replaced
	StalePrefix string
	// Set holds the variables for a child process. Its PS1 is computed from
	// the given environ and is not used by Script.
	Set   []shell.Var
	Unset []string
}

// Activate computes the activation of the environment at path on top of the
// given process environment. It mirrors bin/activate: a previously active
// environment is deactivated first, PYTHONHOME is dropped and the prompt is
// prefixed unless VIRTUAL_ENV_DISABLE_PROMPT is set.
func Activate(path string, environ []string) (*Activation, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, newError(KindActivationFailed, path, err)
	}

	binDir := BinDir(abs)
	info, err := os.Stat(binDir)
	if err != nil {
		return nil, newError(KindActivationFailed, path, errors.Wrap(err, "environment has no executables directory"))
	}
	if !info.IsDir() {
		return nil, newError(KindActivationFailed, path, errors.Errorf("%s is not a directory", binDir))
	}

	script, err := os.Open(ActivationScript(abs))
	if err != nil {
		return nil, newError(KindActivationFailed, path, errors.Wrap(err, "activation script is missing or unreadable"))
	}
	script.Close()

	prompt := filepath.Base(abs)
	if cfg, err := readPyvenvCfg(abs); err == nil && cfg["prompt"] != "" {
		prompt = cfg["prompt"]
	}

	env := envMap(environ)
	oldPath, oldPS1 := env["PATH"], env["PS1"]
	var stale string
	if previous := env["VIRTUAL_ENV"]; previous != "" {
		oldPath = removePathEntry(oldPath, BinDir(previous))
		if prev := env["VIRTUAL_ENV_PROMPT"]; prev != "" {
			stale = "(" + prev + ") "
			oldPS1 = strings.TrimPrefix(oldPS1, stale)
		}
	}
	oldPath = removePathEntry(oldPath, binDir)

	newPath := binDir
	if oldPath != "" {
		newPath = binDir + string(os.PathListSeparator) + oldPath
	}

	act := &Activation{
		Path:   abs,
		BinDir: binDir,
		Prompt: prompt,
		Set: []shell.Var{
			{Name: "VIRTUAL_ENV", Value: abs},
			{Name: "VIRTUAL_ENV_PROMPT", Value: prompt},
			{Name: "PATH", Value: newPath},
		},
		Unset: []string{"PYTHONHOME"},
	}
	if env["VIRTUAL_ENV_DISABLE_PROMPT"] == "" {
		act.PromptPrefix = "(" + prompt + ") "
		act.StalePrefix = stale
		act.Set = append(act.Set, shell.Var{Name: "PS1", Value: act.PromptPrefix + oldPS1})
	}

	return act, nil
}

// Value returns the value the activation sets for name
func (a *Activation) Value(name string) (string, bool) {
	for _, v := range a.Set {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// Apply returns a copy of environ with the activation applied. Unrelated
// variables keep their order; activated ones are appended.
func (a *Activation) Apply(environ []string) []string {
	drop := make(map[string]bool, len(a.Set)+len(a.Unset))
	for _, v := range a.Set {
		drop[v.Name] = true
	}
	for _, name := range a.Unset {
		drop[name] = true
	}

	out := make([]string, 0, len(environ)+len(a.Set))
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if drop[name] {
			continue
		}
		out = append(out, kv)
	}
	for _, v := range a.Set {
		out = append(out, v.Name+"="+v.Value)
	}
	return out
}

// Script renders the activation for eval by the given shell. The prompt is
// prefixed from the shell's own PS1 rather than the precomputed one, since
// interactive shells do not export PS1.
func (a *Activation) Script(kind shell.Kind) string {
	set := make([]shell.Var, 0, len(a.Set))
	for _, v := range a.Set {
		if v.Name != "PS1" {
			set = append(set, v)
		}
	}
	return shell.Render(kind, set, a.Unset) + shell.PrefixPrompt(kind, a.PromptPrefix, a.StalePrefix)
}

// IsActive reports whether environ already has the environment at path active
func IsActive(path string, environ []string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return envMap(environ)["VIRTUAL_ENV"] == abs
}

func envMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if name, value, ok := strings.Cut(kv, "="); ok {
			env[name] = value
		}
	}
	return env
}

func removePathEntry(pathList, entry string) string {
	if pathList == "" {
		return ""
	}
	parts := filepath.SplitList(pathList)
	kept := parts[:0]
	for _, p := range parts {
		if filepath.Clean(p) != filepath.Clean(entry) {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, string(os.PathListSeparator))
}
